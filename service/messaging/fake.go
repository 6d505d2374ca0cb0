package messaging

import (
	"context"
	"sync"
)

// Fake records every message it is asked to send.
type Fake struct {
	mu   sync.Mutex
	sent []string
	Err  error
}

func NewFake() *Fake {
	return &Fake{}
}

func (svc *Fake) Send(_ context.Context, text string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.sent = append(svc.sent, text)
	return svc.Err
}

func (svc *Fake) Sent() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]string{}, svc.sent...)
}
