package publisher

import (
	"context"
	"sync"

	"github.com/khaledhikmat/vs-fire/model"
)

// Fake keeps published events in memory.
type Fake struct {
	mu     sync.Mutex
	events []model.AlertEvent
}

func NewFake() *Fake {
	return &Fake{}
}

func (svc *Fake) Publish(_ context.Context, event model.AlertEvent) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.events = append(svc.events, event)
	return nil
}

func (svc *Fake) Close() error {
	return nil
}

func (svc *Fake) Events() []model.AlertEvent {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]model.AlertEvent{}, svc.events...)
}
