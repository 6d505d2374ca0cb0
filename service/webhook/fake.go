package webhook

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/khaledhikmat/vs-fire/model"
)

type fakeService struct {
	calls atomic.Int64
}

// NewFake is used when no webhook url is configured.
func NewFake() IService {
	return &fakeService{}
}

func (svc *fakeService) Notify(_ context.Context, _ model.Category, _ model.WorldCoord, _ time.Time) error {
	svc.calls.Add(1)
	return nil
}
