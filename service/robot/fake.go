package robot

import (
	"context"

	"github.com/khaledhikmat/vs-fire/model"
)

type fakeService struct {
}

// NewFake is used when no robot host is configured.
func NewFake() IService {
	return &fakeService{}
}

func (svc *fakeService) Goto(_ context.Context, _ model.WorldCoord) error {
	return nil
}
