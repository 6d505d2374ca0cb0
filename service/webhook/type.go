package webhook

import (
	"context"
	"time"

	"github.com/khaledhikmat/vs-fire/model"
)

// IService notifies the automation webhook of a fired alert.
type IService interface {
	Notify(ctx context.Context, category model.Category, coord model.WorldCoord, at time.Time) error
}
