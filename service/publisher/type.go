package publisher

import (
	"context"

	"github.com/khaledhikmat/vs-fire/model"
)

// IService publishes fired alerts as events for downstream subscribers.
type IService interface {
	Publish(ctx context.Context, event model.AlertEvent) error
	Close() error
}
