package robot

import (
	"context"

	"github.com/khaledhikmat/vs-fire/model"
)

// IService sends the response robot to a ground coordinate.
type IService interface {
	Goto(ctx context.Context, coord model.WorldCoord) error
}
