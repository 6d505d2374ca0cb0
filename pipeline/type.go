package pipeline

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/geo"
)

type FrameData struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

// Model is the detection network. Boxes are in the coordinates of the image
// passed to Predict.
type Model interface {
	Predict(img gocv.Mat) ([]model.Candidate, error)
	Close() error
}

// Alerter receives every classified detection; it decides whether to act.
type Alerter interface {
	Fire(ctx context.Context, category model.Category, coord model.WorldCoord) bool
	Stats() model.AlerterStats
}

// ServicesFactory carries what the pipeline needs from main.
type ServicesFactory struct {
	CfgSvc   config.IService
	Opener   Opener
	Model    Model
	Keywords config.Keywords
	Mapper   *geo.Mapper
	Alerter  Alerter
	// OnDetections, if set, sees every published detection set.
	OnDetections func(dets []model.Detection, at time.Time)
}
