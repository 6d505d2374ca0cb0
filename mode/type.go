package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/pipeline"
	"github.com/khaledhikmat/vs-fire/service/broadcast"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/data"
	"github.com/khaledhikmat/vs-fire/service/incident"
	"github.com/khaledhikmat/vs-fire/service/lgr"
	"github.com/khaledhikmat/vs-fire/service/storage"
)

// ServicesFactory is what main hands to a mode processor.
type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	IncidentSvc  incident.IService
	StorageSvc   storage.IService
	BroadcastSvc broadcast.IService
	Pipeline     *pipeline.Pipeline
	ErrorStream  chan interface{}
	StatsStream  chan interface{}
}

type Processor func(canxCtx context.Context, svcs ServicesFactory) error

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	case model.InferenceStats:
		err = datasvc.NewInferenceStats(stats)
	case model.AlerterStats:
		err = datasvc.NewAlerterStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			lgr.Err(err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			lgr.Err(errTemp),
		)
	}
}

func reportError(svcs ServicesFactory, err error) {
	select {
	case svcs.ErrorStream <- err:
	default:
		lgr.Logger.Error("error stream full", lgr.Err(err))
	}
}
