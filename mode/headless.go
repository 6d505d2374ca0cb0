package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-fire/service/lgr"
)

// Headless runs the capture/inference/alert pipeline without any outer
// surface and persists its errors and stats until cancelled.
func Headless(canxCtx context.Context, svcs ServicesFactory) error {
	svcs.Pipeline.Start(canxCtx)
	return supervise(canxCtx, "headless", svcs)
}

// supervise drains the pipeline streams until cancellation, then keeps
// draining until the pipeline exits or the shutdown period expires.
func supervise(canxCtx context.Context, name string, svcs ServicesFactory) error {
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				name + " mode context cancelled",
			)
			goto resume

		case e := <-svcs.ErrorStream:
			procError(svcs.DataSvc, e)

		case s := <-svcs.StatsStream:
			procStats(svcs.DataSvc, s)
		}
	}

	// Wait in a non-blocking way for the pipeline to exit
	// This is needed because the loops may report errors and stats as they are exiting
resume:
	lgr.Logger.Info(
		name + " mode is waiting for the pipeline to exit",
	)

	period := time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				name+" mode shutdown waiting period expired. Exiting now",
				slog.Duration("period", period),
			)
			return nil

		case <-svcs.Pipeline.Done():
			drain(svcs)
			lgr.Logger.Info(name + " mode pipeline exited")
			return nil

		case e := <-svcs.ErrorStream:
			procError(svcs.DataSvc, e)

		case s := <-svcs.StatsStream:
			procStats(svcs.DataSvc, s)
		}
	}
}

// drain persists whatever is still buffered.
func drain(svcs ServicesFactory) {
	for {
		select {
		case e := <-svcs.ErrorStream:
			procError(svcs.DataSvc, e)
		case s := <-svcs.StatsStream:
			procStats(svcs.DataSvc, s)
		default:
			return
		}
	}
}
