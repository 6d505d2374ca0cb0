package mode

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hybridgroup/mjpeg"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

const (
	liveViewInterval = 40 * time.Millisecond
	maxUploadSize    = 16 << 20
)

// Server runs the pipeline plus the live view and operator endpoints.
func Server(canxCtx context.Context, svcs ServicesFactory) error {
	svcs.Pipeline.Start(canxCtx)

	live := newLiveView()
	go live.pump(canxCtx, liveViewInterval, svcs.Pipeline.NextFrame)

	if svcs.BroadcastSvc != nil {
		go svcs.BroadcastSvc.Run(canxCtx)
	}

	srv := &http.Server{
		Addr:              svcs.CfgSvc.GetServerAddress(),
		Handler:           NewRouter(svcs, live),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lgr.Logger.Info("server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			reportError(svcs, model.GenError("server", err, nil, "error serving http on %s", srv.Addr))
		}
	}()

	go func() {
		<-canxCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			lgr.Logger.Warn("server shutdown", lgr.Err(err))
		}
	}()

	return supervise(canxCtx, "server", svcs)
}

// liveView serves the composited mjpeg stream. Frames are only rendered
// while at least one viewer is connected.
type liveView struct {
	stream  *mjpeg.Stream
	viewers atomic.Int64
}

func newLiveView() *liveView {
	return &liveView{stream: mjpeg.NewStream()}
}

func (lv *liveView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lv.viewers.Add(1)
	defer lv.viewers.Add(-1)
	lv.stream.ServeHTTP(w, r)
}

func (lv *liveView) pump(canxCtx context.Context, interval time.Duration, next func() ([]byte, bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			return
		case <-ticker.C:
			if lv.viewers.Load() == 0 {
				continue
			}
			if jpeg, ok := next(); ok {
				lv.stream.UpdateJPEG(jpeg)
			}
		}
	}
}
