package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/geo"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

const (
	waitForFrame   = 100 * time.Millisecond
	inferenceYield = 10 * time.Millisecond
	snapshotJPEG   = 90
)

// Pipeline owns the capture and inference loops and the latest results.
// It is built once and shared by whoever needs frames or detections.
type Pipeline struct {
	CfgSvc      config.IService
	ID          string
	source      *FrameSource
	engine      *Engine
	mapper      *geo.Mapper
	alerter     Alerter
	compositor  *Compositor
	audit       *detectionLog
	detections  Latest[[]model.Detection]
	onDetect    func([]model.Detection, time.Time)
	errorStream chan interface{}
	statsStream chan interface{}
	tracer      trace.Tracer

	once  sync.Once
	group *errgroup.Group
	done  chan struct{}

	startTime atomic.Int64
	cycles    atomic.Int64
	found     atomic.Int64
	busyNanos atomic.Int64
}

func New(svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) *Pipeline {
	return &Pipeline{
		CfgSvc:      svcs.CfgSvc,
		ID:          uuid.NewString(),
		source:      NewFrameSource(svcs.CfgSvc, svcs.Opener, errorStream),
		engine:      NewEngine(svcs.CfgSvc, svcs.Model, svcs.Keywords),
		mapper:      svcs.Mapper,
		alerter:     svcs.Alerter,
		compositor:  NewCompositor(svcs.CfgSvc.GetCameraID()),
		audit:       newDetectionLog(svcs.CfgSvc.GetDetectionLogFile()),
		onDetect:    svcs.OnDetections,
		errorStream: errorStream,
		statsStream: statsStream,
		tracer:      otel.Tracer("github.com/khaledhikmat/vs-fire/pipeline"),
		done:        make(chan struct{}),
	}
}

// Start launches the loops on the first call and returns p. Later calls
// return the same running pipeline.
func (p *Pipeline) Start(ctx context.Context) *Pipeline {
	p.once.Do(func() {
		p.startTime.Store(time.Now().Unix())
		lgr.Logger.Info("pipeline starting...",
			slog.String("id", p.ID),
			slog.String("camera", p.CfgSvc.GetCameraID()),
			slog.Bool("modelLoaded", p.engine.Loaded()),
			slog.Bool("calibrated", p.mapper.Loaded()),
		)

		g, gctx := errgroup.WithContext(ctx)
		p.group = g

		p.source.Start(gctx)
		g.Go(func() error {
			<-p.source.Done()
			return nil
		})
		g.Go(func() error {
			p.inferenceLoop(gctx)
			return nil
		})
		g.Go(func() error {
			p.statsLoop(gctx)
			return nil
		})

		go func() {
			g.Wait()
			p.audit.Close()
			close(p.done)
		}()
	})
	return p
}

// Done is closed after every loop has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// NextFrame renders the newest frame with the newest detections.
func (p *Pipeline) NextFrame() ([]byte, bool) {
	frame, ok := p.source.Latest()
	if !ok {
		return nil, false
	}
	defer frame.Mat.Close()

	dets, _ := p.detections.Load()
	jpeg, err := p.compositor.Render(frame.Mat, dets)
	if err != nil {
		lgr.Logger.Debug("frame render failed", lgr.Err(err))
		return nil, false
	}
	return jpeg, true
}

// Snapshot encodes the newest raw frame, without overlay.
func (p *Pipeline) Snapshot() ([]byte, time.Time, bool) {
	frame, ok := p.source.Latest()
	if !ok {
		return nil, time.Time{}, false
	}
	defer frame.Mat.Close()

	jpeg, err := encodeJPEG(frame.Mat, snapshotJPEG)
	if err != nil {
		return nil, time.Time{}, false
	}
	return jpeg, frame.Timestamp, true
}

// Detect classifies img on demand. It neither publishes nor alerts.
func (p *Pipeline) Detect(img gocv.Mat) []model.Detection {
	return p.engine.Detect(img, p.mapper)
}

// Detections returns the newest published detection set.
func (p *Pipeline) Detections() []model.Detection {
	dets, _ := p.detections.Load()
	return dets
}

func (p *Pipeline) Stats() model.InferenceStats {
	uptime := time.Now().Unix() - p.startTime.Load()
	cycles := p.cycles.Load()
	var avg float64
	if cycles > 0 {
		avg = time.Duration(p.busyNanos.Load()).Seconds() / float64(cycles)
	}
	return model.InferenceStats{
		Name:        "inference",
		Camera:      p.CfgSvc.GetCameraID(),
		Cycles:      int(cycles),
		Detections:  int(p.found.Load()),
		Uptime:      uptime,
		AvgProcTime: avg,
	}
}

func (p *Pipeline) inferenceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info("inference loop context cancelled")
			return
		default:
		}

		frame, ok := p.source.Latest()
		if !ok {
			sleep(ctx, waitForFrame)
			continue
		}

		p.cycle(ctx, frame)
		sleep(ctx, inferenceYield)
	}
}

func (p *Pipeline) cycle(ctx context.Context, frame FrameData) {
	defer frame.Mat.Close()

	ctx, span := p.tracer.Start(ctx, "pipeline.cycle")
	defer span.End()

	start := time.Now()
	dets := p.engine.Detect(frame.Mat, p.mapper)
	p.busyNanos.Add(int64(time.Since(start)))
	p.cycles.Add(1)
	p.found.Add(int64(len(dets)))
	span.SetAttributes(attribute.Int("detections", len(dets)))

	p.detections.Store(dets)

	if p.alerter != nil {
		for _, d := range dets {
			p.alerter.Fire(ctx, d.Category, d.World)
		}
	}

	p.audit.write(p.CfgSvc.GetCameraID(), frame.Timestamp, dets)
	if p.onDetect != nil {
		p.onDetect(dets, frame.Timestamp)
	}
}

func (p *Pipeline) statsLoop(ctx context.Context) {
	period := time.Duration(p.CfgSvc.GetStatsPeriodicTimeout()) * time.Second
	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	publish := func() {
		p.emit(p.source.Stats())
		p.emit(p.Stats())
		if p.alerter != nil {
			p.emit(p.alerter.Stats())
		}
	}
	defer publish()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}

func (p *Pipeline) emit(stats interface{}) {
	if p.statsStream == nil {
		return
	}
	select {
	case p.statsStream <- stats:
	default:
		lgr.Logger.Debug("stats stream full, dropping", slog.Any("stats", stats))
	}
}
