package pipeline

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

const (
	retryDelay = 500 * time.Millisecond
	frameYield = 5 * time.Millisecond
	// consecutive read failures before the device is reopened
	reopenAfter = 10
)

// Capture is the part of gocv.VideoCapture the framer uses.
type Capture interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

type Opener func(source string) (Capture, error)

// OpenCamera opens a device index ("0") or any stream URL gocv understands.
func OpenCamera(source string) (Capture, error) {
	var device interface{} = source
	if id, err := strconv.Atoi(source); err == nil {
		device = id
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// FrameSource keeps the newest camera frame available. Device failures never
// stop it: it publishes a NO SIGNAL frame and keeps retrying.
type FrameSource struct {
	CfgSvc      config.IService
	open        Opener
	slot        frameSlot
	errorStream chan interface{}

	once sync.Once
	done chan struct{}

	startTime    atomic.Int64
	frames       atomic.Int64
	placeholders atomic.Int64
	errors       atomic.Int64
}

func NewFrameSource(cfgSvc config.IService, open Opener, errorStream chan interface{}) *FrameSource {
	if open == nil {
		open = OpenCamera
	}
	return &FrameSource{
		CfgSvc:      cfgSvc,
		open:        open,
		errorStream: errorStream,
		done:        make(chan struct{}),
	}
}

// Start launches the capture loop once. Later calls do nothing.
func (fs *FrameSource) Start(ctx context.Context) {
	fs.once.Do(func() {
		fs.startTime.Store(time.Now().Unix())
		go func() {
			defer close(fs.done)
			fs.run(ctx)
		}()
	})
}

// Done is closed once the capture loop has exited.
func (fs *FrameSource) Done() <-chan struct{} {
	return fs.done
}

// Latest returns a clone of the newest frame; the caller closes it.
func (fs *FrameSource) Latest() (FrameData, bool) {
	return fs.slot.snapshot()
}

func (fs *FrameSource) Stats() model.FramerStats {
	uptime := time.Now().Unix() - fs.startTime.Load()
	frames := int(fs.frames.Load())
	fps := 0
	if uptime > 0 {
		fps = int(float64(frames) / float64(uptime))
	}
	return model.FramerStats{
		Name:         "framer",
		Camera:       fs.CfgSvc.GetCameraID(),
		FPS:          fps,
		Frames:       frames,
		Placeholders: int(fs.placeholders.Load()),
		Errors:       int(fs.errors.Load()),
		Uptime:       uptime,
	}
}

func (fs *FrameSource) run(ctx context.Context) {
	source := fs.CfgSvc.GetCameraSource()
	lgr.Logger.Info("framer starting...",
		slog.String("camera", fs.CfgSvc.GetCameraID()),
		slog.String("source", source),
		slog.String("openCV", gocv.Version()),
	)

	var device Capture
	defer func() {
		if device != nil {
			device.Close()
		}
		fs.slot.close()
	}()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info("framer context cancelled")
			return
		default:
		}

		if device == nil || !device.IsOpened() {
			if device != nil {
				device.Close()
				device = nil
			}

			d, err := fs.open(source)
			if err != nil || d == nil || !d.IsOpened() {
				if err == nil {
					err = xerrors.New("device not opened")
				}
				if d != nil {
					d.Close()
				}
				fs.fail(ctx, err, "error opening video source %s", source)
				continue
			}
			device = d
			failures = 0
			lgr.Logger.Info("framer opened video source", slog.String("source", source))
		}

		img := gocv.NewMat()
		if ok := device.Read(&img); !ok || img.Empty() {
			img.Close()
			failures++
			if failures >= reopenAfter {
				device.Close()
				device = nil
			}
			fs.fail(ctx, xerrors.New("empty frame"), "error reading frame from %s", source)
			continue
		}
		failures = 0

		fs.slot.publish(fs.normalize(img))
		fs.frames.Add(1)
		sleep(ctx, frameYield)
	}
}

// normalize resizes frames taller than the target height; it takes
// ownership of img.
func (fs *FrameSource) normalize(img gocv.Mat) gocv.Mat {
	w, h := fs.CfgSvc.GetFrameWidth(), fs.CfgSvc.GetFrameHeight()
	if img.Rows() <= h {
		return img
	}

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	img.Close()
	return resized
}

func (fs *FrameSource) fail(ctx context.Context, err error, format string, args ...interface{}) {
	n := fs.errors.Add(1)
	// one report per burst is enough
	if n == 1 || n%100 == 0 {
		report(fs.errorStream, model.GenError("framer", err, map[string]interface{}{"failures": n}, format, args...))
	}

	fs.slot.publish(Placeholder(fs.CfgSvc.GetFrameWidth(), fs.CfgSvc.GetFrameHeight()))
	fs.placeholders.Add(1)
	sleep(ctx, retryDelay)
}

// Placeholder is a black frame with a centered NO SIGNAL banner.
func Placeholder(w, h int) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
	gocv.PutText(&img, "NO SIGNAL", image.Pt(w/2-60, h/2), gocv.FontHersheySimplex, 1, color.RGBA{255, 255, 255, 0}, 2)
	return img
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// report never blocks the caller when nobody drains the stream.
func report(stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}
	select {
	case stream <- v:
	default:
		lgr.Logger.Warn("error stream full, dropping report", slog.Any("report", v))
	}
}
