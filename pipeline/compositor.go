package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/model"
)

const jpegQuality = 60

var (
	fireColor  = color.RGBA{R: 255, A: 255}
	smokeColor = color.RGBA{R: 255, G: 255, A: 255}
	liveColor  = color.RGBA{G: 255, A: 255}
	white      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Compositor draws the CCTV overlay and encodes the result.
type Compositor struct {
	camera string
	now    func() time.Time
}

func NewCompositor(camera string) *Compositor {
	return &Compositor{
		camera: camera,
		now:    time.Now,
	}
}

// Render never touches frame; it draws on a copy.
func (c *Compositor) Render(frame gocv.Mat, dets []model.Detection) ([]byte, error) {
	if frame.Empty() {
		return nil, xerrors.New("empty frame")
	}

	img := frame.Clone()
	defer img.Close()

	fire, smoke := false, false
	for _, d := range dets {
		clr := smokeColor
		if d.Category == model.CategoryFire {
			clr = fireColor
			fire = true
		} else {
			smoke = true
		}

		gocv.Rectangle(&img, d.Box.Rect(), clr, 2)
		gocv.PutText(&img, LabelText(d), image.Pt(d.Box.X1, max(20, d.Box.Y1-5)), gocv.FontHersheyPlain, 1.0, clr, 1)
	}

	if fire {
		gocv.PutText(&img, "WARNING: FIRE DETECTED", image.Pt(10, 30), gocv.FontHersheyPlain, 1.5, fireColor, 2)
	}
	if smoke {
		gocv.PutText(&img, "WARNING: SMOKE DETECTED", image.Pt(10, 60), gocv.FontHersheyPlain, 1.5, smokeColor, 2)
	}

	w, h := img.Cols(), img.Rows()
	gocv.PutText(&img, c.now().Format("2006-01-02 15:04:05"), image.Pt(10, h-10), gocv.FontHersheyPlain, 1.0, white, 1)
	gocv.PutText(&img, c.camera+" [LIVE]", image.Pt(w-120, 20), gocv.FontHersheyPlain, 0.8, liveColor, 1)

	return encodeJPEG(img, jpegQuality)
}

// LabelText is "TAG conf", plus ground coordinates when known.
func LabelText(d model.Detection) string {
	text := fmt.Sprintf("%s %.2f", d.Category.Tag(), d.Confidence)
	if !d.World.IsZero() {
		text += fmt.Sprintf(" | X:%.1fm Y:%.1fm", d.World.X, d.World.Y)
	}
	return text
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, xerrors.Errorf("encoding jpeg: %w", err)
	}
	defer buf.Close()

	// the native buffer is freed on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}
