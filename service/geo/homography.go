package geo

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

// Homography is a 3x3 projective transform from image pixels to ground
// meters, row-major.
type Homography [3][3]float64

// Mapper converts detection boxes to ground coordinates. A nil Mapper, or one
// without a transform, maps everything to (0,0).
type Mapper struct {
	h *Homography
}

func NewMapper(h Homography) *Mapper {
	return &Mapper{h: &h}
}

// Load reads a calibration artifact. The format is picked by extension:
// .npy, .json or .yaml/.yml.
func Load(path string) (*Mapper, error) {
	var (
		values []float64
		err    error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		values, err = readNpy(path)
	case ".json":
		values, err = readMatrix(path, json.Unmarshal)
	case ".yaml", ".yml":
		values, err = readMatrix(path, yaml.Unmarshal)
	default:
		return nil, xerrors.Errorf("unsupported calibration format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	if len(values) != 9 {
		return nil, xerrors.Errorf("calibration %s: expected 9 values, got %d", path, len(values))
	}

	var h Homography
	for i, v := range values {
		h[i/3][i%3] = v
	}
	return NewMapper(h), nil
}

func (m *Mapper) Loaded() bool {
	return m != nil && m.h != nil
}

// ToWorld projects the box's ground contact point through the homography.
func (m *Mapper) ToWorld(b model.Box) model.WorldCoord {
	if !m.Loaded() {
		return model.WorldCoord{}
	}

	u, v := b.GroundPoint()
	h := m.h
	x := h[0][0]*u + h[0][1]*v + h[0][2]
	y := h[1][0]*u + h[1][1]*v + h[1][2]
	w := h[2][0]*u + h[2][1]*v + h[2][2]

	// point at infinity
	if math.Abs(w) < 1e-12 {
		lgr.Logger.Warn("ground point projects to infinity, reporting (0,0)",
			slog.Float64("u", u),
			slog.Float64("v", v),
		)
		return model.WorldCoord{}
	}
	return model.WorldCoord{X: x / w, Y: y / w}
}

func readNpy(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening calibration %s: %w", path, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, xerrors.Errorf("reading npy header %s: %w", path, err)
	}

	n := 1
	for _, d := range r.Header.Descr.Shape {
		n *= d
	}
	if n != 9 {
		return nil, xerrors.Errorf("calibration %s: shape %v is not 3x3", path, r.Header.Descr.Shape)
	}

	var values []float64
	if err := r.Read(&values); err != nil {
		return nil, xerrors.Errorf("reading npy data %s: %w", path, err)
	}
	return values, nil
}

// readMatrix accepts either a nested [[..],[..],[..]] matrix or a flat list.
func readMatrix(path string, unmarshal func([]byte, interface{}) error) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("opening calibration %s: %w", path, err)
	}

	var nested [][]float64
	if err := unmarshal(data, &nested); err == nil {
		var values []float64
		for _, row := range nested {
			if len(row) != 3 {
				return nil, xerrors.Errorf("calibration %s: row has %d values", path, len(row))
			}
			values = append(values, row...)
		}
		return values, nil
	}

	var flat []float64
	if err := unmarshal(data, &flat); err != nil {
		return nil, xerrors.Errorf("parsing calibration %s: %w", path, err)
	}
	return flat, nil
}
