package pipeline

import (
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

const (
	yoloInputSize = 640
	// candidates below this never reach classification
	yoloScoreFloor = 0.25
)

var yoloDefaultLabels = []string{"fire", "smoke"}

// yoloModel runs a YOLOv8 ONNX export through gocv's dnn module. The net is
// not safe for concurrent use, so Predict is serialized.
type yoloModel struct {
	mu     sync.Mutex
	net    gocv.Net
	labels []string
	nmsThr float32
}

// LoadYolo returns an error when the model file is missing or unreadable.
func LoadYolo(modelPath, labelsPath string, nmsThr float32) (Model, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, xerrors.Errorf("no model at %s: %w", modelPath, err)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, xerrors.Errorf("error reading model %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting target: %w", err)
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		lgr.Logger.Warn("model labels not found, using defaults",
			slog.String("path", labelsPath),
			slog.Any("labels", yoloDefaultLabels),
		)
		labels = yoloDefaultLabels
	}

	return &yoloModel{
		net:    net,
		labels: labels,
		nmsThr: nmsThr,
	}, nil
}

func (m *yoloModel) Predict(img gocv.Mat) ([]model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	// [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 || dims[1] < 5 {
		return nil, xerrors.Errorf("unexpected model output dims: %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	defer reshaped.Close()
	rows := gocv.NewMat()
	defer rows.Close()
	gocv.Transpose(reshaped, &rows)

	sx := float32(img.Cols()) / yoloInputSize
	sy := float32(img.Rows()) / yoloInputSize

	var (
		boxes    []image.Rectangle
		scores   []float32
		classIDs []int
	)
	for i := 0; i < rows.Rows(); i++ {
		classID, score := -1, float32(0)
		for j := 4; j < rows.Cols(); j++ {
			if s := rows.GetFloatAt(i, j); s > score {
				classID, score = j-4, s
			}
		}
		if classID < 0 || score < yoloScoreFloor {
			continue
		}

		cx, cy := rows.GetFloatAt(i, 0), rows.GetFloatAt(i, 1)
		w, h := rows.GetFloatAt(i, 2), rows.GetFloatAt(i, 3)
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		))
		scores = append(scores, score)
		classIDs = append(classIDs, classID)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	var candidates []model.Candidate
	for _, idx := range gocv.NMSBoxes(boxes, scores, yoloScoreFloor, m.nmsThr) {
		r := boxes[idx]
		candidates = append(candidates, model.Candidate{
			Box:        model.Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
			Label:      m.label(classIDs[idx]),
			Confidence: scores[idx],
		})
	}
	return candidates, nil
}

func (m *yoloModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

func (m *yoloModel) label(id int) string {
	if id >= 0 && id < len(m.labels) {
		return m.labels[id]
	}
	return "unknown"
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, l := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return nil, xerrors.Errorf("no labels in %s", path)
	}
	return labels, nil
}
