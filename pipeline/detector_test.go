package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/geo"
)

func TestClassifyBoundaries(t *testing.T) {
	e := NewEngine(newTestConfig(), nil, config.DefaultKeywords())

	tests := []struct {
		label string
		conf  float32
		want  model.Category
		ok    bool
	}{
		{"fire", 0.40, model.CategoryFire, true},
		{"fire", 0.39, model.CategoryNone, false},
		{"smoke", 0.35, model.CategorySmoke, true},
		{"smoke", 0.34, model.CategoryNone, false},
		{"Flame", 0.9, model.CategoryFire, true},
		{"SMOKE_CLOUD", 0.5, model.CategorySmoke, true},
		{"person", 0.99, model.CategoryNone, false},
		// "fogo" also contains the smoke keyword "fog"
		{"fogo", 0.37, model.CategorySmoke, true},
		{"fogo", 0.41, model.CategoryFire, true},
	}

	for _, tt := range tests {
		got, ok := e.Classify(model.Candidate{Label: tt.label, Confidence: tt.conf})
		assert.Equal(t, tt.ok, ok, "%s@%.2f", tt.label, tt.conf)
		assert.Equal(t, tt.want, got, "%s@%.2f", tt.label, tt.conf)
	}
}

func TestClassifyCustomKeywords(t *testing.T) {
	e := NewEngine(newTestConfig(), nil, config.Keywords{Fire: []string{"Incendio"}, Smoke: []string{"humo"}})

	cat, ok := e.Classify(model.Candidate{Label: "incendio_forestal", Confidence: 0.5})
	assert.True(t, ok)
	assert.Equal(t, model.CategoryFire, cat)

	_, ok = e.Classify(model.Candidate{Label: "fire", Confidence: 0.9})
	assert.False(t, ok)
}

func TestInferWithoutModel(t *testing.T) {
	e := NewEngine(newTestConfig(), nil, config.DefaultKeywords())
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	assert.False(t, e.Loaded())
	assert.Empty(t, e.Infer(frame))
	assert.Empty(t, e.Detect(frame, nil))
}

func TestInferRescalesBoxes(t *testing.T) {
	m := &fakeModel{candidates: []model.Candidate{
		{Box: model.Box{X1: 25, Y1: 30, X2: 75, Y2: 100}, Label: "fire", Confidence: 0.9},
	}}
	e := NewEngine(newTestConfig(), m, config.DefaultKeywords())
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	got := e.Infer(frame)
	require.Len(t, got, 1)
	assert.Equal(t, model.Box{X1: 50, Y1: 60, X2: 150, Y2: 200}, got[0].Box)
	assert.Equal(t, [2]int{320, 240}, m.lastSize.Load())
}

func TestInferSurvivesModelFailures(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	failing := NewEngine(newTestConfig(), &fakeModel{err: errors.New("bad tensor")}, config.DefaultKeywords())
	assert.Empty(t, failing.Infer(frame))

	panicking := NewEngine(newTestConfig(), &fakeModel{panics: true}, config.DefaultKeywords())
	assert.NotPanics(t, func() {
		assert.Empty(t, panicking.Infer(frame))
	})
}

func TestDetectAttachesWorldCoordinates(t *testing.T) {
	m := &fakeModel{candidates: []model.Candidate{
		{Box: model.Box{X1: 50, Y1: 50, X2: 100, Y2: 100}, Label: "fire", Confidence: 0.8},
		{Box: model.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, Label: "person", Confidence: 0.99},
		{Box: model.Box{X1: 10, Y1: 10, X2: 20, Y2: 20}, Label: "smoke", Confidence: 0.2},
	}}
	e := NewEngine(newTestConfig(), m, config.DefaultKeywords())
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	mapper := geo.NewMapper(geo.Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	dets := e.Detect(frame, mapper)
	require.Len(t, dets, 1)
	assert.Equal(t, model.CategoryFire, dets[0].Category)
	// box (100,100,200,200) in frame space, ground point (150,200)
	assert.Equal(t, model.WorldCoord{X: 150, Y: 200}, dets[0].World)

	uncalibrated := e.Detect(frame, nil)
	require.Len(t, uncalibrated, 1)
	assert.True(t, uncalibrated[0].World.IsZero())
}
