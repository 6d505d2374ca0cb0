package pipeline

import (
	"fmt"
	"image"
	"log/slog"
	"strings"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/geo"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

// Engine downsamples frames, runs the model and maps raw labels to
// alert categories.
type Engine struct {
	CfgSvc   config.IService
	model    Model
	fire     []string
	smoke    []string
	fireThr  float32
	smokeThr float32
}

// NewEngine accepts a nil model; such an engine never detects anything.
func NewEngine(cfgSvc config.IService, m Model, kw config.Keywords) *Engine {
	return &Engine{
		CfgSvc:   cfgSvc,
		model:    m,
		fire:     lower(kw.Fire),
		smoke:    lower(kw.Smoke),
		fireThr:  cfgSvc.GetFireThreshold(),
		smokeThr: cfgSvc.GetSmokeThreshold(),
	}
}

func (e *Engine) Loaded() bool {
	return e.model != nil
}

// Infer returns candidates in frame coordinates. Model failures, including
// panics, yield no candidates.
func (e *Engine) Infer(frame gocv.Mat) (candidates []model.Candidate) {
	if e.model == nil || frame.Empty() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			lgr.Logger.Error("inference panicked", slog.Any("panic", r))
			candidates = nil
		}
	}()

	w, h := e.CfgSvc.GetInferenceWidth(), e.CfgSvc.GetInferenceHeight()
	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(frame, &small, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	raw, err := e.model.Predict(small)
	if err != nil {
		lgr.Logger.Error("inference failed", lgr.Err(err))
		return nil
	}

	sx := float64(frame.Cols()) / float64(w)
	sy := float64(frame.Rows()) / float64(h)
	candidates = make([]model.Candidate, 0, len(raw))
	for _, c := range raw {
		c.Box = c.Box.Scale(sx, sy)
		candidates = append(candidates, c)
	}
	return candidates
}

// Classify maps a candidate to Fire or Smoke. Fire wins when both apply.
func (e *Engine) Classify(c model.Candidate) (model.Category, bool) {
	label := strings.ToLower(c.Label)

	if c.Confidence >= e.fireThr && containsAny(label, e.fire) {
		return model.CategoryFire, true
	}
	if c.Confidence >= e.smokeThr && containsAny(label, e.smoke) {
		return model.CategorySmoke, true
	}
	return model.CategoryNone, false
}

// Detect runs inference and classification and attaches ground coordinates.
func (e *Engine) Detect(frame gocv.Mat, mapper *geo.Mapper) []model.Detection {
	dets := []model.Detection{}
	for _, c := range e.Infer(frame) {
		category, ok := e.Classify(c)
		if !ok {
			continue
		}
		dets = append(dets, model.Detection{
			Box:        c.Box,
			Category:   category,
			Label:      c.Label,
			Confidence: c.Confidence,
			World:      mapper.ToWorld(c.Box),
		})
	}
	return dets
}

func containsAny(label string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(label, k) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine(loaded=%t fire>=%.2f smoke>=%.2f)", e.Loaded(), e.fireThr, e.smokeThr)
}
