package main

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
)

type closingModel struct {
	closed atomic.Bool
}

func (m *closingModel) Predict(gocv.Mat) ([]model.Candidate, error) {
	if m.closed.Load() {
		panic("predict on a closed model")
	}
	return nil, nil
}

func (m *closingModel) Close() error {
	m.closed.Store(true)
	return nil
}

func TestModelStaysOpenWhilePipelineRuns(t *testing.T) {
	m := &closingModel{}
	running := make(chan struct{})

	assert.False(t, closeModelAfter(running, m, 50*time.Millisecond))
	assert.False(t, m.closed.Load())
}

func TestModelClosedAfterPipelineExits(t *testing.T) {
	m := &closingModel{}
	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}()

	assert.True(t, closeModelAfter(done, m, time.Second))
	assert.True(t, m.closed.Load())
}

func TestCloseWithoutModel(t *testing.T) {
	done := make(chan struct{})
	close(done)

	assert.True(t, closeModelAfter(done, nil, time.Second))
}
