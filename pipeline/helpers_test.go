package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
)

type testConfig struct {
	config.IService
}

func newTestConfig() testConfig {
	return testConfig{config.NewHardCoded()}
}

func (testConfig) GetDetectionLogFile() string  { return "" }
func (testConfig) GetStatsPeriodicTimeout() int { return 0 }

type fakeCapture struct {
	mu     sync.Mutex
	frame  gocv.Mat
	fail   bool
	reads  atomic.Int64
	closed atomic.Bool
}

func newFakeCapture(rows, cols int) *fakeCapture {
	return &fakeCapture{frame: gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), rows, cols, gocv.MatTypeCV8UC3)}
}

func (c *fakeCapture) Read(m *gocv.Mat) bool {
	c.reads.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false
	}
	c.frame.CopyTo(m)
	return true
}

func (c *fakeCapture) IsOpened() bool {
	return true
}

func (c *fakeCapture) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeCapture) setFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

type fakeModel struct {
	candidates []model.Candidate
	err        error
	panics     bool
	calls      atomic.Int64
	lastSize   atomic.Value
}

func (m *fakeModel) Predict(img gocv.Mat) ([]model.Candidate, error) {
	m.calls.Add(1)
	m.lastSize.Store([2]int{img.Cols(), img.Rows()})
	if m.panics {
		panic("model exploded")
	}
	return append([]model.Candidate(nil), m.candidates...), m.err
}

func (m *fakeModel) Close() error {
	return nil
}

type countingAlerter struct {
	fires atomic.Int64
}

func (a *countingAlerter) Fire(_ context.Context, _ model.Category, _ model.WorldCoord) bool {
	a.fires.Add(1)
	return true
}

func (a *countingAlerter) Stats() model.AlerterStats {
	return model.AlerterStats{Name: "counting", Fired: a.fires.Load()}
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
