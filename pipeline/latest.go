package pipeline

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Latest holds the most recent value published by a single writer. Values
// must not be mutated after Store.
type Latest[T any] struct {
	mu  sync.RWMutex
	v   T
	set bool
}

func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	l.v = v
	l.set = true
	l.mu.Unlock()
}

func (l *Latest[T]) Load() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v, l.set
}

// frameSlot owns the newest frame. Readers get their own clone.
type frameSlot struct {
	mu  sync.Mutex
	mat *gocv.Mat
	at  time.Time
}

// publish takes ownership of m.
func (s *frameSlot) publish(m gocv.Mat) {
	s.mu.Lock()
	old := s.mat
	s.mat = &m
	s.at = time.Now()
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// snapshot returns a clone the caller must Close.
func (s *frameSlot) snapshot() (FrameData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mat == nil {
		return FrameData{}, false
	}
	return FrameData{Mat: s.mat.Clone(), Timestamp: s.at}, true
}

func (s *frameSlot) close() {
	s.mu.Lock()
	old := s.mat
	s.mat = nil
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}
