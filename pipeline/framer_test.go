package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSourceNormalizesTallFrames(t *testing.T) {
	capture := newFakeCapture(720, 1280)
	fs := NewFrameSource(newTestConfig(), func(string) (Capture, error) { return capture, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs.Start(ctx)

	require.True(t, waitFor(func() bool { return fs.Stats().Frames > 0 }, 2*time.Second))
	frame, ok := fs.Latest()
	require.True(t, ok)
	defer frame.Mat.Close()
	assert.Equal(t, 640, frame.Mat.Cols())
	assert.Equal(t, 480, frame.Mat.Rows())

	cancel()
	select {
	case <-fs.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("framer did not stop")
	}
	assert.True(t, capture.closed.Load())
}

func TestFrameSourceKeepsSmallFrames(t *testing.T) {
	capture := newFakeCapture(240, 320)
	fs := NewFrameSource(newTestConfig(), func(string) (Capture, error) { return capture, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs.Start(ctx)

	require.True(t, waitFor(func() bool { return fs.Stats().Frames > 0 }, 2*time.Second))
	frame, ok := fs.Latest()
	require.True(t, ok)
	defer frame.Mat.Close()
	assert.Equal(t, 320, frame.Mat.Cols())
}

func TestFrameSourcePublishesPlaceholderWhenDeviceMissing(t *testing.T) {
	var opens atomic.Int64
	errs := make(chan interface{}, 10)
	fs := NewFrameSource(newTestConfig(), func(string) (Capture, error) {
		opens.Add(1)
		return nil, errors.New("no such device")
	}, errs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs.Start(ctx)

	require.True(t, waitFor(func() bool { return fs.Stats().Placeholders > 0 }, 2*time.Second))
	frame, ok := fs.Latest()
	require.True(t, ok)
	defer frame.Mat.Close()
	assert.Equal(t, 640, frame.Mat.Cols())
	assert.Equal(t, 480, frame.Mat.Rows())

	// keeps retrying at ~500ms
	require.True(t, waitFor(func() bool { return opens.Load() >= 2 }, 2*time.Second))
	assert.NotEmpty(t, errs)
}

func TestFrameSourceRecoversAfterReadFailures(t *testing.T) {
	capture := newFakeCapture(480, 640)
	capture.setFail(true)
	fs := NewFrameSource(newTestConfig(), func(string) (Capture, error) { return capture, nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs.Start(ctx)

	require.True(t, waitFor(func() bool { return fs.Stats().Placeholders > 0 }, 2*time.Second))
	assert.Zero(t, fs.Stats().Frames)

	capture.setFail(false)
	require.True(t, waitFor(func() bool { return fs.Stats().Frames > 0 }, 2*time.Second))
}

func TestFrameSourceStartIsIdempotent(t *testing.T) {
	var opens atomic.Int64
	capture := newFakeCapture(480, 640)
	fs := NewFrameSource(newTestConfig(), func(string) (Capture, error) {
		opens.Add(1)
		return capture, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs.Start(ctx)
	fs.Start(ctx)
	fs.Start(ctx)

	require.True(t, waitFor(func() bool { return fs.Stats().Frames > 5 }, 2*time.Second))
	assert.EqualValues(t, 1, opens.Load())
}

func TestPlaceholderSize(t *testing.T) {
	img := Placeholder(640, 480)
	defer img.Close()
	assert.Equal(t, 640, img.Cols())
	assert.Equal(t, 480, img.Rows())
}
