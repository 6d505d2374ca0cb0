package mode

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveViewRendersOnlyForViewers(t *testing.T) {
	var rendered atomic.Int64
	next := func() ([]byte, bool) {
		rendered.Add(1)
		return []byte{0xff, 0xd8, 0xff, 0xd9}, true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lv := newLiveView()
	go lv.pump(ctx, 5*time.Millisecond, next)

	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 0, rendered.Load())

	lv.viewers.Add(1)
	require.Eventually(t, func() bool { return rendered.Load() > 0 }, time.Second, 5*time.Millisecond)

	lv.viewers.Add(-1)
	time.Sleep(20 * time.Millisecond)
	settled := rendered.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, rendered.Load())
}
