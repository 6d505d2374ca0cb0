package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
)

func TestLabelText(t *testing.T) {
	d := model.Detection{Category: model.CategoryFire, Confidence: 0.8734}
	assert.Equal(t, "FOGO 0.87", LabelText(d))

	d.World = model.WorldCoord{X: 1.26, Y: -3}
	assert.Equal(t, "FOGO 0.87 | X:1.3m Y:-3.0m", LabelText(d))

	d = model.Detection{Category: model.CategorySmoke, Confidence: 0.5}
	assert.Equal(t, "FUMACA 0.50", LabelText(d))
}

func TestRenderProducesJPEGAndLeavesInputAlone(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	before := frame.ToBytes()

	c := NewCompositor("CAM-01")
	c.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	jpeg, err := c.Render(frame, []model.Detection{
		{Box: model.Box{X1: 50, Y1: 60, X2: 150, Y2: 200}, Category: model.CategoryFire, Confidence: 0.9},
		{Box: model.Box{X1: 300, Y1: 10, X2: 400, Y2: 100}, Category: model.CategorySmoke, Confidence: 0.5, World: model.WorldCoord{X: 1, Y: 2}},
	})
	require.NoError(t, err)
	require.Greater(t, len(jpeg), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, jpeg[:2])
	assert.Equal(t, before, frame.ToBytes())

	decoded, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()
	assert.Equal(t, 640, decoded.Cols())
	assert.Equal(t, 480, decoded.Rows())
}

func TestRenderWithoutDetections(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	jpeg, err := NewCompositor("CAM-01").Render(frame, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, jpeg)
}

func TestRenderEmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	_, err := NewCompositor("CAM-01").Render(frame, nil)
	assert.Error(t, err)
}

func TestRenderWhileFramesAndDetectionsChange(t *testing.T) {
	var slot frameSlot
	var dets Latest[[]model.Detection]
	slot.publish(gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3))
	defer slot.close()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			slot.publish(gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3))
			dets.Store([]model.Detection{{Box: model.Box{X1: i % 100, Y1: 10, X2: 200, Y2: 200}, Category: model.CategoryFire, Confidence: 0.5}})
		}
	}()

	c := NewCompositor("CAM-01")
	for i := 0; i < 50; i++ {
		frame, ok := slot.snapshot()
		require.True(t, ok)
		d, _ := dets.Load()
		jpeg, err := c.Render(frame.Mat, d)
		frame.Mat.Close()
		require.NoError(t, err)
		require.NotEmpty(t, jpeg)
	}
	close(stop)
	wg.Wait()
}
