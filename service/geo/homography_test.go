package geo

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

var identity = Homography{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

func TestToWorldIdentity(t *testing.T) {
	m := NewMapper(identity)

	got := m.ToWorld(model.Box{X1: 100, Y1: 100, X2: 200, Y2: 200})
	assert.InDelta(t, 150.0, got.X, 1e-9)
	assert.InDelta(t, 200.0, got.Y, 1e-9)
}

func TestToWorldScaleAndPerspective(t *testing.T) {
	// pixels to meters at 1cm/px, with a homogeneous scale of 2
	m := NewMapper(Homography{
		{0.02, 0, 0},
		{0, 0.02, 0},
		{0, 0, 2},
	})

	got := m.ToWorld(model.Box{X1: 0, Y1: 0, X2: 400, Y2: 300})
	assert.InDelta(t, 2.0, got.X, 1e-9)
	assert.InDelta(t, 3.0, got.Y, 1e-9)
}

func TestToWorldWithoutTransform(t *testing.T) {
	var m *Mapper
	assert.False(t, m.Loaded())
	assert.Equal(t, model.WorldCoord{}, m.ToWorld(model.Box{X1: 1, Y1: 2, X2: 3, Y2: 4}))

	assert.Equal(t, model.WorldCoord{}, (&Mapper{}).ToWorld(model.Box{X2: 10, Y2: 10}))
}

func TestToWorldDegenerate(t *testing.T) {
	var buf bytes.Buffer
	prev := lgr.Logger
	lgr.Logger = slog.New(lgr.NewConsoleHandler(&buf, slog.LevelWarn))
	t.Cleanup(func() { lgr.Logger = prev })

	m := NewMapper(Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}})
	assert.Equal(t, model.WorldCoord{}, m.ToWorld(model.Box{X2: 10, Y2: 10}))
	assert.Contains(t, buf.String(), "projects to infinity")

	buf.Reset()
	var unloaded *Mapper
	unloaded.ToWorld(model.Box{X2: 10, Y2: 10})
	assert.Empty(t, buf.String())
}

func TestLoadNpy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homography_matrix.npy")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, npyio.Write(f, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	require.NoError(t, f.Close())

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.Loaded())
	assert.Equal(t, model.WorldCoord{X: 5, Y: 10}, m.ToWorld(model.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}))
}

func TestLoadJSONNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homography.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[1,0,0],[0,1,0],[0,0,1]]`), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.Loaded())
}

func TestLoadYAMLFlat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homography.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[1, 0, 0, 0, 1, 0, 0, 0, 1]"), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.Loaded())
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.npy"))
	assert.Error(t, err)

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(`[1,2,3]`), 0644))
	_, err = Load(short)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "matrix.txt"))
	assert.Error(t, err)
}
