package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryAttributes(t *testing.T) {
	assert.Equal(t, "FOGO", CategoryFire.Tag())
	assert.Equal(t, "FUMACA", CategorySmoke.Tag())
	assert.Equal(t, PriorityCritical, CategoryFire.Priority())
	assert.Equal(t, PriorityHigh, CategorySmoke.Priority())
	assert.Equal(t, "fire", CategoryFire.String())
}

func TestCategoryJSON(t *testing.T) {
	b, err := json.Marshal(Detection{Category: CategorySmoke})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"category":"smoke"`)

	var d Detection
	require.NoError(t, json.Unmarshal([]byte(`{"category":"fogo"}`), &d))
	assert.Equal(t, CategoryFire, d.Category)
}

func TestBoxGroundPoint(t *testing.T) {
	x, y := Box{X1: 100, Y1: 100, X2: 200, Y2: 200}.GroundPoint()
	assert.Equal(t, 150.0, x)
	assert.Equal(t, 200.0, y)
}

func TestBoxScale(t *testing.T) {
	b := Box{X1: 25, Y1: 30, X2: 75, Y2: 100}.Scale(2, 2)
	assert.Equal(t, Box{X1: 50, Y1: 60, X2: 150, Y2: 200}, b)
}

func TestGenErrorUnwraps(t *testing.T) {
	inner := errors.New("device busy")
	err := GenError("framer", inner, nil, "error opening %s", "/dev/video0")

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "error opening /dev/video0")
	assert.NotEmpty(t, err.StackTrace)
}
