package robot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
)

type testConfig struct {
	config.IService
	host string
}

func (c testConfig) GetRobotHost() string {
	return c.host
}

func TestGotoRequest(t *testing.T) {
	got := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r
	}))
	defer srv.Close()

	// bare host:port, like a robot ip
	host := strings.TrimPrefix(srv.URL, "http://")
	svc := NewHttp(testConfig{IService: config.NewHardCoded(), host: host})

	require.NoError(t, svc.Goto(context.Background(), model.WorldCoord{X: 3.14159, Y: -1}))

	r := <-got
	assert.Equal(t, "/goto", r.URL.Path)
	assert.Equal(t, "3.14", r.URL.Query().Get("x"))
	assert.Equal(t, "-1.00", r.URL.Query().Get("y"))
}

func TestGotoUnreachable(t *testing.T) {
	svc := NewHttp(testConfig{IService: config.NewHardCoded(), host: "127.0.0.1:1"})
	assert.Error(t, svc.Goto(context.Background(), model.WorldCoord{X: 1, Y: 1}))
}
