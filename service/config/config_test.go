package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardCodedDefaults(t *testing.T) {
	svc := NewHardCoded()

	assert.Equal(t, 5*time.Second, svc.GetAlertCooldown())
	assert.Equal(t, 60*time.Second, svc.GetMessagingCooldown())
	assert.Equal(t, 2*time.Second, svc.GetWebhookTimeout())
	assert.Equal(t, time.Second, svc.GetRobotTimeout())
	assert.Equal(t, 2*time.Second, svc.GetPublisherTimeout())
	assert.Empty(t, svc.GetTraceFile())
	assert.InDelta(t, 0.40, svc.GetFireThreshold(), 1e-6)
	assert.InDelta(t, 0.35, svc.GetSmokeThreshold(), 1e-6)
	assert.Equal(t, "CAM-01", svc.GetCameraID())
}

func TestEnvVarsOverride(t *testing.T) {
	t.Setenv("VS_FIRE_WEBHOOK_URL", "http://n8n.local/webhook/fire")
	t.Setenv("VS_FIRE_ALERT_COOLDOWN", "10")
	t.Setenv("VS_FIRE_MESSAGING_COOLDOWN", "2m")
	t.Setenv("VS_FIRE_DISPATCH_WORKERS", "not-a-number")
	t.Setenv("VS_FIRE_MQTT_TIMEOUT", "500ms")
	t.Setenv("VS_FIRE_TRACE_FILE", "./logs/spans.json")

	svc := NewEnvVars(NewHardCoded())

	assert.Equal(t, "http://n8n.local/webhook/fire", svc.GetWebhookURL())
	assert.Equal(t, 10*time.Second, svc.GetAlertCooldown())
	assert.Equal(t, 2*time.Minute, svc.GetMessagingCooldown())
	assert.Equal(t, 8, svc.GetDispatchMaxWorkers())
	assert.Equal(t, 500*time.Millisecond, svc.GetPublisherTimeout())
	assert.Equal(t, "./logs/spans.json", svc.GetTraceFile())
	// not overridden
	assert.Equal(t, 640, svc.GetFrameWidth())
}

func TestLoadKeywordsMissingFile(t *testing.T) {
	kw, err := LoadKeywords(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywords(), kw)
}

func TestLoadKeywordsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fire:\n  - incendio\n"), 0644))

	kw, err := LoadKeywords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"incendio"}, kw.Fire)
	assert.Equal(t, DefaultKeywords().Smoke, kw.Smoke)
}

func TestLoadKeywordsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fire: [unterminated"), 0644))

	kw, err := LoadKeywords(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultKeywords(), kw)
}
