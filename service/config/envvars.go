package config

import (
	"os"
	"strconv"
	"time"
)

// envVarsService overrides the fallback settings with whatever is present
// in the environment. Unset or malformed variables fall through.
type envVarsService struct {
	IService
}

func NewEnvVars(fallback IService) IService {
	return &envVarsService{
		IService: fallback,
	}
}

func (svc *envVarsService) GetInputFolder() string {
	return envString("VS_FIRE_INPUT_FOLDER", svc.IService.GetInputFolder())
}

func (svc *envVarsService) GetSnapshotsFolder() string {
	return envString("VS_FIRE_SNAPSHOTS_FOLDER", svc.IService.GetSnapshotsFolder())
}

func (svc *envVarsService) GetStatsPeriodicTimeout() int {
	return envInt("VS_FIRE_STATS_PERIOD", svc.IService.GetStatsPeriodicTimeout())
}

func (svc *envVarsService) GetLogLevel() string {
	return envString("VS_FIRE_LOG_LEVEL", svc.IService.GetLogLevel())
}

func (svc *envVarsService) GetLogFile() string {
	return envString("VS_FIRE_LOG_FILE", svc.IService.GetLogFile())
}

func (svc *envVarsService) GetDetectionLogFile() string {
	return envString("VS_FIRE_DETECTION_LOG_FILE", svc.IService.GetDetectionLogFile())
}

func (svc *envVarsService) GetCameraID() string {
	return envString("VS_FIRE_CAMERA_ID", svc.IService.GetCameraID())
}

func (svc *envVarsService) GetCameraSource() string {
	return envString("VS_FIRE_CAMERA_SOURCE", svc.IService.GetCameraSource())
}

func (svc *envVarsService) GetModelPath() string {
	return envString("VS_FIRE_MODEL_PATH", svc.IService.GetModelPath())
}

func (svc *envVarsService) GetModelLabelsPath() string {
	return envString("VS_FIRE_MODEL_LABELS", svc.IService.GetModelLabelsPath())
}

func (svc *envVarsService) GetKeywordsFile() string {
	return envString("VS_FIRE_KEYWORDS_FILE", svc.IService.GetKeywordsFile())
}

func (svc *envVarsService) GetFireThreshold() float32 {
	return envFloat("VS_FIRE_FIRE_THRESHOLD", svc.IService.GetFireThreshold())
}

func (svc *envVarsService) GetSmokeThreshold() float32 {
	return envFloat("VS_FIRE_SMOKE_THRESHOLD", svc.IService.GetSmokeThreshold())
}

func (svc *envVarsService) GetHomographyPath() string {
	return envString("VS_FIRE_HOMOGRAPHY_PATH", svc.IService.GetHomographyPath())
}

func (svc *envVarsService) GetAlertCooldown() time.Duration {
	return envDuration("VS_FIRE_ALERT_COOLDOWN", svc.IService.GetAlertCooldown())
}

func (svc *envVarsService) GetMessagingCooldown() time.Duration {
	return envDuration("VS_FIRE_MESSAGING_COOLDOWN", svc.IService.GetMessagingCooldown())
}

func (svc *envVarsService) GetDispatchMaxWorkers() int {
	return envInt("VS_FIRE_DISPATCH_WORKERS", svc.IService.GetDispatchMaxWorkers())
}

func (svc *envVarsService) GetIncidentDBPath() string {
	return envString("VS_FIRE_INCIDENT_DB", svc.IService.GetIncidentDBPath())
}

func (svc *envVarsService) GetWebhookURL() string {
	return envString("VS_FIRE_WEBHOOK_URL", svc.IService.GetWebhookURL())
}

func (svc *envVarsService) GetRobotHost() string {
	return envString("VS_FIRE_ROBOT_HOST", svc.IService.GetRobotHost())
}

func (svc *envVarsService) GetTelegramToken() string {
	return envString("TELEGRAM_BOT_TOKEN", svc.IService.GetTelegramToken())
}

func (svc *envVarsService) GetTelegramChatID() string {
	return envString("TELEGRAM_CHAT_ID", svc.IService.GetTelegramChatID())
}

func (svc *envVarsService) GetMQTTBroker() string {
	return envString("VS_FIRE_MQTT_BROKER", svc.IService.GetMQTTBroker())
}

func (svc *envVarsService) GetMQTTTopic() string {
	return envString("VS_FIRE_MQTT_TOPIC", svc.IService.GetMQTTTopic())
}

func (svc *envVarsService) GetPublisherTimeout() time.Duration {
	return envDuration("VS_FIRE_MQTT_TIMEOUT", svc.IService.GetPublisherTimeout())
}

func (svc *envVarsService) GetTraceFile() string {
	return envString("VS_FIRE_TRACE_FILE", svc.IService.GetTraceFile())
}

func (svc *envVarsService) GetServerAddress() string {
	return envString("VS_FIRE_SERVER_ADDRESS", svc.IService.GetServerAddress())
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float32) float32 {
	v, err := strconv.ParseFloat(os.Getenv(key), 32)
	if err != nil {
		return def
	}
	return float32(v)
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
