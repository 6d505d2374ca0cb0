package config

import (
	"time"

	"github.com/khaledhikmat/vs-fire/model"
)

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetSnapshotsFolder() string
	GetStatsPeriodicTimeout() int

	GetLogLevel() string
	GetLogFile() string
	GetDetectionLogFile() string

	GetCameraID() string
	GetCameraSource() string
	GetFrameWidth() int
	GetFrameHeight() int
	GetInferenceWidth() int
	GetInferenceHeight() int

	GetModelPath() string
	GetModelLabelsPath() string
	GetKeywordsFile() string
	GetFireThreshold() float32
	GetSmokeThreshold() float32
	GetNMSThreshold() float32

	GetHomographyPath() string

	GetAlertCooldown() time.Duration
	GetMessagingCooldown() time.Duration
	GetDispatchMaxWorkers() int

	GetIncidentDBPath() string
	GetDefaultLocation() model.Location

	GetWebhookURL() string
	GetWebhookTimeout() time.Duration
	GetRobotHost() string
	GetRobotTimeout() time.Duration
	GetTelegramToken() string
	GetTelegramChatID() string
	GetTelegramBaseURL() string
	GetMessagingTimeout() time.Duration
	GetMQTTBroker() string
	GetMQTTTopic() string
	GetPublisherTimeout() time.Duration

	// GetTraceFile is where finished spans are exported; empty disables tracing.
	GetTraceFile() string

	GetServerAddress() string
}
