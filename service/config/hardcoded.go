package config

import (
	"fmt"
	"time"

	"github.com/khaledhikmat/vs-fire/model"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetInputFolder() string {
	return "./settings"
}

func (svc *hardcodedService) GetSnapshotsFolder() string {
	return "./snapshots"
}

func (svc *hardcodedService) GetStatsPeriodicTimeout() int {
	return 60
}

func (svc *hardcodedService) GetLogLevel() string {
	return "info"
}

func (svc *hardcodedService) GetLogFile() string {
	return "./logs/vs-fire.log"
}

func (svc *hardcodedService) GetDetectionLogFile() string {
	return "./logs/detections.log"
}

func (svc *hardcodedService) GetCameraID() string {
	return "CAM-01"
}

// GetCameraSource is either a device index or a stream URL
func (svc *hardcodedService) GetCameraSource() string {
	return "0"
}

func (svc *hardcodedService) GetFrameWidth() int {
	return 640
}

func (svc *hardcodedService) GetFrameHeight() int {
	return 480
}

func (svc *hardcodedService) GetInferenceWidth() int {
	return 320
}

func (svc *hardcodedService) GetInferenceHeight() int {
	return 240
}

func (svc *hardcodedService) GetModelPath() string {
	return "./models/best.onnx"
}

func (svc *hardcodedService) GetModelLabelsPath() string {
	return "./models/labels.txt"
}

func (svc *hardcodedService) GetKeywordsFile() string {
	return fmt.Sprintf("%s/keywords.yaml", svc.GetInputFolder())
}

func (svc *hardcodedService) GetFireThreshold() float32 {
	return 0.40
}

func (svc *hardcodedService) GetSmokeThreshold() float32 {
	return 0.35
}

func (svc *hardcodedService) GetNMSThreshold() float32 {
	return 0.45
}

func (svc *hardcodedService) GetHomographyPath() string {
	return "./homography_matrix.npy"
}

func (svc *hardcodedService) GetAlertCooldown() time.Duration {
	return 5 * time.Second
}

func (svc *hardcodedService) GetMessagingCooldown() time.Duration {
	return 60 * time.Second
}

func (svc *hardcodedService) GetDispatchMaxWorkers() int {
	return 8
}

func (svc *hardcodedService) GetIncidentDBPath() string {
	return "./data/incidents.db"
}

func (svc *hardcodedService) GetDefaultLocation() model.Location {
	return model.Location{Lat: -23.5505, Lon: -46.6333}
}

func (svc *hardcodedService) GetWebhookURL() string {
	return ""
}

func (svc *hardcodedService) GetWebhookTimeout() time.Duration {
	return 2 * time.Second
}

func (svc *hardcodedService) GetRobotHost() string {
	return ""
}

func (svc *hardcodedService) GetRobotTimeout() time.Duration {
	return 1 * time.Second
}

func (svc *hardcodedService) GetTelegramToken() string {
	return ""
}

func (svc *hardcodedService) GetTelegramChatID() string {
	return ""
}

func (svc *hardcodedService) GetTelegramBaseURL() string {
	return "https://api.telegram.org"
}

func (svc *hardcodedService) GetMessagingTimeout() time.Duration {
	return 2 * time.Second
}

func (svc *hardcodedService) GetMQTTBroker() string {
	return ""
}

func (svc *hardcodedService) GetMQTTTopic() string {
	return "vs-fire/alerts"
}

func (svc *hardcodedService) GetPublisherTimeout() time.Duration {
	return 2 * time.Second
}

func (svc *hardcodedService) GetTraceFile() string {
	return ""
}

func (svc *hardcodedService) GetServerAddress() string {
	return ":5000"
}
