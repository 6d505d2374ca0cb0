package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
)

func TestTopic(t *testing.T) {
	ev := model.AlertEvent{Category: model.CategoryFire, Camera: "CAM-01"}
	assert.Equal(t, "vs-fire/alerts/CAM-01/fire", Topic("vs-fire/alerts/", ev))
}

type unreachableConfig struct {
	config.IService
}

func (unreachableConfig) GetMQTTBroker() string { return "127.0.0.1:1" }

func TestNewMQTTUnreachableBroker(t *testing.T) {
	_, err := NewMQTT(unreachableConfig{config.NewHardCoded()})
	assert.Error(t, err)
}
