package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

const (
	connectTimeout = 5 * time.Second
	qosAtLeastOnce = 1
)

type mqttService struct {
	CfgSvc config.IService
	client mqtt.Client
}

func NewMQTT(cfgsvc config.IService) (IService, error) {
	broker := cfgsvc.GetMQTTBroker()
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("vs-fire-%s-%s", cfgsvc.GetCameraID(), uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		lgr.Logger.Warn("mqtt connection lost, will auto-reconnect",
			slog.String("broker", broker),
			lgr.Err(err),
		)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, xerrors.Errorf("mqtt connection to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, xerrors.Errorf("mqtt connection failed: %w", err)
	}

	lgr.Logger.Info("mqtt publisher connected", slog.String("broker", broker))
	return &mqttService{
		CfgSvc: cfgsvc,
		client: client,
	}, nil
}

func (svc *mqttService) Publish(ctx context.Context, event model.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return xerrors.Errorf("encoding alert event: %w", err)
	}

	token := svc.client.Publish(Topic(svc.CfgSvc.GetMQTTTopic(), event), qosAtLeastOnce, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return xerrors.Errorf("mqtt publish: %w", ctx.Err())
	}
}

func (svc *mqttService) Close() error {
	svc.client.Disconnect(250)
	return nil
}

// Topic is <base>/<camera>/<category>.
func Topic(base string, event model.AlertEvent) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), event.Camera, event.Category)
}
