package webhook

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/config"
)

type httpService struct {
	CfgSvc config.IService
	client *http.Client
}

func NewHttp(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		client: &http.Client{Timeout: cfgsvc.GetWebhookTimeout()},
	}
}

func (svc *httpService) Notify(ctx context.Context, category model.Category, coord model.WorldCoord, at time.Time) error {
	u, err := url.Parse(svc.CfgSvc.GetWebhookURL())
	if err != nil {
		return xerrors.Errorf("parsing webhook url: %w", err)
	}

	q := u.Query()
	q.Set("alerta", strings.ToLower(category.Tag())+"_detectado")
	q.Set("posX", strconv.FormatFloat(coord.X, 'f', 2, 64))
	q.Set("posY", strconv.FormatFloat(coord.Y, 'f', 2, 64))
	// epoch seconds with fraction
	q.Set("timestamp", strconv.FormatFloat(float64(at.UnixNano())/1e9, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return xerrors.Errorf("building webhook request: %w", err)
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		return xerrors.Errorf("calling webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return xerrors.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
