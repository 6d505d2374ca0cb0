package robot

import (
	"context"
	"fmt"
	"net/http"
	"strings"

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
		client: &http.Client{Timeout: cfgsvc.GetRobotTimeout()},
	}
}

func (svc *httpService) Goto(ctx context.Context, coord model.WorldCoord) error {
	host := svc.CfgSvc.GetRobotHost()
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	target := fmt.Sprintf("%s/goto?x=%.2f&y=%.2f", strings.TrimSuffix(host, "/"), coord.X, coord.Y)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return xerrors.Errorf("building robot request: %w", err)
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		return xerrors.Errorf("calling robot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return xerrors.Errorf("robot returned %s", resp.Status)
	}
	return nil
}
