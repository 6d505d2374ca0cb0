package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-fire/service/config"
)

type telegramService struct {
	CfgSvc config.IService
	client *http.Client
}

func NewTelegram(cfgsvc config.IService) IService {
	return &telegramService{
		CfgSvc: cfgsvc,
		client: &http.Client{Timeout: cfgsvc.GetMessagingTimeout()},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (svc *telegramService) Send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(svc.CfgSvc.GetTelegramBaseURL(), "/"), svc.CfgSvc.GetTelegramToken())
	form := url.Values{
		"chat_id": {svc.CfgSvc.GetTelegramChatID()},
		"text":    {text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return xerrors.Errorf("building telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := svc.client.Do(req)
	if err != nil {
		// the url carries the bot token
		var uerr *url.Error
		if xerrors.As(err, &uerr) {
			err = uerr.Err
		}
		return xerrors.Errorf("calling telegram: %w", err)
	}
	defer resp.Body.Close()

	var body telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return xerrors.Errorf("decoding telegram response (%s): %w", resp.Status, err)
	}
	if !body.OK {
		return xerrors.Errorf("telegram rejected message: %s", body.Description)
	}
	return nil
}
