package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var _ WebhookService = (*RestyWebhook)(nil)

// RestyWebhook posts JSON payloads to arbitrary webhook URLs. Any 2xx answer
// counts as delivered.
type RestyWebhook struct {
	cli *resty.Client
}

func NewWebhookService() *RestyWebhook {
	return &RestyWebhook{
		cli: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(0),
	}
}

func (w *RestyWebhook) Send(ctx context.Context, url string, data map[string]any) error {
	resp, err := w.cli.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Post(url)
	if err != nil {
		return err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
