package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tpq-digital/payment-service/internal/config"
	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

type EmailClient struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewEmailClient(cfg *config.NotifierConfig) *EmailClient {
	return &EmailClient{
		apiURL: cfg.EmailAPIURL,
		apiKey: cfg.EmailAPIKey,
		from:   cfg.EmailFrom,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *EmailClient) Name() string { return "email" }

func (c *EmailClient) Send(ctx context.Context, n *pkgtypes.PaymentNotification) error {
	if n.CustomerEmail == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"from":    c.from,
		"to":      n.CustomerEmail,
		"subject": fmt.Sprintf("Konfirmasi Pembayaran %s", n.OrderID),
		"body":    confirmationText(n),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email api returned status %d", resp.StatusCode)
	}
	return nil
}
