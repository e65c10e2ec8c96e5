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

type WhatsAppClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewWhatsAppClient(cfg *config.NotifierConfig) *WhatsAppClient {
	return &WhatsAppClient{
		apiURL: cfg.WhatsAppAPIURL,
		apiKey: cfg.WhatsAppAPIKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WhatsAppClient) Name() string { return "whatsapp" }

func (c *WhatsAppClient) Send(ctx context.Context, n *pkgtypes.PaymentNotification) error {
	if n.CustomerPhone == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"to":      n.CustomerPhone,
		"message": confirmationText(n),
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
		return fmt.Errorf("whatsapp api returned status %d", resp.StatusCode)
	}
	return nil
}

func confirmationText(n *pkgtypes.PaymentNotification) string {
	return fmt.Sprintf(
		"Assalamu'alaikum %s, pembayaran Anda untuk pesanan %s sebesar Rp%d telah kami terima. Jazakumullah khairan.",
		n.CustomerName, n.OrderID, n.Amount,
	)
}
