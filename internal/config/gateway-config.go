package config

import "errors"

var ErrMissingSecret = errors.New("gateway secret is not configured")

// GatewayConfig holds the shared secrets used to verify inbound webhooks.
// An empty secret means the gateway is disabled and its webhooks are rejected.
type GatewayConfig struct {
	MidtransServerKey  string
	XenditWebhookToken string
}

func NewGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		MidtransServerKey:  getEnv("MIDTRANS_SERVER_KEY", ""),
		XenditWebhookToken: getEnv("XENDIT_WEBHOOK_TOKEN", ""),
	}
}
