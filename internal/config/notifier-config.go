package config

type NotifierConfig struct {
	WhatsAppAPIURL string
	WhatsAppAPIKey string
	EmailAPIURL    string
	EmailAPIKey    string
	EmailFrom      string
	WSAddr         string
}

func NewNotifierConfig() *NotifierConfig {
	return &NotifierConfig{
		WhatsAppAPIURL: getEnv("WHATSAPP_API_URL", "http://localhost:8088/v1/messages"),
		WhatsAppAPIKey: getEnv("WHATSAPP_API_KEY", ""),
		EmailAPIURL:    getEnv("EMAIL_API_URL", "http://localhost:8089/v1/send"),
		EmailAPIKey:    getEnv("EMAIL_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "no-reply@tpq.sch.id"),
		WSAddr:         getEnv("WS_ADDR", ":30000"),
	}
}
