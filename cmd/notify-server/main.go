package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/config"
	"github.com/tpq-digital/payment-service/internal/kafka/consumer"
	"github.com/tpq-digital/payment-service/internal/notify"
	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, using environment variables")
	}

	notifierCfg := config.NewNotifierConfig()
	hub := notify.NewHub()

	dispatcher, err := notify.NewDispatcher(
		notify.NewWhatsAppClient(notifierCfg),
		notify.NewEmailClient(notifierCfg),
		hub,
	)
	if err != nil {
		logrus.Fatalf("unable to create dispatcher, err = %v", err)
	}

	msgCH := make(chan *pkgtypes.Message[[]byte], 64)
	kafkaConsumer, err := consumer.NewKafkaConsumer(config.NewKafkaConfig(), msgCH)
	if err != nil {
		logrus.Fatalf("unable to create kafka consumer, err = %v", err)
	}

	go func() {
		for msg := range msgCH {
			dispatcher.HandleMessage(msg)
		}
	}()

	// in-app notification feed for the admin dashboard
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /ws/payments", hub.HandleWS)
		logrus.WithField("ADDR", notifierCfg.WSAddr).Info("WS:LISTENING")
		logrus.Fatal(http.ListenAndServe(notifierCfg.WSAddr, mux))
	}()

	kafkaConsumer.RunConsumer()
}
