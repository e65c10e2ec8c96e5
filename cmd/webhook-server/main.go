package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/config"
	dbpostgres "github.com/tpq-digital/payment-service/internal/db/postgres"
	"github.com/tpq-digital/payment-service/internal/httpserver"
	"github.com/tpq-digital/payment-service/internal/kafka/producer"
	outboxrepo "github.com/tpq-digital/payment-service/internal/repo/outbox"
	"github.com/tpq-digital/payment-service/internal/service/checkout"
	outboxsvc "github.com/tpq-digital/payment-service/internal/service/outbox"
	"github.com/tpq-digital/payment-service/internal/service/reconcile"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, using environment variables")
	}

	db, err := dbpostgres.NewDBConn(config.NewPostgresConfig())
	if err != nil {
		logrus.Fatalf("unable to conn to db, err = %v", err)
	}
	defer db.Close()

	kafkaProducer, err := producer.NewKafkaProducer(config.NewKafkaConfig())
	if err != nil {
		logrus.Fatalf("unable to create kafka producer, err = %v", err)
	}
	defer kafkaProducer.Close()

	relay, err := outboxsvc.NewService(outboxrepo.NewEventRepo(db), kafkaProducer)
	if err != nil {
		logrus.Fatalf("unable to create outbox relay, err = %v", err)
	}
	go relay.Run()
	defer relay.Stop()

	reconciler := reconcile.NewService(db)
	server := httpserver.NewServer(":7576", config.NewGatewayConfig(), reconciler, checkout.NewService(db))
	logrus.Fatal(server.ListenAndServe())
}
