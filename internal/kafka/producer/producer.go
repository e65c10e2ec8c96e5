package producer

import (
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/config"
)

type KafkaProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaProducer(cfg *config.KafkaConfig) (*KafkaProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": cfg.Host})
	if err != nil {
		return nil, err
	}

	go func() {
		for e := range p.Events() {
			if kErr, ok := e.(kafka.Error); ok {
				logrus.Warnf("kafka producer error: %v", kErr)
			}
		}
	}()

	return &KafkaProducer{
		producer: p,
		topic:    cfg.NotificationTopic,
	}, nil
}

// Produce sends one message and blocks until its delivery report arrives.
// An error return means the broker did not take the message.
func (p *KafkaProducer) Produce(key string, msg []byte) error {
	topic := p.topic
	deliveryCH := make(chan kafka.Event, 1)
	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          msg,
	}, deliveryCH)
	if err != nil {
		return err
	}

	e := <-deliveryCH
	m, ok := e.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event %T", e)
	}
	if m.TopicPartition.Error != nil {
		return m.TopicPartition.Error
	}

	logrus.WithFields(logrus.Fields{
		"PRTN":   m.TopicPartition.Partition,
		"OFFSET": m.TopicPartition.Offset,
	}).Info("Delivery success")
	return nil
}

func (p *KafkaProducer) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
