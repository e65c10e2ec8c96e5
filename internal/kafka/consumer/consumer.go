package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/tpq-digital/payment-service/internal/config"
	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

type KafkaConsumer struct {
	MsgCH    chan *pkgtypes.Message[[]byte]
	consumer *kafka.Consumer
	topic    string
	exitCH   chan struct{}
	cfg      *config.KafkaConfig
}

func NewKafkaConsumer(cfg *config.KafkaConfig, msgCH chan *pkgtypes.Message[[]byte]) (*KafkaConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Host,
		"group.id":          cfg.ConsumerGroup,
		"auto.offset.reset": "earliest",
		// commit config
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 1000,
	})
	if err != nil {
		return nil, err
	}

	consumer := &KafkaConsumer{
		MsgCH:    msgCH,
		consumer: c,
		topic:    cfg.NotificationTopic,
		exitCH:   make(chan struct{}),
		cfg:      cfg,
	}

	if err := consumer.initializeKafkaTopic(cfg.Host, consumer.topic); err != nil {
		return nil, err
	}

	if err := c.SubscribeTopics([]string{consumer.topic}, nil); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *KafkaConsumer) RunConsumer() struct{} {
	go c.consumeLoop()
	return <-c.exitCH
}

func (c *KafkaConsumer) Stop() {
	close(c.exitCH)
}

func (c *KafkaConsumer) consumeLoop() {
	defer c.consumer.Close()

	for {
		select {
		case <-c.exitCH:
			return
		default:
		}

		msg, err := c.consumer.ReadMessage(time.Second)
		if err != nil {
			if kErr, ok := err.(kafka.Error); ok && kErr.IsTimeout() {
				continue
			}
			logrus.Errorf("Consumer error: %v", err)
			continue
		}
		if msg == nil {
			continue
		}

		c.MsgCH <- pkgtypes.NewMessage(&msg.TopicPartition, msg.Value)
	}
}

func (c *KafkaConsumer) initializeKafkaTopic(brokers, topicName string) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return err
	}
	defer adminClient.Close()

	topicSpec := kafka.TopicSpecification{
		Topic:         topicName,
		NumPartitions: c.cfg.NumPartitions,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := adminClient.CreateTopics(ctx, []kafka.TopicSpecification{topicSpec})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() == kafka.ErrTopicAlreadyExists {
			logrus.Infof("Topic already exists: %v", result.Error)
			continue
		}
		if result.Error.Code() != kafka.ErrNoError {
			return fmt.Errorf("failed to create topic: %v", result.Error)
		}
		logrus.Infof("Topic '%s' created", result.Topic)
	}

	return nil
}
