package pkgtypes

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type Message[T any] struct {
	Metadata *kafka.TopicPartition
	Data     T
}

func NewMessage[T any](metadata *kafka.TopicPartition, data T) *Message[T] {
	return &Message[T]{
		Metadata: metadata,
		Data:     data,
	}
}
