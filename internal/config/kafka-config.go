package config

type KafkaConfig struct {
	NotificationTopic string
	Host              string
	ConsumerGroup     string
	NumPartitions     int
}

func NewKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "payment_notifications"),
		Host:              getEnv("KAFKA_HOST", "localhost"),
		ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "notification_dispatcher_cg"),
		NumPartitions:     4,
	}
}
