package mq

import (
	"fmt"

	"pujaledger/internal/config"
)

// NewPublisher 按 events.broker 创建事件发布器
func NewPublisher(cfg *config.Config) (Publisher, error) {
	switch cfg.Events.Broker {
	case "kafka":
		producer, err := NewKafkaProducer(&cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return NewKafkaPublisher(producer), nil
	case "amqp":
		publisher, err := NewAMQPPublisher(&cfg.AMQP)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("不支持的消息中间件: %s", cfg.Events.Broker)
	}
}
