package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Producer 把事件写入 topic，实现 events.Sink
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string, config *sarama.Config) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return NewProducerFrom(producer, topic), nil
}

func NewProducerFrom(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: producer, topic: topic}
}

func (p *Producer) Deliver(ctx context.Context, e events.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.Name),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", e.Name, err)
	}
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"event":     e.Name,
		"partition": partition,
		"offset":    offset,
	}).Debug("event sent to kafka")
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
