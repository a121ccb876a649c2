package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Consumer 每个实例使用独立的 group id，保证每个实例都收到全部事件
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topics        []string
	handler       *EventHandler
}

func NewConsumer(brokers []string, groupID string, topics []string,
	config *sarama.Config, handler *EventHandler) (*Consumer, error) {
	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		consumerGroup: consumerGroup,
		topics:        topics,
		handler:       handler,
	}, nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		// 坏消息也标记，避免反复消费
		if err := c.handler.Handle(session.Context(), message); err != nil {
			logger.App().WithError(err).WithField("offset", message.Offset).Warn("failed to process event message")
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// Start 阻塞直到 ctx 结束或 group 被关闭
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.consumerGroup.Errors() {
			logger.App().WithError(err).Warn("kafka consumer error")
		}
	}()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.consumerGroup.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.App().WithError(err).Error("kafka consume failed")
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

// EventHandler 解码事件并交给本地 hub
type EventHandler struct {
	local events.Sink
}

func NewEventHandler(local events.Sink) *EventHandler {
	return &EventHandler{local: local}
}

func (h *EventHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e events.Event
	if err := json.Unmarshal(message.Value, &e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"event":  e.Name,
		"origin": originOf(message),
	}).Debug("event received from kafka")
	return h.local.Deliver(ctx, e)
}
