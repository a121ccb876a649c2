package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/redis/go-redis/v9"
)

// Relay 多实例部署时通过 pub/sub 转发事件。发布方自己也订阅同一个频道，
// 所以本地 hub 只从订阅端收事件
type Relay struct {
	rdb     *redis.Client
	channel string
	local   events.Sink
}

func NewRelay(rdb *redis.Client, channel string, local events.Sink) *Relay {
	return &Relay{rdb: rdb, channel: channel, local: local}
}

// Deliver 实现 events.Sink
func (r *Relay) Deliver(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Run 订阅频道并投递到本地 hub，阻塞直到 ctx 结束
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	log := logger.App().WithField("channel", r.channel)
	log.Info("redis relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := r.forward(ctx, []byte(msg.Payload)); err != nil {
				log.WithError(err).Warn("failed to forward relayed event")
			}
		}
	}
}

func (r *Relay) forward(ctx context.Context, payload []byte) error {
	var e events.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return r.local.Deliver(ctx, e)
}
