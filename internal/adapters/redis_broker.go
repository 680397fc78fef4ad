package adapters

import (
	"context"
	"log/slog"
	"sync"
	"visitdesk/internal/ports"

	"github.com/go-redis/redis"
)

// RedisBroker is the distributed delivery fan-out. Groups map to Redis
// pub/sub channels, so a message published by one process reaches sockets
// held by another. Local membership is tracked per group; the Redis
// subscription for a group lives while the group has members.
type RedisBroker struct {
	client *redis.Client
	pubsub *redis.PubSub
	logger *slog.Logger

	mu      sync.RWMutex
	members map[string]map[ports.Subscriber]struct{}
}

func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	broker := &RedisBroker{
		client:  client,
		pubsub:  client.Subscribe(),
		logger:  logger,
		members: make(map[string]map[ports.Subscriber]struct{}),
	}
	go broker.run()
	return broker
}

func (b *RedisBroker) Subscribe(group string, sub ports.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.members[group]
	if !ok {
		subs = make(map[ports.Subscriber]struct{})
		b.members[group] = subs
		if err := b.pubsub.Subscribe(group); err != nil {
			b.logger.Error("redis subscribe failed", "group", group, "error", err)
		}
	}
	subs[sub] = struct{}{}
}

func (b *RedisBroker) Unsubscribe(group string, sub ports.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.members[group]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.members, group)
		if err := b.pubsub.Unsubscribe(group); err != nil {
			b.logger.Warn("redis unsubscribe failed", "group", group, "error", err)
		}
	}
}

// Publish goes through Redis; local subscribers receive the payload via the
// loopback on the run loop, the same way remote processes do.
func (b *RedisBroker) Publish(ctx context.Context, group string, payload []byte) error {
	return b.client.Publish(group, string(payload)).Err()
}

func (b *RedisBroker) Close() error {
	return b.pubsub.Close()
}

func (b *RedisBroker) run() {
	for msg := range b.pubsub.Channel() {
		b.mu.RLock()
		subs := make([]ports.Subscriber, 0, len(b.members[msg.Channel]))
		for sub := range b.members[msg.Channel] {
			subs = append(subs, sub)
		}
		b.mu.RUnlock()

		for _, sub := range subs {
			if err := sub.Deliver([]byte(msg.Payload)); err != nil {
				b.logger.Warn("delivery to subscriber failed", "group", msg.Channel, "error", err)
			}
		}
	}
}
