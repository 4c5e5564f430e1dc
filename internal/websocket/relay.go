package websocket

import (
	"context"

	"github.com/dom/faceoff/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRelayChannel = "faceoff:match-events"

// RedisRelay fans match events out through Redis pub/sub so browsers
// connected to any instance see them. Every instance runs one relay in
// front of its local hub.
type RedisRelay struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	logger  *zap.Logger
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{rdb: rdb, hub: hub, channel: channel, logger: logger}
}

// Publish sends the event to Redis. If Redis is unavailable the event is
// still delivered to this instance's browsers.
func (r *RedisRelay) Publish(ctx context.Context, event domain.MatchEvent, match *domain.Match) {
	data, err := NewMatchMessage(event, match)
	if err != nil {
		r.logger.Error("failed to encode match event", zap.String("event", string(event)), zap.Error(err))
		return
	}

	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("redis publish failed, delivering locally",
			zap.String("event", string(event)),
			zap.Error(err),
		)
		r.hub.Broadcast(data)
	}
}

// Run forwards every message on the channel to the local hub until ctx is
// done. ready, if non-nil, is closed once the subscription is active.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
