// Package pubsub spreads "dashboard stale" events to every server instance
// through a redis channel.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"activity-notes/internal/logger"
)

type staleMessage struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

type Bus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func New(ctx context.Context, addr, channel string, log *logger.Logger) (*Bus, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "dashboard-stale"
	}
	if log == nil {
		log = logger.Nop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Bus{
		log:     log.With("service", "RedisStaleBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

// MarkStale publishes the event for userID.
func (b *Bus) MarkStale(ctx context.Context, userID string) error {
	raw, err := json.Marshal(staleMessage{UserID: userID, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the channel and calls onStale for every event
// until ctx is cancelled. It returns once the subscription is confirmed.
func (b *Bus) StartForwarder(ctx context.Context, onStale func(userID string)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m staleMessage
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || m.UserID == "" {
					b.log.Warn("Dropping malformed stale event", "payload", msg.Payload, "error", err)
					continue
				}
				onStale(m.UserID)
			}
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.rdb.Close()
}
