package notifications

import (
	"context"
	"runtime/debug"

	"earthhome/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// ListingChannel is the Redis pub/sub channel carrying listing events.
const ListingChannel = "listings:events"

// Relay publishes listing events into Redis and feeds them back to hubs.
type Relay struct {
	rdb *redis.Client
}

// NewRelay creates a Relay on the given Redis client.
func NewRelay(rdb *redis.Client) *Relay {
	return &Relay{rdb: rdb}
}

// Publish sends a payload to every subscribed instance.
func (r *Relay) Publish(ctx context.Context, payload []byte) error {
	return r.rdb.Publish(ctx, ListingChannel, payload).Err()
}

// Subscribe calls onMessage for every relayed payload until ctx is done.
// It returns once the subscription is confirmed.
func (r *Relay) Subscribe(ctx context.Context, onMessage func([]byte)) error {
	sub := r.rdb.Subscribe(ctx, ListingChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if rec := recover(); rec != nil {
							middleware.Logger.Error("panic in listing relay", "panic", rec, "stack", string(debug.Stack()))
						}
					}()
					onMessage([]byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
