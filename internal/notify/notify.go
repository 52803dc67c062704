// Package notify broadcasts task change events over Redis pub/sub so
// sibling processes can react before their next refresh tick. Delivery
// is best-effort; the polling refresh stays the source of truth.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel carries every task change event.
const Channel = "cpt:changes"

// Event announces one persisted task mutation.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Version int64     `json:"version"`
	Deleted bool      `json:"deleted,omitempty"`
}

// Publisher is the synchronizer's view of the broadcaster. A nil
// publisher disables notification entirely.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Broadcaster publishes and subscribes to change events on Redis.
type Broadcaster struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Broadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify.New: ping: %w", err)
	}

	return &Broadcaster{client: client}, nil
}

func (b *Broadcaster) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("notify.Broadcaster.Close: %w", err)
	}
	return nil
}

func (b *Broadcaster) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify.Publish: marshal: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("notify.Publish: %w", err)
	}
	return nil
}

// Subscribe streams raw event payloads until ctx is canceled. The
// returned cleanup must be called to release the subscription.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	sub := b.client.Subscribe(ctx, Channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("notify.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}
