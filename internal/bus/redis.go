package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes and consumes events over Redis pub/sub.
type RedisBus struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisBus(rdb *redis.Client, log *slog.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, errors.New("bus: redis client is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{rdb: rdb, log: log}, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return errors.New("bus: topic is required")
	}
	if err := b.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("bus: publish %s: %w", topic, err)
	}
	return nil
}

// Consume subscribes to a topic and invokes handler for each message until
// ctx is canceled. Handler errors are logged and do not stop the loop; the
// stage's own state handling decides what a failure means.
func (b *RedisBus) Consume(ctx context.Context, topic string, handler Handler) error {
	sub := b.rdb.Subscribe(ctx, topic)
	defer sub.Close()

	// Fail fast if the subscription itself cannot be established.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("bus: subscribe %s: %w", topic, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				b.log.Error("event handler failed", "topic", topic, "err", err)
			}
		}
	}
}

// Deduper suppresses duplicate event deliveries using SET NX with a TTL.
// A crashed consumer's key expires, so suppression is best-effort; the
// stores' idempotency remains the real safety net.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduper{rdb: rdb, ttl: ttl}
}

// Seen marks the event id and reports whether it was already marked.
func (d *Deduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if d == nil || d.rdb == nil || eventID == "" {
		return false, nil
	}
	set, err := d.rdb.SetNX(ctx, "dedup:"+eventID, 1, d.ttl).Result()
	if err != nil {
		// On redis failure, err on the side of processing; handlers are idempotent.
		return false, err
	}
	return !set, nil
}

// Forget releases the event id so a redelivery is processed again.
func (d *Deduper) Forget(ctx context.Context, eventID string) error {
	if d == nil || d.rdb == nil || eventID == "" {
		return nil
	}
	return d.rdb.Del(ctx, "dedup:"+eventID).Err()
}
