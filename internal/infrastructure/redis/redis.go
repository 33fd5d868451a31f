// Package redis provides the shared Redis client and the adapters built on
// it: the pub/sub task broker and the one-time-code slot store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tgsync/internal/domain"
)

// Options holds Redis connection options.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and verifies the connection.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Broker implements domain.Broker on Redis pub/sub. Each subscription owns
// one goroutine that forwards raw payloads; the stream is closed when the
// context is cancelled or the subscription is lost.
type Broker struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewBroker creates a pub/sub broker over an existing client.
func NewBroker(client *redis.Client, logger zerolog.Logger) *Broker {
	return &Broker{
		client: client,
		logger: logger.With().Str("component", "redis_broker").Logger(),
	}
}

// Publish sends a payload to a channel.
func (b *Broker) Publish(ctx context.Context, channel, payload string) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to a channel and returns the payload stream.
func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	sub := b.client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning, so a
	// publisher racing with startup is not silently missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan string)

	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					b.logger.Warn().Str("channel", channel).Msg("subscription stream closed")
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	b.logger.Info().Str("channel", channel).Msg("subscribed to channel")
	return out, nil
}

var _ domain.Broker = (*Broker)(nil)

// CodeStore implements domain.CodeStore on plain Redis keys.
type CodeStore struct {
	client *redis.Client
}

// NewCodeStore creates a code slot store over an existing client.
func NewCodeStore(client *redis.Client) *CodeStore {
	return &CodeStore{client: client}
}

// Consume reads and deletes the value at key in one round trip, so two
// racing readers can never both observe the same code.
func (s *CodeStore) Consume(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores a value with a TTL.
func (s *CodeStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

var _ domain.CodeStore = (*CodeStore)(nil)
