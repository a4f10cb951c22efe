// Package redis queues outbound messages in a Redis list. A delivery worker
// outside this service pops envelopes from the head of the list and hands
// them to the real chat transport.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/messaging"
	goredis "github.com/redis/go-redis/v9"
)

// Envelope is the JSON document pushed for each message.
type Envelope struct {
	ID        uuid.UUID `json:"id"`
	Recipient uuid.UUID `json:"recipient"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Outbox implements messaging.Messenger by appending envelopes to a list.
type Outbox struct {
	client goredis.UniversalClient
	key    string
	logger *slog.Logger
}

var _ messaging.Messenger = (*Outbox)(nil)

// NewOutbox connects to Redis and verifies the connection with PING.
func NewOutbox(ctx context.Context, cfg config.MessagingConfig, logger *slog.Logger) (*Outbox, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewOutboxWithClient(client, cfg.RedisListKey, logger), nil
}

// NewOutboxWithClient wraps an existing client.
func NewOutboxWithClient(client goredis.UniversalClient, key string, logger *slog.Logger) *Outbox {
	return &Outbox{
		client: client,
		key:    key,
		logger: logger.With("component", "redis_outbox", "list_key", key),
	}
}

// Send implements messaging.Messenger with RPUSH.
func (o *Outbox) Send(ctx context.Context, recipient uuid.UUID, text string) error {
	if err := messaging.Validate(recipient, text); err != nil {
		return err
	}

	env := Envelope{
		ID:        uuid.New(),
		Recipient: recipient,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	length, err := o.client.RPush(ctx, o.key, body).Result()
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to queue message",
			"recipient", recipient.String(),
			"error", err)
		return fmt.Errorf("failed to queue message: %w", err)
	}

	o.logger.DebugContext(ctx, "message queued",
		"message_id", env.ID.String(),
		"recipient", recipient.String(),
		"queue_length", length)
	return nil
}

// Pop removes the oldest envelope. It returns false when the outbox is empty.
func (o *Outbox) Pop(ctx context.Context) (Envelope, bool, error) {
	body, err := o.client.LPop(ctx, o.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Envelope{}, false, nil
	}
	if err != nil {
		return Envelope{}, false, fmt.Errorf("failed to pop message: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, false, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, true, nil
}

// Len returns the number of queued envelopes.
func (o *Outbox) Len(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, o.key).Result()
}

// Close closes the underlying client.
func (o *Outbox) Close() error {
	return o.client.Close()
}
