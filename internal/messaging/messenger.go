package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrEmptyMessage is returned when there is no text to send.
	ErrEmptyMessage = errors.New("message text cannot be empty")

	// ErrInvalidRecipient is returned for a nil recipient ID.
	ErrInvalidRecipient = errors.New("invalid message recipient")
)

// Messenger delivers text to a learner.
type Messenger interface {
	// Send delivers text to recipient. A nil error means the transport
	// accepted the message.
	Send(ctx context.Context, recipient uuid.UUID, text string) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, recipient uuid.UUID, text string) error

// Send calls f.
func (f MessengerFunc) Send(ctx context.Context, recipient uuid.UUID, text string) error {
	return f(ctx, recipient, text)
}

// Validate checks the arguments every Messenger accepts.
func Validate(recipient uuid.UUID, text string) error {
	if recipient == uuid.Nil {
		return ErrInvalidRecipient
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// LogMessenger "delivers" messages by logging them.
type LogMessenger struct {
	logger *slog.Logger
}

// NewLogMessenger creates a LogMessenger.
func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	return &LogMessenger{logger: logger.With("component", "log_messenger")}
}

// Send implements Messenger.
func (m *LogMessenger) Send(ctx context.Context, recipient uuid.UUID, text string) error {
	if err := Validate(recipient, text); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "message sent",
		"recipient", recipient.String(),
		"length", len(text),
		"text", text)
	return nil
}
