package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SentMessage is one message recorded by MockMessenger.
type SentMessage struct {
	Recipient uuid.UUID
	Text      string
}

// MockMessenger implements messaging.Messenger and records what was sent.
type MockMessenger struct {
	// SendFn allows test cases to mock the Send behavior
	SendFn func(ctx context.Context, recipient uuid.UUID, text string) error

	// Err is returned by Send when SendFn is nil
	Err error

	mu   sync.Mutex
	sent []SentMessage
}

// Send implements messaging.Messenger. Only successful sends are recorded.
func (m *MockMessenger) Send(ctx context.Context, recipient uuid.UUID, text string) error {
	var err error
	if m.SendFn != nil {
		err = m.SendFn(ctx, recipient, text)
	} else {
		err = m.Err
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{Recipient: recipient, Text: text})
	return nil
}

// Sent returns the recorded messages.
func (m *MockMessenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}
