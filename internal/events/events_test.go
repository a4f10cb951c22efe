package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	type uploadPayload struct {
		TrackedItemID uuid.UUID `json:"tracked_item_id"`
		Filename      string    `json:"filename"`
	}

	payload := uploadPayload{TrackedItemID: uuid.New(), Filename: "book.epub"}
	event, err := NewTaskRequestEvent(EventTypeDocumentUploaded, payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, EventTypeDocumentUploaded, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded uploadPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewTaskRequestEventUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewTaskRequestEvent(EventTypeDocumentUploaded, make(chan int))
	assert.Error(t, err)
}

func TestEventHandlerFunc(t *testing.T) {
	t.Parallel()

	var got *TaskRequestEvent
	h := EventHandlerFunc(func(_ context.Context, event *TaskRequestEvent) error {
		got = event
		return nil
	})

	event := &TaskRequestEvent{ID: uuid.New(), Type: "x"}
	require.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Same(t, event, got)
}
