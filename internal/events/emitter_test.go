package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler counts the events it receives.
type recordingHandler struct {
	err    error
	events []*TaskRequestEvent
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("no subscribers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		event, err := NewTaskRequestEvent(EventTypeDocumentUploaded, map[string]string{"k": "v"})
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrNoHandler)
	})

	t.Run("routes by type", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		uploads := &recordingHandler{}
		others := &recordingHandler{}
		emitter.Subscribe(EventTypeDocumentUploaded, uploads)
		emitter.Subscribe("something_else", others)

		event, err := NewTaskRequestEvent(EventTypeDocumentUploaded, nil)
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		require.Len(t, uploads.events, 1)
		assert.Same(t, event, uploads.events[0])
		assert.Empty(t, others.events)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		failing := &recordingHandler{err: errors.New("handler error")}
		ok := &recordingHandler{}
		emitter.Subscribe(EventTypeDocumentUploaded, failing)
		emitter.Subscribe(EventTypeDocumentUploaded, ok)

		event, err := NewTaskRequestEvent(EventTypeDocumentUploaded, nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		require.Error(t, err)
		assert.Equal(t, "handler error", err.Error())
		assert.Len(t, failing.events, 1)
		assert.Len(t, ok.events, 1)
	})
}
