package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatReply struct {
	status       int
	content      string
	finishReason string
}

// newChatServer serves the queued replies in order, repeating the last one.
func newChatServer(t *testing.T, replies ...chatReply) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		reply := replies[n]

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		if reply.status >= 400 {
			w.WriteHeader(reply.status)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream error","type":"server_error"}}`)
			return
		}
		finish := reply.finishReason
		if finish == "" {
			finish = "stop"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": finish,
				"message":       map[string]any{"role": "assistant", "content": reply.content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestGenerator(t *testing.T, baseURL string) *Generator {
	t.Helper()
	g, err := NewGenerator(config.LLMConfig{
		Provider:              "openai",
		OpenAIAPIKey:          "sk-test",
		BaseURL:               baseURL + "/",
		ModelName:             "gpt-4o-mini",
		MaxRetries:            2,
		RequestTimeoutSeconds: 5,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	g.policy.BaseDelay = 1
	return g
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("returns message content", func(t *testing.T) {
		t.Parallel()
		srv, calls := newChatServer(t, chatReply{content: "  Quiz Time!  "})
		text, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "write a quiz")
		require.NoError(t, err)
		assert.Equal(t, "Quiz Time!", text)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()
		srv, calls := newChatServer(t, chatReply{status: 503}, chatReply{content: "ok"})
		text, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		t.Parallel()
		srv, calls := newChatServer(t, chatReply{status: 401})
		_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, generation.ErrGenerationFailed)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("content filter", func(t *testing.T) {
		t.Parallel()
		srv, _ := newChatServer(t, chatReply{content: "", finishReason: "content_filter"})
		_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		srv, _ := newChatServer(t, chatReply{content: " "})
		_, err := newTestGenerator(t, srv.URL).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewGenerator(config.LLMConfig{ModelName: "m"}, logger)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(config.LLMConfig{OpenAIAPIKey: "k"}, logger)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(config.LLMConfig{OpenAIAPIKey: "k", ModelName: "m"}, nil)
	assert.Error(t, err)
}
