package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/generation"
)

const finishReasonContentFilter = "content_filter"

// Generator implements generation.TextGenerator with chat completions.
type Generator struct {
	completions *openai.ChatCompletionService
	model       string
	policy      generation.RetryPolicy
	logger      *slog.Logger
}

var _ generation.TextGenerator = (*Generator)(nil)

// NewGenerator creates a chat completions client from cfg. A non-empty
// cfg.BaseURL points the client at an OpenAI-compatible server.
func NewGenerator(cfg config.LLMConfig, logger *slog.Logger, opts ...option.RequestOption) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.RequestTimeoutSeconds > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	client := openai.NewClient(clientOpts...)
	return &Generator{
		completions: &client.Chat.Completions,
		model:       cfg.ModelName,
		policy: generation.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Duration(cfg.BaseDelaySeconds) * time.Second,
			MaxDelay:   time.Minute,
		},
		logger: logger.With("component", "openai_generator", "model", cfg.ModelName),
	}, nil
}

// Generate implements generation.TextGenerator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", generation.ErrEmptyPrompt
	}

	return generation.WithRetry(ctx, g.policy, g.logger, func(ctx context.Context) (string, error) {
		start := time.Now()
		completion, err := g.completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(g.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			g.logger.ErrorContext(ctx, "chat completion failed", "error", err)
			return "", classifyError(err)
		}

		text, err := completionText(completion)
		if err != nil {
			g.logger.WarnContext(ctx, "unusable chat completion", "error", err)
			return "", err
		}

		g.logger.DebugContext(ctx, "chat completion succeeded",
			"prompt_length", len(prompt),
			"response_length", len(text),
			"duration", time.Since(start))
		return text, nil
	})
}

func completionText(c *openai.ChatCompletion) (string, error) {
	if c == nil || len(c.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", generation.ErrInvalidResponse)
	}
	choice := c.Choices[0]
	if string(choice.FinishReason) == finishReasonContentFilter {
		return "", fmt.Errorf("%w: completion stopped by content filter", generation.ErrContentBlocked)
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: completion has no text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// classifyError maps SDK errors onto the generation sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}
