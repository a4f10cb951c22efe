package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-reader/internal/generation"
)

// MockTextGenerator implements generation.TextGenerator for testing.
type MockTextGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, prompt string) (string, error)

	// Default response values
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
}

// NewMockTextGeneratorWithResponse returns a generator that always answers response.
func NewMockTextGeneratorWithResponse(response string) *MockTextGenerator {
	return &MockTextGenerator{Response: response}
}

// NewMockTextGeneratorWithError returns a generator that always fails with err.
func NewMockTextGeneratorWithError(err error) *MockTextGenerator {
	return &MockTextGenerator{Err: err}
}

// MockTextGeneratorThatFails returns a generator failing with generation.ErrGenerationFailed.
func MockTextGeneratorThatFails() *MockTextGenerator {
	return NewMockTextGeneratorWithError(generation.ErrGenerationFailed)
}

// Generate implements generation.TextGenerator.
func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Response, m.Err
}

// Prompts returns every prompt received so far.
func (m *MockTextGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount returns how many prompts were received.
func (m *MockTextGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
