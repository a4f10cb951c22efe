package generation

import "context"

// TextGenerator is the boundary to an external text-generation service.
// Implementations return the model's raw text. Callers must tolerate
// malformed, partial or non-JSON output.
type TextGenerator interface {
	// Generate sends prompt to the model and returns its text response.
	//
	// Errors wrap ErrContentBlocked, ErrInvalidResponse, ErrTransientFailure
	// or ErrGenerationFailed so callers can tell them apart with errors.Is.
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the TextGenerator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements TextGenerator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
