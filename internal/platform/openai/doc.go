// Package openai implements generation.TextGenerator on any OpenAI-compatible
// chat completions endpoint (OpenAI, OpenRouter, local model servers) through
// github.com/openai/openai-go. The SDK's own retries are disabled so that
// retry policy stays in one place.
package openai
