// Package generation provides the boundary to external LLM services and the
// study-content operations built on it. TextGenerator is implemented by the
// Gemini and OpenAI-compatible backends under internal/platform. Prompts
// renders the embedded prompt templates, and Tutor turns chapter text into
// summaries, quiz items, teaching challenges and stage-specific retention
// reminders, parsing best-effort structured responses tolerantly.
package generation
