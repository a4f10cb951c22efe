// Package gemini implements generation.TextGenerator on Google's Gemini API
// through the google.golang.org/genai client. Transient API failures (rate
// limits and server errors) are retried with exponential backoff; safety
// blocks and empty responses are returned immediately.
package gemini
