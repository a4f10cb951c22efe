// Package config handles configuration loading, parsing, and validation
// from a .env file, an optional config.yaml and SCRY_-prefixed environment
// variables. It provides type-safe access to the settings the ingestion
// pipeline, the reminder dispatcher and the HTTP server need, including the
// chunk-size constants and the spaced-repetition interval table.
package config
