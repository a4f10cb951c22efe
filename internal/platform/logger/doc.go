// Package logger provides structured logging functionality for the application.
//
// It builds a log/slog logger from LogConfig (JSON or text, optional rotating
// file through lumberjack) and carries request-scoped loggers on a context.
package logger
