// Package logger configures the application's structured logging and
// provides helpers for carrying a request-scoped logger on the context.
package logger
