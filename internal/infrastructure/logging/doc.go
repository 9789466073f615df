// Package logging provides structured logging for eMart Core.
//
// It wraps log/slog with configuration-driven handler selection and
// default service attributes. Components derive scoped loggers with
// With("component", ...) so every line carries its origin.
package logging
