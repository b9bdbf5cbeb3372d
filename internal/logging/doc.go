// Package logging assembles the structured slog loggers used across dupecull.
//
// It owns the console and JSON handlers and centralizes level and output
// plumbing so the CLI and pipeline components emit log lines with the same
// shape. Components accept a *slog.Logger in their constructors and fall back
// to slog.Default() when handed nil.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
