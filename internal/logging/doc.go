// Package logging assembles the structured slog loggers used across curio
// services.
//
// It centralizes level parsing, console/JSON handler selection, and common
// attribute helpers, and provides a no-op logger for tests and wiring code
// that cannot fail. Prefer these constructors over hand-rolled slog setup so
// every component emits log lines with the same shape.
package logging
