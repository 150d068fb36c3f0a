// Package logging assembles the structured slog loggers used across downpour.
//
// It centralizes level parsing and console/JSON handler selection, honours the
// optional [logging] configuration section, and provides a no-op logger for
// tests and wiring code that cannot fail. Prefer these constructors over
// hand-rolled slog setup so every component logs with the same shape.
package logging
