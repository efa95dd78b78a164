package logging

import "github.com/rs/zerolog"

// NewNoopLogger creates a no-op logger that discards all messages using zerolog's built-in Nop()
func NewNoopLogger() Logger {
	return &logger{zl: zerolog.Nop()}
}
