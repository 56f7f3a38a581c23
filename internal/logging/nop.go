// Package logging holds the fallback logger used when the embedding
// application does not supply one.
package logging

import "github.com/arloliu/tandem/types"

// NopLogger satisfies types.Logger and drops everything. Constructors
// substitute it for a nil logger so the rest of the module never has to
// nil-check before logging.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNopLogger returns the discard logger.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Debug(_ string, _ ...any) {}
func (l *NopLogger) Info(_ string, _ ...any)  {}
func (l *NopLogger) Warn(_ string, _ ...any)  {}
func (l *NopLogger) Error(_ string, _ ...any) {}

// Fatal deliberately does not exit; a silently configured default must
// never terminate the host process.
func (l *NopLogger) Fatal(_ string, _ ...any) {}
