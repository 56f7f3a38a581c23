package types

// Logger defines the structured logging interface used throughout Tandem.
//
// The method set is compatible with zap.SugaredLogger, so a production
// logger can be injected directly:
//
//	logger, _ := zap.NewProduction()
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithLogger(logger.Sugar()),
//	)
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Logger interface {
	// Debug logs a message at debug level with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warn level with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at fatal level with optional key-value pairs.
	Fatal(msg string, keysAndValues ...any)
}
