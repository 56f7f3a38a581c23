package labelstore

import "time"

// StoreConfig holds configuration for the NATS label store.
type StoreConfig struct {
	// Key is the NATS KV key holding the shared label state.
	// Default: "tandem.labels.state"
	Key string

	// PollInterval is the fallback polling interval if watch fails.
	// Default: 5 seconds
	PollInterval time.Duration

	// PublishTimeout is the timeout for mirroring a local mutation to KV.
	// Default: 5 seconds
	PublishTimeout time.Duration

	// InitialFetchTimeout is the timeout for the initial KV fetch.
	// Default: 10 seconds
	InitialFetchTimeout time.Duration
}

// DefaultStoreConfig returns a StoreConfig with sensible defaults.
//
// Returns:
//   - StoreConfig: Default configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Key:                 "tandem.labels.state",
		PollInterval:        5 * time.Second,
		PublishTimeout:      5 * time.Second,
		InitialFetchTimeout: 10 * time.Second,
	}
}

// StoreOption configures a NATS label store.
type StoreOption func(*StoreConfig)

// WithKey sets the NATS KV key holding the shared label state.
//
// Parameters:
//   - key: The key name (e.g., "prod.labels.state")
//
// Returns:
//   - StoreOption: Configuration option
func WithKey(key string) StoreOption {
	return func(c *StoreConfig) {
		c.Key = key
	}
}

// WithPollInterval sets the fallback polling interval.
//
// If the NATS watch fails or disconnects, the store falls back to
// polling at this interval.
//
// Parameters:
//   - d: Polling interval duration
//
// Returns:
//   - StoreOption: Configuration option
func WithPollInterval(d time.Duration) StoreOption {
	return func(c *StoreConfig) {
		c.PollInterval = d
	}
}

// WithPublishTimeout sets the timeout for mirroring a mutation to KV.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - StoreOption: Configuration option
func WithPublishTimeout(d time.Duration) StoreOption {
	return func(c *StoreConfig) {
		c.PublishTimeout = d
	}
}

// WithInitialFetchTimeout sets the timeout for the initial KV fetch.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - StoreOption: Configuration option
func WithInitialFetchTimeout(d time.Duration) StoreOption {
	return func(c *StoreConfig) {
		c.InitialFetchTimeout = d
	}
}

// LockConfig holds configuration for the NATS resume lock.
type LockConfig struct {
	// Key is the NATS KV key used as the lock lease.
	// Default: "tandem.resume.lock"
	Key string

	// RetryInterval is how often acquisition is retried while the lease
	// is held elsewhere. Default: 250 milliseconds
	RetryInterval time.Duration
}

// DefaultLockConfig returns a LockConfig with sensible defaults.
//
// Returns:
//   - LockConfig: Default configuration
func DefaultLockConfig() LockConfig {
	return LockConfig{
		Key:           "tandem.resume.lock",
		RetryInterval: 250 * time.Millisecond,
	}
}

// LockOption configures a NATS resume lock.
type LockOption func(*LockConfig)

// WithLockKey sets the NATS KV key used as the lock lease.
//
// Parameters:
//   - key: The key name
//
// Returns:
//   - LockOption: Configuration option
func WithLockKey(key string) LockOption {
	return func(c *LockConfig) {
		c.Key = key
	}
}

// WithLockRetryInterval sets the acquisition retry interval.
//
// Parameters:
//   - d: Retry interval duration
//
// Returns:
//   - LockOption: Configuration option
func WithLockRetryInterval(d time.Duration) LockOption {
	return func(c *LockConfig) {
		c.RetryInterval = d
	}
}
