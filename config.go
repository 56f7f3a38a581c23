package tandem

import (
	"time"

	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/internal/metrics"
	"github.com/arloliu/tandem/types"
)

// ClientConfig holds configuration for Tandem clients.
type ClientConfig struct {
	// LabelStore is the shared deployment label registry.
	// Defaults to a process-local store; use labelstore.NATS to coordinate
	// across sibling worker processes.
	LabelStore LabelStore

	// ResumeLock guards cluster resume against concurrent callers.
	// Defaults to an in-process lock; use labelstore.NATSLock to coordinate
	// across sibling worker processes.
	ResumeLock ResumeLock

	// DefaultLabel is the label tried first on cold start, before any
	// active or pending label is known. Defaults to LabelA.
	DefaultLabel types.LabelID

	// AutoResume enables transparently waking a suspended cluster when a
	// control call fails with a service-unavailable error. Default: false.
	AutoResume bool

	// ResumeTimeout is the hard deadline for resume polling. Default: 300s.
	ResumeTimeout time.Duration

	// ResumePollInterval is the fixed status polling interval during a
	// resume. Default: 5s.
	ResumePollInterval time.Duration

	// ResumeLockWait is the wait budget for acquiring the resume lock
	// before failing fast. Default: 10s.
	ResumeLockWait time.Duration

	// StaleQueryAge is the idle threshold beyond which a non-terminal
	// query is force-cancelled by the reaper. Default: 900s.
	StaleQueryAge time.Duration

	// ReapInterval is how often the background reaper runs. Zero disables
	// the background reaper; ReapStale can still be called manually.
	// Default: 60s.
	ReapInterval time.Duration

	// ClusterID optionally identifies the cluster on outgoing calls.
	ClusterID string

	// Metrics is the metrics collector. Defaults to a no-op collector.
	Metrics types.MetricsCollector

	// Logger is the structured logger. Defaults to a no-op logger.
	Logger types.Logger

	// LabelNames holds custom display names for the two environments.
	LabelNames types.LabelNames
}

// DefaultConfig returns a ClientConfig with sensible defaults.
//
// Defaults:
//   - LabelStore: nil (a process-local store is created by NewClient)
//   - ResumeLock: nil (an in-process lock is created by NewClient)
//   - DefaultLabel: LabelA
//   - AutoResume: false
//   - ResumeTimeout: 300s, ResumePollInterval: 5s, ResumeLockWait: 10s
//   - StaleQueryAge: 900s, ReapInterval: 60s
//
// Returns:
//   - *ClientConfig: Configuration with default settings
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		DefaultLabel:       types.LabelA,
		ResumeTimeout:      300 * time.Second,
		ResumePollInterval: 5 * time.Second,
		ResumeLockWait:     10 * time.Second,
		StaleQueryAge:      900 * time.Second,
		ReapInterval:       60 * time.Second,
		Metrics:            metrics.NewNopMetrics(),
		Logger:             logging.NewNopLogger(),
		LabelNames:         types.DefaultLabelNames(),
	}
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// WithLabelStore sets the shared deployment label store.
//
// Parameters:
//   - store: The label store implementation (e.g., labelstore.NATS)
//
// Returns:
//   - Option: Configuration option
func WithLabelStore(store LabelStore) Option {
	return func(c *ClientConfig) {
		c.LabelStore = store
	}
}

// WithResumeLock sets the cross-process cluster resume lock.
//
// Parameters:
//   - lock: The resume lock implementation (e.g., labelstore.NATSLock)
//
// Returns:
//   - Option: Configuration option
func WithResumeLock(lock ResumeLock) Option {
	return func(c *ClientConfig) {
		c.ResumeLock = lock
	}
}

// WithDefaultLabel sets the label tried first on cold start.
//
// Parameters:
//   - label: The cold-start label (LabelA or LabelB)
//
// Returns:
//   - Option: Configuration option
func WithDefaultLabel(label types.LabelID) Option {
	return func(c *ClientConfig) {
		c.DefaultLabel = label
	}
}

// WithAutoResume enables or disables transparent cluster resume.
//
// When enabled, a control call failing with a service-unavailable error
// triggers the resume state machine and, on success, one retry of the
// failed call.
//
// Parameters:
//   - enabled: true to enable auto-resume
//
// Returns:
//   - Option: Configuration option
func WithAutoResume(enabled bool) Option {
	return func(c *ClientConfig) {
		c.AutoResume = enabled
	}
}

// WithResumeTimeout sets the hard deadline for resume polling.
//
// Parameters:
//   - d: Timeout duration
//
// Returns:
//   - Option: Configuration option
func WithResumeTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.ResumeTimeout = d
	}
}

// WithResumePollInterval sets the status polling interval during a resume.
//
// Parameters:
//   - d: Polling interval duration
//
// Returns:
//   - Option: Configuration option
func WithResumePollInterval(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.ResumePollInterval = d
	}
}

// WithResumeLockWait sets the wait budget for acquiring the resume lock.
//
// Parameters:
//   - d: Wait budget duration
//
// Returns:
//   - Option: Configuration option
func WithResumeLockWait(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.ResumeLockWait = d
	}
}

// WithStaleQueryAge sets the idle threshold for the stale-query reaper.
//
// Parameters:
//   - d: Idle threshold duration
//
// Returns:
//   - Option: Configuration option
func WithStaleQueryAge(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.StaleQueryAge = d
	}
}

// WithReapInterval sets how often the background reaper runs.
//
// Pass zero to disable the background reaper.
//
// Parameters:
//   - d: Reap interval duration
//
// Returns:
//   - Option: Configuration option
func WithReapInterval(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.ReapInterval = d
	}
}

// WithClusterID sets the cluster identifier carried on outgoing calls.
//
// Parameters:
//   - id: The cluster identifier
//
// Returns:
//   - Option: Configuration option
func WithClusterID(id string) Option {
	return func(c *ClientConfig) {
		c.ClusterID = id
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	import vmmetrics "github.com/arloliu/tandem/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithMetrics(collector),
//	)
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *ClientConfig) {
		c.Metrics = collector
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithLogger(logger.Sugar()),
//	)
func WithLogger(logger types.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithLabelNames sets custom display names for the deployment labels.
//
// These names are used in metrics labels and log messages instead of the
// default "A" and "B". Names must be Prometheus-compatible (alphanumeric
// with underscores, starting with letter or underscore, max 32 chars).
//
// Parameters:
//   - nameA: Display name for LabelA (e.g., "blue", "fleet_east")
//   - nameB: Display name for LabelB (e.g., "green", "fleet_west")
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	client, _ := tandem.NewClient(transport, creds,
//	    tandem.WithLabelNames("blue", "green"),
//	)
//
// This will produce metrics like:
//
//	tandem_negotiation_total{label="blue"} 100
//	tandem_negotiation_total{label="green"} 95
func WithLabelNames(nameA, nameB string) Option {
	return func(c *ClientConfig) {
		c.LabelNames = types.LabelNames{A: nameA, B: nameB}
	}
}

// propagateLabelNames sets label names on components that implement LabelNamer.
//
// This function is called during client initialization to propagate label
// names configured via WithLabelNames to all components that support custom
// naming.
func propagateLabelNames(c *ClientConfig) {
	if namer, ok := c.Metrics.(types.LabelNamer); ok {
		namer.SetLabelNames(c.LabelNames)
	}
	if namer, ok := c.LabelStore.(types.LabelNamer); ok {
		namer.SetLabelNames(c.LabelNames)
	}
}
