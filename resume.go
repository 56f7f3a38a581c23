package tandem

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/internal/metrics"
	"github.com/arloliu/tandem/types"
)

// ResumeState is the phase of the cluster resume state machine.
type ResumeState int32

// Resume state machine phases:
//
//	Unknown -> Checking -> {Suspended -> Resuming} -> {Active | Failed | TimedOut}
const (
	ResumeUnknown ResumeState = iota
	ResumeChecking
	ResumeSuspended
	ResumeResuming
	ResumeActive
	ResumeFailed
	ResumeTimedOut
)

// String returns the human-readable name of the resume state.
func (s ResumeState) String() string {
	switch s {
	case ResumeUnknown:
		return "unknown"
	case ResumeChecking:
		return "checking"
	case ResumeSuspended:
		return "suspended"
	case ResumeResuming:
		return "resuming"
	case ResumeActive:
		return "active"
	case ResumeFailed:
		return "failed"
	case ResumeTimedOut:
		return "timed_out"
	default:
		return "invalid"
	}
}

// ResumeController wakes a suspended cluster and waits for it to become
// active.
//
// Every probe and the resume call itself are routed through the negotiator,
// so label mismatches during the wake are absorbed transparently. The whole
// operation runs under a bounded cross-process lock: concurrent callers do
// not each independently resume the same cluster, and a caller that cannot
// acquire the lock within its wait budget fails fast.
type ResumeController struct {
	transport  Transport
	negotiator *Negotiator
	lock       ResumeLock

	timeout      time.Duration
	pollInterval time.Duration
	lockWait     time.Duration
	clusterID    string

	logger  types.Logger
	metrics types.MetricsCollector

	state atomic.Int32

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// ResumeControllerConfig configures a ResumeController.
type ResumeControllerConfig struct {
	// Transport issues the status and resume calls.
	Transport Transport

	// Negotiator routes every call through label negotiation.
	Negotiator *Negotiator

	// Lock is the bounded cross-process resume lock.
	Lock ResumeLock

	// Timeout is the hard deadline for resume polling. Default: 300s.
	Timeout time.Duration

	// PollInterval is the fixed status polling interval. Default: 5s.
	PollInterval time.Duration

	// LockWait is the wait budget for acquiring the resume lock. Default: 10s.
	LockWait time.Duration

	// ClusterID optionally identifies the cluster on outgoing calls.
	ClusterID string

	// Logger is the structured logger.
	Logger types.Logger

	// Metrics is the metrics collector.
	Metrics types.MetricsCollector
}

// NewResumeController creates a resume controller.
//
// Parameters:
//   - cfg: Controller configuration; zero durations take defaults
//
// Returns:
//   - *ResumeController: A new controller in the Unknown state
func NewResumeController(cfg ResumeControllerConfig) *ResumeController {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNopMetrics()
	}

	return &ResumeController{
		transport:    cfg.Transport,
		negotiator:   cfg.Negotiator,
		lock:         cfg.Lock,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		lockWait:     cfg.LockWait,
		clusterID:    cfg.ClusterID,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		now:          time.Now,
	}
}

// State returns the controller's current state machine phase.
func (rc *ResumeController) State() ResumeState {
	return ResumeState(rc.state.Load())
}

func (rc *ResumeController) setState(s ResumeState) {
	rc.state.Store(int32(s))
}

// EnsureActive drives the state machine until the cluster is active.
//
// The controller probes the cluster status; an active cluster returns
// immediately, a suspended cluster is issued a resume call and then polled
// on a fixed interval until it becomes active, the polling deadline
// expires, or the cluster reports failure.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: nil once the cluster is active; types.ErrResumeLockBusy,
//     types.ErrNotResumable, types.ErrResumeTimeout, or the underlying
//     call error otherwise
func (rc *ResumeController) EnsureActive(ctx context.Context) error {
	start := rc.now()
	rc.metrics.IncResumeTotal()

	release, err := rc.acquireLock(ctx)
	if err != nil {
		rc.metrics.IncResumeFailure()
		return err
	}
	defer release()

	err = rc.run(ctx, start)
	rc.metrics.ObserveResumeDuration(rc.now().Sub(start).Seconds())
	if err != nil {
		rc.metrics.IncResumeFailure()
		return err
	}

	rc.metrics.IncResumeSuccess()

	return nil
}

// acquireLock takes the cross-process resume lock within the wait budget.
func (rc *ResumeController) acquireLock(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, rc.lockWait)
	defer cancel()

	release, err := rc.lock.Acquire(lockCtx)
	if err != nil {
		rc.logger.Warn("cluster resume lock not acquired", "error", err)
		return nil, err
	}

	return release, nil
}

// run executes the Checking and Resuming phases. Caller holds the lock.
func (rc *ResumeController) run(ctx context.Context, start time.Time) error {
	rc.setState(ResumeChecking)

	status, err := rc.probe(ctx)
	if err != nil {
		// A suspended cluster may report its state through the
		// unavailability error itself rather than a status payload.
		if !errors.Is(err, types.ErrServiceUnavailable) {
			rc.setState(ResumeFailed)
			return err
		}
		status = types.ClusterSuspended
	}

	switch status {
	case types.ClusterActive:
		rc.setState(ResumeActive)
		return nil

	case types.ClusterSuspended:
		rc.setState(ResumeSuspended)
		if err := rc.issueResume(ctx); err != nil {
			rc.setState(ResumeFailed)
			return err
		}

	case types.ClusterResuming:
		// Another caller already initiated the wake; just wait for it.

	default:
		rc.setState(ResumeFailed)
		rc.logger.Error("cluster status is not resumable", "status", string(status))

		return types.ErrNotResumable
	}

	rc.setState(ResumeResuming)

	return rc.pollUntilActive(ctx, start)
}

// probe issues one status call through the negotiator.
func (rc *ResumeController) probe(ctx context.Context) (types.ClusterStatus, error) {
	var status types.ClusterStatus

	err := rc.negotiator.SessionCall(ctx, "status", func(ctx context.Context, label types.LabelID) (Hinted, error) {
		resp, err := rc.transport.Status(ctx, CallOptions{Label: label, ClusterID: rc.clusterID})
		if err != nil {
			return nil, err
		}
		status = resp.Status

		return resp, nil
	})

	return status, err
}

// issueResume sends the resume call through the negotiator.
func (rc *ResumeController) issueResume(ctx context.Context) error {
	rc.logger.Info("resuming suspended cluster", "cluster_id", rc.clusterID)

	return rc.negotiator.SessionCall(ctx, "resume", func(ctx context.Context, label types.LabelID) (Hinted, error) {
		resp, err := rc.transport.Resume(ctx, CallOptions{Label: label, ClusterID: rc.clusterID})
		if err != nil {
			return nil, err
		}

		return resp, nil
	})
}

// pollUntilActive polls the cluster status on the fixed interval until it
// becomes active, fails, or the deadline passes.
func (rc *ResumeController) pollUntilActive(ctx context.Context, start time.Time) error {
	deadline := start.Add(rc.timeout)

	ticker := time.NewTicker(rc.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rc.setState(ResumeFailed)
			return ctx.Err()

		case <-ticker.C:
			if !rc.now().Before(deadline) {
				rc.setState(ResumeTimedOut)
				rc.logger.Error("cluster resume timed out",
					"cluster_id", rc.clusterID,
					"timeout", rc.timeout.String(),
				)

				return types.ErrResumeTimeout
			}

			status, err := rc.probe(ctx)
			if err != nil {
				if errors.Is(err, types.ErrServiceUnavailable) {
					// Still waking up.
					continue
				}
				rc.setState(ResumeFailed)

				return err
			}

			switch status {
			case types.ClusterActive:
				rc.setState(ResumeActive)
				rc.logger.Info("cluster resumed",
					"cluster_id", rc.clusterID,
					"elapsed", rc.now().Sub(start).String(),
				)

				return nil

			case types.ClusterFailed:
				rc.setState(ResumeFailed)
				rc.logger.Error("cluster resume failed", "cluster_id", rc.clusterID)

				return types.ErrNotResumable

			default:
				// Suspended or resuming: keep polling.
			}
		}
	}
}
