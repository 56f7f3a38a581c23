package tandem

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/tandem/internal/labelstate"
	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/internal/metrics"
	"github.com/arloliu/tandem/types"
)

// Client is the Tandem client for a dual-environment distributed SQL engine.
//
// It composes the shared label store, the query lifecycle tracker, the
// negotiation protocol, the cluster resume controller, and the session
// manager to serve query execution. New work always reaches whichever
// environment is currently authoritative; work already in flight keeps
// using the environment it started on, even across a live cutover; and a
// suspended cluster is woken and waited on transparently when auto-resume
// is enabled.
type Client struct {
	transport Transport
	config    *ClientConfig

	store      LabelStore
	tracker    *QueryTracker
	negotiator *Negotiator
	resume     *ResumeController
	session    *SessionManager

	closed   atomic.Bool
	reapStop chan struct{}
	reapWG   sync.WaitGroup
}

// NewClient creates a new Tandem client.
//
// If no label store is configured the client uses a process-local store;
// cross-process coordination requires labelstore.NATS. If a reap interval
// and stale-query age are configured (both are by default), a background
// reaper force-cancels leaked query records so they cannot permanently
// block label transitions.
//
// Parameters:
//   - transport: The engine RPC transport (required)
//   - creds: Authentication material for the session
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client
//   - error: types.ErrNilTransport if transport is nil, or a label name
//     validation error
func NewClient(transport Transport, creds Credentials, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, types.ErrNilTransport
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	// Ensure metrics is never nil
	if config.Metrics == nil {
		config.Metrics = metrics.NewNopMetrics()
	}

	// Ensure logger is never nil
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}

	if err := config.LabelNames.Validate(); err != nil {
		return nil, err
	}

	if config.LabelStore == nil {
		config.LabelStore = labelstate.New(config.Logger)
	}
	if config.ResumeLock == nil {
		config.ResumeLock = labelstate.NewLock()
	}

	// Propagate label names to components that support it
	propagateLabelNames(config)

	tracker := NewQueryTracker(config.LabelStore, config.DefaultLabel, config.Logger, config.Metrics)
	tracker.SetLabelNames(config.LabelNames)

	negotiator := NewNegotiator(config.LabelStore, config.DefaultLabel, config.Logger, config.Metrics)
	negotiator.SetLabelNames(config.LabelNames)

	resume := NewResumeController(ResumeControllerConfig{
		Transport:    transport,
		Negotiator:   negotiator,
		Lock:         config.ResumeLock,
		Timeout:      config.ResumeTimeout,
		PollInterval: config.ResumePollInterval,
		LockWait:     config.ResumeLockWait,
		ClusterID:    config.ClusterID,
		Logger:       config.Logger,
		Metrics:      config.Metrics,
	})

	session := NewSessionManager(
		transport, negotiator, config.LabelStore, tracker,
		creds, config.ClusterID, config.Logger, config.Metrics,
	)

	client := &Client{
		transport:  transport,
		config:     config,
		store:      config.LabelStore,
		tracker:    tracker,
		negotiator: negotiator,
		resume:     resume,
		session:    session,
		reapStop:   make(chan struct{}),
	}

	if config.ReapInterval > 0 && config.StaleQueryAge > 0 {
		client.reapWG.Add(1)
		go client.reapLoop()
	}

	return client, nil
}

// Prepare registers a statement and returns a handle for its lifecycle.
//
// The query is assigned its deployment label at registration; every
// subsequent call on the returned handle carries that same label until the
// query reaches a terminal state.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - stmt: SQL statement to prepare
//
// Returns:
//   - *Query: Handle for executing and fetching the query
//   - error: types.ErrSessionClosed after Close, or the prepare error
func (c *Client) Prepare(ctx context.Context, stmt string) (*Query, error) {
	if c.closed.Load() {
		return nil, types.ErrSessionClosed
	}

	cursorID := uuid.NewString()

	// The token comes first: authentication negotiates the active label, so
	// a cold start or a freshly invalidated store discovers the serving
	// environment before the query's label is pinned.
	var rec QueryRecord
	registered := false

	err := c.guard(ctx, func(ctx context.Context) error {
		token, err := c.session.Token(ctx)
		if err != nil {
			return err
		}

		if !registered {
			rec = c.tracker.Register(cursorID)
			registered = true
		}

		return c.negotiator.QueryCall(ctx, rec, "prepare", func(ctx context.Context, label types.LabelID) (Hinted, error) {
			resp, err := c.transport.Prepare(ctx, c.callOpts(label, ""), token, cursorID, stmt)
			if err != nil {
				return nil, err
			}
			if resp.TargetNode != "" {
				_ = c.tracker.SetTargetNode(rec.QueryID, resp.TargetNode)
			}

			return resp, nil
		})
	})
	if err != nil {
		if registered {
			_ = c.tracker.Transition(rec.QueryID, types.QueryFailed)
		}

		return nil, err
	}

	return &Query{client: c, queryID: rec.QueryID, cursorID: cursorID}, nil
}

// Status probes the cluster's serving status through label negotiation.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - types.ClusterStatus: The reported status
//   - error: types.ErrSessionClosed after Close, or the probe error
func (c *Client) Status(ctx context.Context) (types.ClusterStatus, error) {
	if c.closed.Load() {
		return "", types.ErrSessionClosed
	}

	var status types.ClusterStatus
	err := c.guard(ctx, func(ctx context.Context) error {
		return c.negotiator.SessionCall(ctx, "status", func(ctx context.Context, label types.LabelID) (Hinted, error) {
			resp, err := c.transport.Status(ctx, c.callOpts(label, ""))
			if err != nil {
				return nil, err
			}
			status = resp.Status

			return resp, nil
		})
	})
	if err != nil {
		return "", err
	}

	return status, nil
}

// ReapStale force-cancels queries idle beyond the configured stale age.
//
// The background reaper runs this periodically; it is exposed for callers
// that disabled the reaper or want an immediate sweep.
//
// Returns:
//   - int: Number of queries reaped
func (c *Client) ReapStale() int {
	return c.tracker.ReapStale(c.config.StaleQueryAge)
}

// Labels returns a point-in-time view of the deployment label state.
func (c *Client) Labels() types.LabelSnapshot {
	return c.store.Snapshot()
}

// ActiveQueries returns the number of non-terminal tracked queries.
func (c *Client) ActiveQueries() int {
	return c.tracker.ActiveCount()
}

// ResumeState returns the resume controller's current phase.
func (c *Client) ResumeState() ResumeState {
	return c.resume.State()
}

// Close stops the background reaper and releases the client's resources.
//
// Close is safe to call multiple times.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(c.reapStop)
	c.reapWG.Wait()

	c.session.Close()

	storeErr := c.store.Close()
	transportErr := c.transport.Close()
	if storeErr != nil {
		return storeErr
	}

	return transportErr
}

// guard wraps a control call with the bounded recovery retries: one resume
// after a service-unavailable failure (when auto-resume is enabled) and one
// forced re-authentication after an access-denied failure. Everything else
// surfaces unmodified.
func (c *Client) guard(ctx context.Context, call func(context.Context) error) error {
	resumed := false
	reauthed := false

	for {
		err := call(ctx)
		if err == nil {
			return nil
		}

		switch {
		case errors.Is(err, types.ErrServiceUnavailable) && c.config.AutoResume && !resumed:
			resumed = true
			c.config.Logger.Warn("control call hit suspended cluster, attempting resume", "error", err)
			if resumeErr := c.resume.EnsureActive(ctx); resumeErr != nil {
				return resumeErr
			}

		case errors.Is(err, types.ErrAccessDenied) && !reauthed:
			reauthed = true
			c.session.Invalidate()

		default:
			return err
		}
	}
}

// callOpts builds the per-call routing headers.
func (c *Client) callOpts(label types.LabelID, targetNode string) CallOptions {
	return CallOptions{
		Label:      label,
		TargetNode: targetNode,
		ClusterID:  c.config.ClusterID,
	}
}

// reapLoop periodically sweeps stale query records until Close.
func (c *Client) reapLoop() {
	defer c.reapWG.Done()

	ticker := time.NewTicker(c.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.reapStop:
			return
		case <-ticker.C:
			c.tracker.ReapStale(c.config.StaleQueryAge)
		}
	}
}
