package tandem

import (
	"context"
	"sync"

	"github.com/arloliu/tandem/types"
)

// SessionManager owns the authenticated session token.
//
// The cached token is handed out until the label store reports an applied
// transition (invalidated flag) or a transition is pending with zero active
// queries, in which case the underlying connection is torn down and
// rebuilt, a fresh session-scoped authenticate runs through the negotiator,
// and the invalidated flag is cleared. A rebuild is always a full teardown:
// partial reconstruction is a correctness risk, not an optimization.
//
// All methods are safe for concurrent use.
type SessionManager struct {
	mu        sync.Mutex
	sessionID string
	closed    bool

	transport  Transport
	negotiator *Negotiator
	store      LabelStore
	tracker    *QueryTracker
	creds      Credentials
	clusterID  string

	logger  types.Logger
	metrics types.MetricsCollector
}

// NewSessionManager creates a session manager.
//
// Parameters:
//   - transport: The RPC transport (rebuilt via Reconnect on invalidation)
//   - negotiator: Routes the authenticate call through label negotiation
//   - store: The shared label store
//   - tracker: The query tracker gating proactive transitions
//   - creds: The authentication material
//   - clusterID: Optional cluster identifier for outgoing calls
//   - logger: Structured logger
//   - collector: Metrics collector
//
// Returns:
//   - *SessionManager: A new manager with no cached token
func NewSessionManager(
	transport Transport,
	negotiator *Negotiator,
	store LabelStore,
	tracker *QueryTracker,
	creds Credentials,
	clusterID string,
	logger types.Logger,
	collector types.MetricsCollector,
) *SessionManager {
	return &SessionManager{
		transport:  transport,
		negotiator: negotiator,
		store:      store,
		tracker:    tracker,
		creds:      creds,
		clusterID:  clusterID,
		logger:     logger,
		metrics:    collector,
	}
}

// Token returns the session token, authenticating if necessary.
//
// When the label store reports an applied transition, or a transition is
// pending with no queries in flight, the cached token is discarded: the
// transport connection is torn down and rebuilt and a fresh authenticate
// runs through the negotiator, so the next call already uses the new
// environment instead of discovering the mismatch reactively.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - string: The session token
//   - error: types.ErrSessionClosed after Close, or the authenticate error
func (s *SessionManager) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", types.ErrSessionClosed
	}

	// A cutover announced while idle applies here rather than waiting for
	// the next terminal query transition.
	if _, pending := s.store.Pending(); pending {
		s.tracker.ApplyPendingIfIdle()
	}

	if s.sessionID != "" && !s.store.Invalidated() {
		return s.sessionID, nil
	}

	if err := s.rebuildLocked(ctx); err != nil {
		return "", err
	}

	return s.sessionID, nil
}

// Invalidate discards the cached token, forcing re-authentication on the
// next Token call.
//
// Used for the access-denied path, which is unrelated to label state.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = ""
	s.logger.Info("session token invalidated, re-authentication forced")
}

// rebuildLocked tears down and rebuilds the transport connection, then
// authenticates. Caller must hold s.mu.
func (s *SessionManager) rebuildLocked(ctx context.Context) error {
	s.metrics.IncSessionRebuild()

	if err := s.transport.Reconnect(ctx); err != nil {
		return err
	}

	var resp *AuthResponse
	err := s.negotiator.SessionCall(ctx, "authenticate", func(ctx context.Context, label types.LabelID) (Hinted, error) {
		s.metrics.IncAuthTotal(label)

		r, err := s.transport.Authenticate(ctx, CallOptions{Label: label, ClusterID: s.clusterID}, s.creds)
		if err != nil {
			return nil, err
		}
		resp = r

		return r, nil
	})
	if err != nil {
		return err
	}

	s.sessionID = resp.SessionID
	s.store.ClearInvalidated()
	s.logger.Info("session established", "user", s.creds.User)

	return nil
}

// Close discards the token and marks the manager closed.
func (s *SessionManager) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = ""
	s.closed = true
}
