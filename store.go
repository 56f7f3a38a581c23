package tandem

import (
	"context"

	"github.com/arloliu/tandem/types"
)

// LabelStore is the shared registry of the active and pending deployment
// labels.
//
// The store must be visible to every goroutine in the process and should be
// visible to sibling worker processes where a shared-state mechanism is
// available. Implementations include labelstore.Local (process-local) and
// labelstore.NATS (NATS JetStream KV backed, degrading to process-local
// operation with an explicit warning when the KV store is unreachable).
//
// All mutations are serialized by a single lock inside the implementation.
// Stale reads of the active label are permitted; they can never cause two
// different labels within one query's lifetime because assigned labels are
// immutable once a query registers.
type LabelStore interface {
	// Active returns the currently authoritative label, if known.
	Active() (types.LabelID, bool)

	// SetActive sets the active label. An invalid label is ignored with a
	// warning. If the new active label equals the pending label, the pending
	// label is cleared to preserve the pending != active invariant.
	SetActive(label types.LabelID)

	// Pending returns the pending transition label, if one is set.
	Pending() (types.LabelID, bool)

	// SetPending records a server-announced impending cutover. A no-op when
	// the label equals the current active label or is invalid.
	SetPending(label types.LabelID)

	// TryApplyPending atomically applies the pending transition when one is
	// set and activeCount is zero: active becomes pending, pending clears,
	// the invalidated flag is set and the transition time is stamped.
	// Otherwise it is a no-op.
	//
	// Returns:
	//   - bool: true if the transition applied
	TryApplyPending(activeCount int) bool

	// InvalidateActive clears the cached active label so the next
	// session-scoped call reconfirms it. Called after a query-scoped call
	// fails with a wrong-environment error.
	InvalidateActive()

	// Invalidated reports whether a transition applied and the cached
	// session must be rebuilt.
	Invalidated() bool

	// ClearInvalidated resets the invalidated flag after the session
	// manager rebuilds the session.
	ClearInvalidated()

	// Snapshot returns a consistent point-in-time view of the label state.
	Snapshot() types.LabelSnapshot

	// Close releases resources held by the store.
	Close() error
}

// ResumeLock is the bounded mutual-exclusion lock guarding cluster resume,
// so concurrent callers (including sibling worker processes) do not each
// independently resume the same cluster.
//
// Implementations include labelstore.LocalLock (in-process) and
// labelstore.NATSLock (NATS JetStream KV lease).
type ResumeLock interface {
	// Acquire attempts to take the lock, waiting at most until the context
	// deadline. A caller unable to acquire the lock within its wait budget
	// fails fast with types.ErrResumeLockBusy rather than queuing.
	//
	// Parameters:
	//   - ctx: Context bounding the wait
	//
	// Returns:
	//   - func(): Release function, to be called exactly once
	//   - error: types.ErrResumeLockBusy if the lock is held, or a context error
	Acquire(ctx context.Context) (func(), error)
}
