package tandem

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/tandem/types"
)

// QueryRecord tracks one query's lifecycle and its immutable label assignment.
//
// AssignedLabel is fixed at registration and never mutated: every call
// belonging to the query carries this label from registration to its
// terminal state, even across a live cutover.
type QueryRecord struct {
	// QueryID is the tracker-allocated identity of the query.
	QueryID string

	// CursorID is the client-chosen cursor id the query runs under.
	CursorID string

	// AssignedLabel is the deployment label fixed at registration.
	AssignedLabel types.LabelID

	// State is the current lifecycle state.
	State types.QueryState

	// CreatedAt is when the query registered.
	CreatedAt time.Time

	// LastActivityAt is refreshed by state changes and activity records.
	// Used only for staleness detection, never for correctness.
	LastActivityAt time.Time

	// TargetNode is the fleet member that owns the cursor, if pinned.
	TargetNode string
}

// QueryTracker registers queries with an immutable assigned label, tracks
// their lifecycle states, and counts in-flight queries to gate label
// transitions.
//
// The tracker mutex serializes registrations against terminal transitions,
// so a pending label can never apply concurrently with a new query's
// registration. All methods are safe for concurrent use.
type QueryTracker struct {
	mu      sync.Mutex
	store   LabelStore
	records map[string]*QueryRecord // queryID -> record, non-terminal only
	cursors map[string]string       // cursorID -> queryID while active

	defaultLabel types.LabelID
	labelNames   types.LabelNames
	logger       types.Logger
	metrics      types.MetricsCollector

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewQueryTracker creates a tracker backed by the given label store.
//
// Parameters:
//   - store: The shared label store consulted at registration and on
//     terminal transitions
//   - defaultLabel: The label assigned on cold start when neither an active
//     nor a pending label is known
//   - logger: Structured logger
//   - collector: Metrics collector
//
// Returns:
//   - *QueryTracker: A new tracker
func NewQueryTracker(store LabelStore, defaultLabel types.LabelID, logger types.Logger, collector types.MetricsCollector) *QueryTracker {
	if !defaultLabel.Valid() {
		defaultLabel = types.LabelA
	}

	return &QueryTracker{
		store:        store,
		records:      make(map[string]*QueryRecord),
		cursors:      make(map[string]string),
		defaultLabel: defaultLabel,
		labelNames:   types.DefaultLabelNames(),
		logger:       logger,
		metrics:      collector,
		now:          time.Now,
	}
}

// Register allocates a query id for the cursor and assigns its label.
//
// The effective label is the pending label if a cutover is already
// announced (new work trends toward the destination environment), else the
// active label, else the configured default on cold start. The assignment
// is immutable for the query's lifetime.
//
// Parameters:
//   - cursorID: The client-chosen cursor id the query will run under
//
// Returns:
//   - QueryRecord: A copy of the registered record, State=Preparing
func (t *QueryTracker) Register(cursorID string) QueryRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	label := t.effectiveLabel()
	now := t.now()

	rec := &QueryRecord{
		QueryID:        uuid.NewString(),
		CursorID:       cursorID,
		AssignedLabel:  label,
		State:          types.QueryPreparing,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	t.records[rec.QueryID] = rec
	t.cursors[cursorID] = rec.QueryID

	t.metrics.IncQueryRegistered(label)
	t.metrics.SetActiveQueries(len(t.records))
	t.logger.Debug("query registered",
		"query_id", rec.QueryID,
		"cursor_id", cursorID,
		"label", t.labelNames.Name(label),
	)

	return *rec
}

// effectiveLabel computes the label for a new registration.
// Caller must hold t.mu.
func (t *QueryTracker) effectiveLabel() types.LabelID {
	if pending, ok := t.store.Pending(); ok {
		return pending
	}
	if active, ok := t.store.Active(); ok {
		return active
	}

	return t.defaultLabel
}

// Transition moves a query to a new lifecycle state.
//
// When the new state is terminal the record is removed from the active set
// and the pending label transition is given a chance to apply.
//
// Parameters:
//   - queryID: The query to transition
//   - state: The new lifecycle state
//
// Returns:
//   - error: types.ErrUnknownQuery if the id is not registered
func (t *QueryTracker) Transition(queryID string, state types.QueryState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[queryID]
	if !ok {
		return types.ErrUnknownQuery
	}

	rec.State = state
	rec.LastActivityAt = t.now()

	if state.Terminal() {
		t.remove(rec)
		t.applyPendingLocked()
	}

	return nil
}

// RecordActivity refreshes a query's last-activity timestamp.
//
// Activity records feed staleness detection only and never affect
// correctness. Unknown ids are ignored.
//
// Parameters:
//   - queryID: The query that saw activity
//   - kind: A short description of the activity (for debug logging)
func (t *QueryTracker) RecordActivity(queryID, kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[queryID]
	if !ok {
		return
	}

	rec.LastActivityAt = t.now()
	t.logger.Debug("query activity", "query_id", queryID, "kind", kind)
}

// SetTargetNode pins the query's cursor to a fleet member.
//
// Parameters:
//   - queryID: The query to pin
//   - node: The owning fleet member's address
//
// Returns:
//   - error: types.ErrUnknownQuery if the id is not registered
func (t *QueryTracker) SetTargetNode(queryID, node string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[queryID]
	if !ok {
		return types.ErrUnknownQuery
	}

	rec.TargetNode = node

	return nil
}

// ActiveCount returns the number of non-terminal tracked queries.
func (t *QueryTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}

// Lookup returns a copy of the record for the given query id.
//
// Returns:
//   - QueryRecord: A copy of the record
//   - bool: false if the id is not registered
func (t *QueryTracker) Lookup(queryID string) (QueryRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[queryID]
	if !ok {
		return QueryRecord{}, false
	}

	return *rec, true
}

// LookupCursor returns a copy of the record owning the given cursor id.
//
// Returns:
//   - QueryRecord: A copy of the record
//   - bool: false if no active query owns the cursor
func (t *QueryTracker) LookupCursor(cursorID string) (QueryRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	queryID, ok := t.cursors[cursorID]
	if !ok {
		return QueryRecord{}, false
	}

	rec, ok := t.records[queryID]
	if !ok {
		return QueryRecord{}, false
	}

	return *rec, true
}

// ReapStale force-cancels non-terminal queries idle beyond maxAge.
//
// This is a safety valve: a leaked record would otherwise permanently block
// pending label transitions. Reaped queries are moved to Cancelled and
// removed from the active set, after which the pending transition is given
// a chance to apply.
//
// Parameters:
//   - maxAge: The idle threshold
//
// Returns:
//   - int: Number of queries reaped
func (t *QueryTracker) ReapStale(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	reaped := 0

	for _, rec := range t.records {
		if rec.LastActivityAt.After(cutoff) {
			continue
		}

		rec.State = types.QueryCancelled
		t.remove(rec)
		reaped++

		t.metrics.IncQueryReaped(rec.AssignedLabel)
		t.logger.Warn("stale query reaped",
			"query_id", rec.QueryID,
			"cursor_id", rec.CursorID,
			"label", t.labelNames.Name(rec.AssignedLabel),
			"idle", t.now().Sub(rec.LastActivityAt).String(),
		)
	}

	if reaped > 0 {
		t.applyPendingLocked()
	}

	return reaped
}

// ApplyPendingIfIdle offers the pending transition a chance to apply with
// the current active count, under the tracker lock.
//
// The session manager calls this before handing out a cached token, so a
// cutover announced while no queries were in flight applies proactively
// instead of waiting for the next terminal transition.
func (t *QueryTracker) ApplyPendingIfIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.applyPendingLocked()
}

// remove deletes a record from the active set.
// Caller must hold t.mu.
func (t *QueryTracker) remove(rec *QueryRecord) {
	delete(t.records, rec.QueryID)
	delete(t.cursors, rec.CursorID)
	t.metrics.SetActiveQueries(len(t.records))
}

// applyPendingLocked offers the pending transition a chance to apply with
// the current active count. Caller must hold t.mu.
func (t *QueryTracker) applyPendingLocked() {
	snapshot := t.store.Snapshot()
	if !t.store.TryApplyPending(len(t.records)) {
		return
	}

	t.logger.Info("deployment label transition applied",
		"from", t.labelNames.Name(snapshot.Active),
		"to", t.labelNames.Name(snapshot.Pending),
	)
	t.metrics.IncLabelTransition(snapshot.Active, snapshot.Pending)
	t.metrics.SetPendingLabel(false)
}

// SetLabelNames sets custom display names for labels in log messages.
//
// Parameters:
//   - names: The label names to use in log messages
func (t *QueryTracker) SetLabelNames(names types.LabelNames) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.labelNames = names
}
