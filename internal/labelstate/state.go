// Package labelstate implements the process-local deployment label state
// machine shared by every label store backend.
package labelstate

import (
	"sync"
	"time"

	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/types"
)

// State holds the active/pending deployment label pair, the transition
// timestamp, and the session invalidation flag.
//
// All mutations are serialized by a single lock. Invariant: pending is
// never equal to active when set.
//
// An optional onChange hook lets shared-state backends mirror local
// mutations to sibling processes. The hook runs after the lock is released
// so no lock is ever held across a network call.
type State struct {
	mu             sync.Mutex
	active         types.LabelID
	pending        types.LabelID
	lastTransition time.Time
	invalidated    bool

	logger   types.Logger
	onChange func(types.LabelSnapshot)

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates an empty label state. Labels are unknown until the first
// negotiation succeeds or a sibling process shares its view.
func New(logger types.Logger) *State {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &State{
		logger: logger,
		now:    time.Now,
	}
}

// SetOnChange installs the mutation hook. Must be called before the state
// is shared between goroutines.
func (s *State) SetOnChange(fn func(types.LabelSnapshot)) {
	s.onChange = fn
}

// Active returns the currently authoritative label, if known.
func (s *State) Active() (types.LabelID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active, s.active != types.NoLabel
}

// SetActive sets the active label. An invalid label is ignored with a
// warning. A pending label equal to the new active label is cleared so the
// pending != active invariant holds.
func (s *State) SetActive(label types.LabelID) {
	if !label.Valid() {
		s.logger.Warn("ignoring invalid deployment label", "label", string(label))
		return
	}

	s.mu.Lock()
	changed := s.active != label
	s.active = label
	if s.pending == label {
		s.pending = types.NoLabel
		changed = true
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(changed, snap)
}

// Pending returns the pending transition label, if one is set.
func (s *State) Pending() (types.LabelID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending, s.pending != types.NoLabel
}

// SetPending records an impending cutover. A no-op when the label is
// invalid or equals the current active label.
func (s *State) SetPending(label types.LabelID) {
	if !label.Valid() {
		s.logger.Warn("ignoring invalid pending label", "label", string(label))
		return
	}

	s.mu.Lock()
	if label == s.active || label == s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = label
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(true, snap)
}

// TryApplyPending atomically applies the pending transition when one is set
// and activeCount is zero. Idempotent otherwise.
func (s *State) TryApplyPending(activeCount int) bool {
	s.mu.Lock()
	if s.pending == types.NoLabel || activeCount != 0 {
		s.mu.Unlock()
		return false
	}

	s.active = s.pending
	s.pending = types.NoLabel
	s.invalidated = true
	s.lastTransition = s.now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(true, snap)

	return true
}

// InvalidateActive clears the cached active label and marks the session
// invalidated, so the next session-scoped call rebuilds and reconfirms the
// environment instead of trusting a label the fleet just rejected.
func (s *State) InvalidateActive() {
	s.mu.Lock()
	changed := s.active != types.NoLabel || !s.invalidated
	s.active = types.NoLabel
	s.invalidated = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(changed, snap)
}

// Invalidated reports whether the cached session must be rebuilt, either
// because a transition applied or because the fleet rejected the active
// label.
func (s *State) Invalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.invalidated
}

// ClearInvalidated resets the invalidated flag after a session rebuild.
func (s *State) ClearInvalidated() {
	s.mu.Lock()
	changed := s.invalidated
	s.invalidated = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(changed, snap)
}

// Snapshot returns a consistent point-in-time view of the label state.
func (s *State) Snapshot() types.LabelSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// ApplyRemote overwrites the state with a sibling process's view without
// triggering the onChange hook. Invalid snapshots (pending equal to active)
// have their pending label dropped.
func (s *State) ApplyRemote(snap types.LabelSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Pending == snap.Active {
		snap.Pending = types.NoLabel
	}

	s.active = snap.Active
	s.pending = snap.Pending
	s.lastTransition = snap.LastTransition
	s.invalidated = snap.Invalidated
}

// Close releases resources. The in-memory state has none.
func (s *State) Close() error {
	return nil
}

// snapshotLocked builds a snapshot. Caller must hold s.mu.
func (s *State) snapshotLocked() types.LabelSnapshot {
	return types.LabelSnapshot{
		Active:         s.active,
		Pending:        s.pending,
		LastTransition: s.lastTransition,
		Invalidated:    s.invalidated,
	}
}

// emit runs the onChange hook outside the lock.
func (s *State) emit(changed bool, snap types.LabelSnapshot) {
	if !changed || s.onChange == nil {
		return
	}

	s.onChange(snap)
}
