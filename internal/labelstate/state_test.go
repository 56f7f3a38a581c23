package labelstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/types"
)

func newTestState() *State {
	return New(logging.NewNopLogger())
}

func TestState_Empty(t *testing.T) {
	s := newTestState()

	active, ok := s.Active()
	assert.False(t, ok)
	assert.Equal(t, types.NoLabel, active)

	pending, ok := s.Pending()
	assert.False(t, ok)
	assert.Equal(t, types.NoLabel, pending)

	assert.False(t, s.Invalidated())
}

func TestState_SetActive(t *testing.T) {
	s := newTestState()

	s.SetActive(types.LabelA)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, types.LabelA, active)
}

func TestState_SetActive_InvalidIgnored(t *testing.T) {
	s := newTestState()

	s.SetActive(types.LabelID("C"))

	_, ok := s.Active()
	assert.False(t, ok)
}

func TestState_SetActive_ClearsEqualPending(t *testing.T) {
	s := newTestState()
	s.SetActive(types.LabelA)
	s.SetPending(types.LabelB)

	// Active catches up with pending: pending must clear.
	s.SetActive(types.LabelB)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, types.LabelB, active)

	_, ok = s.Pending()
	assert.False(t, ok)
}

func TestState_SetPending_EqualToActiveIgnored(t *testing.T) {
	s := newTestState()
	s.SetActive(types.LabelA)

	s.SetPending(types.LabelA)

	_, ok := s.Pending()
	assert.False(t, ok)
}

func TestState_SetPending_InvalidIgnored(t *testing.T) {
	s := newTestState()

	s.SetPending(types.LabelID(""))

	_, ok := s.Pending()
	assert.False(t, ok)
}

func TestState_TryApplyPending(t *testing.T) {
	s := newTestState()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.SetActive(types.LabelA)
	s.SetPending(types.LabelB)

	// Blocked while queries are in flight.
	assert.False(t, s.TryApplyPending(3))

	active, _ := s.Active()
	assert.Equal(t, types.LabelA, active)

	// Applies at zero.
	assert.True(t, s.TryApplyPending(0))

	active, _ = s.Active()
	assert.Equal(t, types.LabelB, active)

	_, ok := s.Pending()
	assert.False(t, ok)

	assert.True(t, s.Invalidated())

	snap := s.Snapshot()
	assert.Equal(t, now, snap.LastTransition)
}

func TestState_TryApplyPending_Idempotent(t *testing.T) {
	s := newTestState()
	s.SetActive(types.LabelA)

	// No pending set: no-op regardless of count.
	assert.False(t, s.TryApplyPending(0))
	assert.False(t, s.TryApplyPending(0))

	active, _ := s.Active()
	assert.Equal(t, types.LabelA, active)
	assert.False(t, s.Invalidated())
}

func TestState_InvalidateActive(t *testing.T) {
	s := newTestState()
	s.SetActive(types.LabelB)

	s.InvalidateActive()

	_, ok := s.Active()
	assert.False(t, ok)
	assert.True(t, s.Invalidated(), "a rejected label must force a session rebuild")
}

func TestState_ClearInvalidated(t *testing.T) {
	s := newTestState()
	s.SetActive(types.LabelA)
	s.SetPending(types.LabelB)
	require.True(t, s.TryApplyPending(0))
	require.True(t, s.Invalidated())

	s.ClearInvalidated()

	assert.False(t, s.Invalidated())
}

func TestState_OnChange(t *testing.T) {
	s := newTestState()

	var snaps []types.LabelSnapshot
	s.SetOnChange(func(snap types.LabelSnapshot) {
		snaps = append(snaps, snap)
	})

	s.SetActive(types.LabelA)
	s.SetActive(types.LabelA) // unchanged, no emit
	s.SetPending(types.LabelB)
	require.True(t, s.TryApplyPending(0))

	require.Len(t, snaps, 3)
	assert.Equal(t, types.LabelA, snaps[0].Active)
	assert.Equal(t, types.LabelB, snaps[1].Pending)
	assert.Equal(t, types.LabelB, snaps[2].Active)
	assert.True(t, snaps[2].Invalidated)
}

func TestState_ApplyRemote(t *testing.T) {
	s := newTestState()

	emitted := 0
	s.SetOnChange(func(types.LabelSnapshot) { emitted++ })

	s.ApplyRemote(types.LabelSnapshot{
		Active:      types.LabelB,
		Pending:     types.LabelA,
		Invalidated: true,
	})

	active, _ := s.Active()
	assert.Equal(t, types.LabelB, active)
	pending, _ := s.Pending()
	assert.Equal(t, types.LabelA, pending)
	assert.True(t, s.Invalidated())

	// Remote application must not echo back through the hook.
	assert.Equal(t, 0, emitted)
}

func TestState_ApplyRemote_DropsInvalidPending(t *testing.T) {
	s := newTestState()

	s.ApplyRemote(types.LabelSnapshot{
		Active:  types.LabelA,
		Pending: types.LabelA,
	})

	_, ok := s.Pending()
	assert.False(t, ok)
}
