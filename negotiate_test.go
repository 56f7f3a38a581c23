package tandem

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tandem/internal/labelstate"
	"github.com/arloliu/tandem/internal/logging"
	"github.com/arloliu/tandem/internal/metrics"
	"github.com/arloliu/tandem/types"
)

func newTestNegotiator() (*Negotiator, LabelStore) {
	store := labelstate.New(logging.NewNopLogger())
	n := NewNegotiator(store, types.LabelA, logging.NewNopLogger(), metrics.NewNopMetrics())

	return n, store
}

// labelCall returns a SessionCall that succeeds only for the given labels,
// failing everything else with a wrong-environment error. It records the
// labels attempted, in order.
func labelCall(attempts *[]types.LabelID, hint types.LabelID, serving ...types.LabelID) SessionCall {
	return func(_ context.Context, label types.LabelID) (Hinted, error) {
		*attempts = append(*attempts, label)
		for _, s := range serving {
			if label == s {
				return &CallResult{Advisory: Advisory{Hint: hint}}, nil
			}
		}

		return nil, fmt.Errorf("%w: label %q", types.ErrWrongEnvironment, label)
	}
}

func TestSessionCall_EstablishedSingleCall(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelB)

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{types.LabelB}, attempts, "steady state costs exactly one call")
}

func TestSessionCall_EstablishedRetryCorrectsLabel(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	// The engine cut over to B without the client noticing.
	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{types.LabelA, types.LabelB}, attempts)

	active, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, types.LabelB, active, "retry success must correct the shared store")
}

func TestSessionCall_EstablishedBothLabelsFail(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel))

	require.Error(t, err)
	assert.Len(t, attempts, 2)
	assert.ErrorIs(t, err, types.ErrLabelsExhausted)
	assert.ErrorIs(t, err, types.ErrWrongEnvironment)

	var exhausted *types.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Contains(t, exhausted.First.Error(), `label "A"`, "the original failure leads for diagnostics")
	assert.Contains(t, exhausted.Last.Error(), `label "B"`)
}

func TestSessionCall_NonEnvironmentErrorNoRetry(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	boom := errors.New("connection reset")
	calls := 0
	err := n.SessionCall(context.Background(), "test", func(_ context.Context, _ types.LabelID) (Hinted, error) {
		calls++
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "only wrong-environment failures earn a retry")
}

func TestSessionCall_ColdStartDiscoversSecondLabel(t *testing.T) {
	n, store := newTestNegotiator()

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{types.LabelA, types.LabelB}, attempts)

	active, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, types.LabelB, active)
}

func TestSessionCall_ColdStartPrefersPending(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetPending(types.LabelB)

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{types.LabelB}, attempts, "a pending label is the best guess on cold start")
}

func TestSessionCall_ColdStartBothFailReturnsLastError(t *testing.T) {
	n, _ := newTestNegotiator()

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel))

	require.Error(t, err)
	assert.Len(t, attempts, 2)
	assert.ErrorIs(t, err, types.ErrWrongEnvironment)
	assert.Contains(t, err.Error(), `label "B"`, "the last attempt's error surfaces on cold start")
}

func TestSessionCall_PendingForcesDiscoveryPath(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)
	store.SetPending(types.LabelB)

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{types.LabelB}, attempts)

	active, _ := store.Active()
	assert.Equal(t, types.LabelB, active)
	_, havePending := store.Pending()
	assert.False(t, havePending, "activating the pending label clears it")
}

func TestSessionCall_HintCapturedAsPending(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.LabelB, types.LabelA))

	require.NoError(t, err)

	pending, ok := store.Pending()
	require.True(t, ok)
	assert.Equal(t, types.LabelB, pending)

	active, _ := store.Active()
	assert.Equal(t, types.LabelA, active, "the hint must not disturb the active label")
}

func TestSessionCall_HintEqualToUsedIgnored(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	var attempts []types.LabelID
	err := n.SessionCall(context.Background(), "test", labelCall(&attempts, types.LabelA, types.LabelA))

	require.NoError(t, err)
	_, ok := store.Pending()
	assert.False(t, ok)
}

func TestQueryCall_ExactlyOnceWithAssignedLabel(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	rec := QueryRecord{QueryID: "q1", AssignedLabel: types.LabelB}

	var attempts []types.LabelID
	err := n.QueryCall(context.Background(), rec, "execute", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{types.LabelB}, attempts, "query calls carry the assigned label, not the active one")
}

func TestQueryCall_WrongEnvironmentEscalates(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	rec := QueryRecord{QueryID: "q1", AssignedLabel: types.LabelA}

	var attempts []types.LabelID
	err := n.QueryCall(context.Background(), rec, "execute", labelCall(&attempts, types.NoLabel, types.LabelB))

	require.Error(t, err)
	assert.Len(t, attempts, 1, "query-scoped calls are never retried on another label")

	var labelErr *types.LabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, types.LabelA, labelErr.Label)
	assert.Equal(t, "execute", labelErr.Operation)
	assert.ErrorIs(t, err, types.ErrWrongEnvironment)

	_, ok := store.Active()
	assert.False(t, ok, "the cached active label must be invalidated for reconfirmation")
}

func TestQueryCall_OtherErrorsPropagate(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	boom := errors.New("fetch window expired")
	rec := QueryRecord{QueryID: "q1", AssignedLabel: types.LabelA}

	err := n.QueryCall(context.Background(), rec, "fetch", func(_ context.Context, _ types.LabelID) (Hinted, error) {
		return nil, boom
	})

	assert.Equal(t, boom, err, "non-environment errors surface unmodified")

	active, ok := store.Active()
	require.True(t, ok)
	assert.Equal(t, types.LabelA, active)
}

func TestQueryCall_HintCaptured(t *testing.T) {
	n, store := newTestNegotiator()
	store.SetActive(types.LabelA)

	rec := QueryRecord{QueryID: "q1", AssignedLabel: types.LabelA}

	var attempts []types.LabelID
	err := n.QueryCall(context.Background(), rec, "fetch", labelCall(&attempts, types.LabelB, types.LabelA))

	require.NoError(t, err)
	pending, ok := store.Pending()
	require.True(t, ok)
	assert.Equal(t, types.LabelB, pending)
}
