package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelError(t *testing.T) {
	cause := errors.New("unavailable")
	err := &LabelError{
		Label:     LabelA,
		Operation: "authenticate",
		Cause:     cause,
	}

	assert.Contains(t, err.Error(), "label A")
	assert.Contains(t, err.Error(), "authenticate failed")
	assert.Contains(t, err.Error(), "unavailable")
	assert.True(t, errors.Is(err, cause))
}

func TestExhaustedError(t *testing.T) {
	first := errors.New("label A rejected")
	last := errors.New("label B rejected")

	err := &ExhaustedError{
		First: first,
		Last:  last,
	}

	assert.Contains(t, err.Error(), "both labels failed")
	assert.Contains(t, err.Error(), "label A rejected")
	assert.Contains(t, err.Error(), "label B rejected")

	require.True(t, errors.Is(err, ErrLabelsExhausted))
	require.True(t, errors.Is(err, first))
	require.True(t, errors.Is(err, last))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrWrongEnvironment", ErrWrongEnvironment, "wrong deployment environment"},
		{"ErrServiceUnavailable", ErrServiceUnavailable, "service unavailable"},
		{"ErrAccessDenied", ErrAccessDenied, "access denied"},
		{"ErrSessionClosed", ErrSessionClosed, "session is closed"},
		{"ErrUnknownQuery", ErrUnknownQuery, "unknown query id"},
		{"ErrResumeLockBusy", ErrResumeLockBusy, "resume lock is busy"},
		{"ErrNotResumable", ErrNotResumable, "not resumable"},
		{"ErrResumeTimeout", ErrResumeTimeout, "resume timed out"},
		{"ErrNilTransport", ErrNilTransport, "transport cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.msg)
		})
	}
}

func TestLabelIDConstants(t *testing.T) {
	assert.Equal(t, LabelID("A"), LabelA)
	assert.Equal(t, LabelID("B"), LabelB)
	assert.Equal(t, LabelID(""), NoLabel)
}

func TestLabelIDValid(t *testing.T) {
	assert.True(t, LabelA.Valid())
	assert.True(t, LabelB.Valid())
	assert.False(t, NoLabel.Valid())
	assert.False(t, LabelID("C").Valid())
}

func TestLabelIDOther(t *testing.T) {
	assert.Equal(t, LabelB, LabelA.Other())
	assert.Equal(t, LabelA, LabelB.Other())

	// Invalid labels fall back to A so callers always get a usable candidate.
	assert.Equal(t, LabelA, NoLabel.Other())
}

func TestQueryStateTerminal(t *testing.T) {
	assert.False(t, QueryPreparing.Terminal())
	assert.False(t, QueryExecuting.Terminal())
	assert.False(t, QueryFetching.Terminal())
	assert.True(t, QueryCompleted.Terminal())
	assert.True(t, QueryFailed.Terminal())
	assert.True(t, QueryCancelled.Terminal())
}

func TestQueryStateString(t *testing.T) {
	assert.Equal(t, "preparing", QueryPreparing.String())
	assert.Equal(t, "cancelled", QueryCancelled.String())
	assert.Equal(t, "unknown", QueryState(42).String())
}

func TestLabelNamesValidate(t *testing.T) {
	tests := []struct {
		name    string
		names   LabelNames
		wantErr bool
	}{
		{"defaults", DefaultLabelNames(), false},
		{"custom", LabelNames{A: "blue", B: "green"}, false},
		{"empty A", LabelNames{A: "", B: "green"}, true},
		{"equal names", LabelNames{A: "blue", B: "blue"}, true},
		{"invalid chars", LabelNames{A: "blue-1", B: "green"}, true},
		{"starts with digit", LabelNames{A: "1blue", B: "green"}, true},
		{"too long", LabelNames{A: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", B: "green"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.names.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLabelNamesName(t *testing.T) {
	names := LabelNames{A: "blue", B: "green"}
	assert.Equal(t, "blue", names.Name(LabelA))
	assert.Equal(t, "green", names.Name(LabelB))
}
