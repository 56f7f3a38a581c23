package labelstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/arloliu/tandem/types"
)

func TestCodec_RoundTrip(t *testing.T) {
	snap := types.LabelSnapshot{
		Active:         types.LabelB,
		Pending:        types.LabelA,
		LastTransition: time.Unix(0, 1748779200123456789),
		Invalidated:    true,
	}

	decoded, err := decodeState(encodeState(snap))
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)
}

func TestCodec_ZeroTransitionTime(t *testing.T) {
	snap := types.LabelSnapshot{Active: types.LabelA}

	decoded, err := decodeState(encodeState(snap))
	require.NoError(t, err)
	assert.True(t, decoded.LastTransition.IsZero())
	assert.Equal(t, types.LabelA, decoded.Active)
	assert.Equal(t, types.NoLabel, decoded.Pending)
	assert.False(t, decoded.Invalidated)
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	// A newer writer may add fields; older readers must skip them.
	buf := make([]byte, 0, 64)
	buf = msgp.AppendMapHeader(buf, 3)
	buf = msgp.AppendString(buf, "active")
	buf = msgp.AppendString(buf, "B")
	buf = msgp.AppendString(buf, "future_field")
	buf = msgp.AppendString(buf, "whatever")
	buf = msgp.AppendString(buf, "invalidated")
	buf = msgp.AppendBool(buf, true)

	decoded, err := decodeState(buf)
	require.NoError(t, err)
	assert.Equal(t, types.LabelB, decoded.Active)
	assert.True(t, decoded.Invalidated)
}

func TestCodec_GarbageFails(t *testing.T) {
	_, err := decodeState([]byte("not msgpack"))
	assert.Error(t, err)
}
