package labelstore

import (
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/arloliu/tandem/types"
)

// KV wire format: a MessagePack map with four fields. Unknown fields are
// skipped so the format can grow without breaking older readers.
const (
	fieldActive       = "active"
	fieldPending      = "pending"
	fieldTransitionAt = "transition_at"
	fieldInvalidated  = "invalidated"
)

// encodeState serializes a label snapshot for the KV key.
func encodeState(snap types.LabelSnapshot) []byte {
	var transitionAt int64
	if !snap.LastTransition.IsZero() {
		transitionAt = snap.LastTransition.UnixNano()
	}

	buf := make([]byte, 0, 64)
	buf = msgp.AppendMapHeader(buf, 4)
	buf = msgp.AppendString(buf, fieldActive)
	buf = msgp.AppendString(buf, string(snap.Active))
	buf = msgp.AppendString(buf, fieldPending)
	buf = msgp.AppendString(buf, string(snap.Pending))
	buf = msgp.AppendString(buf, fieldTransitionAt)
	buf = msgp.AppendInt64(buf, transitionAt)
	buf = msgp.AppendString(buf, fieldInvalidated)
	buf = msgp.AppendBool(buf, snap.Invalidated)

	return buf
}

// decodeState parses a KV value back into a label snapshot.
func decodeState(data []byte) (types.LabelSnapshot, error) {
	var snap types.LabelSnapshot

	size, rest, err := msgp.ReadMapHeaderBytes(data)
	if err != nil {
		return snap, err
	}

	for range size {
		var key []byte
		key, rest, err = msgp.ReadMapKeyZC(rest)
		if err != nil {
			return snap, err
		}

		switch string(key) {
		case fieldActive:
			var s string
			s, rest, err = msgp.ReadStringBytes(rest)
			snap.Active = types.LabelID(s)
		case fieldPending:
			var s string
			s, rest, err = msgp.ReadStringBytes(rest)
			snap.Pending = types.LabelID(s)
		case fieldTransitionAt:
			var ts int64
			ts, rest, err = msgp.ReadInt64Bytes(rest)
			if ts != 0 {
				snap.LastTransition = time.Unix(0, ts)
			}
		case fieldInvalidated:
			snap.Invalidated, rest, err = msgp.ReadBoolBytes(rest)
		default:
			rest, err = msgp.Skip(rest)
		}
		if err != nil {
			return snap, err
		}
	}

	return snap, nil
}
