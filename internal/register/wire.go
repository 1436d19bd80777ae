package register

import (
	"encoding/json"
	"fmt"

	"abdreg/internal/timestamp"
)

// Value is an opaque JSON document — the register's contents. The zero
// value (nil) marshals to JSON null, which is a legitimate register value
// in its own right — a freshly booted, never-written register reads back
// as null rather than an error.
type Value = json.RawMessage

// encodeLocalState produces the wire tuple required by /register/local:
// [value, [sequence_number, tiebreaker]].
func encodeLocalState(v Value, t timestamp.Timestamp) []byte {
	data, err := json.Marshal([2]any{rawOrNull(v), t.ToWire()})
	if err != nil {
		// Both elements are always encodable (RawMessage + primitive array);
		// a failure here means an invariant was violated upstream.
		panic(fmt.Sprintf("register: encodeLocalState: %v", err))
	}
	return data
}

func rawOrNull(v Value) Value {
	if v == nil {
		return Value("null")
	}
	return v
}

// decodeLocalState parses the wire tuple [value, [sequence, tiebreaker]].
func decodeLocalState(data []byte) (Value, timestamp.Timestamp, error) {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return nil, timestamp.Timestamp{}, fmt.Errorf("decode local state tuple: %w", err)
	}

	var wire timestamp.Wire
	if err := json.Unmarshal(tuple[1], &wire); err != nil {
		return nil, timestamp.Timestamp{}, fmt.Errorf("decode local state timestamp: %w", err)
	}
	ts, err := timestamp.FromWire(wire)
	if err != nil {
		return nil, timestamp.Timestamp{}, err
	}
	return Value(tuple[0]), ts, nil
}
