// Package timestamp implements the ABD logical clock: a (sequence, tiebreaker)
// pair that is totally ordered across every replica in the cluster.
//
// A plain per-replica counter only gives a partial order: two concurrent
// writers with no causal relationship would be merely "concurrent", neither
// dominating. This clock needs a TOTAL order so two concurrent writers
// never tie — the tiebreaker (each replica's self ID) breaks every tie.
package timestamp

import "fmt"

// Timestamp is ABD's (sequence, tiebreaker) pair. The zero value is NOT the
// distinguished initial timestamp on its own — use Initial(selfID) for that,
// since the tiebreaker must always be populated with the owning replica's ID.
type Timestamp struct {
	Sequence   uint64 `json:"sequence"`
	Tiebreaker string `json:"tiebreaker"`
}

// Initial is the distinguished minimum timestamp for a freshly booted
// replica: smaller than any timestamp a write() call will ever generate.
func Initial(selfID string) Timestamp {
	return Timestamp{Sequence: 0, Tiebreaker: selfID}
}

// Less reports whether t sorts strictly before other: lexicographic on
// (Sequence, Tiebreaker), matching spec's comparison rule exactly.
func (t Timestamp) Less(other Timestamp) bool {
	if t.Sequence != other.Sequence {
		return t.Sequence < other.Sequence
	}
	return t.Tiebreaker < other.Tiebreaker
}

// Greater reports whether t sorts strictly after other.
func (t Timestamp) Greater(other Timestamp) bool {
	return other.Less(t)
}

// Next produces the timestamp a write at replica selfID should impose after
// observing maxSeen as the highest timestamp in its phase-1 quorum. The
// tiebreaker guarantees two replicas racing to write never produce the
// same (sequence, tiebreaker) pair, because their tiebreakers differ.
func Next(maxSeen Timestamp, selfID string) Timestamp {
	return Timestamp{Sequence: maxSeen.Sequence + 1, Tiebreaker: selfID}
}

func (t Timestamp) String() string {
	return fmt.Sprintf("(%d,%s)", t.Sequence, t.Tiebreaker)
}

// Wire is the on-the-wire tuple form required by the internal endpoints:
// [sequence_number, tiebreaker]. Marshaling Timestamp directly would produce
// a JSON object, not the array the wire protocol requires, so encode/decode
// sites use this helper explicitly rather than relying on struct tags.
type Wire [2]any

func (t Timestamp) ToWire() Wire {
	return Wire{t.Sequence, t.Tiebreaker}
}

func FromWire(w Wire) (Timestamp, error) {
	seq, ok := w[0].(float64) // json.Unmarshal into any decodes numbers as float64
	if !ok {
		return Timestamp{}, fmt.Errorf("timestamp: sequence field is not numeric: %v", w[0])
	}
	tb, ok := w[1].(string)
	if !ok {
		return Timestamp{}, fmt.Errorf("timestamp: tiebreaker field is not a string: %v", w[1])
	}
	return Timestamp{Sequence: uint64(seq), Tiebreaker: tb}, nil
}
