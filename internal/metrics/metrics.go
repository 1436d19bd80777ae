// Package metrics tracks simple in-process operation counters for a
// replica: how many reads/writes it has coordinated and how many of each
// failed to reach quorum, exposed on the HTTP surface's /metrics route.
package metrics

import "sync/atomic"

// Counters is safe for concurrent use; every field is bumped with an
// atomic add from the goroutine completing the corresponding operation.
type Counters struct {
	Reads          atomic.Int64
	Writes         atomic.Int64
	ReadFailures   atomic.Int64
	WriteFailures  atomic.Int64
	InternalReads  atomic.Int64
	InternalWrites atomic.Int64
}

// Snapshot is the read-only view of Counters suitable for JSON encoding.
type Snapshot struct {
	Reads          int64 `json:"reads"`
	Writes         int64 `json:"writes"`
	ReadFailures   int64 `json:"read_failures"`
	WriteFailures  int64 `json:"write_failures"`
	InternalReads  int64 `json:"internal_reads"`
	InternalWrites int64 `json:"internal_writes"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Reads:          c.Reads.Load(),
		Writes:         c.Writes.Load(),
		ReadFailures:   c.ReadFailures.Load(),
		WriteFailures:  c.WriteFailures.Load(),
		InternalReads:  c.InternalReads.Load(),
		InternalWrites: c.InternalWrites.Load(),
	}
}
