// Package register is the core of the cluster: the ABD read/write
// algorithm and the local per-replica state it protects.
//
// The fan-out/collect-until-quorum/stop shape lives in collectMajority;
// the local critical section (lock spans exactly the read-compare-replace,
// never I/O) lives in InternalWrite. Version comparison uses a totally
// ordered Timestamp (see internal/timestamp) rather than a vector clock,
// so two concurrent writers are always resolvable to one winner instead of
// merely "concurrent".
package register

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"abdreg/internal/metrics"
	"abdreg/internal/peerclient"
	"abdreg/internal/timestamp"
)

const localPath = "/register/local"

// Core holds the LocalRegister triple and implements the ABD operations.
// Exactly one Core exists per replica, created at boot and never replaced.
type Core struct {
	selfID string

	mu    sync.Mutex
	value Value
	ts    timestamp.Timestamp

	broadcaster *peerclient.Broadcaster
	majority    int
	counters    *metrics.Counters
}

// New creates a Core at its documented initial state: (value=null,
// timestamp=(0,selfID)). The broadcaster is attached separately via
// Attach because a Broadcaster needs a LocalHandler (this
// Core) to construct, and a Core needs a Broadcaster to operate: callers
// must do
//
//	core := register.New(selfID, counters)
//	bc := peerclient.New(selfID, peerURLs, core)
//	core.Attach(bc)
func New(selfID string, counters *metrics.Counters) *Core {
	return &Core{
		selfID:   selfID,
		value:    nil,
		ts:       timestamp.Initial(selfID),
		counters: counters,
	}
}

// Attach wires the peer broadcaster into the core and derives the quorum
// size from the broadcaster's total replica count (self + peers). Must be
// called exactly once before Read/Write are served.
func (c *Core) Attach(b *peerclient.Broadcaster) {
	c.broadcaster = b
	c.majority = b.Total()/2 + 1 // majority for even N is N/2+1
}

// ─── External operations ──────────────────────────────────────────────────

// Read implements the two-phase ABD read: collect a majority's (value,
// timestamp), select the maximum, write it back to a majority, return it.
// The write-back phase is mandatory — it is what makes reads linearizable
// rather than merely regular.
func (c *Core) Read(ctx context.Context) (Value, error) {
	phase1, err := c.collectMajority(ctx, http.MethodGet, localPath, nil)
	if err != nil {
		c.counters.ReadFailures.Add(1)
		return nil, err
	}

	best, ok := highestTimestamp(phase1)
	if !ok {
		c.counters.ReadFailures.Add(1)
		return nil, ErrQuorumFailure
	}

	body := encodeLocalState(best.value, best.ts)
	if _, err := c.collectMajority(ctx, http.MethodPost, localPath, body); err != nil {
		c.counters.ReadFailures.Add(1)
		return nil, err
	}

	c.counters.Reads.Add(1)
	return best.value, nil
}

// Write implements the two-phase ABD write: collect a majority's highest
// timestamp, mint a strictly-greater timestamp tagged with this replica's
// ID, impose (new_value, t') on a majority.
func (c *Core) Write(ctx context.Context, newValue Value) error {
	phase1, err := c.collectMajority(ctx, http.MethodGet, localPath, nil)
	if err != nil {
		c.counters.WriteFailures.Add(1)
		return err
	}

	maxTS, ok := highestTimestampOnly(phase1)
	if !ok {
		c.counters.WriteFailures.Add(1)
		return ErrQuorumFailure
	}
	next := timestamp.Next(maxTS, c.selfID)

	body := encodeLocalState(newValue, next)
	if _, err := c.collectMajority(ctx, http.MethodPost, localPath, body); err != nil {
		c.counters.WriteFailures.Add(1)
		return err
	}

	c.counters.Writes.Add(1)
	return nil
}

// ─── Internal operations ──────────────────────────────────────────────────

// InternalRead returns the current LocalRegister snapshot atomically.
func (c *Core) InternalRead(_ context.Context) (Value, timestamp.Timestamp) {
	c.mu.Lock()
	v, t := c.value, c.ts
	c.mu.Unlock()
	c.counters.InternalReads.Add(1)
	return v, t
}

// InternalWrite applies the merge rule: replace (value, timestamp) iff t is
// strictly greater than the current timestamp. Always acknowledges — the
// critical section is exactly the compare-and-replace, nothing else; the
// lock must never span a suspension point other than its own acquisition.
func (c *Core) InternalWrite(_ context.Context, v Value, t timestamp.Timestamp) error {
	c.mu.Lock()
	if t.Greater(c.ts) {
		c.value, c.ts = v, t
	}
	c.mu.Unlock()
	c.counters.InternalWrites.Add(1)
	return nil
}

// ─── peerclient.LocalHandler (self-invocation) ────────────────────────────

func (c *Core) LocalGet(ctx context.Context, path string) ([]byte, error) {
	if path != localPath {
		return nil, fmt.Errorf("register: unknown local path %q", path)
	}
	v, t := c.InternalRead(ctx)
	return encodeLocalState(v, t), nil
}

func (c *Core) LocalPost(ctx context.Context, path string, body []byte) ([]byte, error) {
	if path != localPath {
		return nil, fmt.Errorf("register: unknown local path %q", path)
	}
	v, t, err := decodeLocalState(body)
	if err != nil {
		return nil, err
	}
	if err := c.InternalWrite(ctx, v, t); err != nil {
		return nil, err
	}
	return nil, nil
}

// ─── Quorum collection ─────────────────────────────────────────────────────

type localState struct {
	peerID string
	value  Value
	ts     timestamp.Timestamp
}

// collectMajority broadcasts (method, path, body) to every replica and
// blocks until a majority of successful replies arrive, then cancels the
// broadcast's context so any stragglers are abandoned rather than awaited.
// Individual peer failures (transport, non-2xx, decode) are silently
// dropped from the tally and never propagate.
func (c *Core) collectMajority(ctx context.Context, method, path string, body []byte) ([]localState, error) {
	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	respCh := c.broadcaster.Broadcast(bctx, method, path, body)

	total := c.broadcaster.Total()
	needed := c.majority

	collected := make([]localState, 0, needed)
	remaining := total

	for remaining > 0 {
		select {
		case r := <-respCh:
			remaining--
			if r.Err != nil {
				continue
			}
			v, t, err := decodeResponse(method, r.Body)
			if err != nil {
				continue // decode failure: silently dropped, like a transport failure
			}
			collected = append(collected, localState{peerID: r.PeerID, value: v, ts: t})
			if len(collected) >= needed {
				return collected, nil
			}
		case <-ctx.Done():
			return nil, ErrCancelled
		}
	}

	return nil, ErrQuorumFailure
}

// decodeResponse extracts (value, timestamp) from a GET reply body. POST
// (write-ack) replies carry no body to decode; the caller only needs the
// count of successful acks, so a zero-value state is returned — it is
// never inspected by write-path callers, which only ever read the length
// of the collected slice for POSTs.
func decodeResponse(method string, body []byte) (Value, timestamp.Timestamp, error) {
	if method == http.MethodPost {
		return nil, timestamp.Timestamp{}, nil
	}
	return decodeLocalState(body)
}

func highestTimestamp(states []localState) (localState, bool) {
	var best localState
	found := false
	for _, s := range states {
		if !found || s.ts.Greater(best.ts) {
			best = s
			found = true
		}
	}
	return best, found
}

func highestTimestampOnly(states []localState) (timestamp.Timestamp, bool) {
	s, ok := highestTimestamp(states)
	return s.ts, ok
}
