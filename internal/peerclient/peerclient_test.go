package peerclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type stubLocal struct {
	getCalls  atomic.Int32
	postCalls atomic.Int32
}

func (s *stubLocal) LocalGet(_ context.Context, _ string) ([]byte, error) {
	s.getCalls.Add(1)
	return []byte(`"self"`), nil
}

func (s *stubLocal) LocalPost(_ context.Context, _ string, _ []byte) ([]byte, error) {
	s.postCalls.Add(1)
	return nil, nil
}

// Broadcast's self response is served by a direct LocalHandler call, never
// an HTTP round-trip — so it must still work with zero peers configured.
func TestBroadcastSelfShortCircuit(t *testing.T) {
	local := &stubLocal{}
	b := New("node1", nil, local)

	ch := b.Broadcast(context.Background(), http.MethodGet, "/register/local", nil)
	resp := <-ch

	if resp.PeerID != "node1" {
		t.Errorf("PeerID = %q, want node1", resp.PeerID)
	}
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if string(resp.Body) != `"self"` {
		t.Errorf("Body = %s, want \"self\"", resp.Body)
	}
	if local.getCalls.Load() != 1 {
		t.Errorf("LocalGet called %d times, want 1", local.getCalls.Load())
	}
}

func TestTotalAndPeerCount(t *testing.T) {
	b := New("node1", []string{"http://a", "http://b"}, &stubLocal{})
	if b.PeerCount() != 2 {
		t.Errorf("PeerCount() = %d, want 2", b.PeerCount())
	}
	if b.Total() != 3 {
		t.Errorf("Total() = %d, want 3", b.Total())
	}
}

func newEchoPeer(t *testing.T, body string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBroadcastCollectsAllReplies(t *testing.T) {
	p1 := newEchoPeer(t, `["v1",[1,"node2"]]`, 0)
	p2 := newEchoPeer(t, `["v2",[2,"node3"]]`, 0)

	b := New("node1", []string{p1.URL, p2.URL}, &stubLocal{})
	ch := b.Broadcast(context.Background(), http.MethodGet, "/register/local", nil)

	seen := map[string]bool{}
	for i := 0; i < b.Total(); i++ {
		r := <-ch
		if r.Err != nil {
			t.Errorf("peer %s failed: %v", r.PeerID, r.Err)
		}
		seen[r.PeerID] = true
	}
	if len(seen) != 3 {
		t.Errorf("collected %d distinct responders, want 3: %v", len(seen), seen)
	}
}

func TestBroadcastMarksUnreachablePeerAsFailed(t *testing.T) {
	good := newEchoPeer(t, `["v1",[1,"node2"]]`, 0)
	b := New("node1", []string{good.URL, "http://127.0.0.1:1"}, &stubLocal{})

	ch := b.Broadcast(context.Background(), http.MethodGet, "/register/local", nil)

	var failures int
	for i := 0; i < b.Total(); i++ {
		r := <-ch
		if r.Err != nil {
			failures++
			var peerErr *ErrPeerFailed
			if !isErrPeerFailed(r.Err, &peerErr) {
				t.Errorf("error is not an ErrPeerFailed: %v", r.Err)
			}
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func isErrPeerFailed(err error, target **ErrPeerFailed) bool {
	pf, ok := err.(*ErrPeerFailed)
	if ok {
		*target = pf
	}
	return ok
}

// Cancelling the broadcast context must stop any goroutine still blocked on
// a slow peer from leaking: the channel is buffered to Total() so every
// goroutine's send succeeds even after the caller has stopped reading, and
// each one exits soon after. goleak.VerifyNone confirms nothing outlives
// the test instead of a hand-rolled timeout/channel check.
func TestBroadcastCancellationIsLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := newEchoPeer(t, `["v",[1,"node2"]]`, 200*time.Millisecond)
	// Deferred after VerifyNone, so it runs first: the test server's own
	// goroutines are gone before goleak looks.
	defer slow.Close()
	b := New("node1", []string{slow.URL}, &stubLocal{})

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Broadcast(ctx, http.MethodGet, "/register/local", nil)

	// Take the self response (fast), then cancel before the slow peer replies.
	<-ch
	cancel()

	// Wait for the peer's response so its goroutine has sent and returned;
	// goleak then verifies it (and everything else Broadcast spawned) exited.
	<-ch
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	if err := DecodeJSON("node1", []byte(`{"a":7}`), &out); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if out.A != 7 {
		t.Errorf("A = %d, want 7", out.A)
	}

	err := DecodeJSON("node1", []byte(`not json`), &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := err.(*ErrPeerFailed); !ok {
		t.Errorf("error type = %T, want *ErrPeerFailed", err)
	}
}
