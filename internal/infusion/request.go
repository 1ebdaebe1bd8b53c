package infusion

import (
	"sync"
	"time"
)

// queryWaiter coalesces concurrent "get current value" requests for one
// logical query.
//
// The first caller's send function is invoked; everyone else attaches
// to the same in-flight request and free-rides on its reply. notify,
// called when the matching update line arrives, wakes every waiter and
// resets the in-flight state. Callers wait with a bounded timeout and
// fall back to the cached value on expiry; a late reply still closes
// the abandoned channel, it just has nobody listening.
type queryWaiter struct {
	mu       sync.Mutex
	inflight chan struct{}
}

// request attaches to the in-flight query, starting one via send if
// none is outstanding. The returned channel is closed when the reply
// arrives.
func (w *queryWaiter) request(send func()) <-chan struct{} {
	w.mu.Lock()
	first := w.inflight == nil
	if first {
		w.inflight = make(chan struct{})
	}
	ch := w.inflight
	w.mu.Unlock()

	// Send outside the lock: the reply can race in on the dispatch
	// worker and call notify before request returns.
	if first {
		send()
	}
	return ch
}

// notify wakes all waiters and clears the in-flight request. Safe to
// call with no request outstanding.
func (w *queryWaiter) notify() {
	w.mu.Lock()
	ch := w.inflight
	w.inflight = nil
	w.mu.Unlock()

	if ch != nil {
		close(ch)
	}
}

// await blocks until ch closes or the timeout expires.
func await(ch <-chan struct{}, timeout time.Duration) {
	select {
	case <-ch:
	case <-time.After(timeout):
	}
}
