package httpserver

import "sync"

// listenerGroup is a process-wide barrier over every accept loop dispatched
// anywhere in the process: enqueue records one, done marks it finished, and
// wait blocks until the count returns to zero. It is grounded on spec §4.6's
// ListenerGroup description (a counter plus a condition variable, lazily
// initialised, with additions after a wait has entered still extending it) —
// there is no teacher counterpart to a process-wide accept-loop barrier, so
// this is implemented directly from that description using sync.Cond, the
// same counter+condvar idiom the spec calls for.
type listenerGroup struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

func newListenerGroup() *listenerGroup {
	g := &listenerGroup{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// enqueue records one dispatched accept loop. Call it before the loop's
// goroutine starts, not from inside it, so a concurrent wait can never
// observe the group as empty while a loop is still being spawned.
func (g *listenerGroup) enqueue() {
	g.mu.Lock()
	g.pending++
	g.mu.Unlock()
}

// done marks one previously enqueued accept loop as finished.
func (g *listenerGroup) done() {
	g.mu.Lock()
	g.pending--
	if g.pending <= 0 {
		g.cond.Broadcast()
	}
	g.mu.Unlock()
}

// wait blocks until every accept loop enqueued so far — including any
// enqueued after wait was called but before the count last reached zero —
// has called done.
func (g *listenerGroup) wait() {
	g.mu.Lock()
	for g.pending > 0 {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

var (
	processListenerGroupOnce sync.Once
	processListenerGroup     *listenerGroup
)

// globalListenerGroup lazily initialises the single process-wide
// listenerGroup on first use, per spec §9's "no explicit teardown, lazy
// init on first enqueue" global-state model.
func globalListenerGroup() *listenerGroup {
	processListenerGroupOnce.Do(func() {
		processListenerGroup = newListenerGroup()
	})
	return processListenerGroup
}

// WaitForListeners blocks until every accept loop dispatched anywhere in
// this process — across every Server — has exited. This is the package's
// process-wide barrier described in spec §4.6/§9.
func WaitForListeners() {
	globalListenerGroup().wait()
}
