// Package servermanager distributes accepted connections across a fixed
// pool of workers and tracks which serverconn.Handler owns which socket,
// so that a shutdown can be told to stop accepting new work and wait for,
// or forcibly close, what is still in flight. No single example in the
// reference corpus ships a ready-made accept-loop worker pool; this
// package follows the plain channel-fan-out idiom gorouter itself relies
// on for concurrent work (one goroutine per unit of work, coordinated
// through a mutex-guarded map) rather than introducing a third-party
// pool library the rest of the stack never uses.
package servermanager

import (
	"net"
	"sync"

	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/serverconn"
)

// Manager owns the lifetime of every connection handed to it via Dispatch:
// it starts a serverconn.Handler on a pool worker, remembers it while it
// runs, and forgets it once Serve returns.
type Manager struct {
	logger   logger.Logger
	delegate serverconn.Delegate
	opts     []serverconn.Option

	work chan net.Conn

	mu       sync.Mutex
	handlers map[net.Conn]*serverconn.Handler
	wg       sync.WaitGroup

	closeOnce sync.Once
}

// New starts workerCount worker goroutines, each pulling connections off an
// internal queue and running them to completion with serverconn.Handler.
func New(workerCount int, log logger.Logger, delegate serverconn.Delegate, opts ...serverconn.Option) *Manager {
	if workerCount < 1 {
		workerCount = 1
	}
	m := &Manager{
		logger:   log,
		delegate: delegate,
		opts:     opts,
		work:     make(chan net.Conn),
		handlers: make(map[net.Conn]*serverconn.Handler),
	}
	for i := 0; i < workerCount; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for conn := range m.work {
		m.serve(conn)
	}
}

func (m *Manager) serve(conn net.Conn) {
	h := serverconn.NewHandler(conn, m.logger, m.delegate, m.opts...)

	m.mu.Lock()
	m.handlers[conn] = h
	m.mu.Unlock()

	h.Serve()

	m.mu.Lock()
	delete(m.handlers, conn)
	m.mu.Unlock()
}

// Dispatch hands conn to the next available worker, round-robin via the
// shared work channel's own scheduling. It blocks until a worker accepts
// the connection; callers on an accept loop should treat that as
// backpressure, not an error.
func (m *Manager) Dispatch(conn net.Conn) {
	m.work <- conn
}

// ActiveCount reports how many connections currently have a live handler.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// Close below gives the owning listener a way to stop accepting and
// drain: it closes every connection still tracked, causing its
// Handler.Serve to return.

// Close forcibly closes all connections currently in flight and stops
// accepting further dispatches. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.work)
	})

	m.mu.Lock()
	conns := make([]net.Conn, 0, len(m.handlers))
	for c := range m.handlers {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}

	m.wg.Wait()
}
