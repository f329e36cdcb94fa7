package httpserver

import (
	"errors"
	"sync"
	"time"

	"github.com/uber-go/zap"

	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/serverconn"
	"code.cloudfoundry.org/goroutercore/servermanager"
)

// ErrDrainTimeout is returned by Drain when active connections remain
// after drainTimeout has elapsed, mirroring the teacher's own
// router.DrainTimeout sentinel.
var ErrDrainTimeout = errors.New("httpserver: drain timeout")

// LifecycleListener is notified of a Server's start/failure/stop
// transitions, in registration order across all registered listeners.
// OnStart is called on each Start and OnStop at most once; OnFail is called
// once per failure (a failed Listen/ListenTLS, or an accept loop that exits
// with an error while the server is not stopping).
type LifecycleListener interface {
	OnStart()
	OnFail(err error)
	OnStop()
}

// Server owns one or more Listeners that all dispatch into the same
// servermanager.Manager, and coordinates their combined lifecycle.
// Grounded on router.Router, which plays the same role over its TCP and
// TLS listeners.
type Server struct {
	logger  logger.Logger
	manager *servermanager.Manager

	mu          sync.Mutex
	listeners   []*Listener
	lifecycle   []LifecycleListener
	stopping    bool
	stopOnce    sync.Once
}

// NewServer returns a Server whose accepted connections are handled by
// delegate, distributed across workerCount worker goroutines.
func NewServer(log logger.Logger, workerCount int, delegate serverconn.Delegate, opts ...serverconn.Option) *Server {
	return &Server{
		logger:  log,
		manager: servermanager.New(workerCount, log, delegate, opts...),
	}
}

// AddLifecycleListener registers l to be notified of this server's
// lifecycle. Must be called before Start.
func (s *Server) AddLifecycleListener(l LifecycleListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifecycle = append(s.lifecycle, l)
}

// Listen binds a plain TCP listener on addr and registers it to be run by
// Start. A bind failure fires every registered lifecycle listener's OnFail
// before being returned to the caller, per spec §7's "BindFailed ... at
// listen time -> on-fail".
func (s *Server) Listen(addr string, enablePROXY bool) error {
	ln, err := Listen(addr, enablePROXY, s.logger, s.manager)
	if err != nil {
		s.notifyFail(err)
		return err
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()
	return nil
}

// ListenTLS binds a TLS listener on addr using opts and registers it to be
// run by Start. A bind or certificate-load failure fires OnFail the same
// way Listen does.
func (s *Server) ListenTLS(addr string, opts TLSOptions, enablePROXY bool) error {
	tlsLn, err := ListenTLS(addr, opts, enablePROXY)
	if err != nil {
		s.notifyFail(err)
		return err
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, &Listener{Listener: tlsLn, logger: s.logger, manager: s.manager, done: make(chan struct{})})
	s.mu.Unlock()
	return nil
}

func (s *Server) notifyFail(err error) {
	s.mu.Lock()
	lifecycle := append([]LifecycleListener(nil), s.lifecycle...)
	s.mu.Unlock()
	for _, l := range lifecycle {
		l.OnFail(err)
	}
}

// WaitForListeners blocks until every accept loop dispatched by any Server
// in this process has exited, the process-wide barrier spec §6 names
// Server.waitForListeners(). It is not scoped to this particular Server's
// own listeners: the barrier itself is process-wide by design (spec §9).
func (s *Server) WaitForListeners() {
	WaitForListeners()
}

// Start runs every registered listener's accept loop on its own goroutine
// and notifies lifecycle listeners of the outcome. It returns immediately;
// callers wait on a signal channel of their own choosing (or on the
// process's OS-signal handling, as cmd/goroutercored does) and call Stop
// or Drain when it is time to shut down.
func (s *Server) Start() {
	s.mu.Lock()
	listeners := append([]*Listener(nil), s.listeners...)
	lifecycle := append([]LifecycleListener(nil), s.lifecycle...)
	s.mu.Unlock()

	for _, l := range lifecycle {
		l.OnStart()
	}

	group := globalListenerGroup()
	for _, ln := range listeners {
		ln := ln
		group.enqueue()
		go func() {
			defer group.done()
			err := ln.Serve()
			s.mu.Lock()
			stopping := s.stopping
			s.mu.Unlock()
			if err != nil && !stopping {
				s.logger.Error("listener-failed", zap.Error(err))
				for _, l := range lifecycle {
					l.OnFail(err)
				}
			}
		}()
	}
}

// Stop closes every listener and forcibly closes all in-flight
// connections, then notifies lifecycle listeners that the server has
// stopped. OnStop is only fired once every accept loop has actually
// returned (via each Listener's Done channel), per spec §6's "on-stop
// fires exactly once after the accept loop exits" and invariant #4 that
// on-stop follows every delegate call initiated before stop() returns.
// Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		listeners := append([]*Listener(nil), s.listeners...)
		lifecycle := append([]LifecycleListener(nil), s.lifecycle...)
		s.mu.Unlock()

		for _, ln := range listeners {
			_ = ln.Close()
		}
		for _, ln := range listeners {
			<-ln.Done()
		}
		s.manager.Close()

		for _, l := range lifecycle {
			l.OnStop()
		}
	})
}

// Drain waits drainWait while the listeners keep accepting, then closes
// the listeners so no new connections are accepted, and polls ActiveCount
// until it reaches zero or drainTimeout elapses. It does not close the
// still-active connections itself; callers follow Drain with Stop to force
// anything left.
func (s *Server) Drain(drainWait, drainTimeout time.Duration) error {
	time.Sleep(drainWait)

	s.mu.Lock()
	s.stopping = true
	listeners := append([]*Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, ln := range listeners {
		_ = ln.Close()
	}

	deadline := time.Now().Add(drainTimeout)
	for s.manager.ActiveCount() > 0 {
		if time.Now().After(deadline) {
			return ErrDrainTimeout
		}
		time.Sleep(25 * time.Millisecond)
	}
	return nil
}
