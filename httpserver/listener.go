// Package httpserver implements the process-facing surface: Listen starts
// one TCP (optionally TLS, optionally PROXY-protocol-wrapped) listener
// bound to a delegate, a Server coordinates several such listeners (plain
// and TLS ports of the same logical server) through one shared
// start/stop/drain lifecycle, and a process-wide listener group lets
// callers wait for every accept loop to exit. It is grounded on router.Router's
// serveHTTP/serveHTTPS/Drain/Stop pattern in the teacher, generalised from
// a single hardcoded router instance to a reusable, delegate-driven
// server.
package httpserver

import (
	"net"
	"time"

	"github.com/armon/go-proxyproto"
	"github.com/uber-go/zap"

	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/servermanager"
)

// proxyProtocolHeaderTimeout bounds how long the PROXY-protocol wrapper
// will wait for the header line before giving up on a connection.
const proxyProtocolHeaderTimeout = 100 * time.Millisecond

// acceptRetryInitialDelay and acceptRetryMaxDelay bound the backoff used
// when Accept fails with a temporary error (classically EMFILE): retry
// with exponentially increasing delay rather than spinning the accept
// loop hot or giving up on the listener entirely.
const (
	acceptRetryInitialDelay = 5 * time.Millisecond
	acceptRetryMaxDelay     = time.Second
)

// Listener runs one accept loop over one net.Listener, dispatching
// accepted connections to a servermanager.Manager.
type Listener struct {
	net.Listener
	logger  logger.Logger
	manager *servermanager.Manager

	done chan struct{}
}

// Listen binds addr, optionally wrapping the raw TCP listener with the
// PROXY protocol, and returns a Listener that has not yet started
// accepting; call Serve to run its accept loop.
func Listen(addr string, enablePROXY bool, log logger.Logger, manager *servermanager.Manager) (*Listener, error) {
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	var ln net.Listener = raw
	if enablePROXY {
		ln = &proxyproto.Listener{
			Listener:           raw,
			ProxyHeaderTimeout: proxyProtocolHeaderTimeout,
		}
	}

	return &Listener{Listener: ln, logger: log, manager: manager, done: make(chan struct{})}, nil
}

// Serve runs the accept loop until the listener is closed, dispatching
// every accepted connection to the manager. It returns the error that
// stopped it; a deliberate Close() surfaces as net.ErrClosed-wrapping
// error, which callers should not treat as a failure.
func (l *Listener) Serve() error {
	defer close(l.done)

	delay := time.Duration(0)
	for {
		conn, err := l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				delay = nextDelay(delay)
				l.logger.Error("accept-error-retrying", zap.Error(err), zap.Duration("retry-in", delay))
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0
		go l.manager.Dispatch(conn)
	}
}

func nextDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return acceptRetryInitialDelay
	}
	prev *= 2
	if prev > acceptRetryMaxDelay {
		return acceptRetryMaxDelay
	}
	return prev
}

// Done returns a channel closed once Serve has returned.
func (l *Listener) Done() <-chan struct{} { return l.done }
