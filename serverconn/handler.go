// Package serverconn owns one TCP connection end to end: it reads socket
// bytes into a ByteBuffer, drives them through a parserhttp.Parser and
// serverhttp.Adaptor, invokes the application delegate once headers are
// parsed, and writes the resulting ServerResponse back to the socket,
// deciding along the way whether the connection survives for another
// request. It is grounded on the per-connection bookkeeping in
// router.Router.HandleConnState, generalised from a shared connection-set
// map (one Router, many conns) to a dedicated goroutine per connection
// (one Handler, one conn), since component ownership here is per-socket
// rather than process-wide.
package serverconn

import (
	"io"
	"net"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/uber-go/zap"

	"code.cloudfoundry.org/goroutercore/bytebuffer"
	"code.cloudfoundry.org/goroutercore/errorwriter"
	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/parserhttp"
	"code.cloudfoundry.org/goroutercore/serverhttp"
)

// State is the connection handler's own lifecycle, independent of the
// socket-level states net/http would track: a Handler exists for exactly
// one net.Conn and walks these states once per request. Serve enters
// StateReadingHeaders, StateHandlerRunning and StateWriting, and returns to
// StateReadingHeaders between keep-alive requests; StateIdle,
// StateReadingBody and StateClosing are not entered by Serve.
type State int

const (
	StateIdle State = iota
	StateReadingHeaders
	StateReadingBody
	StateHandlerRunning
	StateWriting
	StateClosing
)

// Delegate handles one fully-headers-parsed request. It must call
// resp.End() exactly once; resp.Write may be called any number of times
// before that. Panics are recovered by the handler: if the response
// headers are not yet frozen a 500 is written through the ErrorWriter,
// otherwise the connection is dropped.
type Delegate func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse)

const readChunkSize = 16 * 1024

// defaultIdleTimeout is how long Serve waits for the next byte before
// closing the connection when no WithIdleTimeout option overrides it, per
// spec §4.4's "configurable (default 60 s)".
const defaultIdleTimeout = 60 * time.Second

// Handler drives a single connection's request/response cycle(s). Serve
// must only be called once; all of its internal state is owned by the
// goroutine running Serve except where noted.
type Handler struct {
	conn     net.Conn
	delegate Delegate
	clock    clock.Clock

	idleTimeout time.Duration
	logger      logger.Logger
	errWriter   errorwriter.ErrorWriter

	buf     *bytebuffer.ByteBuffer
	parser  *parserhttp.Parser
	adaptor *serverhttp.Adaptor

	mu    sync.Mutex
	state State

	// respDone receives the ServerResponse once the delegate goroutine for
	// the in-flight request has called End(), or a recovered panic/error
	// in its place. Sized 1 so the delegate goroutine never blocks on
	// handing it off even if Serve has already given up on the
	// connection.
	respDone chan *serverhttp.ServerResponse
	reqKeepAlive bool
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithIdleTimeout bounds how long Serve will block in a read waiting for
// the next byte (headers or body) before closing the connection.
func WithIdleTimeout(d time.Duration) Option {
	return func(h *Handler) { h.idleTimeout = d }
}

// WithClock overrides the clock used for idle-timeout deadlines, for
// deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

// WithErrorWriter overrides how a delegate panic becomes a response body.
// The default is a plaintext writer.
func WithErrorWriter(w errorwriter.ErrorWriter) Option {
	return func(h *Handler) { h.errWriter = w }
}

// NewHandler returns a Handler ready to Serve conn.
func NewHandler(conn net.Conn, log logger.Logger, delegate Delegate, opts ...Option) *Handler {
	h := &Handler{
		conn:        conn,
		delegate:    delegate,
		clock:       clock.NewClock(),
		idleTimeout: defaultIdleTimeout,
		logger:      log,
		errWriter:   errorwriter.NewPlaintextErrorWriter(),
		buf:         bytebuffer.NewFromPool(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.adaptor = &serverhttp.Adaptor{OnReady: h.onRequestReady}
	h.parser = parserhttp.New(h.adaptor)
	return h
}

func (h *Handler) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// State reports the handler's current lifecycle state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Serve reads and handles requests on the connection until the peer closes
// it, an unrecoverable parse error occurs, an idle timeout elapses, or a
// completed request's keep-alive verdict says not to continue. It always
// closes conn before returning.
func (h *Handler) Serve() {
	defer h.conn.Close()
	defer h.buf.Release()

	chunk := make([]byte, readChunkSize)
	h.setState(StateReadingHeaders)

	for {
		if h.idleTimeout > 0 {
			_ = h.conn.SetReadDeadline(h.clock.Now().Add(h.idleTimeout))
		}

		n, err := h.conn.Read(chunk)
		if n > 0 {
			h.buf.Append(chunk[:n])
			cont, perr := h.pump()
			if perr != nil {
				h.logger.Error("parse-error", zap.Error(perr))
				return
			}
			if !cont {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Debug("connection-read-error", zap.Error(err))
			}
			return
		}
	}
}

// pump feeds buffered bytes through the parser. Each time the parser
// finishes a message it blocks for the delegate's response, writes it to
// the socket, and either resets for another request on the same
// connection or reports that Serve should stop.
func (h *Handler) pump() (bool, error) {
	for {
		for h.buf.Unread() > 0 {
			data := h.buf.Peek()
			n, err := h.parser.Feed(data)
			h.buf.Discard(n)
			if err != nil {
				return false, err
			}
			if n == 0 {
				break
			}
		}
		h.buf.Compact()

		if !h.parser.Done() {
			return true, nil
		}

		resp := <-h.respDone
		if resp == nil {
			return false, nil
		}
		err := h.writeResponse(resp)
		resp.Release()
		if err != nil {
			return false, nil
		}

		if !h.reqKeepAlive {
			return false, nil
		}

		h.parser.Reset()
		h.adaptor.Reset()
		h.setState(StateReadingHeaders)

		if h.buf.Unread() == 0 {
			return true, nil
		}
		// Pipelined bytes for the next request are already buffered;
		// keep draining without waiting on another socket read.
	}
}
