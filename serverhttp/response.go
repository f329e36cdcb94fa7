package serverhttp

import (
	"errors"
	"sync"

	"code.cloudfoundry.org/goroutercore/bytebuffer"
)

// ErrAlreadyEnded is returned by End when called more than once, per the
// spec's idempotence rule: repeated End calls after the first are errors,
// not no-ops.
var ErrAlreadyEnded = errors.New("serverhttp: response already ended")

// DefaultStatusCode is the status every ServerResponse starts with.
const DefaultStatusCode = 200

// ServerResponse is the write-side companion to ServerRequest. Writes
// accumulate in an internal ByteBuffer; the connection handler (component
// D) drains that buffer to the socket once End is called, deciding between
// Content-Length and a handler-requested Transfer-Encoding: chunked.
type ServerResponse struct {
	mu sync.Mutex

	StatusCode int
	Header     Header

	buf           *bytebuffer.ByteBuffer
	headerFrozen  bool
	ended         bool
}

// NewServerResponse returns a fresh, unwritten response backed by a pooled
// scratch buffer; call Release once the connection handler has drained it
// to the socket, since every response is as short-lived as the request
// that produced it.
func NewServerResponse() *ServerResponse {
	return &ServerResponse{
		StatusCode: DefaultStatusCode,
		Header:     Header{},
		buf:        bytebuffer.NewFromPool(),
	}
}

// Release returns the response's backing buffer to the shared pool. The
// ServerResponse must not be used afterwards.
func (w *ServerResponse) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Release()
}

// WriteHeader sets the status code. It is a no-op once headers have been
// frozen by the first body byte or by an explicit prior WriteHeader call.
func (w *ServerResponse) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.headerFrozen {
		return
	}
	w.StatusCode = code
	w.headerFrozen = true
}

// Write appends p to the response body, freezing headers on the first
// call if WriteHeader was not already invoked.
func (w *ServerResponse) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.headerFrozen = true
	w.buf.Append(p)
	return len(p), nil
}

// End marks the response complete. Calling End a second time is an error,
// not a no-op. If no body byte has been written yet, headers are frozen
// with the current status code (default 200).
func (w *ServerResponse) End() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ended {
		return ErrAlreadyEnded
	}
	w.headerFrozen = true
	w.ended = true
	return nil
}

// Ended reports whether End has already succeeded.
func (w *ServerResponse) Ended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ended
}

// HeaderFrozen reports whether headers are frozen, i.e. may no longer be
// mutated.
func (w *ServerResponse) HeaderFrozen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.headerFrozen
}

// BufferedBytes returns the number of body bytes written so far.
func (w *ServerResponse) BufferedBytes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Count()
}

// DrainTo copies all buffered body bytes into dst and returns the count.
// Used by the connection handler when flushing to the socket.
func (w *ServerResponse) DrainTo(dst *[]byte) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.FillVec(dst)
}
