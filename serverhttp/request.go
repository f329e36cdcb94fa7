package serverhttp

import (
	"io"
	"strings"
	"sync"

	"code.cloudfoundry.org/goroutercore/query"
)

// ServerRequest is a read-only view of one inbound HTTP message. It is
// constructed lazily as the parser adaptor fires headers-complete and is
// discarded by the connection handler once the delegate has returned and
// the paired ServerResponse has been fully written.
type ServerRequest struct {
	Method   string
	RawURL   []byte
	Path     string
	RawQuery string
	Header   Header
	Major    int
	Minor    int

	// KeepAlive is the wire parser's own verdict, preserved rather than
	// recomputed: HTTP/1.1 without Connection: close, or HTTP/1.0 with
	// Connection: keep-alive.
	KeepAlive bool

	// Body streams bytes already parsed plus bytes arriving later on the
	// same connection. Reading past what has arrived blocks until more
	// bytes are parsed or the message completes.
	Body io.Reader

	queryOnce sync.Once
	query     query.Value
}

// Query parses RawQuery on first access and caches the result; subsequent
// calls are free.
func (r *ServerRequest) Query() query.Value {
	r.queryOnce.Do(func() {
		r.query = query.Parse(r.RawQuery)
	})
	return r.query
}

func splitRequestURL(raw string) (path, rawQuery string) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}
