// Package parserhttp is the thin adaptor over a byte-level HTTP/1.x parser
// described in the spec: bytes go in, a sequence of ordered events comes
// out. It is grounded on the incremental decoder style of
// packetd/protocol/phttp (a state machine driven forward by successive byte
// chunks) and the line-scanning approach of packetd/internal/splitio, since
// no example in the pack ships a ready-made callback-style C http_parser
// binding.
package parserhttp

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	return errors.Errorf("parserhttp: "+format, args...)
}

// EventSink receives parse events in the order described by the spec:
// message-begin, url (possibly several times), interleaved header-field /
// header-value pairs terminated by headers-complete, body (possibly several
// times), message-complete.
type EventSink interface {
	OnMessageBegin()
	OnURL(b []byte)
	OnHeaderField(b []byte)
	OnHeaderValue(b []byte)
	// OnHeadersComplete is invoked once headers end. method, major and
	// minor are the parser's numeric/decoded outputs for the request line;
	// keepAlive is the parser's own verdict from the request line and
	// Connection header, which the adaptor must preserve rather than
	// recompute.
	OnHeadersComplete(method string, major, minor int, keepAlive bool) error
	OnBody(b []byte)
	OnMessageComplete()
}

type state uint8

const (
	stateRequestLine state = iota
	stateHeaders
	stateBody
	stateChunkSize
	stateChunkData
	stateChunkCRLF
	stateChunkTrailer
	stateDone
)

// Parser is an incremental HTTP/1.x request parser. Feed may be called any
// number of times with arbitrarily-sized chunks of socket data; it fires
// EventSink methods as soon as enough bytes are available to do so and
// never blocks.
type Parser struct {
	sink EventSink

	st      state
	pending []byte // bytes carried over from a previous Feed call, not yet a full line

	major, minor int
	method       string
	keepAlive    bool
	http10       bool

	contentLength int64
	haveLength    bool
	chunked       bool
	bodyLeft      int64
}

// New returns a Parser that reports events to sink.
func New(sink EventSink) *Parser {
	return &Parser{sink: sink}
}

// Reset prepares the parser to decode a new message on the same
// connection, as happens after a keep-alive request completes.
func (p *Parser) Reset() {
	*p = Parser{sink: p.sink}
}

// Feed parses as much of data as forms complete lines/chunks and returns
// the number of bytes consumed. The bytes of an incomplete line are
// buffered internally and counted as consumed. Feed stops at the end of a
// message: a return value less than len(data) is not an error, it means
// the remainder belongs to the next message and must be fed again after
// Reset.
func (p *Parser) Feed(data []byte) (int, error) {
	total := 0
	for {
		switch p.st {
		case stateDone:
			return total, nil
		case stateRequestLine, stateHeaders:
			line, n, ok := p.nextLine(data[total:])
			if !ok {
				return total + n, nil
			}
			total += n
			if err := p.feedLine(line); err != nil {
				return total, err
			}
		case stateBody:
			n := p.feedBody(data[total:])
			total += n
			if p.bodyLeft == 0 {
				p.finishMessage()
			}
			if n == 0 {
				return total, nil
			}
		case stateChunkSize:
			line, n, ok := p.nextLine(data[total:])
			if !ok {
				return total + n, nil
			}
			total += n
			if err := p.feedChunkSize(line); err != nil {
				return total, err
			}
		case stateChunkData:
			n := p.feedChunkData(data[total:])
			total += n
			if p.bodyLeft == 0 {
				p.st = stateChunkCRLF
			}
			if n == 0 {
				return total, nil
			}
		case stateChunkCRLF:
			line, n, ok := p.nextLine(data[total:])
			if !ok {
				return total + n, nil
			}
			total += n
			_ = line
			p.st = stateChunkSize
		case stateChunkTrailer:
			line, n, ok := p.nextLine(data[total:])
			if !ok {
				return total + n, nil
			}
			total += n
			if len(line) == 0 {
				p.finishMessage()
			}
		}
		if total > len(data) {
			panic("parserhttp: consumed more than fed")
		}
	}
}

// nextLine returns the next CRLF- or LF-terminated line (without the
// terminator), transparently stitching together bytes buffered from a
// previous call with the freshly supplied chunk.
func (p *Parser) nextLine(data []byte) (line []byte, consumed int, ok bool) {
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		p.pending = append(p.pending, data...)
		return nil, len(data), false
	}
	full := data[:idx+1]
	consumed = len(full)
	if len(p.pending) > 0 {
		full = append(p.pending, full...)
		p.pending = nil
	}
	full = bytes.TrimSuffix(full, []byte("\n"))
	full = bytes.TrimSuffix(full, []byte("\r"))
	return full, consumed, true
}

func (p *Parser) feedLine(line []byte) error {
	switch p.st {
	case stateRequestLine:
		return p.feedRequestLine(line)
	case stateHeaders:
		return p.feedHeaderLine(line)
	}
	return nil
}

func (p *Parser) feedRequestLine(line []byte) error {
	p.sink.OnMessageBegin()

	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return newError("malformed request line %q", line)
	}
	p.method = string(parts[0])
	p.sink.OnURL(parts[1])

	major, minor, err := parseVersion(parts[2])
	if err != nil {
		return err
	}
	p.major, p.minor = major, minor
	p.http10 = major == 1 && minor == 0
	// Default keep-alive verdict before headers are seen: HTTP/1.1 is
	// keep-alive by default, HTTP/1.0 is not. Connection header handling
	// in feedHeaderLine refines this.
	p.keepAlive = !p.http10

	p.st = stateHeaders
	return nil
}

func parseVersion(b []byte) (major, minor int, err error) {
	const prefix = "HTTP/"
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0, 0, newError("malformed HTTP version %q", b)
	}
	b = b[len(prefix):]
	dot := bytes.IndexByte(b, '.')
	if dot == -1 {
		return 0, 0, newError("malformed HTTP version %q", b)
	}
	maj, err := strconv.Atoi(string(b[:dot]))
	if err != nil {
		return 0, 0, newError("malformed HTTP major version %q", b[:dot])
	}
	min, err := strconv.Atoi(string(b[dot+1:]))
	if err != nil {
		return 0, 0, newError("malformed HTTP minor version %q", b[dot+1:])
	}
	return maj, min, nil
}

func (p *Parser) feedHeaderLine(line []byte) error {
	if len(line) == 0 {
		return p.feedHeaderDone()
	}
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return newError("malformed header line %q", line)
	}
	field := bytes.TrimSpace(line[:colon])
	value := bytes.TrimSpace(line[colon+1:])
	p.sink.OnHeaderField(field)
	p.sink.OnHeaderValue(value)

	switch lowerASCII(string(field)) {
	case "content-length":
		n, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return newError("malformed Content-Length %q", value)
		}
		p.contentLength = n
		p.haveLength = true
	case "transfer-encoding":
		if bytes.Contains(bytes.ToLower(value), []byte("chunked")) {
			p.chunked = true
		}
	case "connection":
		lv := lowerASCII(string(value))
		switch {
		case bytes.Contains([]byte(lv), []byte("close")):
			p.keepAlive = false
		case bytes.Contains([]byte(lv), []byte("keep-alive")):
			p.keepAlive = true
		}
	}
	return nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (p *Parser) feedHeaderDone() error {
	if err := p.sink.OnHeadersComplete(p.method, p.major, p.minor, p.keepAlive); err != nil {
		return err
	}
	switch {
	case p.chunked:
		p.st = stateChunkSize
	case p.haveLength && p.contentLength > 0:
		p.bodyLeft = p.contentLength
		p.st = stateBody
	default:
		p.finishMessage()
	}
	return nil
}

func (p *Parser) feedBody(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := int64(len(data))
	if n > p.bodyLeft {
		n = p.bodyLeft
	}
	if n == 0 {
		return 0
	}
	p.sink.OnBody(data[:n])
	p.bodyLeft -= n
	return int(n)
}

func (p *Parser) feedChunkSize(line []byte) error {
	line = bytes.TrimSpace(bytes.SplitN(line, []byte(";"), 2)[0])
	size, err := strconv.ParseInt(string(line), 16, 64)
	if err != nil {
		return newError("malformed chunk size %q", line)
	}
	if size == 0 {
		p.st = stateChunkTrailer
		return nil
	}
	p.bodyLeft = size
	p.st = stateChunkData
	return nil
}

func (p *Parser) feedChunkData(data []byte) int {
	return p.feedBody(data)
}

func (p *Parser) finishMessage() {
	p.sink.OnMessageComplete()
	p.st = stateDone
}

// KeepAlive reports the parser's verdict for the most recently completed
// message, for callers that need it outside the OnHeadersComplete
// callback.
func (p *Parser) KeepAlive() bool { return p.keepAlive }

// Done reports whether the current message has been fully parsed
// (OnMessageComplete has fired). A connection handler uses this to know
// when it is safe to stop feeding the parser and wait for the delegate to
// finish producing a response.
func (p *Parser) Done() bool { return p.st == stateDone }
