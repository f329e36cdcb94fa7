package serverhttp

import (
	"code.cloudfoundry.org/goroutercore/parserhttp"
)

// Adaptor implements parserhttp.EventSink, assembling a ServerRequest from
// the parser's event stream. One Adaptor is owned by exactly one
// connection handler and is reset between keep-alive requests.
type Adaptor struct {
	// OnReady is invoked once headers are fully parsed and req is safe to
	// hand to the application delegate. Body bytes for req may still be
	// arriving; req.Body will yield them as they do.
	OnReady func(req *ServerRequest) error

	req       *ServerRequest
	urlBuf    []byte
	curField  []byte
	body      *bodyStream
}

var _ parserhttp.EventSink = (*Adaptor)(nil)

// Reset prepares the adaptor for the next message on the same connection.
func (a *Adaptor) Reset() {
	a.req = nil
	a.urlBuf = a.urlBuf[:0]
	a.curField = nil
	a.body = nil
}

func (a *Adaptor) OnMessageBegin() {
	a.urlBuf = a.urlBuf[:0]
	a.curField = nil
	a.body = newBodyStream()
}

func (a *Adaptor) OnURL(b []byte) {
	a.urlBuf = append(a.urlBuf, b...)
}

func (a *Adaptor) OnHeaderField(b []byte) {
	a.curField = append(a.curField[:0], b...)
}

func (a *Adaptor) OnHeaderValue(b []byte) {
	a.ensureRequest()
	a.req.Header.Add(string(a.curField), string(b))
}

func (a *Adaptor) OnHeadersComplete(method string, major, minor int, keepAlive bool) error {
	a.ensureRequest()
	a.req.Method = method
	a.req.Major, a.req.Minor = major, minor
	a.req.KeepAlive = keepAlive

	raw := string(a.urlBuf)
	path, rawQuery := splitRequestURL(raw)
	a.req.RawURL = append([]byte(nil), a.urlBuf...)
	a.req.Path = path
	a.req.RawQuery = rawQuery
	a.req.Body = a.body

	if a.OnReady != nil {
		return a.OnReady(a.req)
	}
	return nil
}

func (a *Adaptor) OnBody(b []byte) {
	a.body.push(b)
}

func (a *Adaptor) OnMessageComplete() {
	a.body.closeWithError(nil)
}

func (a *Adaptor) ensureRequest() {
	if a.req == nil {
		a.req = &ServerRequest{Header: Header{}}
	}
}
