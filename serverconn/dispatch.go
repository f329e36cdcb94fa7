package serverconn

import (
	"fmt"
	"strconv"

	"github.com/uber-go/zap"

	"code.cloudfoundry.org/goroutercore/requestid"
	"code.cloudfoundry.org/goroutercore/serverhttp"
)

// onRequestReady is the serverhttp.Adaptor's OnReady callback: it fires
// once headers are parsed, before the body (if any) has necessarily
// finished arriving. The delegate runs on its own goroutine so that the
// connection's read loop can keep feeding body bytes into req.Body
// concurrently with the delegate consuming them.
func (h *Handler) onRequestReady(req *serverhttp.ServerRequest) error {
	h.reqKeepAlive = req.KeepAlive
	h.respDone = make(chan *serverhttp.ServerResponse, 1)
	h.setState(StateHandlerRunning)

	if req.Header.Get(requestid.Header) == "" {
		if id, err := requestid.Generate(); err == nil {
			req.Header.Set(requestid.Header, id)
		}
	}

	resp := serverhttp.NewServerResponse()
	go h.runDelegate(req, resp)
	return nil
}

// runDelegate recovers a delegate panic and, if the response headers are
// not yet frozen, turns it into a 500 through the configured ErrorWriter. If
// the headers are already frozen (by a WriteHeader call or a body write),
// the response can no longer be cleanly repaired, so a nil is sent
// through respDone instead, telling pump to drop the connection rather
// than emit a corrupt response.
func (h *Handler) runDelegate(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
	reqLogger := h.logger.WithRequestID(req.Header.Get(requestid.Header))
	defer func() {
		if r := recover(); r != nil {
			reqLogger.Error("delegate-panic", zap.Any("recovered", r))
			if resp.HeaderFrozen() {
				resp.Release()
				h.respDone <- nil
				return
			}
			h.errWriter.WriteError(resp, 500, fmt.Sprintf("%v", r), reqLogger)
		}
		if !resp.Ended() {
			_ = resp.End()
		}
		h.respDone <- resp
	}()

	h.delegate(req, resp)
}

// writeResponse serialises resp onto the connection and reports whether
// the write succeeded. If the delegate set "Transfer-Encoding: chunked" the
// buffered body is sent as one chunk followed by the terminating chunk;
// otherwise Content-Length is used, since ServerResponse buffers the entire
// body before End returns.
func (h *Handler) writeResponse(resp *serverhttp.ServerResponse) error {
	h.setState(StateWriting)

	var body []byte
	resp.DrainTo(&body)

	statusLine := fmt.Sprintf("HTTP/1.1 %d %s\r\n", resp.StatusCode, statusText(resp.StatusCode))
	if _, err := h.conn.Write([]byte(statusLine)); err != nil {
		return err
	}

	if resp.Header.Get("Transfer-Encoding") == "chunked" {
		framed := []byte(nil)
		if len(body) > 0 {
			framed = append([]byte(strconv.FormatInt(int64(len(body)), 16)+"\r\n"), body...)
			framed = append(framed, "\r\n"...)
		}
		body = append(framed, "0\r\n\r\n"...)
	} else if resp.Header.Get("Content-Length") == "" {
		resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	if !h.reqKeepAlive {
		resp.Header.Set("Connection", "close")
	}

	for name, values := range resp.Header {
		for _, v := range values {
			if _, err := h.conn.Write([]byte(name + ": " + v + "\r\n")); err != nil {
				return err
			}
		}
	}
	if _, err := h.conn.Write([]byte("\r\n")); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := h.conn.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return "Status"
	}
}
