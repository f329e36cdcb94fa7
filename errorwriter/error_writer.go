package errorwriter

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"

	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/serverhttp"
	"github.com/uber-go/zap"
)

// ErrorWriter renders a failed request onto a ServerResponse. The
// connection handler calls it at most once per message: only when the
// delegate panics before the response headers are frozen (no WriteHeader
// call and no body byte yet) is it still safe to produce a clean error
// response instead of simply dropping the connection.
type ErrorWriter interface {
	WriteError(resp *serverhttp.ServerResponse, code int, message string, logger logger.Logger)
}

type plaintextErrorWriter struct{}

// NewPlaintextErrorWriter returns an ErrorWriter that renders a one-line
// plaintext body.
func NewPlaintextErrorWriter() ErrorWriter {
	return &plaintextErrorWriter{}
}

// WriteError writes a one-line plaintext error message.
func (ew *plaintextErrorWriter) WriteError(
	resp *serverhttp.ServerResponse,
	code int,
	message string,
	logger logger.Logger,
) {
	body := fmt.Sprintf("%d %s: %s", code, http.StatusText(code), message)

	if code != http.StatusNotFound {
		logger.Info("status", zap.String("body", body))
	}

	if code > 299 {
		resp.Header.Del("Connection")
	}

	resp.WriteHeader(code)
	_, _ = resp.Write([]byte(body + "\n"))
}

type htmlErrorWriter struct {
	tpl *template.Template
}

// NewHTMLErrorWriterFromFile parses an HTML template used to render error
// bodies.
func NewHTMLErrorWriterFromFile(path string) (ErrorWriter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Could not read HTML error template file: %s", err)
	}

	tpl, err := template.New("error-message").Parse(string(raw))
	if err != nil {
		return nil, err
	}

	return &htmlErrorWriter{tpl: tpl}, nil
}

// WriteError attempts to template an error message.
// If the template cannot be rendered then text will be sent instead.
func (ew *htmlErrorWriter) WriteError(
	resp *serverhttp.ServerResponse,
	code int,
	message string,
	logger logger.Logger,
) {
	body := fmt.Sprintf("%d %s: %s", code, http.StatusText(code), message)

	if code != http.StatusNotFound {
		logger.Info("status", zap.String("body", body))
	}

	if code > 299 {
		resp.Header.Del("Connection")
	}

	resp.WriteHeader(code)

	var rendered bytes.Buffer
	if err := ew.tpl.Execute(&rendered, nil); err != nil {
		logger.Error("render-error-failed", zap.Error(err))
		_, _ = resp.Write([]byte(body + "\n"))
		return
	}

	_, _ = resp.Write(rendered.Bytes())
}
