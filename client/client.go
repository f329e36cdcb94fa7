// Package client implements the ClientRequest/ClientResponse contract on
// top of net/http.Client. The server side of this module (serverhttp,
// serverconn, httpserver) is a from-scratch byte-level implementation
// grounded on the teacher's proxy/connection handling, but the outbound
// HTTP client the teacher itself relies on (net/http, wrapped by its own
// reverse-proxy code) is exactly net/http.Client's job, so this package
// builds directly on it rather than reimplementing a second HTTP client.
package client

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Options configures a ClientRequest constructed piecemeal rather than from
// a single URL string.
type Options struct {
	Method                  string
	Scheme                  string
	Hostname                string
	Port                    int
	Path                    string
	Headers                 map[string]string
	Username                string
	Password                string
	MaxRedirects            int
	DisableSSLVerification  bool
}

// ClientResponse is handed to a ClientRequest's callback on success.
type ClientResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ClientRequest accumulates a request body via Write and fires its
// callback exactly once, with either a ClientResponse or an error, when
// End is called. It is not safe for concurrent use by multiple
// goroutines, matching the single-owner lifecycle the spec describes.
type ClientRequest struct {
	httpClient *http.Client
	req        *http.Request
	body       bytes.Buffer
	maxRedirects int
}

// NewClientRequest constructs a ClientRequest that targets rawURL with the
// given method ("GET" if empty).
func NewClientRequest(method, rawURL string) (*ClientRequest, error) {
	if method == "" {
		method = http.MethodGet
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &ClientRequest{
		httpClient:   defaultClient(false),
		req:          req,
		maxRedirects: 10,
	}, nil
}

// NewClientRequestFromOptions builds a ClientRequest the way the spec's
// option-list constructor does: assembling the URL from scheme/hostname/
// port/path rather than parsing a pre-built string.
func NewClientRequestFromOptions(opts Options) (*ClientRequest, error) {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := opts.Hostname
	if opts.Port != 0 {
		host = fmt.Sprintf("%s:%d", opts.Hostname, opts.Port)
	}
	u := &url.URL{Scheme: scheme, Host: host, Path: opts.Path}
	if opts.Username != "" {
		u.User = url.UserPassword(opts.Username, opts.Password)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 10
	}

	return &ClientRequest{
		httpClient:   defaultClient(opts.DisableSSLVerification),
		req:          req,
		maxRedirects: maxRedirects,
	}, nil
}

func defaultClient(disableSSLVerification bool) *http.Client {
	transport := &http.Transport{}
	if disableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) == 0 {
				return nil
			}
			return http.ErrUseLastResponse
		},
	}
}

// Write appends from to the request body accumulated so far.
func (c *ClientRequest) Write(from []byte) (int, error) {
	return c.body.Write(from)
}

// End sends the accumulated request and invokes callback exactly once with
// either the resulting ClientResponse or a nil response and non-nil error.
// When close is true the request's Close flag is set, so net/http closes
// the connection after the response instead of keeping it for reuse.
func (c *ClientRequest) End(close bool, callback func(*ClientResponse, error)) {
	if c.body.Len() > 0 {
		c.req.Body = io.NopCloser(bytes.NewReader(c.body.Bytes()))
		c.req.ContentLength = int64(c.body.Len())
	}
	if close {
		c.req.Close = true
	}

	resp, err := c.followRedirects()
	if err != nil {
		callback(nil, err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		callback(nil, err)
		return
	}

	callback(&ClientResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil)
}

// followRedirects drives the redirect chain itself (rather than letting
// net/http.Client follow automatically) so MaxRedirects is enforced
// exactly, matching the spec's "redirect chain capped by maxRedirects".
func (c *ClientRequest) followRedirects() (*http.Response, error) {
	req := c.req
	for redirects := 0; ; redirects++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return resp, nil
		}
		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if loc == "" {
			return nil, fmt.Errorf("client: redirect response missing Location header")
		}
		if redirects >= c.maxRedirects {
			return nil, fmt.Errorf("client: exceeded max redirects (%d)", c.maxRedirects)
		}
		next, err := req.URL.Parse(loc)
		if err != nil {
			return nil, err
		}
		nextReq, err := http.NewRequest(req.Method, next.String(), nil)
		if err != nil {
			return nil, err
		}
		nextReq.Header = req.Header.Clone()
		req = nextReq
	}
}
