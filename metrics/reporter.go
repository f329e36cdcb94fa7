// Package metrics reports request-handling and connection lifecycle events
// to whatever sinks are configured, the same composite-reporter shape the
// teacher uses in metrics/reporter.go and metrics/composite_reporter.go,
// rescoped from "routing a request to a backend" events to the events this
// library's own ByteBuffer/parser/conn/server pipeline actually produces.
package metrics

import "time"

// Reporter receives connection, request and listener events. Within this
// repository only CaptureRequestResponse (from cmd/goroutercored's
// instrument wrapper), CaptureUptime and CaptureFileDescriptors (from
// metrics/monitor) are called; httpserver and serverconn do not call a
// Reporter. Implementations must be safe for concurrent use, since
// delegates run concurrently across connections.
type Reporter interface {
	CaptureConnectionOpened()
	CaptureConnectionClosed()
	CaptureBadRequest()
	CaptureRequestResponse(statusCode int, d time.Duration)
	CaptureListenerAccepted()
	CaptureListenerAcceptRetry()
	// CaptureUptime reports how long the process has been running,
	// sampled periodically by metrics/monitor.Uptime.
	CaptureUptime(seconds float64)
	// CaptureFileDescriptors reports the process's current open file
	// descriptor count, sampled periodically by
	// metrics/monitor.FileDescriptor.
	CaptureFileDescriptors(count int)
}

// CompositeReporter fans every captured event out to each of its reporters,
// grounded on the teacher's CompositeReporter, generalized from two fixed
// fields to a slice so a process can wire in as many sinks as it has
// configured (Prometheus, dropsonde, or both).
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter returns a Reporter that forwards every event to each
// of reporters in order.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) CaptureConnectionOpened() {
	for _, r := range c.reporters {
		r.CaptureConnectionOpened()
	}
}

func (c *CompositeReporter) CaptureConnectionClosed() {
	for _, r := range c.reporters {
		r.CaptureConnectionClosed()
	}
}

func (c *CompositeReporter) CaptureBadRequest() {
	for _, r := range c.reporters {
		r.CaptureBadRequest()
	}
}

func (c *CompositeReporter) CaptureRequestResponse(statusCode int, d time.Duration) {
	for _, r := range c.reporters {
		r.CaptureRequestResponse(statusCode, d)
	}
}

func (c *CompositeReporter) CaptureListenerAccepted() {
	for _, r := range c.reporters {
		r.CaptureListenerAccepted()
	}
}

func (c *CompositeReporter) CaptureListenerAcceptRetry() {
	for _, r := range c.reporters {
		r.CaptureListenerAcceptRetry()
	}
}

func (c *CompositeReporter) CaptureUptime(seconds float64) {
	for _, r := range c.reporters {
		r.CaptureUptime(seconds)
	}
}

func (c *CompositeReporter) CaptureFileDescriptors(count int) {
	for _, r := range c.reporters {
		r.CaptureFileDescriptors(count)
	}
}
