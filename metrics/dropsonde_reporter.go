package metrics

import (
	"fmt"
	"time"

	dropsondeMetrics "github.com/cloudfoundry/dropsonde/metrics"
)

// DropsondeReporter emits the same counters/values the teacher's
// MetricsReporter sends over dropsonde (metrics_reporter.go,
// BatchIncrementCounter/SendValue calls), rescoped to this server's own
// events instead of backend-routing events.
type DropsondeReporter struct{}

// NewDropsondeReporter returns a Reporter that emits through the
// dropsonde metrics client already initialized by the process (via
// dropsonde.Initialize in cmd/goroutercored).
func NewDropsondeReporter() *DropsondeReporter {
	return &DropsondeReporter{}
}

func (d *DropsondeReporter) CaptureConnectionOpened() {
	_ = dropsondeMetrics.BatchIncrementCounter("connections_opened")
}

func (d *DropsondeReporter) CaptureConnectionClosed() {
	_ = dropsondeMetrics.BatchIncrementCounter("connections_closed")
}

func (d *DropsondeReporter) CaptureBadRequest() {
	_ = dropsondeMetrics.BatchIncrementCounter("bad_requests")
}

func (d *DropsondeReporter) CaptureRequestResponse(statusCode int, dur time.Duration) {
	_ = dropsondeMetrics.BatchIncrementCounter(fmt.Sprintf("responses.%s", statusGroup(statusCode)))
	_ = dropsondeMetrics.SendValue("response_latency_ms", float64(dur)/float64(time.Millisecond), "ms")
}

func (d *DropsondeReporter) CaptureListenerAccepted() {
	_ = dropsondeMetrics.BatchIncrementCounter("listener_accepted")
}

func (d *DropsondeReporter) CaptureListenerAcceptRetry() {
	_ = dropsondeMetrics.BatchIncrementCounter("listener_accept_retries")
}

func (d *DropsondeReporter) CaptureUptime(seconds float64) {
	_ = dropsondeMetrics.SendValue("uptime", seconds, "seconds")
}

func (d *DropsondeReporter) CaptureFileDescriptors(count int) {
	_ = dropsondeMetrics.SendValue("file_descriptors", float64(count), "file")
}
