package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusReporter exposes the same counters/histograms a monitoring
// scrape would read out of metrics_prometheus.Metrics in the teacher,
// rescoped from routing metrics (registrations, backend TLS failures) to
// the events this server's own accept/parse/respond path produces.
type PrometheusReporter struct {
	registry *prometheus.Registry

	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	badRequests       prometheus.Counter
	responses         *prometheus.CounterVec
	responseLatency   prometheus.Histogram
	listenerAccepted  prometheus.Counter
	listenerRetries   prometheus.Counter
	uptime            prometheus.Gauge
	fileDescriptors   prometheus.Gauge
}

// NewPrometheusReporter builds a PrometheusReporter and registers all of
// its collectors on a fresh registry, returned so callers can serve it
// over the status listener's /metrics endpoint.
func NewPrometheusReporter() *PrometheusReporter {
	registry := prometheus.NewRegistry()

	r := &PrometheusReporter{
		registry: registry,
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goroutercore_connections_opened_total",
			Help: "number of accepted TCP connections",
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goroutercore_connections_closed_total",
			Help: "number of connections that have finished serving",
		}),
		badRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goroutercore_bad_requests_total",
			Help: "number of requests that failed to parse",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goroutercore_responses_total",
			Help: "number of responses written, by status group",
		}, []string{"status_group"}),
		responseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goroutercore_response_latency_seconds",
			Help:    "time from request-ready to response written",
			Buckets: prometheus.DefBuckets,
		}),
		listenerAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goroutercore_listener_accepted_total",
			Help: "number of connections accepted by a listener",
		}),
		listenerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goroutercore_listener_accept_retries_total",
			Help: "number of transient accept errors a listener backed off from",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goroutercore_uptime_seconds",
			Help: "seconds since the process started, as last sampled by metrics/monitor.Uptime",
		}),
		fileDescriptors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goroutercore_open_file_descriptors",
			Help: "open file descriptor count, as last sampled by metrics/monitor.FileDescriptor",
		}),
	}

	registry.MustRegister(
		r.connectionsOpened,
		r.connectionsClosed,
		r.badRequests,
		r.responses,
		r.responseLatency,
		r.listenerAccepted,
		r.listenerRetries,
		r.uptime,
		r.fileDescriptors,
	)

	return r
}

// Registry returns the prometheus.Registry these collectors live on, for
// wiring into a promhttp.HandlerFor on the status listener.
func (r *PrometheusReporter) Registry() *prometheus.Registry { return r.registry }

func (r *PrometheusReporter) CaptureConnectionOpened() { r.connectionsOpened.Inc() }
func (r *PrometheusReporter) CaptureConnectionClosed() { r.connectionsClosed.Inc() }
func (r *PrometheusReporter) CaptureBadRequest()       { r.badRequests.Inc() }

func (r *PrometheusReporter) CaptureRequestResponse(statusCode int, d time.Duration) {
	r.responses.WithLabelValues(statusGroup(statusCode)).Inc()
	r.responseLatency.Observe(d.Seconds())
}

func (r *PrometheusReporter) CaptureListenerAccepted()    { r.listenerAccepted.Inc() }
func (r *PrometheusReporter) CaptureListenerAcceptRetry() { r.listenerRetries.Inc() }

func (r *PrometheusReporter) CaptureUptime(seconds float64)      { r.uptime.Set(seconds) }
func (r *PrometheusReporter) CaptureFileDescriptors(count int) { r.fileDescriptors.Set(float64(count)) }

func statusGroup(statusCode int) string {
	group := statusCode / 100
	if group < 1 || group > 5 {
		return "xxx"
	}
	digits := "0123456789"
	return string(digits[group]) + "xx"
}
