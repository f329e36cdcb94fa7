package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/goroutercore/metrics"
)

type recordingReporter struct {
	opened, closed, badRequests, accepted, retries int
	responses                                      []int
	uptime                                         float64
	fileDescriptors                                int
}

func (r *recordingReporter) CaptureConnectionOpened()    { r.opened++ }
func (r *recordingReporter) CaptureConnectionClosed()    { r.closed++ }
func (r *recordingReporter) CaptureBadRequest()          { r.badRequests++ }
func (r *recordingReporter) CaptureListenerAccepted()    { r.accepted++ }
func (r *recordingReporter) CaptureListenerAcceptRetry() { r.retries++ }
func (r *recordingReporter) CaptureRequestResponse(statusCode int, d time.Duration) {
	r.responses = append(r.responses, statusCode)
}
func (r *recordingReporter) CaptureUptime(seconds float64)   { r.uptime = seconds }
func (r *recordingReporter) CaptureFileDescriptors(count int) { r.fileDescriptors = count }

var _ = Describe("CompositeReporter", func() {
	var first, second *recordingReporter
	var composite *metrics.CompositeReporter

	BeforeEach(func() {
		first = &recordingReporter{}
		second = &recordingReporter{}
		composite = metrics.NewCompositeReporter(first, second)
	})

	It("forwards every event to all delegates", func() {
		composite.CaptureConnectionOpened()
		composite.CaptureConnectionClosed()
		composite.CaptureBadRequest()
		composite.CaptureListenerAccepted()
		composite.CaptureListenerAcceptRetry()
		composite.CaptureRequestResponse(200, 5*time.Millisecond)
		composite.CaptureUptime(42)
		composite.CaptureFileDescriptors(7)

		for _, r := range []*recordingReporter{first, second} {
			Expect(r.opened).To(Equal(1))
			Expect(r.closed).To(Equal(1))
			Expect(r.badRequests).To(Equal(1))
			Expect(r.accepted).To(Equal(1))
			Expect(r.retries).To(Equal(1))
			Expect(r.responses).To(Equal([]int{200}))
			Expect(r.uptime).To(Equal(float64(42)))
			Expect(r.fileDescriptors).To(Equal(7))
		}
	})
})

var _ = Describe("PrometheusReporter", func() {
	It("exposes its collectors on its own registry", func() {
		r := metrics.NewPrometheusReporter()
		r.CaptureRequestResponse(404, 10*time.Millisecond)
		r.CaptureConnectionOpened()
		r.CaptureUptime(123)
		r.CaptureFileDescriptors(9)

		mfs, err := r.Registry().Gather()
		Expect(err).NotTo(HaveOccurred())
		Expect(mfs).NotTo(BeEmpty())
	})
})
