package monitor_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/goroutercore/metrics/monitor"
)

const (
	interval = 100 * time.Millisecond
)

var _ = Describe("Uptime", func() {
	var (
		reporter *fakeReporter
		uptime   *monitor.Uptime
	)

	BeforeEach(func() {
		reporter = &fakeReporter{}
		uptime = monitor.NewUptime(interval, reporter, testLogger)
		go uptime.Start()
	})

	Context("stops automatically", func() {

		AfterEach(func() {
			uptime.Stop()
		})

		It("reports an uptime value after the specified interval", func() {
			Eventually(reporter.uptimeCallCount).Should(BeNumerically(">=", 1))
			Expect(reporter.uptimeAt(0)).To(BeNumerically(">=", 0))
		})

		It("reports increasing uptime value", func() {
			Eventually(reporter.uptimeCallCount).Should(BeNumerically(">=", 1))
			first := reporter.uptimeAt(0)

			Eventually(func() float64 {
				n := reporter.uptimeCallCount()
				if n == 0 {
					return first
				}
				return reporter.uptimeAt(n - 1)
			}, "2s").Should(BeNumerically(">", first))
		})
	})

	It("stops the monitor and respective ticker", func() {
		Eventually(reporter.uptimeCallCount).Should(BeNumerically(">=", 1))

		uptime.Stop()

		current := reporter.uptimeCallCount()
		Consistently(reporter.uptimeCallCount, 2).Should(Equal(current))
	})
})
