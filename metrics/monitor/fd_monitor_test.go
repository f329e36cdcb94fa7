package monitor_test

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tedsuo/ifrit"

	log "code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/metrics/monitor"
)

type fakeReporter struct {
	mu              sync.Mutex
	fileDescriptors []int
	uptimes         []float64
}

func (f *fakeReporter) CaptureConnectionOpened()                               {}
func (f *fakeReporter) CaptureConnectionClosed()                               {}
func (f *fakeReporter) CaptureBadRequest()                                     {}
func (f *fakeReporter) CaptureRequestResponse(statusCode int, d time.Duration) {}
func (f *fakeReporter) CaptureListenerAccepted()                               {}
func (f *fakeReporter) CaptureListenerAcceptRetry()                            {}

func (f *fakeReporter) CaptureUptime(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uptimes = append(f.uptimes, seconds)
}

func (f *fakeReporter) CaptureFileDescriptors(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileDescriptors = append(f.fileDescriptors, count)
}

func (f *fakeReporter) uptimeCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uptimes)
}

func (f *fakeReporter) uptimeAt(i int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uptimes[i]
}

func (f *fakeReporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fileDescriptors)
}

func (f *fakeReporter) argAt(i int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileDescriptors[i]
}

var _ = Describe("FileDescriptor", func() {
	var (
		reporter *fakeReporter
		ticker   *time.Ticker
		procPath string
	)

	BeforeEach(func() {
		reporter = &fakeReporter{}
		ticker = time.NewTicker(10 * time.Millisecond)
	})

	AfterEach(func() {
		ticker.Stop()
		Expect(os.RemoveAll(procPath)).To(Succeed())
	})

	It("exits when an os signal is received", func() {
		procPath = createTestPath("", 0)
		fdMonitor := monitor.NewFileDescriptor(procPath, ticker, reporter, log.NewLogger("test"))
		process := ifrit.Invoke(fdMonitor)
		Eventually(process.Ready()).Should(BeClosed())

		process.Signal(os.Interrupt)
		var err error
		Eventually(process.Wait()).Should(Receive(&err))
		Expect(err).ToNot(HaveOccurred())
	})

	It("monitors the open file descriptors for a given path", func() {
		procPath = createTestPath("", 10)
		fdMonitor := monitor.NewFileDescriptor(procPath, ticker, reporter, log.NewLogger("test"))
		process := ifrit.Invoke(fdMonitor)
		Eventually(process.Ready()).Should(BeClosed())
		defer process.Signal(os.Interrupt)

		Eventually(reporter.callCount).Should(BeNumerically(">=", 1))
		Expect(reporter.argAt(0)).To(Equal(10))
	})
})

func createTestPath(path string, symlinkCount int) string {
	createSymlinks := func(dir string, n int) {
		fd, err := os.CreateTemp(dir, "socket")
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < n; i++ {
			target := filepath.Join(dir, strconv.Itoa(i))
			_ = os.Symlink(fd.Name()+strconv.Itoa(i), target)
		}
	}
	if path != "" {
		createSymlinks(path, symlinkCount)
		return path
	}
	procPath, err := os.MkdirTemp("", "proc")
	Expect(err).NotTo(HaveOccurred())
	createSymlinks(procPath, symlinkCount)
	return procPath
}
