package monitor

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/uber-go/zap"

	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/metrics"
)

// FileDescriptor periodically samples the process's open file descriptor
// count and reports it through a metrics.Reporter, grounded on the
// teacher's monitor.FileDescriptor but generalized from a single dropsonde
// MetricSender to this repo's Reporter abstraction, so the same sample also
// reaches Prometheus through PrometheusReporter.CaptureFileDescriptors
// instead of dropsonde alone.
type FileDescriptor struct {
	path     string
	ticker   *time.Ticker
	reporter metrics.Reporter
	logger   logger.Logger
}

func NewFileDescriptor(path string, ticker *time.Ticker, reporter metrics.Reporter, logger logger.Logger) *FileDescriptor {
	return &FileDescriptor{
		path:     path,
		ticker:   ticker,
		reporter: reporter,
		logger:   logger,
	}
}

func (f *FileDescriptor) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	close(ready)
	for {
		select {
		case <-f.ticker.C:
			count, err := f.count()
			if err != nil {
				f.logger.Error("error-counting-file-descriptors", zap.Error(err))
				break
			}
			f.reporter.CaptureFileDescriptors(count)
		case <-signals:
			f.logger.Info("exited")
			return nil
		}
	}
}

func (f *FileDescriptor) count() (int, error) {
	switch runtime.GOOS {
	case "linux":
		fdInfo, err := ioutil.ReadDir(f.path)
		if err != nil {
			return 0, err
		}
		return symlinks(fdInfo), nil
	case "darwin":
		// no /proc on MacOS, falling back to lsof
		out, err := exec.Command("/bin/sh", "-c", fmt.Sprintf("lsof -p %v", os.Getpid())).Output()
		if err != nil {
			return 0, err
		}
		lines := strings.Split(string(out), "\n")
		return len(lines) - 1, nil // cut the table header
	default:
		return 0, nil
	}
}

func symlinks(fileInfos []os.FileInfo) (count int) {
	for i := 0; i < len(fileInfos); i++ {
		if fileInfos[i].Mode()&os.ModeSymlink == os.ModeSymlink {
			count++
		}
	}
	return count
}
