package monitor

import (
	"time"

	metricscore "code.cloudfoundry.org/goroutercore/metrics"

	log "code.cloudfoundry.org/goroutercore/logger"
)

// Uptime periodically reports the process's age through a metrics.Reporter,
// grounded on the teacher's monitor.Uptime but generalized from a direct
// dropsonde SendValue call to this repo's Reporter abstraction, so the same
// sample reaches both PrometheusReporter and DropsondeReporter when the
// process is wired with a CompositeReporter.
type Uptime struct {
	logger   log.Logger
	reporter metricscore.Reporter
	interval time.Duration
	started  int64
	doneChan chan chan struct{}
}

func NewUptime(interval time.Duration, reporter metricscore.Reporter, logger log.Logger) *Uptime {
	return &Uptime{
		interval: interval,
		reporter: reporter,
		started:  time.Now().Unix(),
		doneChan: make(chan chan struct{}),
		logger:   logger,
	}
}

func (u *Uptime) Start() {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			u.reporter.CaptureUptime(float64(time.Now().Unix() - u.started))
		case stopped := <-u.doneChan:
			close(stopped)
			return
		}
	}
}

func (u *Uptime) Stop() {
	stopped := make(chan struct{})
	u.doneChan <- stopped
	<-stopped
}
