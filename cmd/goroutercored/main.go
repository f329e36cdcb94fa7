// Command goroutercored wires config, logging, the HTTP server, metrics
// and health into one supervised process, grounded on the teacher's
// root-level main.go: same flag-driven config loading, same zap-based
// logging setup, same ifrit/grouper/sigmon process supervision tree, now
// orchestrating this repo's own httpserver.Server instead of
// router.Router.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"code.cloudfoundry.org/debugserver"
	"github.com/cloudfoundry/dropsonde"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/grouper"
	"github.com/tedsuo/ifrit/sigmon"
	"github.com/uber-go/zap"

	"code.cloudfoundry.org/goroutercore/config"
	"code.cloudfoundry.org/goroutercore/errorwriter"
	"code.cloudfoundry.org/goroutercore/health"
	"code.cloudfoundry.org/goroutercore/httpserver"
	"code.cloudfoundry.org/goroutercore/logger"
	"code.cloudfoundry.org/goroutercore/metrics"
	"code.cloudfoundry.org/goroutercore/metrics/monitor"
	"code.cloudfoundry.org/goroutercore/serverconn"
	"code.cloudfoundry.org/goroutercore/serverhttp"
)

var configFile string

func main() {
	flag.StringVar(&configFile, "c", "", "Configuration File")
	flag.Parse()

	c, err := config.DefaultConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error building default config:", err)
		os.Exit(1)
	}
	if configFile != "" {
		c, err = config.InitConfigFromFile(configFile)
	} else {
		err = c.Process()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading config:", err)
		os.Exit(1)
	}

	log := logger.NewLogger("goroutercored")
	log.Info("starting", zap.String("ip", c.Ip), zap.Uint16("port", c.Port))

	if err := dropsonde.Initialize("localhost:3457", c.Logging.JobName); err != nil {
		log.Error("dropsonde-initialize-error", zap.Error(err))
	}

	var ew errorwriter.ErrorWriter
	if c.HTMLErrorTemplateFile != "" {
		ew, err = errorwriter.NewHTMLErrorWriterFromFile(c.HTMLErrorTemplateFile)
		if err != nil {
			log.Fatal("new-html-error-writer", zap.Error(err))
		}
	} else {
		ew = errorwriter.NewPlaintextErrorWriter()
	}

	h := &health.Health{}

	promReporter := metrics.NewPrometheusReporter()
	reporter := metrics.NewCompositeReporter(promReporter, metrics.NewDropsondeReporter())

	delegate := instrument(defaultDelegate(h, log), reporter)

	srv := httpserver.NewServer(log, c.WorkerCount, delegate,
		serverconn.WithIdleTimeout(c.FrontendIdleTimeout),
		serverconn.WithErrorWriter(ew),
	)

	if !c.DisableHTTP {
		if err := srv.Listen(fmt.Sprintf(":%d", c.Port), c.EnablePROXY); err != nil {
			log.Fatal("listen", zap.Error(err))
		}
	}
	if c.TLS.Enable {
		if err := srv.ListenTLS(fmt.Sprintf(":%d", c.TLS.Port), httpserver.TLSOptions{
			CertPath:   c.TLS.CertPath,
			KeyPath:    c.TLS.KeyPath,
			CAPath:     c.TLS.CAPath,
			ClientAuth: c.TLS.ClientAuth,
		}, c.EnablePROXY); err != nil {
			log.Fatal("listen-tls", zap.Error(err))
		}
	}

	srv.AddLifecycleListener(lifecycleListener{health: h, logger: log})

	members := grouper.Members{}

	if os.Getenv("DEBUG_ADDR") != "" {
		members = append(members, grouper.Member{
			Name:   "debug-server",
			Runner: debugRunner(os.Getenv("DEBUG_ADDR")),
		})
	}

	members = append(members, grouper.Member{
		Name:   "status-server",
		Runner: statusRunner(fmt.Sprintf("%s:%d", c.Status.Host, c.Status.Port), promReporter, h),
	})

	uptime := monitor.NewUptime(30*time.Second, reporter, log.Session("uptime"))
	members = append(members, grouper.Member{Name: "uptime", Runner: ifrit.RunFunc(func(signals <-chan os.Signal, ready chan<- struct{}) error {
		close(ready)
		go uptime.Start()
		<-signals
		uptime.Stop()
		return nil
	})})

	fdPath := fmt.Sprintf("/proc/%d/fd", os.Getpid())
	fdMonitor := monitor.NewFileDescriptor(fdPath, time.NewTicker(30*time.Second), reporter, log.Session("fd-monitor"))
	members = append(members, grouper.Member{Name: "fd-monitor", Runner: fdMonitor})

	members = append(members, grouper.Member{Name: "server", Runner: srv})

	group := grouper.NewOrdered(os.Interrupt, members)
	process := ifrit.Invoke(sigmon.New(group, syscall.SIGTERM, syscall.SIGINT))

	<-process.Ready()
	h.SetHealth(health.Healthy)
	log.Info("started")

	if err := <-process.Wait(); err != nil {
		log.Fatal("goroutercored.exited-with-failure", zap.Error(err))
	}
	os.Exit(0)
}

// noopReloader satisfies debugserver.Reloader; this binary does not
// support changing its log level at runtime, unlike the teacher's gorouter
// which reloads logging config through this same hook.
type noopReloader struct{}

func (noopReloader) Reload() {}

// statusRunner serves /metrics and /healthz on the status port, the same
// separation the teacher keeps between its traffic listeners and
// server_status.go's operational status page.
func statusRunner(addr string, reporter *metrics.PrometheusReporter, h *health.Health) ifrit.Runner {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reporter.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(h.String()))
	})
	srv := &http.Server{Addr: addr, Handler: mux}

	return ifrit.RunFunc(func(signals <-chan os.Signal, ready chan<- struct{}) error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		close(ready)
		select {
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		case <-signals:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	})
}

func debugRunner(addr string) ifrit.Runner {
	return ifrit.RunFunc(func(signals <-chan os.Signal, ready chan<- struct{}) error {
		_, err := debugserver.Run(addr, noopReloader{})
		if err != nil {
			return err
		}
		close(ready)
		<-signals
		return nil
	})
}

// defaultDelegate answers every request with a tiny status page reporting
// the process's current health, the kind of minimal demonstration handler
// appropriate for a library's own binary rather than application logic.
func defaultDelegate(h *health.Health, log logger.Logger) func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
	return func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
		resp.Header.Set("Content-Type", "text/plain")
		if req.Path == "/healthz" {
			_, _ = resp.Write([]byte(h.String()))
		} else {
			_, _ = fmt.Fprintf(resp, "%s %s -> %s\n", req.Method, req.Path, h.String())
		}
		_ = resp.End()
	}
}

// instrument wraps delegate so every call reports its outcome to reporter,
// grounded on the teacher's proxy instrumentation of every routed request.
func instrument(delegate func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse), reporter metrics.Reporter) func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
	return func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
		start := time.Now()
		delegate(req, resp)
		reporter.CaptureRequestResponse(resp.StatusCode, time.Since(start))
	}
}

type lifecycleListener struct {
	health *health.Health
	logger logger.Logger
}

func (l lifecycleListener) OnStart() {
	l.logger.Info("listener-started")
}

func (l lifecycleListener) OnFail(err error) {
	l.logger.Error("listener-failed", zap.Error(err))
	l.health.SetHealth(health.Degraded)
}

func (l lifecycleListener) OnStop() {
	l.logger.Info("listener-stopped")
}
