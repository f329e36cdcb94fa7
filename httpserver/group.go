package httpserver

import (
	"os"

	"github.com/uber-go/zap"
)

// Run satisfies github.com/tedsuo/ifrit's Runner interface, so a Server can
// be registered as a grouper.Member in a process supervision tree exactly
// as router.Router is in the teacher's main.go. It starts every listener,
// closes ready, then waits for either a fatal listener failure (reported
// through a LifecycleListener added internally for this purpose) or an OS
// signal, running Stop before returning.
func (s *Server) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	failed := make(chan error, 1)
	s.AddLifecycleListener(&runnerLifecycle{failed: failed})

	s.Start()
	close(ready)

	select {
	case err := <-failed:
		s.logger.Error("httpserver.listener-failed", zap.Error(err))
		s.Stop()
		return err
	case sig := <-signals:
		s.logger.Info("httpserver.signal-received", zap.String("signal", sig.String()))
		s.Stop()
		return nil
	}
}

type runnerLifecycle struct {
	failed chan error
}

func (r *runnerLifecycle) OnStart()        {}
func (r *runnerLifecycle) OnFail(err error) { r.failed <- err }
func (r *runnerLifecycle) OnStop()         {}
