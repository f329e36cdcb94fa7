package fakes

import (
	"sync"

	"code.cloudfoundry.org/goroutercore/logger"
	"github.com/uber-go/zap"
)

// FakeLogger is a hand-written stand-in for the counterfeiter-generated
// fake the teacher's go:generate directive on logger.Logger would produce.
// It records Info/Error calls for assertions in tests that only care about
// whether and what was logged, not full zap.Logger behavior.
type FakeLogger struct {
	mu sync.Mutex

	infoCalls  []call
	errorCalls []call

	session logger.Logger
}

type call struct {
	msg    string
	fields []zap.Field
}

var _ logger.Logger = (*FakeLogger)(nil)

func New() *FakeLogger { return &FakeLogger{} }

func (f *FakeLogger) With(fields ...zap.Field) logger.Logger { return f }
func (f *FakeLogger) Check(zap.Level, string) *zap.CheckedMessage { return nil }
func (f *FakeLogger) Log(zap.Level, string, ...zap.Field)    {}

func (f *FakeLogger) Debug(string, ...zap.Field) {}

func (f *FakeLogger) Info(msg string, fields ...zap.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls = append(f.infoCalls, call{msg, fields})
}

func (f *FakeLogger) Warn(string, ...zap.Field) {}

func (f *FakeLogger) Error(msg string, fields ...zap.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorCalls = append(f.errorCalls, call{msg, fields})
}

func (f *FakeLogger) DPanic(string, ...zap.Field) {}
func (f *FakeLogger) Panic(string, ...zap.Field)  {}
func (f *FakeLogger) Fatal(string, ...zap.Field)  {}

func (f *FakeLogger) Session(name string) logger.Logger      { return f }
func (f *FakeLogger) SessionName() string                    { return "fake" }
func (f *FakeLogger) WithRequestID(id string) logger.Logger { return f }

func (f *FakeLogger) InfoCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.infoCalls)
}

func (f *FakeLogger) InfoArgsForCall(i int) (string, []zap.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.infoCalls[i]
	return c.msg, c.fields
}

func (f *FakeLogger) ErrorCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errorCalls)
}

func (f *FakeLogger) ErrorArgsForCall(i int) (string, []zap.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.errorCalls[i]
	return c.msg, c.fields
}
