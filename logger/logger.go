package logger

import "github.com/uber-go/zap"

// requestIDField is the structured field key WithRequestID attaches,
// matching the requestid package's wire header name so a log line and the
// X-Request-Id sent back to the client can be correlated by the same
// string.
const requestIDField = "request_id"

// Logger is the zap.Logger interface plus the Session/WithRequestID
// conveniences every component in this repo logs through.
//go:generate counterfeiter -o fakes/fake_logger.go . Logger
type Logger interface {
	With(...zap.Field) Logger
	Check(zap.Level, string) *zap.CheckedMessage
	Log(zap.Level, string, ...zap.Field)
	Debug(string, ...zap.Field)
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
	DPanic(string, ...zap.Field)
	Panic(string, ...zap.Field)
	Fatal(string, ...zap.Field)
	Session(string) Logger
	SessionName() string
	// WithRequestID returns a Logger that stamps every subsequent call
	// with the given request ID, so a panic or write failure logged deep
	// inside a connection handler can be traced back to the request whose
	// X-Request-Id header carries the same value.
	WithRequestID(id string) Logger
}

// component is the concrete Logger: a named component (e.g.
// "goroutercored.uptime") wrapping an underlying zap.Logger, with a set of
// structured fields nested under every message it emits.
type component struct {
	name       string
	origLogger zap.Logger
	fields     []zap.Field
	zap.Logger
}

// NewLogger returns a Logger rooted at name, encoding every message as a
// single JSON line.
func NewLogger(name string, options ...zap.Option) Logger {
	enc := zap.NewJSONEncoder(
		zap.LevelString("log_level"),
		zap.MessageKey("message"),
		zap.EpochFormatter("timestamp"),
		severityFormatter(),
	)
	origLogger := zap.New(enc, options...)

	return &component{
		name:       name,
		origLogger: origLogger,
		Logger:     origLogger.With(zap.String("component", name)),
	}
}

// Session returns a child Logger scoped to name.child, sharing this
// Logger's accumulated fields.
func (c *component) Session(name string) Logger {
	childName := c.name + "." + name
	return &component{
		name:       childName,
		origLogger: c.origLogger,
		Logger:     c.origLogger.With(zap.String("component", childName)),
		fields:     c.fields,
	}
}

func (c *component) SessionName() string {
	return c.name
}

func (c *component) WithRequestID(id string) Logger {
	return c.With(zap.String(requestIDField, id))
}

func (c *component) nest(fields ...zap.Field) zap.Field {
	return zap.Nest("fields", append(c.fields, fields...)...)
}

func (c *component) With(fields ...zap.Field) Logger {
	return &component{
		name:       c.name,
		origLogger: c.origLogger,
		Logger:     c.Logger,
		fields:     append(append([]zap.Field(nil), c.fields...), fields...),
	}
}

func (c *component) Log(level zap.Level, msg string, fields ...zap.Field) {
	c.Logger.Log(level, msg, c.nest(fields...))
}
func (c *component) Debug(msg string, fields ...zap.Field) {
	c.Log(zap.DebugLevel, msg, fields...)
}
func (c *component) Info(msg string, fields ...zap.Field) {
	c.Log(zap.InfoLevel, msg, fields...)
}
func (c *component) Warn(msg string, fields ...zap.Field) {
	c.Log(zap.WarnLevel, msg, fields...)
}
func (c *component) Error(msg string, fields ...zap.Field) {
	c.Log(zap.ErrorLevel, msg, fields...)
}
func (c *component) DPanic(msg string, fields ...zap.Field) {
	c.Logger.DPanic(msg, c.nest(fields...))
}
func (c *component) Panic(msg string, fields ...zap.Field) {
	c.Logger.Panic(msg, c.nest(fields...))
}
func (c *component) Fatal(msg string, fields ...zap.Field) {
	c.Logger.Fatal(msg, c.nest(fields...))
}

// severityFormatter encodes zap's level as its own ordinal rather than the
// one a bridged lager sink would have expected; this repo has no lager
// bridge to stay compatible with, so the raw zap ordinal is emitted as-is.
func severityFormatter() zap.LevelFormatter {
	return zap.LevelFormatter(func(level zap.Level) zap.Field {
		return zap.Int("log_level", int(level))
	})
}
