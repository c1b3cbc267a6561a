package dispatch

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// LogLevel mirrors the small set of severities the dispatcher actually
// emits: lifecycle events are Info, recoverable per-socket failures are
// Warn, and dispatcher-fatal conditions are Error.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Logger is the logging seam the Dispatcher writes lifecycle and error
// events through. It is intentionally narrow — a handful of fields, not an
// arbitrary key/value bag — matching the small, fixed vocabulary of events
// the dispatcher produces (listener/stream registered, accepted connection,
// accepted connection dropped, socket disposed, poll failed).
type Logger interface {
	Log(level LogLevel, msg string, socketID SocketID, err error)
}

// nopLogger discards everything. It is the default Logger for a Dispatcher
// constructed without WithLogger.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all events.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Log(LogLevel, string, SocketID, error) {}

// logifaceLogger adapts Logger onto github.com/joeycumines/logiface, using
// github.com/joeycumines/stumpy as the concrete JSON event/writer
// implementation — the same pairing the logiface test suite itself uses.
type logifaceLogger struct {
	log *logiface.Logger[*stumpy.Event]
}

// NewJSONLogger returns a Logger that writes structured JSON lines via
// logiface+stumpy. Pass stumpy.L.WithWriter(...) to redirect output; the
// default writes to stumpy's own default destination.
func NewJSONLogger(opts ...logiface.Option[*stumpy.Event]) Logger {
	return &logifaceLogger{log: stumpy.L.New(opts...)}
}

func (l *logifaceLogger) Log(level LogLevel, msg string, socketID SocketID, err error) {
	var b *logiface.Builder[*stumpy.Event]
	switch level {
	case LogLevelDebug:
		b = l.log.Debug()
	case LogLevelWarn:
		b = l.log.Warning()
	case LogLevelError:
		b = l.log.Err()
	default:
		b = l.log.Info()
	}
	if b == nil {
		return
	}
	b = b.Uint64(`socket_id`, uint64(socketID))
	if err != nil {
		b = b.Err(err)
	}
	b.Log(msg)
}
