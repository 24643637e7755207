package lelet

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/isgasho/lelet/internal/sched"
)

// logifaceLogger adapts a logiface.Logger[E] to the scheduler core's
// narrow sched.Logger interface, the way eventloop/logging.go adapts its
// own logging backend: the core never imports logiface directly, it only
// ever sees sched.Logger.
type logifaceLogger[E logiface.Event] struct {
	logger *logiface.Logger[E]
}

func newLogifaceLogger[E logiface.Event](l *logiface.Logger[E]) sched.Logger {
	return &logifaceLogger[E]{logger: l}
}

func (l *logifaceLogger[E]) Event(level sched.Level, msg string, fields map[string]any) {
	var b *logiface.Builder[E]
	switch level {
	case sched.LevelTrace:
		b = l.logger.Trace()
	case sched.LevelDebug:
		b = l.logger.Debug()
	case sched.LevelInfo:
		b = l.logger.Info()
	case sched.LevelWarning:
		b = l.logger.Warning()
	default:
		b = l.logger.Err()
	}
	if b == nil {
		return
	}
	for k, v := range fields {
		b = b.Any(k, v)
	}
	b.Log(msg)
}

// NewStumpyLogger builds the package's out-of-the-box logger: JSON lines
// to stderr via stumpy, matching logiface-stumpy's
// stumpy.L.New(stumpy.L.WithStumpy()) construction.
func NewStumpyLogger(opts ...stumpy.Option) sched.Logger {
	return newLogifaceLogger(stumpy.L.New(stumpy.L.WithStumpy(opts...)))
}

var (
	globalLoggerMu sync.RWMutex
	globalLogger   sched.Logger = sched.NoopLogger
)

// SetLogger installs the package-level default logger — mirroring
// eventloop's SetStructuredLogger/getGlobalLogger pair. The scheduler reads
// it once, on the first call to Configure, SetNumCPUs or Spawn, and a
// WithLogger option passed to Configure overrides it; a SetLogger call
// made after that first read has no effect on the scheduler. The default
// is a no-op; call this (or pass WithLogger to Configure) before that
// first call to see scheduler diagnostics.
func SetLogger(l sched.Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if l == nil {
		l = sched.NoopLogger
	}
	globalLogger = l
}

func getLogger() sched.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}
