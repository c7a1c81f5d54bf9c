package internal

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger provides leveled logging on top of a zap SugaredLogger
type Logger struct {
	level LogLevel
	sugar *zap.SugaredLogger
}

// NewLogger creates a console logger writing to stderr at the specified level
func NewLogger(level LogLevel) *Logger {
	return newLogger(level, false, os.Stderr)
}

// NewJSONLogger creates a logger emitting one JSON object per line
func NewJSONLogger(level LogLevel, w io.Writer) *Logger {
	return newLogger(level, true, w)
}

// NewNopLogger discards everything; components use it when no logger is given
func NewNopLogger() *Logger {
	return &Logger{level: LogLevelError, sugar: zap.NewNop().Sugar()}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

func newLogger(level LogLevel, jsonOutput bool, w io.Writer) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if jsonOutput {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return &Logger{level: level, sugar: zap.New(core).Sugar()}
}

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG/TRACE (any case) to a level; INFO otherwise
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	}
	return LogLevelInfo
}

// With returns a child logger carrying structured key/value fields
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l == nil {
		return NewNopLogger()
	}
	return &Logger{level: l.level, sugar: l.sugar.With(keysAndValues...)}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l != nil && l.level >= LogLevelError {
		l.sugar.Errorf(format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l != nil && l.level >= LogLevelWarn {
		l.sugar.Warnf(format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l != nil && l.level >= LogLevelInfo {
		l.sugar.Infof(format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l != nil && l.level >= LogLevelDebug {
		l.sugar.Debugf(format, args...)
	}
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	if l != nil && l.level >= LogLevelTrace {
		l.sugar.Debugf("[TRACE] "+format, args...)
	}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}
