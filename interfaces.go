package ecshim

import "github.com/ecshim/ecshim/internal/interfaces"

// Store interfaces are defined in internal/interfaces to let internal
// packages (e.g. internal/logging) reference Level and Logger without
// importing this package.

// Store is the four-operation block-store interface: the shim both
// consumes one (the inner backend) and implements one (for its callers).
type Store = interfaces.Store

// Level is the severity of a log message passed to a Logger.
type Level = interfaces.Level

const (
	LevelDebug = interfaces.LevelDebug
	LevelInfo  = interfaces.LevelInfo
	LevelWarn  = interfaces.LevelWarn
	LevelError = interfaces.LevelError
)

// Logger is the logging callback accepted by Config.
type Logger = interfaces.Logger

// LoggerFunc adapts a plain function to the Logger interface.
type LoggerFunc func(level Level, msg string, kv ...any)

// Log implements Logger.
func (f LoggerFunc) Log(level Level, msg string, kv ...any) {
	f(level, msg, kv...)
}
