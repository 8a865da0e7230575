package logger

import "go.uber.org/zap"

var log *zap.Logger

// Init builds the process-wide logger. Development mode uses the console
// encoder with human-readable output; production emits JSON.
func Init(isDev bool) error {
	var err error
	if isDev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	return err
}

// L returns the global logger, falling back to a no-op logger so packages
// can log safely before Init (mostly in tests).
func L() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
