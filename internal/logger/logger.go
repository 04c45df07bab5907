package logger

import "go.uber.org/zap"

var logger *zap.SugaredLogger

// Get returns the process-wide sugared logger, building a development
// logger on first use.
func Get() *zap.SugaredLogger {
	if logger == nil {
		zaplog, err := zap.NewDevelopment()
		if err != nil {
			zaplog = zap.NewNop()
		}
		logger = zaplog.Sugar()
	}
	return logger
}

// Replace installs a custom logger. Call before anything logs; intended
// for main and for tests that want to capture output.
func Replace(l *zap.SugaredLogger) {
	logger = l
}
