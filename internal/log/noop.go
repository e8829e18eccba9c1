package log

// NoopLogger implements Logger but discards every message.
type NoopLogger struct{}

// NewNoopLogger creates a logger that discards all output.
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

// Debug noops.
func (l *NoopLogger) Debug(format string, v ...interface{}) {}

// Info noops.
func (l *NoopLogger) Info(format string, v ...interface{}) {}

// Warn noops.
func (l *NoopLogger) Warn(format string, v ...interface{}) {}

// Error noops.
func (l *NoopLogger) Error(format string, v ...interface{}) {}

// Level reports Error, the least verbose level.
func (l *NoopLogger) Level() Level {
	return Error
}
