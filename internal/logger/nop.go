package logger

// NopLogger discards all log output. Used in tests.
type NopLogger struct{}

// NewNop returns a logger that does nothing.
func NewNop() Interface {
	return &NopLogger{}
}

// Debug does nothing.
func (*NopLogger) Debug(string, ...any) {}

// Info does nothing.
func (*NopLogger) Info(string, ...any) {}

// Warn does nothing.
func (*NopLogger) Warn(string, ...any) {}

// Error does nothing.
func (*NopLogger) Error(string, ...any) {}

// Fatal does nothing.
func (*NopLogger) Fatal(string, ...any) {}

// With returns the same nop logger.
func (l *NopLogger) With(...any) Interface { return l }
