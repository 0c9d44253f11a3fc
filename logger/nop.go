package logger

// NewNop returns a Logger that discards everything. Handy for tests and
// for embedders that bring their own logging. Unlike a real logger, its
// Fatal does not exit.
func NewNop() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

var _ Logger = (*nopLogger)(nil)

func (*nopLogger) Debug(string, ...any) {}
func (*nopLogger) Info(string, ...any)  {}
func (*nopLogger) Warn(string, ...any)  {}
func (*nopLogger) Error(string, ...any) {}
func (*nopLogger) Fatal(string, ...any) {}

func (l *nopLogger) With(...any) Logger { return l }

func (*nopLogger) Level() Level   { return ErrorLevel }
func (*nopLogger) SetLevel(Level) {}
