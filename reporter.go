package modulerunner

import (
	"go.uber.org/zap"
)

// zapReporter emits reports through a zap logger. ClearScreen is a hint for
// terminal sinks and is carried as a field so downstream UIs can honor it.
type zapReporter struct {
	logger *zap.Logger
}

// NewZapReporter returns a Reporter backed by the given zap logger.
func NewZapReporter(logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapReporter{logger: logger}
}

func (r *zapReporter) Report(msg string, opts ReportOptions) {
	fields := make([]zap.Field, 0, 3)
	if opts.Timestamp {
		fields = append(fields, zap.Bool("timestamp", true))
	}
	if opts.ClearScreen {
		fields = append(fields, zap.Bool("clear_screen", true))
	}
	if opts.Err != nil {
		fields = append(fields, zap.Error(opts.Err))
		r.logger.Error(msg, fields...)
		return
	}
	r.logger.Info(msg, fields...)
}
