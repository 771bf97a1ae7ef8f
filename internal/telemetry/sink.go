package telemetry

import "log/slog"

// Event carries context about where a failure happened.
type Event struct {
	Component string
	Action    string
	Extra     map[string]any
}

// Sink receives failure reports. Implementations must be fire-and-forget:
// never block the caller and never panic outward.
type Sink interface {
	ReportFailure(err error, ev Event)
}

// LogSink reports failures through slog.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs to the given logger, or the default
// logger if nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) ReportFailure(err error, ev Event) {
	defer func() {
		_ = recover()
	}()

	attrs := []any{
		"error", err,
		"component", ev.Component,
		"action", ev.Action,
	}
	for k, v := range ev.Extra {
		attrs = append(attrs, k, v)
	}
	s.logger.Warn("Failure reported", attrs...)
}

// NopSink discards all reports.
type NopSink struct{}

func (NopSink) ReportFailure(error, Event) {}
