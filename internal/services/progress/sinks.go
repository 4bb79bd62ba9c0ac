package progress

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/cascade/internal/interfaces"
)

// LogSink writes notifications to the application log.
type LogSink struct {
	logger arbor.ILogger
}

// NewLogSink creates a sink backed by logger.
func NewLogSink(logger arbor.ILogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(message string) {
	s.logger.Info().Msg(message)
}

func (s *LogSink) ReportError(message string) {
	s.logger.Error().Msg(message)
}

func (s *LogSink) Clear() {}

// MultiSink fans notifications out to several sinks. Nil entries are skipped.
type MultiSink []interfaces.NotificationSink

// NewMultiSink creates a MultiSink from the non-nil sinks.
func NewMultiSink(sinks ...interfaces.NotificationSink) MultiSink {
	m := make(MultiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m MultiSink) Report(message string) {
	for _, s := range m {
		s.Report(message)
	}
}

func (m MultiSink) ReportError(message string) {
	for _, s := range m {
		s.ReportError(message)
	}
}

func (m MultiSink) Clear() {
	for _, s := range m {
		s.Clear()
	}
}
