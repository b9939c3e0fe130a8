package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// TraceEvent describes one LLM call attempt.
type TraceEvent struct {
	Task     string
	Attempt  int
	Duration time.Duration
	Outcome  string
	Error    string
}

const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty_response"
	OutcomeMalformed = "malformed_response"
	OutcomeTransport = "transport_error"
)

// TraceSink receives gateway call events. Recording is best-effort: the
// gateway tolerates a nil sink and never lets the sink affect call outcomes.
type TraceSink interface {
	Record(event TraceEvent)
}

type logTraceSink struct {
	log *logrus.Entry
}

// NewLogTraceSink records trace events as structured log lines.
func NewLogTraceSink(log *logrus.Entry) TraceSink {
	return &logTraceSink{log: log}
}

func (s *logTraceSink) Record(event TraceEvent) {
	fields := logrus.Fields{
		"task":        event.Task,
		"attempt":     event.Attempt,
		"duration_ms": event.Duration.Milliseconds(),
		"outcome":     event.Outcome,
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	s.log.WithFields(fields).Info("llm call attempt")
}
