package metrics

import coremetrics "github.com/railops/induction/core/metrics"

// MultiSink fans scheduling events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSchedule forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordSchedule(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordTraining forwards training events to sinks that track them.
func (m *MultiSink) RecordTraining(ev coremetrics.TrainingEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.TrainingRecorder); ok {
			if err := rec.RecordTraining(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
