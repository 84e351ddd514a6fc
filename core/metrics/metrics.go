package metrics

import "time"

// ScheduleEvent summarises one completed scheduling request.
type ScheduleEvent struct {
	RequestedForService int
	ServiceCount        int
	StandbyCount        int
	MaintenanceCount    int
	EligibleCount       int
	IneligibleCount     int
	Duration            time.Duration
	Time                time.Time
}

// TrainingEvent summarises a finished model training or evaluation task.
type TrainingEvent struct {
	TaskID   string
	Kind     string // "train" or "evaluate"
	Success  bool
	Duration time.Duration
	Time     time.Time
}

// Sink records scheduling events for observability purposes.
type Sink interface {
	RecordSchedule(ev ScheduleEvent) error
}

// TrainingRecorder is implemented by sinks that also track training runs.
type TrainingRecorder interface {
	RecordTraining(ev TrainingEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordSchedule(ScheduleEvent) error { return nil }
func (NopSink) RecordTraining(TrainingEvent) error { return nil }
