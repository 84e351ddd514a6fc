package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/railops/induction/core/metrics"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	schedules *prometheus.CounterVec
	latency   prometheus.Histogram
	eligible  prometheus.Gauge
	blocked   prometheus.Gauge
	trainings *prometheus.CounterVec
}

// NewPromSink registers induction metrics on the default Prometheus
// registerer. The /metrics server is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	schedules := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "induction_schedules_total",
		Help: "Total number of schedule requests processed",
	}, []string{"outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "induction_pipeline_duration_seconds",
		Help:    "Duration of the eligibility/scoring/optimization pipeline",
		Buckets: prometheus.DefBuckets,
	})
	eligible := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "induction_eligible_assets",
		Help: "Eligible assets in the latest schedule run",
	})
	blocked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "induction_ineligible_assets",
		Help: "Ineligible assets in the latest schedule run",
	})
	trainings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "induction_model_tasks_total",
		Help: "Completed model training and evaluation tasks",
	}, []string{"kind", "success"})

	collectors := []prometheus.Collector{schedules, latency, eligible, blocked, trainings}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}

	return &PromSink{
		schedules: collectors[0].(*prometheus.CounterVec),
		latency:   collectors[1].(prometheus.Histogram),
		eligible:  collectors[2].(prometheus.Gauge),
		blocked:   collectors[3].(prometheus.Gauge),
		trainings: collectors[4].(*prometheus.CounterVec),
	}, nil
}

// RecordSchedule updates counters and gauges for one scheduling run.
func (s *PromSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	outcome := "planned"
	if ev.EligibleCount == 0 {
		outcome = "no_eligible_assets"
	}
	s.schedules.WithLabelValues(outcome).Inc()
	s.latency.Observe(ev.Duration.Seconds())
	s.eligible.Set(float64(ev.EligibleCount))
	s.blocked.Set(float64(ev.IneligibleCount))
	return nil
}

// RecordTraining counts finished training/evaluation tasks.
func (s *PromSink) RecordTraining(ev coremetrics.TrainingEvent) error {
	s.trainings.WithLabelValues(ev.Kind, strconv.FormatBool(ev.Success)).Inc()
	return nil
}
