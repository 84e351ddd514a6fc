package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	coremetrics "github.com/railops/induction/core/metrics"
	"github.com/railops/induction/infra/logger"
)

// InfluxSink writes scheduling events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so metrics never block scheduling.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSchedule writes one point per scheduling run.
func (s *InfluxSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	p := influxdb2.NewPoint("induction_schedule",
		map[string]string{},
		map[string]interface{}{
			"requested":   ev.RequestedForService,
			"service":     ev.ServiceCount,
			"standby":     ev.StandbyCount,
			"maintenance": ev.MaintenanceCount,
			"eligible":    ev.EligibleCount,
			"ineligible":  ev.IneligibleCount,
			"duration_ms": ev.Duration.Milliseconds(),
		}, ev.Time)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
		return err
	}
	return nil
}

// RecordTraining writes one point per finished training task.
func (s *InfluxSink) RecordTraining(ev coremetrics.TrainingEvent) error {
	p := influxdb2.NewPoint("induction_model_task",
		map[string]string{"kind": ev.Kind},
		map[string]interface{}{
			"task_id":     ev.TaskID,
			"success":     ev.Success,
			"duration_ms": ev.Duration.Milliseconds(),
		}, ev.Time)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
