package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/railops/induction/api/schedule"
	"github.com/railops/induction/config"
	coremetrics "github.com/railops/induction/core/metrics"
	coreschedule "github.com/railops/induction/core/schedule"
	"github.com/railops/induction/core/tasks"
	"github.com/railops/induction/infra/explain"
	"github.com/railops/induction/infra/logger"
	"github.com/railops/induction/infra/metrics"
	"github.com/railops/induction/infra/ml"
	"github.com/railops/induction/infra/store"
	"github.com/railops/induction/infra/telemetry"
)

// Service wires the induction engine: store, pipeline, trainer, API server
// and the optional telemetry feed.
type Service struct {
	Pipeline *coreschedule.Pipeline
	Trainer  *ml.Trainer
	Registry *tasks.Registry

	store       *store.Store
	server      *http.Server
	ingestor    *telemetry.Ingestor
	shutdownTO  time.Duration
	promEnabled bool
	promPort    string
	log         logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st, err := store.Open(cfg.Store, logger.New("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}
	recorder, _ := sink.(coremetrics.TrainingRecorder)

	predictor := ml.NewPredictor(st, logger.New("predictor"))
	registry := tasks.NewRegistry()
	trainer := ml.NewTrainer(st, st, predictor, registry, recorder, logger.New("trainer"))
	pipeline := coreschedule.NewPipeline(st, predictor, sink, logger.New("pipeline"))

	var gen explain.Generator
	if cfg.Explain.Enabled {
		gen = explain.NewOllamaClient(cfg.Explain)
	}
	handler := schedule.New(pipeline, trainer, registry, schedule.Options{
		Explainer:         gen,
		ExplainTimeout:    time.Duration(cfg.Explain.TimeoutSeconds) * time.Second,
		DefaultTrainCount: cfg.Server.DefaultTrainCount,
	}, logger.New("api"))

	svc := &Service{
		Pipeline:    pipeline,
		Trainer:     trainer,
		Registry:    registry,
		store:       st,
		shutdownTO:  time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
		log:         logg,
	}
	svc.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Telemetry.Enabled {
		ing, err := telemetry.NewIngestor(cfg.Telemetry, st, logger.New("telemetry"))
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("telemetry ingestor: %w", err)
		}
		svc.ingestor = ing
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled or the
// HTTP server fails.
func (s *Service) Run(ctx context.Context) error {
	if s.ingestor != nil {
		go func() {
			if err := s.ingestor.Start(ctx); err != nil {
				s.log.Errorf("telemetry: %v", err)
			}
		}()
	}
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTO)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error { return s.store.Close() }
