package ml

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/railops/induction/core/metrics"
	"github.com/railops/induction/core/model"
	"github.com/railops/induction/core/risk"
	"github.com/railops/induction/core/tasks"
	"github.com/railops/induction/infra/logger"
)

type memArtifacts struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{blobs: map[string][]byte{}}
}

func (m *memArtifacts) SaveArtifact(_ context.Context, name string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = blob
	return nil
}

func (m *memArtifacts) LoadArtifact(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[name]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return blob, nil
}

type memOutcomes struct {
	rows []model.HistoricalOutcome
	err  error
}

func (m memOutcomes) HistoricalOutcomes(context.Context) ([]model.HistoricalOutcome, error) {
	return m.rows, m.err
}

type captureRecorder struct {
	events []coremetrics.TrainingEvent
}

func (c *captureRecorder) RecordTraining(ev coremetrics.TrainingEvent) error {
	c.events = append(c.events, ev)
	return nil
}

// syntheticOutcomes builds a learnable history: failures cluster on worn
// trainsets.
func syntheticOutcomes(n int) []model.HistoricalOutcome {
	rows := make([]model.HistoricalOutcome, 0, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		failed := i%3 == 0
		mileage := 40000 + float64(i)*1000
		days := 20 + i
		if failed {
			mileage += 120000
			days += 200
		}
		rows = append(rows, model.HistoricalOutcome{
			AssetID:            int64(i + 1),
			MileageAtEvent:     mileage,
			DaysSinceLastMaint: days,
			FailureOccurred:    failed,
			EventDate:          base.AddDate(0, 0, i),
		})
	}
	return rows
}

func TestTrainProducesServingModel(t *testing.T) {
	artifacts := newMemArtifacts()
	registry := tasks.NewRegistry()
	predictor := NewPredictor(artifacts, logger.NopLogger{})
	recorder := &captureRecorder{}
	trainer := NewTrainer(memOutcomes{rows: syntheticOutcomes(60)}, artifacts, predictor, registry, recorder, logger.NopLogger{})

	trainer.Train(context.Background(), "t1")

	st, ok := registry.Get("t1")
	if !ok || !st.Done() || st.Failed() {
		t.Fatalf("status = %+v", st)
	}
	if st.Status != "Completed" {
		t.Errorf("status = %q", st.Status)
	}

	if _, err := artifacts.LoadArtifact(context.Background(), ModelArtifact); err != nil {
		t.Fatalf("model artifact missing: %v", err)
	}
	if _, err := artifacts.LoadArtifact(context.Background(), ScalerArtifact); err != nil {
		t.Fatalf("scaler artifact missing: %v", err)
	}

	// Predictor now serves, and worn trains score higher.
	worn, err := predictor.PredictFailureProbability(190000, 260)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	fresh, err := predictor.PredictFailureProbability(45000, 25)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if worn <= fresh {
		t.Errorf("worn=%v fresh=%v, want worn riskier", worn, fresh)
	}

	if len(recorder.events) != 1 || recorder.events[0].Kind != "train" || !recorder.events[0].Success {
		t.Errorf("events = %+v", recorder.events)
	}
}

func TestTrainRejectsSmallDataset(t *testing.T) {
	artifacts := newMemArtifacts()
	registry := tasks.NewRegistry()
	trainer := NewTrainer(memOutcomes{rows: syntheticOutcomes(10)}, artifacts, nil, registry, nil, logger.NopLogger{})

	trainer.Train(context.Background(), "t1")

	st, _ := registry.Get("t1")
	if !st.Failed() {
		t.Fatalf("status = %+v, want failure", st)
	}
	if !strings.Contains(st.Result["error"].(string), "minimum 20 records") {
		t.Errorf("error = %v", st.Result["error"])
	}
	if len(artifacts.blobs) != 0 {
		t.Error("no artifact may be written on failure")
	}
}

func TestTrainSourceErrorFailsTask(t *testing.T) {
	registry := tasks.NewRegistry()
	trainer := NewTrainer(memOutcomes{err: errors.New("db closed")}, newMemArtifacts(), nil, registry, nil, logger.NopLogger{})

	trainer.Train(context.Background(), "t1")

	st, _ := registry.Get("t1")
	if !st.Failed() {
		t.Fatalf("status = %+v, want failure", st)
	}
	if !strings.HasPrefix(st.Status, "Error: ") {
		t.Errorf("status = %q", st.Status)
	}
}

func TestTrainAndEvaluateReportsMetrics(t *testing.T) {
	artifacts := newMemArtifacts()
	registry := tasks.NewRegistry()
	predictor := NewPredictor(artifacts, logger.NopLogger{})
	recorder := &captureRecorder{}
	trainer := NewTrainer(memOutcomes{rows: syntheticOutcomes(60)}, artifacts, predictor, registry, recorder, logger.NopLogger{})

	trainer.TrainAndEvaluate(context.Background(), "e1")

	st, _ := registry.Get("e1")
	if !st.Done() || st.Failed() {
		t.Fatalf("status = %+v", st)
	}
	for _, key := range []string{"accuracy", "precision", "recall", "f1_score", "threshold_used", "confusion_matrix", "records_used_for_test"} {
		if _, ok := st.Result[key]; !ok {
			t.Errorf("result missing %q", key)
		}
	}
	if st.Result["records_used_for_test"].(int) >= 60 {
		t.Errorf("test split = %v, want a held-out fraction", st.Result["records_used_for_test"])
	}

	// The terminal evaluation becomes the latest one.
	ev := registry.LatestEvaluation()
	if ev == nil || ev.TaskID != "e1" {
		t.Fatalf("latest evaluation = %+v", ev)
	}

	// The final model is refit on all data and swapped in.
	if _, err := predictor.PredictFailureProbability(100000, 100); err != nil {
		t.Errorf("predictor not serving after evaluation: %v", err)
	}

	if len(recorder.events) != 1 || recorder.events[0].Kind != "evaluate" {
		t.Errorf("events = %+v", recorder.events)
	}
}

func TestPredictorUnavailableWithoutArtifacts(t *testing.T) {
	predictor := NewPredictor(newMemArtifacts(), logger.NopLogger{})
	_, err := predictor.PredictFailureProbability(100000, 100)
	if !errors.Is(err, risk.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestPredictorReloadSwapsModel(t *testing.T) {
	artifacts := newMemArtifacts()
	predictor := NewPredictor(artifacts, logger.NopLogger{})

	trainer := NewTrainer(memOutcomes{rows: syntheticOutcomes(40)}, artifacts, nil, tasks.NewRegistry(), nil, logger.NopLogger{})
	trainer.Train(context.Background(), "t1")

	if _, err := predictor.PredictFailureProbability(100000, 100); !errors.Is(err, risk.ErrModelUnavailable) {
		t.Fatalf("predictor must not see artifacts before reload, err = %v", err)
	}
	if err := predictor.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := predictor.PredictFailureProbability(100000, 100); err != nil {
		t.Errorf("predict after reload: %v", err)
	}
}
