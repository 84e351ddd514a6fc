package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railops/induction/core/model"
	coreschedule "github.com/railops/induction/core/schedule"
	"github.com/railops/induction/core/tasks"
	"github.com/railops/induction/infra/logger"
	"github.com/railops/induction/infra/ml"
)

type fakeFleet struct {
	assets []model.Asset
	err    error
}

func (f fakeFleet) Trainsets(context.Context) ([]model.Asset, error) {
	return f.assets, f.err
}

type fakeOutcomes struct{ rows []model.HistoricalOutcome }

func (f fakeOutcomes) HistoricalOutcomes(context.Context) ([]model.HistoricalOutcome, error) {
	return f.rows, nil
}

type fakeArtifacts struct{ blobs map[string][]byte }

func (f *fakeArtifacts) SaveArtifact(_ context.Context, name string, blob []byte) error {
	f.blobs[name] = blob
	return nil
}

func (f *fakeArtifacts) LoadArtifact(_ context.Context, name string) ([]byte, error) {
	blob, ok := f.blobs[name]
	if !ok {
		return nil, ml.ErrArtifactNotFound
	}
	return blob, nil
}

func testFleet() []model.Asset {
	future := time.Now().AddDate(1, 0, 0)
	return []model.Asset{
		{
			AssetNum: "TS-01", TotalDistanceKm: 30000,
			Certificates: []model.Certificate{{CertificateType: "Fitness", ExpiryDate: future}},
		},
		{
			AssetNum: "TS-02", TotalDistanceKm: 90000,
			Certificates: []model.Certificate{{CertificateType: "Fitness", ExpiryDate: future}},
		},
		{
			AssetNum: "TS-03",
			Certificates: []model.Certificate{
				{CertificateType: "Fitness", ExpiryDate: time.Now().AddDate(0, 0, -2)},
			},
		},
	}
}

func newTestHandler(t *testing.T, fleet coreschedule.FleetSource) (*Handler, *tasks.Registry) {
	t.Helper()
	registry := tasks.NewRegistry()
	pipeline := coreschedule.NewPipeline(fleet, nil, nil, logger.NopLogger{})
	trainer := ml.NewTrainer(fakeOutcomes{}, &fakeArtifacts{blobs: map[string][]byte{}}, nil, registry, nil, logger.NopLogger{})
	h := New(pipeline, trainer, registry, Options{DefaultTrainCount: 5}, logger.NopLogger{})
	return h, registry
}

func doRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestGenerateSchedule(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodPost, "/api/v1/generate-schedule", `{"num_trains_for_service": 1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var plan model.Schedule
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The requested count wins over the handler default of 5.
	if len(plan.Service) != 1 || len(plan.Standby) != 1 || len(plan.Maintenance) != 1 {
		t.Errorf("partition = %d/%d/%d", len(plan.Service), len(plan.Standby), len(plan.Maintenance))
	}
	if plan.Summary.Method == "" {
		t.Error("summary missing optimization method")
	}
}

func TestGenerateScheduleRejectsNonPositiveCount(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	for _, body := range []string{
		`{"num_trains_for_service": 0}`,
		`{"num_trains_for_service": -3}`,
	} {
		rec := doRequest(h, http.MethodPost, "/api/v1/generate-schedule", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "positive integer") {
			t.Errorf("body %s: error = %s", body, rec.Body.String())
		}
	}
}

func TestGenerateScheduleDefaultsCount(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodPost, "/api/v1/generate-schedule", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var plan model.Schedule
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Default of 5 capped to the two eligible assets.
	if len(plan.Service) != 2 || len(plan.Standby) != 0 {
		t.Errorf("partition = %d/%d", len(plan.Service), len(plan.Standby))
	}
}

func TestGenerateScheduleBadBody(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodPost, "/api/v1/generate-schedule", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGenerateSchedulePipelineError(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{err: errors.New("db gone")})
	rec := doRequest(h, http.MethodPost, "/api/v1/generate-schedule", `{"num_trains_for_service": 2}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db gone") {
		t.Error("internal error details leaked to the client")
	}
}

func TestTrainModelEndpoint(t *testing.T) {
	h, registry := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodPost, "/api/v1/train-model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["task_id"] == "" || resp["message"] != "Model training started" {
		t.Fatalf("response = %v", resp)
	}

	// The empty outcome source fails the precondition quickly; the task must
	// reach a terminal state with an error payload.
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, ok := registry.Get(resp["task_id"])
		if ok && st.Done() {
			if !st.Failed() {
				t.Fatalf("status = %+v, want failure on empty dataset", st)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("task never reached a terminal state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestModelStatusEndpoint(t *testing.T) {
	h, registry := newTestHandler(t, fakeFleet{assets: testFleet()})

	rec := doRequest(h, http.MethodGet, "/api/v1/model-status/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	registry.Update("t1", "Training model...", 60, nil)
	rec = doRequest(h, http.MethodGet, "/api/v1/model-status/t1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st tasks.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Progress != 60 || st.Status != "Training model..." {
		t.Errorf("status = %+v", st)
	}
}

func TestEvaluationEndpoints(t *testing.T) {
	h, registry := newTestHandler(t, fakeFleet{assets: testFleet()})

	rec := doRequest(h, http.MethodGet, "/api/v1/model-evaluation/latest", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any evaluation", rec.Code)
	}

	registry.Update("e1", "Completed", 100, map[string]any{"accuracy": 0.9, "f1_score": 0.85})

	rec = doRequest(h, http.MethodGet, "/api/v1/model-evaluation/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var ev tasks.Evaluation
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.TaskID != "e1" || ev.Metrics["accuracy"] != 0.9 {
		t.Errorf("evaluation = %+v", ev)
	}

	rec = doRequest(h, http.MethodGet, "/api/v1/model-evaluation/all", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var all struct {
		Latest    *tasks.Evaluation       `json:"latest_evaluation"`
		Completed map[string]tasks.Status `json:"completed_tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if all.Latest == nil || len(all.Completed) != 1 {
		t.Errorf("all = %+v", all)
	}
}

func TestExplainEligibleAssetFallback(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodGet, "/api/v1/explain/TS-02", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp explainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Eligible || resp.AssetNum != "TS-02" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(resp.Explanation.Summary, "maintenance risk") {
		t.Errorf("summary = %q", resp.Explanation.Summary)
	}
}

func TestExplainIneligibleAsset(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodGet, "/api/v1/explain/TS-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp explainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Eligible {
		t.Fatal("TS-03 must be ineligible")
	}
	if resp.Reason != "Expired Fitness Certificate" {
		t.Errorf("reason = %q", resp.Reason)
	}
	if resp.Explanation.TechnicalReasoning != "Expired Fitness Certificate" {
		t.Errorf("reasoning = %q", resp.Explanation.TechnicalReasoning)
	}
}

func TestExplainUnknownAsset(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodGet, "/api/v1/explain/TS-99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t, fakeFleet{assets: testFleet()})
	rec := doRequest(h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
