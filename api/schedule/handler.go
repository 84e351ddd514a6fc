package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/railops/induction/core/model"
	coreschedule "github.com/railops/induction/core/schedule"
	"github.com/railops/induction/core/tasks"
	"github.com/railops/induction/infra/explain"
	"github.com/railops/induction/infra/logger"
	"github.com/railops/induction/infra/ml"
)

// Handler exposes the induction decision engine over HTTP.
type Handler struct {
	pipeline          *coreschedule.Pipeline
	trainer           *ml.Trainer
	registry          *tasks.Registry
	explainer         explain.Generator
	explainTimeout    time.Duration
	defaultTrainCount int
	log               logger.Logger
}

// Options configures optional handler behaviour.
type Options struct {
	// Explainer generates narrative explanations; nil means fallback only.
	Explainer explain.Generator
	// ExplainTimeout bounds one explainer call.
	ExplainTimeout time.Duration
	// DefaultTrainCount is used when generate-schedule omits
	// num_trains_for_service.
	DefaultTrainCount int
}

// New wires the API handler.
func New(pipeline *coreschedule.Pipeline, trainer *ml.Trainer, registry *tasks.Registry, opts Options, log logger.Logger) *Handler {
	if opts.ExplainTimeout <= 0 {
		opts.ExplainTimeout = 10 * time.Second
	}
	if opts.DefaultTrainCount <= 0 {
		opts.DefaultTrainCount = 5
	}
	return &Handler{
		pipeline:          pipeline,
		trainer:           trainer,
		registry:          registry,
		explainer:         opts.Explainer,
		explainTimeout:    opts.ExplainTimeout,
		defaultTrainCount: opts.DefaultTrainCount,
		log:               log,
	}
}

// Routes builds the chi router for the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generate-schedule", h.generateSchedule)
		r.Post("/train-model", h.trainModel)
		r.Post("/evaluate-model", h.evaluateModel)
		r.Get("/model-status/{taskID}", h.modelStatus)
		r.Get("/model-evaluation/latest", h.latestEvaluation)
		r.Get("/model-evaluation/all", h.allEvaluations)
		r.Get("/explain/{assetNum}", h.explainAsset)
	})
	return r
}

type scheduleRequest struct {
	// Pointer so an omitted field (default applies) is distinguishable from
	// an explicit invalid value (rejected).
	NumTrainsForService *int `json:"num_trains_for_service"`
}

func (h *Handler) generateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	numTrains := h.defaultTrainCount
	if req.NumTrainsForService != nil {
		if *req.NumTrainsForService <= 0 {
			writeError(w, http.StatusBadRequest, "num_trains_for_service must be a positive integer")
			return
		}
		numTrains = *req.NumTrainsForService
	}

	plan, err := h.pipeline.Generate(r.Context(), numTrains)
	if err != nil {
		h.log.Errorf("generate schedule: %v", err)
		writeError(w, http.StatusInternalServerError, "schedule generation failed")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) trainModel(w http.ResponseWriter, r *http.Request) {
	taskID := uuid.NewString()
	h.registry.Update(taskID, "Queued", 0, nil)
	go h.trainer.Train(context.Background(), taskID)
	writeJSON(w, http.StatusOK, map[string]string{
		"task_id": taskID,
		"message": "Model training started",
	})
}

func (h *Handler) evaluateModel(w http.ResponseWriter, r *http.Request) {
	taskID := uuid.NewString()
	h.registry.Update(taskID, "Queued", 0, nil)
	go h.trainer.TrainAndEvaluate(context.Background(), taskID)
	writeJSON(w, http.StatusOK, map[string]string{
		"task_id": taskID,
		"message": "Model evaluation started",
	})
}

func (h *Handler) modelStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	st, ok := h.registry.Get(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) latestEvaluation(w http.ResponseWriter, r *http.Request) {
	ev := h.registry.LatestEvaluation()
	if ev == nil {
		writeError(w, http.StatusNotFound, "no evaluation available")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handler) allEvaluations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"latest_evaluation": h.registry.LatestEvaluation(),
		"completed_tasks":   h.registry.Completed(),
	})
}

// explainResponse carries the asset verdict plus the narrative enrichment.
type explainResponse struct {
	AssetNum    string              `json:"asset_num"`
	Eligible    bool                `json:"eligible"`
	Reason      string              `json:"reason,omitempty"`
	Category    string              `json:"category,omitempty"`
	RiskScore   float64             `json:"risk_score"`
	Explanation explain.Explanation `json:"explanation"`
}

func (h *Handler) explainAsset(w http.ResponseWriter, r *http.Request) {
	assetNum := chi.URLParam(r, "assetNum")
	assessment, err := h.pipeline.Assess(r.Context(), assetNum)
	if err != nil {
		var notFound coreschedule.ErrAssetNotFound
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "asset not found")
			return
		}
		h.log.Errorf("assess %s: %v", assetNum, err)
		writeError(w, http.StatusInternalServerError, "assessment failed")
		return
	}

	if assessment.Ineligible != nil {
		in := assessment.Ineligible
		writeJSON(w, http.StatusOK, explainResponse{
			AssetNum:  in.AssetNum,
			Eligible:  false,
			Reason:    in.Reason,
			Category:  in.Category,
			RiskScore: in.RiskScore,
			Explanation: explain.Explanation{
				Summary:            "Train is blocked from revenue service by safety and compliance rules.",
				TechnicalReasoning: in.Reason,
				BusinessImpact:     "Train must remain out of service until the blocking issues are resolved.",
				RecommendedAction:  "Resolve the listed issues and re-run the eligibility assessment.",
			},
		})
		return
	}

	ranked := *assessment.Ranked
	writeJSON(w, http.StatusOK, explainResponse{
		AssetNum:    ranked.Asset.AssetNum,
		Eligible:    true,
		RiskScore:   ranked.CombinedRiskScore,
		Category:    ranked.RiskCategory,
		Explanation: h.explanation(r.Context(), ranked),
	})
}

// explanation tries the configured generator and degrades to the
// deterministic fallback, enrichment is never a failure mode.
func (h *Handler) explanation(ctx context.Context, ranked model.RankedAsset) explain.Explanation {
	if h.explainer == nil {
		return explain.Fallback(ranked)
	}
	ctx, cancel := context.WithTimeout(ctx, h.explainTimeout)
	defer cancel()
	out, err := h.explainer.GenerateExplanation(ctx, ranked)
	if err != nil {
		h.log.Warnf("explanation for %s: %v", ranked.Asset.AssetNum, err)
		return explain.Fallback(ranked)
	}
	return out
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
