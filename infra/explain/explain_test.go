package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/railops/induction/core/model"
)

func ranked(combined float64) model.RankedAsset {
	return model.RankedAsset{
		ScoredAsset: model.ScoredAsset{
			EligibleAsset: model.EligibleAsset{
				Asset:          model.Asset{AssetNum: "TS-01", Location: "STAB-A1"},
				Mileage:        120000,
				DaysSinceMaint: 90,
				RiskFactors:    []string{"High mileage"},
			},
			CombinedRiskScore: combined,
			RiskCategory:      model.RiskHigh,
			RiskExplanation:   "High mileage",
		},
	}
}

func TestFallbackRiskLevels(t *testing.T) {
	cases := []struct {
		combined float64
		level    string
	}{
		{0.9, "HIGH"},
		{0.5, "MEDIUM"},
		{0.2, "LOW"},
	}
	for _, c := range cases {
		got := Fallback(ranked(c.combined))
		if !strings.Contains(got.Summary, c.level) {
			t.Errorf("combined %v: summary = %q, want %s level", c.combined, got.Summary, c.level)
		}
		if got.RecommendedAction == "" || got.BusinessImpact == "" {
			t.Errorf("combined %v: fallback has blank sections", c.combined)
		}
	}
}

func TestParseExplanationSections(t *testing.T) {
	raw := `SUMMARY: Train TS-01 carries elevated risk.
It should be scheduled with care.
TECHNICAL_REASONING: Mileage exceeds the maintenance threshold.
BUSINESS_IMPACT: Service reliability may degrade.
RECOMMENDED_ACTION: Schedule maintenance within one week.`

	got := parseExplanation(raw)
	if !strings.HasPrefix(got.Summary, "Train TS-01 carries elevated risk.") {
		t.Errorf("summary = %q", got.Summary)
	}
	if !strings.Contains(got.Summary, "scheduled with care") {
		t.Errorf("continuation line lost: %q", got.Summary)
	}
	if got.TechnicalReasoning != "Mileage exceeds the maintenance threshold." {
		t.Errorf("reasoning = %q", got.TechnicalReasoning)
	}
	if got.RecommendedAction != "Schedule maintenance within one week." {
		t.Errorf("action = %q", got.RecommendedAction)
	}
}

func TestParseExplanationUnstructured(t *testing.T) {
	got := parseExplanation("just a blob of text with no sections")
	if got.Summary != "" || got.RecommendedAction != "" {
		t.Errorf("unstructured text must not leak into sections: %+v", got)
	}
}

func TestOllamaClientGenerates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["stream"] != false {
			t.Errorf("stream = %v, want false", req["stream"])
		}
		prompt, _ := req["prompt"].(string)
		if !strings.Contains(prompt, "TS-01") {
			t.Errorf("prompt missing asset id")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"response": "SUMMARY: Looks risky.\nTECHNICAL_REASONING: Wear.\nBUSINESS_IMPACT: Delays.\nRECOMMENDED_ACTION: Maintain.",
		})
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL, Model: "test-model", TimeoutSeconds: 5}
	out, err := NewOllamaClient(cfg).GenerateExplanation(context.Background(), ranked(0.8))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Summary != "Looks risky." || out.RecommendedAction != "Maintain." {
		t.Errorf("explanation = %+v", out)
	}
}

func TestOllamaClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL, Model: "test-model", TimeoutSeconds: 5}
	if _, err := NewOllamaClient(cfg).GenerateExplanation(context.Background(), ranked(0.8)); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
