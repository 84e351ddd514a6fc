package explain

import (
	"context"
	"fmt"

	"github.com/railops/induction/core/model"
)

// Explanation is the enrichment payload attached to a scored asset. The
// generator and its deterministic fallback produce the same shape.
type Explanation struct {
	Summary            string `json:"summary"`
	TechnicalReasoning string `json:"technical_reasoning"`
	BusinessImpact     string `json:"business_impact"`
	RecommendedAction  string `json:"recommended_action"`
}

// Generator produces a narrative explanation for one ranked asset.
type Generator interface {
	GenerateExplanation(ctx context.Context, a model.RankedAsset) (Explanation, error)
}

// Fallback assembles a deterministic explanation from the asset's own risk
// assessment. It is used whenever the generator is unavailable or times out,
// so enrichment is never fatal.
func Fallback(a model.RankedAsset) Explanation {
	level := "LOW"
	switch {
	case a.CombinedRiskScore > 0.7:
		level = "HIGH"
	case a.CombinedRiskScore > 0.4:
		level = "MEDIUM"
	}
	return Explanation{
		Summary:            "Train shows " + level + " maintenance risk based on operational data analysis.",
		TechnicalReasoning: fmt.Sprintf("Risk assessment based on %d identified factors including mileage and maintenance history.", len(a.RiskFactors)),
		BusinessImpact:     "Maintenance scheduling recommended to ensure service reliability and passenger safety.",
		RecommendedAction:  "Schedule preventive maintenance during next available service window.",
	}
}
