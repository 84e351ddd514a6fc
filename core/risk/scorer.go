package risk

import (
	"errors"
	"math"
	"strings"

	"github.com/railops/induction/core/logger"
	"github.com/railops/induction/core/model"
)

// Weighting of the hybrid risk blend. Rules carry more weight than the model
// because they encode auditable safety policy; the model only refines.
const (
	mlWeight    = 0.4
	rulesWeight = 0.6

	// neutralMLRisk models absence of signal as uncertainty, not safety.
	neutralMLRisk = 0.5
	// conservativeFloor is the minimum combined risk after an estimator
	// failure. A failed prediction must never lower an asset's risk.
	conservativeFloor = 0.7
)

// Scorer combines the deterministic rules risk with a learned failure
// probability into a single combined score and category.
type Scorer struct {
	estimator Estimator
	log       logger.Logger
}

// NewScorer builds a Scorer. A nil estimator is valid: every asset then gets
// the neutral default in place of a model prediction.
func NewScorer(est Estimator, log logger.Logger) *Scorer {
	return &Scorer{estimator: est, log: log}
}

// Score attaches the hybrid risk assessment to every eligible asset. Nothing
// here fails the batch: estimator errors degrade to a conservative default
// per asset.
func (s *Scorer) Score(assets []model.EligibleAsset) []model.ScoredAsset {
	scored := make([]model.ScoredAsset, 0, len(assets))
	for _, a := range assets {
		scored = append(scored, s.scoreOne(a))
	}
	return scored
}

func (s *Scorer) scoreOne(a model.EligibleAsset) model.ScoredAsset {
	mlRisk := neutralMLRisk
	var predErr error
	if s.estimator != nil {
		p, err := s.estimator.PredictFailureProbability(a.Mileage, a.DaysSinceMaint)
		switch {
		case err == nil:
			mlRisk = clamp01(p)
		case errors.Is(err, ErrModelUnavailable):
			// No model yet: neutral default, not an error condition.
		default:
			predErr = err
			s.log.Warnf("asset %s: failure prediction error: %v", a.Asset.AssetNum, err)
		}
	}

	if predErr != nil {
		combined := math.Max(conservativeFloor, a.RulesRiskScore)
		return model.ScoredAsset{
			EligibleAsset:     a,
			MLRiskScore:       neutralMLRisk,
			CombinedRiskScore: round3(combined),
			RiskCategory:      model.RiskHigh,
			RiskExplanation:   "Error in risk calculation - using conservative estimate",
		}
	}

	combined := round3(mlWeight*mlRisk + rulesWeight*a.RulesRiskScore)
	category, explanation := categorize(combined, mlRisk, a.RulesRiskScore, a.RiskFactors)

	return model.ScoredAsset{
		EligibleAsset:     a,
		MLRiskScore:       round3(mlRisk),
		CombinedRiskScore: combined,
		RiskCategory:      category,
		RiskExplanation:   explanation,
	}
}

// categorize maps the combined score onto a category, first match wins from
// worst to best, and assembles a prioritized explanation so the field is
// never blank.
func categorize(combined, mlRisk, rulesRisk float64, factors []string) (string, string) {
	var parts []string
	if rulesRisk > 0.7 {
		parts = append(parts, "High operational risk factors")
	}
	if mlRisk > 0.7 {
		parts = append(parts, "ML model indicates failure pattern")
	}
	if len(factors) > 2 {
		factors = factors[:2]
	}
	parts = append(parts, factors...)

	var category string
	switch {
	case combined >= 0.8:
		category = model.RiskCritical
		if len(parts) == 0 {
			parts = append(parts, "Multiple high-risk indicators")
		}
	case combined >= 0.6:
		category = model.RiskHigh
		if len(parts) == 0 {
			parts = append(parts, "Elevated risk indicators")
		}
	case combined >= 0.4:
		category = model.RiskModerate
		if len(parts) == 0 {
			parts = append(parts, "Some risk factors present")
		}
	default:
		category = model.RiskLow
		parts = append(parts, "Normal operational parameters")
	}

	return category, strings.Join(parts, "; ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
