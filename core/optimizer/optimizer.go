package optimizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/railops/induction/core/logger"
	"github.com/railops/induction/core/model"
)

// Objective weights. They must sum to 1.0: the relative priority of safety
// versus commercial objectives is operator policy, not a tuning knob.
const (
	WeightReliability = 0.35
	WeightRisk        = 0.25
	WeightBranding    = 0.20
	WeightEfficiency  = 0.20
)

// Branding SLA buffer in hours. Deficits inside one buffer are low risk,
// inside two are medium, beyond that the contract is in jeopardy.
const brandingSLABufferHours = 48

const optimizationMethod = "Multi-Objective Weighted Scoring"

// Optimizer ranks scored assets along the four weighted objectives and
// partitions them into service, standby and maintenance lists.
type Optimizer struct {
	log logger.Logger
}

// New returns an Optimizer.
func New(log logger.Logger) *Optimizer {
	return &Optimizer{log: log}
}

// BuildSchedule produces the induction plan. The ranking sort is stable so
// identical composite scores keep their input order and the plan is
// deterministic for identical input.
func (o *Optimizer) BuildSchedule(scored []model.ScoredAsset, ineligible []model.IneligibleAsset, numForService int) model.Schedule {
	maintenance := maintenanceList(ineligible)

	if len(scored) == 0 {
		o.log.Warnf("no eligible assets available for optimization")
		return model.Schedule{
			Service:     []model.ScheduleEntry{},
			Standby:     []model.ScheduleEntry{},
			Maintenance: maintenance,
			Summary: model.OptimizationSummary{
				TotalEvaluated:   0,
				MaintenanceCount: len(maintenance),
				Method:           "N/A - No eligible assets",
				DecisionCriteria: []string{"Safety and compliance rules only"},
			},
		}
	}

	stats := fleetStatistics(scored)
	o.log.Infof("optimizing %d eligible assets, %d requested for service", stats.TotalAssets, numForService)

	ranked := o.RankAll(scored)

	if numForService > len(ranked) {
		numForService = len(ranked)
	}
	if numForService < 0 {
		numForService = 0
	}

	service := make([]model.ScheduleEntry, 0, numForService)
	for _, a := range ranked[:numForService] {
		service = append(service, scheduleEntry(a, "Selected for service", true))
	}
	standby := make([]model.ScheduleEntry, 0, len(ranked)-numForService)
	for _, a := range ranked[numForService:] {
		standby = append(standby, scheduleEntry(a, "Standby", false))
	}

	return model.Schedule{
		Service:     service,
		Standby:     standby,
		Maintenance: maintenance,
		Summary: model.OptimizationSummary{
			TotalEvaluated:     len(ranked),
			SelectedForService: len(service),
			StandbyCount:       len(standby),
			MaintenanceCount:   len(maintenance),
			Method:             optimizationMethod,
			Weights: map[string]float64{
				"reliability": WeightReliability,
				"risk":        WeightRisk,
				"branding":    WeightBranding,
				"efficiency":  WeightEfficiency,
			},
			FleetStatistics: &stats,
			DecisionCriteria: []string{
				"Service readiness and reliability",
				"Risk mitigation and safety",
				"Branding SLA compliance",
				"Operational efficiency and cost",
			},
		},
	}
}

// RankAll scores every asset against the fleet and returns them ordered by
// descending composite score. Used by BuildSchedule and by single-asset
// reporting, which needs the full relative ranking without the partition.
func (o *Optimizer) RankAll(scored []model.ScoredAsset) []model.RankedAsset {
	if len(scored) == 0 {
		return nil
	}
	stats := fleetStatistics(scored)
	ranked := make([]model.RankedAsset, 0, len(scored))
	for _, a := range scored {
		ranked = append(ranked, o.rank(a, stats))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Composite > ranked[j].Scores.Composite
	})
	return ranked
}

// rank computes the per-objective scores and the weighted composite for one
// asset, with the per-objective reasoning joined into a decision explanation.
func (o *Optimizer) rank(a model.ScoredAsset, stats model.FleetStatistics) model.RankedAsset {
	reliability, reliabilityReason := reliabilityScore(a)
	riskObjective := 1 - a.CombinedRiskScore
	branding, brandingReason := brandingScore(a.Campaign)
	efficiency, efficiencyReason := efficiencyScore(a, stats)

	composite := WeightReliability*reliability +
		WeightRisk*riskObjective +
		WeightBranding*branding +
		WeightEfficiency*efficiency

	parts := []string{
		"Reliability: " + reliabilityReason,
		"Risk: " + riskText(a),
	}
	if branding > 0.1 {
		parts = append(parts, "Branding: "+brandingReason)
	}
	parts = append(parts, "Efficiency: "+efficiencyReason)

	return model.RankedAsset{
		ScoredAsset: a,
		Scores: model.ObjectiveScores{
			Reliability: round3(reliability),
			Risk:        round3(riskObjective),
			Branding:    round3(branding),
			Efficiency:  round3(efficiency),
			Composite:   round3(composite),
		},
		DecisionExplanation: strings.Join(parts, " | "),
	}
}

// reliabilityScore degrades with the maintenance interval and mileage and is
// penalized by open warnings and work orders. Bounded to [0,1]; the penalty
// can otherwise push below zero and the factor blend stays below one by
// construction, but the clamp keeps the composite invariant explicit.
func reliabilityScore(a model.ScoredAsset) (float64, string) {
	timeFactor := math.Max(0, 1-float64(a.DaysSinceMaint)/365)
	mileageFactor := math.Max(0, 1-a.Mileage/200000)
	base := 0.6*timeFactor + 0.4*mileageFactor

	penalty := 0.1*float64(len(a.Warnings)) + 0.15*float64(a.OpenWorkOrders)
	score := base - penalty
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	switch {
	case score > 0.8:
		return score, "Excellent operational condition"
	case score > 0.6:
		return score, "Good condition with minor considerations"
	case score > 0.4:
		return score, "Acceptable with some maintenance needs"
	default:
		return score, "Requires attention before service"
	}
}

// brandingScore is a coarse step function over the SLA deficit, deliberately
// not continuous so marginal branding gains never outrank safety objectives.
func brandingScore(c model.CampaignStatus) (float64, string) {
	if !c.Active {
		return 0, "No active branding requirements"
	}
	deficit := c.HoursDeficit
	switch {
	case deficit <= brandingSLABufferHours:
		return 0.2, "On track with branding requirements"
	case deficit <= 2*brandingSLABufferHours:
		return 0.6, fmt.Sprintf("Important: %.0fh deficit approaching SLA limit", deficit)
	default:
		return 1.0, fmt.Sprintf("Critical: %.0fh needed to avoid SLA breach", deficit)
	}
}

// SLARisk labels the branding deficit for reporting.
func SLARisk(c model.CampaignStatus) string {
	if !c.Active {
		return "None"
	}
	switch {
	case c.HoursDeficit <= brandingSLABufferHours:
		return "Low"
	case c.HoursDeficit <= 2*brandingSLABufferHours:
		return "Medium"
	default:
		return "High"
	}
}

// efficiencyScore blends fleet mileage balancing with the shunting cost of
// the asset's stabling position.
func efficiencyScore(a model.ScoredAsset, stats model.FleetStatistics) (float64, string) {
	balance := 0.5
	if stats.MaxMileage > 0 {
		balance = 1 - a.Mileage/stats.MaxMileage
	}
	shunting := 1 - float64(ShuntingCost(a.Asset.Location))/maxShuntingCost
	score := 0.7*balance + 0.3*shunting

	var reasons []string
	if balance > 0.7 {
		reasons = append(reasons, "lower mileage helps fleet balancing")
	}
	if shunting > 0.7 {
		reasons = append(reasons, "minimal shunting required")
	}
	if len(reasons) == 0 {
		return score, "standard efficiency"
	}
	return score, strings.Join(reasons, "; ")
}

func riskText(a model.ScoredAsset) string {
	if a.RiskExplanation == "" {
		return "Standard assessment"
	}
	return a.RiskExplanation
}

func scheduleEntry(a model.RankedAsset, verdict string, breakdown bool) model.ScheduleEntry {
	e := model.ScheduleEntry{
		AssetNum:       a.Asset.AssetNum,
		Reason:         verdict + " - " + a.DecisionExplanation,
		RiskScore:      a.CombinedRiskScore,
		RiskCategory:   a.RiskCategory,
		CompositeScore: a.Scores.Composite,
	}
	if breakdown {
		scores := a.Scores
		e.ScoresBreakdown = &scores
	}
	return e
}

// maintenanceList passes ineligible assets through tagged by priority.
func maintenanceList(ineligible []model.IneligibleAsset) []model.MaintenanceEntry {
	out := make([]model.MaintenanceEntry, 0, len(ineligible))
	for _, a := range ineligible {
		priority := "Medium"
		if a.RiskScore > 0.8 {
			priority = "High"
		}
		reason := a.Reason
		if reason == "" {
			reason = "Ineligible"
		}
		out = append(out, model.MaintenanceEntry{
			AssetNum:  a.AssetNum,
			Reason:    reason,
			RiskScore: a.RiskScore,
			Category:  a.Category,
			Priority:  priority,
		})
	}
	return out
}

// fleetStatistics aggregates mileage figures used for relative scoring.
func fleetStatistics(scored []model.ScoredAsset) model.FleetStatistics {
	mileages := make([]float64, len(scored))
	maxMileage := 0.0
	for i, a := range scored {
		mileages[i] = a.Mileage
		if a.Mileage > maxMileage {
			maxMileage = a.Mileage
		}
	}
	return model.FleetStatistics{
		MaxMileage:  maxMileage,
		AvgMileage:  round3(stat.Mean(mileages, nil)),
		TotalAssets: len(scored),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
