package model

// ScheduleEntry is one asset in the service or standby list of a plan.
type ScheduleEntry struct {
	AssetNum        string           `json:"asset_num"`
	Reason          string           `json:"reason"`
	RiskScore       float64          `json:"risk_score"`
	RiskCategory    string           `json:"risk_category"`
	CompositeScore  float64          `json:"composite_score"`
	ScoresBreakdown *ObjectiveScores `json:"scores_breakdown,omitempty"`
}

// MaintenanceEntry is an ineligible asset routed to maintenance.
type MaintenanceEntry struct {
	AssetNum  string  `json:"asset_num"`
	Reason    string  `json:"reason"`
	RiskScore float64 `json:"risk_score"`
	Category  string  `json:"category"`
	Priority  string  `json:"priority"`
}

// FleetStatistics are aggregate figures over the eligible fleet, used for
// relative scoring and reported in the optimization summary.
type FleetStatistics struct {
	MaxMileage  float64 `json:"max_mileage"`
	AvgMileage  float64 `json:"avg_mileage"`
	TotalAssets int     `json:"total_assets"`
}

// OptimizationSummary describes how a schedule was produced.
type OptimizationSummary struct {
	TotalEvaluated     int                `json:"total_evaluated"`
	SelectedForService int                `json:"selected_for_service"`
	StandbyCount       int                `json:"standby_count"`
	MaintenanceCount   int                `json:"maintenance_required"`
	Method             string             `json:"optimization_method"`
	Weights            map[string]float64 `json:"weights_used,omitempty"`
	FleetStatistics    *FleetStatistics   `json:"fleet_statistics,omitempty"`
	DecisionCriteria   []string           `json:"decision_criteria"`
}

// Schedule is the final induction plan: three disjoint lists whose union is
// the full evaluated fleet.
type Schedule struct {
	Service     []ScheduleEntry     `json:"service"`
	Standby     []ScheduleEntry     `json:"standby"`
	Maintenance []MaintenanceEntry  `json:"maintenance"`
	Summary     OptimizationSummary `json:"optimization_summary"`
}
