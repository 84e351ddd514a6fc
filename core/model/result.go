package model

// Risk categories assigned by the hybrid scorer, ordered from worst to best.
const (
	RiskCritical = "Critical"
	RiskHigh     = "High"
	RiskModerate = "Moderate"
	RiskLow      = "Low"
)

// Ineligibility categories.
const (
	CategoryCriticalIssues = "Critical Issues"
	CategorySystemError    = "System Error"
)

// CampaignStatus summarises the primary active branding campaign for an
// asset. The zero value means no campaign is active today.
type CampaignStatus struct {
	Active        bool    `json:"active"`
	Advertiser    string  `json:"advertiser"`
	RequiredHours float64 `json:"required_hours"`
	AchievedHours float64 `json:"achieved_hours"`
	HoursDeficit  float64 `json:"hours_deficit"`
}

// EligibleAsset is an asset that passed the hard safety rules, enriched with
// the rule-derived risk inputs needed by the scorer and optimizer.
type EligibleAsset struct {
	Asset          Asset          `json:"asset"`
	Mileage        float64        `json:"current_mileage"`
	DaysSinceMaint int            `json:"days_since_maint"`
	RulesRiskScore float64        `json:"rules_risk_score"`
	RiskFactors    []string       `json:"risk_factors"`
	Warnings       []string       `json:"warnings"`
	OpenWorkOrders int            `json:"open_work_orders"`
	Campaign       CampaignStatus `json:"campaign"`
}

// IneligibleAsset is an asset blocked from service by a hard rule. It only
// carries the reason and a coarse category; no scores are computed for it.
type IneligibleAsset struct {
	AssetNum  string  `json:"asset_num"`
	AssetID   int64   `json:"asset_id"`
	Reason    string  `json:"reason"`
	RiskScore float64 `json:"risk_score"`
	Category  string  `json:"category"`
}

// ScoredAsset is an eligible asset with the hybrid risk assessment attached.
type ScoredAsset struct {
	EligibleAsset
	MLRiskScore       float64 `json:"ml_risk_score"`
	CombinedRiskScore float64 `json:"combined_risk_score"`
	RiskCategory      string  `json:"risk_category"`
	RiskExplanation   string  `json:"risk_explanation"`
}

// ObjectiveScores holds the per-objective and composite scores computed by
// the optimizer, rounded to three decimals.
type ObjectiveScores struct {
	Reliability float64 `json:"reliability"`
	Risk        float64 `json:"risk"`
	Branding    float64 `json:"branding"`
	Efficiency  float64 `json:"efficiency"`
	Composite   float64 `json:"composite"`
}

// RankedAsset is a scored asset with its optimizer verdict.
type RankedAsset struct {
	ScoredAsset
	Scores              ObjectiveScores `json:"scores"`
	DecisionExplanation string          `json:"decision_explanation"`
}
