package eligibility

// Fleet maintenance thresholds. These encode the operator's hard safety
// policy; the penalty values are tuned so any two blocking-adjacent rules
// saturate the score.
const (
	// MaxMileageWithoutMaint is the mileage after which a trainset is
	// considered overdue for heavy maintenance.
	MaxMileageWithoutMaint = 120000
	// CriticalMileageThreshold marks mileage where failure risk rises sharply.
	CriticalMileageThreshold = 150000
	// MaxDaysWithoutMaint is the maximum maintenance interval in days.
	MaxDaysWithoutMaint = 180

	// certExpiryWarningDays is the near-expiry window for certificates.
	certExpiryWarningDays = 7
	// defaultDaysSinceMaint is assumed when no completed work order exists.
	defaultDaysSinceMaint = 30
	// criticalPriority is the highest work-order priority that blocks service.
	criticalPriority = 2
)

// RulesRisk accumulates the deterministic risk penalties for an eligible
// asset. The returned score is clamped to [0,1]; factors are ordered by the
// rule that produced them.
func RulesRisk(mileage float64, daysSinceMaint int) (float64, []string) {
	var score float64
	var factors []string

	if mileage > CriticalMileageThreshold {
		score += 0.8
		factors = append(factors, "Critical mileage exceeded")
	} else if mileage > MaxMileageWithoutMaint {
		score += 0.5
		factors = append(factors, "High mileage")
	}

	if daysSinceMaint > MaxDaysWithoutMaint {
		score += 0.7
		factors = append(factors, "Maintenance overdue")
	} else if float64(daysSinceMaint) > MaxDaysWithoutMaint*0.8 {
		score += 0.3
		factors = append(factors, "Maintenance due soon")
	}

	// Compounding penalty, cumulative with the two rules above.
	if mileage > MaxMileageWithoutMaint && float64(daysSinceMaint) > MaxDaysWithoutMaint*0.7 {
		score += 0.4
		factors = append(factors, "High mileage + overdue maintenance")
	}

	if score > 1 {
		score = 1
	}
	return score, factors
}
