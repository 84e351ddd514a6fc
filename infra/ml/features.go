package ml

// Feature derivation shared by training and inference. Both sides must build
// feature vectors through this function: a model fitted on one derivation is
// meaningless under another.

// FeatureCount is the width of the derived feature vector.
const FeatureCount = 6

// Features derives the model inputs from an asset's raw mileage and
// maintenance interval: the raw values, their ratio, both squares and the
// interaction term.
func Features(mileageKm float64, daysSinceMaint int) []float64 {
	days := float64(daysSinceMaint)
	return []float64{
		mileageKm,
		days,
		mileageKm / (days + 1),
		mileageKm * mileageKm,
		days * days,
		mileageKm * days,
	}
}
