package risk

import "errors"

// ErrModelUnavailable is returned by estimators that have no fitted model to
// serve predictions from.
var ErrModelUnavailable = errors.New("failure model unavailable")

// Estimator provides a learned failure probability for an asset. The scorer
// treats it as a black box; concrete implementations live under infra/ml.
//
// Implementations must be safe for concurrent use: predictions are served on
// the request path while retraining may swap the underlying model.
type Estimator interface {
	// PredictFailureProbability returns a probability in [0,1] that the asset
	// fails in service given its current mileage and days since maintenance.
	PredictFailureProbability(mileageKm float64, daysSinceMaint int) (float64, error)
}
