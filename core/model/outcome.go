package model

import "time"

// HistoricalOutcome is one row of the training table: the state of an asset
// at an event together with whether a failure occurred.
type HistoricalOutcome struct {
	AssetID            int64     `json:"asset_id"`
	MileageAtEvent     float64   `json:"mileage_at_event"`
	DaysSinceLastMaint int       `json:"days_since_last_maint"`
	FailureOccurred    bool      `json:"failure_occurred"`
	EventDate          time.Time `json:"event_date"`
}
