package store

import (
	"context"
	"fmt"
	"time"

	"github.com/railops/induction/core/model"
)

// HistoricalOutcomes reads the full training table, implementing
// ml.OutcomeSource.
func (s *Store) HistoricalOutcomes(ctx context.Context) ([]model.HistoricalOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, mileage_at_event, days_since_last_maint, failure_occurred, event_date
		FROM historical_outcomes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []model.HistoricalOutcome
	for rows.Next() {
		var o model.HistoricalOutcome
		var failed int
		var date string
		if err := rows.Scan(&o.AssetID, &o.MileageAtEvent, &o.DaysSinceLastMaint, &failed, &date); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.FailureOccurred = failed != 0
		if o.EventDate, err = time.Parse(timeLayout, date); err != nil {
			return nil, fmt.Errorf("outcome date: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertOutcome appends one historical outcome row.
func (s *Store) InsertOutcome(ctx context.Context, o model.HistoricalOutcome) error {
	failed := 0
	if o.FailureOccurred {
		failed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO historical_outcomes (asset_id, mileage_at_event, days_since_last_maint, failure_occurred, event_date)
		VALUES (?, ?, ?, ?, ?)`,
		o.AssetID, o.MileageAtEvent, o.DaysSinceLastMaint, failed, o.EventDate.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}
