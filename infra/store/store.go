package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/railops/induction/infra/logger"
)

// Config defines the SQLite store location.
type Config struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "induction.db"
	}
}

// Store wraps the SQLite database holding the fleet, the historical-outcomes
// training table and the model artifact blobs.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens the SQLite database with foreign keys on and ensures the
// schema exists.
func Open(cfg Config, log logger.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	asset_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_num         TEXT NOT NULL UNIQUE,
	asset_type        TEXT NOT NULL DEFAULT 'TRAINSET',
	description       TEXT NOT NULL DEFAULT '',
	location          TEXT NOT NULL DEFAULT '',
	total_distance_km REAL NOT NULL DEFAULT 0,
	operating_hours   REAL NOT NULL DEFAULT 0,
	status            TEXT NOT NULL DEFAULT 'OPERATING',
	manufacturer      TEXT NOT NULL DEFAULT '',
	model             TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS certificates (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id         INTEGER NOT NULL REFERENCES assets(asset_id) ON DELETE CASCADE,
	certificate_type TEXT NOT NULL,
	expiry_date      TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'ACTIVE'
);

CREATE TABLE IF NOT EXISTS work_orders (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id      INTEGER NOT NULL REFERENCES assets(asset_id) ON DELETE CASCADE,
	status        TEXT NOT NULL,
	priority      INTEGER NOT NULL DEFAULT 0,
	description   TEXT NOT NULL DEFAULT '',
	reported_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS branding_campaigns (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id               INTEGER NOT NULL REFERENCES assets(asset_id) ON DELETE CASCADE,
	advertiser             TEXT NOT NULL DEFAULT '',
	start_date             TEXT NOT NULL,
	end_date               TEXT NOT NULL,
	minimum_hours_required REAL NOT NULL DEFAULT 0,
	actual_hours_served    REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS meter_readings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id      INTEGER NOT NULL REFERENCES assets(asset_id) ON DELETE CASCADE,
	meter_type    TEXT NOT NULL,
	reading_value REAL NOT NULL,
	reading_date  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meter_readings_asset ON meter_readings(asset_id, meter_type, reading_date DESC);

CREATE TABLE IF NOT EXISTS historical_outcomes (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id              INTEGER NOT NULL,
	mileage_at_event      REAL NOT NULL,
	days_since_last_maint INTEGER NOT NULL,
	failure_occurred      INTEGER NOT NULL,
	event_date            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_artifacts (
	name       TEXT PRIMARY KEY,
	blob       BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`
