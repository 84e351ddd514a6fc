package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/railops/induction/infra/ml"
)

// SaveArtifact upserts a model blob, implementing ml.ArtifactStore.
func (s *Store) SaveArtifact(ctx context.Context, name string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_artifacts (name, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		name, blob, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", name, err)
	}
	return nil
}

// LoadArtifact reads a model blob, returning ml.ErrArtifactNotFound when no
// fitted artifact exists by that name.
func (s *Store) LoadArtifact(ctx context.Context, name string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM model_artifacts WHERE name = ?`, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ml.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", name, err)
	}
	return blob, nil
}
