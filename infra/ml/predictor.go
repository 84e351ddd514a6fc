package ml

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"github.com/railops/induction/core/risk"
	"github.com/railops/induction/infra/logger"
)

// Artifact names in the model store. Two blobs, fitted together: applying a
// model with a scaler from a different run invalidates predictions.
const (
	ModelArtifact  = "risk_model"
	ScalerArtifact = "feature_scaler"
)

// ErrArtifactNotFound is returned by stores when no blob exists by a name.
var ErrArtifactNotFound = errors.New("model artifact not found")

// ArtifactStore persists and retrieves fitted model blobs.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, name string, blob []byte) error
	LoadArtifact(ctx context.Context, name string) ([]byte, error)
}

// Predictor serves failure probabilities from the fitted model. It owns the
// model artifact explicitly: readers proceed on the current version while
// Reload swaps in a newly trained one, so in-flight predictions never
// observe a partially loaded model.
type Predictor struct {
	mu     sync.RWMutex
	model  *LogisticModel
	scaler *Scaler
	store  ArtifactStore
	log    logger.Logger
}

// NewPredictor creates a Predictor and attempts an initial load. A missing
// artifact is not an error: the predictor reports unavailability until a
// training run produces one.
func NewPredictor(store ArtifactStore, log logger.Logger) *Predictor {
	p := &Predictor{store: store, log: log}
	if err := p.Reload(context.Background()); err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			log.Infof("no fitted model yet, predictions unavailable until first training")
		} else {
			log.Warnf("model load failed: %v", err)
		}
	}
	return p
}

// Reload reads the model and scaler blobs and swaps them in atomically.
func (p *Predictor) Reload(ctx context.Context) error {
	modelBlob, err := p.store.LoadArtifact(ctx, ModelArtifact)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	scalerBlob, err := p.store.LoadArtifact(ctx, ScalerArtifact)
	if err != nil {
		return fmt.Errorf("load scaler: %w", err)
	}

	var m LogisticModel
	if err := gob.NewDecoder(bytes.NewReader(modelBlob)).Decode(&m); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	var s Scaler
	if err := gob.NewDecoder(bytes.NewReader(scalerBlob)).Decode(&s); err != nil {
		return fmt.Errorf("decode scaler: %w", err)
	}

	p.mu.Lock()
	p.model, p.scaler = &m, &s
	p.mu.Unlock()
	p.log.Infof("fitted model loaded")
	return nil
}

// PredictFailureProbability implements risk.Estimator.
func (p *Predictor) PredictFailureProbability(mileageKm float64, daysSinceMaint int) (float64, error) {
	p.mu.RLock()
	m, s := p.model, p.scaler
	p.mu.RUnlock()
	if m == nil || s == nil {
		return 0, risk.ErrModelUnavailable
	}
	return m.PredictProba(s.TransformRow(Features(mileageKm, daysSinceMaint))), nil
}

func encodeArtifact(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
