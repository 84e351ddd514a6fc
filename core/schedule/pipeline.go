package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/railops/induction/core/eligibility"
	"github.com/railops/induction/core/logger"
	"github.com/railops/induction/core/metrics"
	"github.com/railops/induction/core/model"
	"github.com/railops/induction/core/optimizer"
	"github.com/railops/induction/core/risk"
)

// FleetSource provides the trainsets to schedule.
type FleetSource interface {
	Trainsets(ctx context.Context) ([]model.Asset, error)
}

// Pipeline chains the three decision stages over the fleet: eligibility
// rules, hybrid risk scoring and multi-objective optimization.
type Pipeline struct {
	fleet     FleetSource
	evaluator *eligibility.Evaluator
	scorer    *risk.Scorer
	optimizer *optimizer.Optimizer
	sink      metrics.Sink
	log       logger.Logger
}

// NewPipeline assembles the pipeline. A nil sink disables event recording.
func NewPipeline(fleet FleetSource, est risk.Estimator, sink metrics.Sink, log logger.Logger) *Pipeline {
	return &Pipeline{
		fleet:     fleet,
		evaluator: eligibility.New(log),
		scorer:    risk.NewScorer(est, log),
		optimizer: optimizer.New(log),
		sink:      sink,
		log:       log,
	}
}

// Generate produces the induction plan for the requested service count.
func (p *Pipeline) Generate(ctx context.Context, numForService int) (model.Schedule, error) {
	start := time.Now()
	assets, err := p.fleet.Trainsets(ctx)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("load fleet: %w", err)
	}
	p.log.Infof("generating schedule for %d assets, %d requested for service", len(assets), numForService)

	eligible, ineligible := p.evaluator.Evaluate(assets)
	scored := p.scorer.Score(eligible)
	plan := p.optimizer.BuildSchedule(scored, ineligible, numForService)

	if p.sink != nil {
		ev := metrics.ScheduleEvent{
			RequestedForService: numForService,
			ServiceCount:        len(plan.Service),
			StandbyCount:        len(plan.Standby),
			MaintenanceCount:    len(plan.Maintenance),
			EligibleCount:       len(eligible),
			IneligibleCount:     len(ineligible),
			Duration:            time.Since(start),
			Time:                time.Now(),
		}
		if err := p.sink.RecordSchedule(ev); err != nil {
			p.log.Warnf("record schedule event: %v", err)
		}
	}
	return plan, nil
}

// ErrAssetNotFound reports an explain request for an unknown asset.
type ErrAssetNotFound struct{ AssetNum string }

func (e ErrAssetNotFound) Error() string {
	return fmt.Sprintf("asset %s not found", e.AssetNum)
}

// Assessment is the single-asset view produced for explanation requests. At
// most one of Ranked and Ineligible is set.
type Assessment struct {
	Ranked     *model.RankedAsset
	Ineligible *model.IneligibleAsset
}

// Assess runs the full pipeline and extracts one asset's verdict, keeping the
// relative scores consistent with a whole-fleet schedule.
func (p *Pipeline) Assess(ctx context.Context, assetNum string) (Assessment, error) {
	assets, err := p.fleet.Trainsets(ctx)
	if err != nil {
		return Assessment{}, fmt.Errorf("load fleet: %w", err)
	}
	eligible, ineligible := p.evaluator.Evaluate(assets)
	for i := range ineligible {
		if ineligible[i].AssetNum == assetNum {
			return Assessment{Ineligible: &ineligible[i]}, nil
		}
	}
	ranked := p.optimizer.RankAll(p.scorer.Score(eligible))
	for i := range ranked {
		if ranked[i].Asset.AssetNum == assetNum {
			return Assessment{Ranked: &ranked[i]}, nil
		}
	}
	return Assessment{}, ErrAssetNotFound{AssetNum: assetNum}
}
