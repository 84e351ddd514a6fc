package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/railops/induction/core/logger"
	"github.com/railops/induction/core/model"
)

// Evaluator applies the hard safety and compliance rules to the fleet,
// partitioning it into eligible and ineligible sets. The two sets are always
// disjoint and their union equals the input.
type Evaluator struct {
	log logger.Logger
	now func() time.Time
}

// New returns an Evaluator using the wall clock.
func New(log logger.Logger) *Evaluator {
	return NewWithClock(log, time.Now)
}

// NewWithClock allows tests to pin "today".
func NewWithClock(log logger.Logger, now func() time.Time) *Evaluator {
	return &Evaluator{log: log, now: now}
}

// Evaluate runs the rule checks over every asset. An asset whose evaluation
// fails unexpectedly is routed to the ineligible set with a System Error
// category rather than aborting the batch: an asset whose data could not be
// assessed is never silently admitted.
func (e *Evaluator) Evaluate(assets []model.Asset) ([]model.EligibleAsset, []model.IneligibleAsset) {
	eligible := make([]model.EligibleAsset, 0, len(assets))
	ineligible := make([]model.IneligibleAsset, 0)

	for _, asset := range assets {
		el, block, err := e.evaluateAsset(asset)
		switch {
		case err != nil:
			e.log.Errorf("asset %s: evaluation failed: %v", asset.AssetNum, err)
			ineligible = append(ineligible, model.IneligibleAsset{
				AssetNum:  asset.AssetNum,
				AssetID:   asset.AssetID,
				Reason:    "Processing Error - Requires Manual Review",
				RiskScore: 1.0,
				Category:  model.CategorySystemError,
			})
		case block != nil:
			ineligible = append(ineligible, *block)
		default:
			eligible = append(eligible, el)
		}
	}

	e.log.Infof("eligibility assessment complete: %d eligible, %d ineligible", len(eligible), len(ineligible))
	return eligible, ineligible
}

// evaluateAsset applies the blocking rules first and short-circuits on any
// hit; the rules risk assessment only runs for assets that may serve.
func (e *Evaluator) evaluateAsset(asset model.Asset) (el model.EligibleAsset, block *model.IneligibleAsset, err error) {
	defer func() {
		if r := recover(); r != nil {
			el, block = model.EligibleAsset{}, nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	today := e.now()
	var reasons, warnings []string

	for _, cert := range asset.Certificates {
		if cert.ExpiryDate.IsZero() {
			continue
		}
		days := daysUntil(today, cert.ExpiryDate)
		switch {
		case days < 0:
			reasons = append(reasons, fmt.Sprintf("Expired %s Certificate", cert.CertificateType))
		case days <= certExpiryWarningDays:
			warnings = append(warnings, fmt.Sprintf("%s expires in %d days", cert.CertificateType, days))
		}
	}

	openOrders := 0
	for _, wo := range asset.WorkOrders {
		if wo.Closed() {
			continue
		}
		if (wo.Status == model.WorkOrderApproved || wo.Status == model.WorkOrderInProgress) &&
			wo.Priority > 0 && wo.Priority <= criticalPriority {
			desc := wo.Description
			if desc == "" {
				desc = "Maintenance Required"
			}
			state := "Approved"
			if wo.Status == model.WorkOrderInProgress {
				state = "In Progress"
			}
			reasons = append(reasons, fmt.Sprintf("Critical Work Order (%s): %s", state, desc))
			continue
		}
		openOrders++
	}

	if len(reasons) > 0 {
		return model.EligibleAsset{}, &model.IneligibleAsset{
			AssetNum:  asset.AssetNum,
			AssetID:   asset.AssetID,
			Reason:    strings.Join(reasons, "; "),
			RiskScore: 1.0,
			Category:  model.CategoryCriticalIssues,
		}, nil
	}

	mileage := asset.CurrentMileage()
	days := e.daysSinceMaintenance(asset, today)
	score, factors := RulesRisk(mileage, days)

	return model.EligibleAsset{
		Asset:          asset,
		Mileage:        mileage,
		DaysSinceMaint: days,
		RulesRiskScore: score,
		RiskFactors:    factors,
		Warnings:       warnings,
		OpenWorkOrders: openOrders,
		Campaign:       e.primaryCampaign(asset, today),
	}, nil, nil
}

// daysSinceMaintenance derives the maintenance interval from the most recent
// completed work order. Fleets without any maintenance history get a fixed
// conservative default rather than zero.
func (e *Evaluator) daysSinceMaintenance(asset model.Asset, today time.Time) int {
	var latest time.Time
	for _, wo := range asset.WorkOrders {
		if wo.Closed() && wo.ReportedDate.After(latest) {
			latest = wo.ReportedDate
		}
	}
	if latest.IsZero() {
		return defaultDaysSinceMaint
	}
	days := int(today.Sub(latest).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// primaryCampaign picks the first campaign whose window contains today.
func (e *Evaluator) primaryCampaign(asset model.Asset, today time.Time) model.CampaignStatus {
	for _, c := range asset.Campaigns {
		if !c.ActiveOn(today) {
			continue
		}
		return model.CampaignStatus{
			Active:        true,
			Advertiser:    c.Advertiser,
			RequiredHours: c.MinimumHoursRequired,
			AchievedHours: c.ActualHoursServed,
			HoursDeficit:  c.HoursDeficit(),
		}
	}
	return model.CampaignStatus{}
}

// daysUntil counts whole calendar days from a to b, negative when b is past.
func daysUntil(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
