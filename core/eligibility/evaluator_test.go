package eligibility

import (
	"strings"
	"testing"
	"time"

	"github.com/railops/induction/core/model"
	"github.com/railops/induction/infra/logger"
)

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func newTestEvaluator() *Evaluator {
	return NewWithClock(logger.NopLogger{}, func() time.Time { return testNow })
}

func healthyAsset(num string) model.Asset {
	return model.Asset{
		AssetNum:        num,
		AssetID:         1,
		TotalDistanceKm: 50000,
		Certificates: []model.Certificate{
			{CertificateType: "Fitness", ExpiryDate: testNow.AddDate(0, 6, 0)},
		},
		WorkOrders: []model.WorkOrder{
			{Status: model.WorkOrderClosed, ReportedDate: testNow.AddDate(0, 0, -10)},
		},
	}
}

func TestEvaluatePartition(t *testing.T) {
	assets := []model.Asset{
		healthyAsset("TS-01"),
		{
			AssetNum: "TS-02",
			Certificates: []model.Certificate{
				{CertificateType: "Fitness", ExpiryDate: testNow.AddDate(0, 0, -1)},
			},
		},
	}
	eligible, ineligible := newTestEvaluator().Evaluate(assets)
	if len(eligible)+len(ineligible) != len(assets) {
		t.Fatalf("partition sizes %d+%d != %d", len(eligible), len(ineligible), len(assets))
	}
	seen := map[string]bool{}
	for _, a := range eligible {
		seen[a.Asset.AssetNum] = true
	}
	for _, a := range ineligible {
		if seen[a.AssetNum] {
			t.Errorf("asset %s in both partitions", a.AssetNum)
		}
	}
}

func TestExpiredCertificateBlocks(t *testing.T) {
	a := healthyAsset("TS-10")
	a.Certificates = []model.Certificate{
		{CertificateType: "Safety", ExpiryDate: testNow.AddDate(0, 0, -3)},
	}
	eligible, ineligible := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(eligible) != 0 || len(ineligible) != 1 {
		t.Fatalf("want 1 ineligible, got %d eligible %d ineligible", len(eligible), len(ineligible))
	}
	in := ineligible[0]
	if in.Reason != "Expired Safety Certificate" {
		t.Errorf("reason = %q", in.Reason)
	}
	if in.RiskScore != 1.0 || in.Category != model.CategoryCriticalIssues {
		t.Errorf("score/category = %v/%q", in.RiskScore, in.Category)
	}
}

func TestCertificateNearExpiryWarns(t *testing.T) {
	a := healthyAsset("TS-11")
	a.Certificates = []model.Certificate{
		{CertificateType: "Fitness", ExpiryDate: testNow.AddDate(0, 0, 5)},
	}
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(eligible) != 1 {
		t.Fatalf("want eligible, got %d", len(eligible))
	}
	if len(eligible[0].Warnings) != 1 || !strings.Contains(eligible[0].Warnings[0], "expires in 5 days") {
		t.Errorf("warnings = %v", eligible[0].Warnings)
	}
}

func TestCriticalWorkOrderBlocks(t *testing.T) {
	a := healthyAsset("TS-12")
	a.WorkOrders = []model.WorkOrder{
		{Status: model.WorkOrderInProgress, Priority: 1, Description: "Brake overhaul"},
	}
	_, ineligible := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(ineligible) != 1 {
		t.Fatalf("want 1 ineligible, got %d", len(ineligible))
	}
	if ineligible[0].Reason != "Critical Work Order (In Progress): Brake overhaul" {
		t.Errorf("reason = %q", ineligible[0].Reason)
	}
}

func TestCriticalWorkOrderWithoutDescription(t *testing.T) {
	a := healthyAsset("TS-13")
	a.WorkOrders = []model.WorkOrder{
		{Status: model.WorkOrderApproved, Priority: 2},
	}
	_, ineligible := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(ineligible) != 1 {
		t.Fatalf("want 1 ineligible, got %d", len(ineligible))
	}
	if ineligible[0].Reason != "Critical Work Order (Approved): Maintenance Required" {
		t.Errorf("reason = %q", ineligible[0].Reason)
	}
}

func TestMultipleBlockingReasonsJoined(t *testing.T) {
	a := healthyAsset("TS-14")
	a.Certificates = []model.Certificate{
		{CertificateType: "Safety", ExpiryDate: testNow.AddDate(0, 0, -1)},
	}
	a.WorkOrders = []model.WorkOrder{
		{Status: model.WorkOrderApproved, Priority: 1, Description: "Axle check"},
	}
	_, ineligible := newTestEvaluator().Evaluate([]model.Asset{a})
	want := "Expired Safety Certificate; Critical Work Order (Approved): Axle check"
	if ineligible[0].Reason != want {
		t.Errorf("reason = %q, want %q", ineligible[0].Reason, want)
	}
}

func TestLowPriorityOrderCountsAsOpen(t *testing.T) {
	a := healthyAsset("TS-15")
	a.WorkOrders = append(a.WorkOrders, model.WorkOrder{
		Status: model.WorkOrderApproved, Priority: 4, Description: "Interior cleaning",
	})
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(eligible) != 1 {
		t.Fatalf("want eligible, got %d", len(eligible))
	}
	if eligible[0].OpenWorkOrders != 1 {
		t.Errorf("open work orders = %d, want 1", eligible[0].OpenWorkOrders)
	}
}

func TestDaysSinceMaintenanceDefault(t *testing.T) {
	a := healthyAsset("TS-16")
	a.WorkOrders = nil
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	if eligible[0].DaysSinceMaint != 30 {
		t.Errorf("days since maintenance = %d, want default 30", eligible[0].DaysSinceMaint)
	}
}

func TestDaysSinceMaintenanceFromLatestClosedOrder(t *testing.T) {
	a := healthyAsset("TS-17")
	a.WorkOrders = []model.WorkOrder{
		{Status: model.WorkOrderClosed, ReportedDate: testNow.AddDate(0, 0, -90)},
		{Status: model.WorkOrderCompleted, ReportedDate: testNow.AddDate(0, 0, -40)},
	}
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	if eligible[0].DaysSinceMaint != 40 {
		t.Errorf("days since maintenance = %d, want 40", eligible[0].DaysSinceMaint)
	}
}

func TestRiskInputsForWornAsset(t *testing.T) {
	a := healthyAsset("TS-18")
	a.MeterReadings = []model.MeterReading{
		{MeterType: model.MeterDistanceKm, ReadingValue: 160000, ReadingDate: testNow.AddDate(0, 0, -1)},
	}
	a.WorkOrders = []model.WorkOrder{
		{Status: model.WorkOrderClosed, ReportedDate: testNow.AddDate(0, 0, -200)},
	}
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(eligible) != 1 {
		t.Fatalf("want eligible, got %d", len(eligible))
	}
	got := eligible[0]
	if got.Mileage != 160000 || got.DaysSinceMaint != 200 {
		t.Fatalf("inputs = %v km, %v days", got.Mileage, got.DaysSinceMaint)
	}
	if got.RulesRiskScore != 1.0 {
		t.Errorf("rules risk = %v, want 1.0", got.RulesRiskScore)
	}
	if len(got.RiskFactors) != 3 {
		t.Errorf("risk factors = %v", got.RiskFactors)
	}
}

func TestPrimaryCampaignSelection(t *testing.T) {
	a := healthyAsset("TS-19")
	a.Campaigns = []model.BrandingCampaign{
		{
			Advertiser: "Expired Co",
			StartDate:  testNow.AddDate(0, -6, 0), EndDate: testNow.AddDate(0, -3, 0),
			MinimumHoursRequired: 100, ActualHoursServed: 10,
		},
		{
			Advertiser: "Active Co",
			StartDate:  testNow.AddDate(0, -1, 0), EndDate: testNow.AddDate(0, 1, 0),
			MinimumHoursRequired: 500, ActualHoursServed: 300,
		},
	}
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	c := eligible[0].Campaign
	if !c.Active || c.Advertiser != "Active Co" {
		t.Fatalf("campaign = %+v", c)
	}
	if c.HoursDeficit != 200 {
		t.Errorf("deficit = %v, want 200", c.HoursDeficit)
	}
}

func TestZeroExpiryCertificateIgnored(t *testing.T) {
	a := healthyAsset("TS-20")
	a.Certificates = []model.Certificate{{CertificateType: "Fitness"}}
	eligible, _ := newTestEvaluator().Evaluate([]model.Asset{a})
	if len(eligible) != 1 {
		t.Fatalf("want eligible, got %d eligible", len(eligible))
	}
	if len(eligible[0].Warnings) != 0 {
		t.Errorf("warnings = %v", eligible[0].Warnings)
	}
}
