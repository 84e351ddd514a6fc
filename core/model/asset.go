package model

import "time"

// Work order statuses tracked by the maintenance system. Orders in a closed
// status count toward the maintenance interval, the others are open items.
const (
	WorkOrderApproved   = "APPROVED"
	WorkOrderInProgress = "INPRG"
	WorkOrderCompleted  = "COMP"
	WorkOrderClosed     = "CLOSE"
)

// MeterDistanceKm is the meter type carrying odometer readings.
const MeterDistanceKm = "DISTANCE_KM"

// Certificate is a fitness or compliance certificate attached to a trainset.
type Certificate struct {
	CertificateType string    `json:"certificate_type"`
	ExpiryDate      time.Time `json:"expiry_date"`
	Status          string    `json:"status"`
}

// WorkOrder is a maintenance work order. Priority 1 is the highest; a zero
// priority means the order was filed without one.
type WorkOrder struct {
	Status       string    `json:"status"`
	Priority     int       `json:"priority"`
	Description  string    `json:"description"`
	ReportedDate time.Time `json:"reported_date"`
}

// Closed reports whether the order is in a terminal status.
func (w WorkOrder) Closed() bool {
	return w.Status == WorkOrderCompleted || w.Status == WorkOrderClosed
}

// BrandingCampaign is an advertising wrap contract with a minimum exposure
// commitment over its active window.
type BrandingCampaign struct {
	Advertiser           string    `json:"advertiser"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	MinimumHoursRequired float64   `json:"minimum_hours_required"`
	ActualHoursServed    float64   `json:"actual_hours_served"`
}

// ActiveOn reports whether the campaign window contains the given day. The
// day bounds come from the calendar date in the caller's zone, so a campaign
// starting today is active from local midnight on.
func (c BrandingCampaign) ActiveOn(day time.Time) bool {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return !c.StartDate.After(end) && !c.EndDate.Before(start)
}

// HoursDeficit is the shortfall against the contracted minimum.
func (c BrandingCampaign) HoursDeficit() float64 {
	d := c.MinimumHoursRequired - c.ActualHoursServed
	if d < 0 {
		return 0
	}
	return d
}

// MeterReading is a single meter sample. Readings are expected newest first.
type MeterReading struct {
	MeterType    string    `json:"meter_type"`
	ReadingValue float64   `json:"reading_value"`
	ReadingDate  time.Time `json:"reading_date"`
}

// Asset is a trainset as read from the fleet store, with its nested records.
// It is immutable through the decision pipeline: each stage produces a new
// typed result instead of mutating the asset.
type Asset struct {
	AssetNum        string             `json:"asset_num"`
	AssetID         int64              `json:"asset_id"`
	Description     string             `json:"description"`
	Location        string             `json:"location"`
	TotalDistanceKm float64            `json:"total_distance_km"`
	OperatingHours  float64            `json:"operating_hours"`
	Status          string             `json:"status"`
	Manufacturer    string             `json:"manufacturer"`
	Model           string             `json:"model"`
	Certificates    []Certificate      `json:"certificates"`
	WorkOrders      []WorkOrder        `json:"work_orders"`
	Campaigns       []BrandingCampaign `json:"branding_campaigns"`
	MeterReadings   []MeterReading     `json:"meter_readings"`
}

// CurrentMileage returns the most recent distance reading, falling back to
// the stored odometer total when no reading exists.
func (a Asset) CurrentMileage() float64 {
	for _, r := range a.MeterReadings {
		if r.MeterType == MeterDistanceKm {
			return r.ReadingValue
		}
	}
	return a.TotalDistanceKm
}
