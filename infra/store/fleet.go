package store

import (
	"context"
	"fmt"
	"time"

	"github.com/railops/induction/core/model"
)

const timeLayout = time.RFC3339

// Trainsets reads every trainset-type asset together with its nested
// certificates, work orders, branding campaigns and distance readings.
// Meter readings come back newest first, matching what the evaluator expects.
func (s *Store) Trainsets(ctx context.Context) ([]model.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, asset_num, description, location, total_distance_km,
		       operating_hours, status, manufacturer, model
		FROM assets WHERE asset_type = 'TRAINSET' ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	index := map[int64]int{}
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.AssetID, &a.AssetNum, &a.Description, &a.Location,
			&a.TotalDistanceKm, &a.OperatingHours, &a.Status, &a.Manufacturer, &a.Model); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		index[a.AssetID] = len(assets)
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachCertificates(ctx, assets, index); err != nil {
		return nil, err
	}
	if err := s.attachWorkOrders(ctx, assets, index); err != nil {
		return nil, err
	}
	if err := s.attachCampaigns(ctx, assets, index); err != nil {
		return nil, err
	}
	if err := s.attachMeterReadings(ctx, assets, index); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *Store) attachCertificates(ctx context.Context, assets []model.Asset, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, certificate_type, expiry_date, status FROM certificates`)
	if err != nil {
		return fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var assetID int64
		var c model.Certificate
		var expiry string
		if err := rows.Scan(&assetID, &c.CertificateType, &expiry, &c.Status); err != nil {
			return fmt.Errorf("scan certificate: %w", err)
		}
		if c.ExpiryDate, err = time.Parse(timeLayout, expiry); err != nil {
			return fmt.Errorf("certificate expiry: %w", err)
		}
		if i, ok := index[assetID]; ok {
			assets[i].Certificates = append(assets[i].Certificates, c)
		}
	}
	return rows.Err()
}

func (s *Store) attachWorkOrders(ctx context.Context, assets []model.Asset, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, status, priority, description, reported_date FROM work_orders`)
	if err != nil {
		return fmt.Errorf("query work orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var assetID int64
		var w model.WorkOrder
		var reported string
		if err := rows.Scan(&assetID, &w.Status, &w.Priority, &w.Description, &reported); err != nil {
			return fmt.Errorf("scan work order: %w", err)
		}
		if w.ReportedDate, err = time.Parse(timeLayout, reported); err != nil {
			return fmt.Errorf("work order date: %w", err)
		}
		if i, ok := index[assetID]; ok {
			assets[i].WorkOrders = append(assets[i].WorkOrders, w)
		}
	}
	return rows.Err()
}

func (s *Store) attachCampaigns(ctx context.Context, assets []model.Asset, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, advertiser, start_date, end_date, minimum_hours_required, actual_hours_served
		FROM branding_campaigns`)
	if err != nil {
		return fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var assetID int64
		var c model.BrandingCampaign
		var start, end string
		if err := rows.Scan(&assetID, &c.Advertiser, &start, &end, &c.MinimumHoursRequired, &c.ActualHoursServed); err != nil {
			return fmt.Errorf("scan campaign: %w", err)
		}
		if c.StartDate, err = time.Parse(timeLayout, start); err != nil {
			return fmt.Errorf("campaign start: %w", err)
		}
		if c.EndDate, err = time.Parse(timeLayout, end); err != nil {
			return fmt.Errorf("campaign end: %w", err)
		}
		if i, ok := index[assetID]; ok {
			assets[i].Campaigns = append(assets[i].Campaigns, c)
		}
	}
	return rows.Err()
}

func (s *Store) attachMeterReadings(ctx context.Context, assets []model.Asset, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, meter_type, reading_value, reading_date
		FROM meter_readings WHERE meter_type = ? ORDER BY reading_date DESC`, model.MeterDistanceKm)
	if err != nil {
		return fmt.Errorf("query meter readings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var assetID int64
		var r model.MeterReading
		var date string
		if err := rows.Scan(&assetID, &r.MeterType, &r.ReadingValue, &date); err != nil {
			return fmt.Errorf("scan meter reading: %w", err)
		}
		if r.ReadingDate, err = time.Parse(timeLayout, date); err != nil {
			return fmt.Errorf("meter reading date: %w", err)
		}
		if i, ok := index[assetID]; ok {
			assets[i].MeterReadings = append(assets[i].MeterReadings, r)
		}
	}
	return rows.Err()
}

// InsertAsset writes an asset and its nested records, returning the
// generated id. Used by fixtures and ingest tooling. Timestamps are stored
// as UTC RFC3339 text so that lexical ORDER BY stays chronological.
func (s *Store) InsertAsset(ctx context.Context, a model.Asset) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (asset_num, asset_type, description, location, total_distance_km,
		                    operating_hours, status, manufacturer, model)
		VALUES (?, 'TRAINSET', ?, ?, ?, ?, ?, ?, ?)`,
		a.AssetNum, a.Description, a.Location, a.TotalDistanceKm,
		a.OperatingHours, a.Status, a.Manufacturer, a.Model)
	if err != nil {
		return 0, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, c := range a.Certificates {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO certificates (asset_id, certificate_type, expiry_date, status)
			VALUES (?, ?, ?, ?)`,
			id, c.CertificateType, c.ExpiryDate.UTC().Format(timeLayout), c.Status); err != nil {
			return 0, fmt.Errorf("insert certificate: %w", err)
		}
	}
	for _, w := range a.WorkOrders {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO work_orders (asset_id, status, priority, description, reported_date)
			VALUES (?, ?, ?, ?, ?)`,
			id, w.Status, w.Priority, w.Description, w.ReportedDate.UTC().Format(timeLayout)); err != nil {
			return 0, fmt.Errorf("insert work order: %w", err)
		}
	}
	for _, c := range a.Campaigns {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO branding_campaigns (asset_id, advertiser, start_date, end_date,
			                                minimum_hours_required, actual_hours_served)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, c.Advertiser, c.StartDate.UTC().Format(timeLayout), c.EndDate.UTC().Format(timeLayout),
			c.MinimumHoursRequired, c.ActualHoursServed); err != nil {
			return 0, fmt.Errorf("insert campaign: %w", err)
		}
	}
	for _, r := range a.MeterReadings {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO meter_readings (asset_id, meter_type, reading_value, reading_date)
			VALUES (?, ?, ?, ?)`,
			id, r.MeterType, r.ReadingValue, r.ReadingDate.UTC().Format(timeLayout)); err != nil {
			return 0, fmt.Errorf("insert meter reading: %w", err)
		}
	}
	return id, nil
}

// RecordMeterReading appends a distance reading for the asset identified by
// its asset number. Telemetry feeds call this on every sample.
func (s *Store) RecordMeterReading(ctx context.Context, assetNum string, valueKm float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO meter_readings (asset_id, meter_type, reading_value, reading_date)
		SELECT asset_id, ?, ?, ? FROM assets WHERE asset_num = ?`,
		model.MeterDistanceKm, valueKm, at.UTC().Format(timeLayout), assetNum)
	if err != nil {
		return fmt.Errorf("record meter reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("unknown asset %q", assetNum)
	}
	return err
}
