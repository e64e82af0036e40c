package fleetapi

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/StatikElektrik/microservices/internal/models"
	"github.com/StatikElektrik/microservices/internal/registry"
)

// TelemetryEntry is one persisted reading from a device table.
type TelemetryEntry struct {
	BatteryPercentage  float64 `json:"battery_percentage"`
	BatteryTimestamp   int64   `json:"battery_timestamp"`
	GPSLatitude        float64 `json:"gps_latitude"`
	GPSLongitude       float64 `json:"gps_longitude"`
	GPSTimestamp       int64   `json:"gps_timestamp"`
	AINormalPercentage int     `json:"ai_normal_percentage"`
	AIError1Percentage int     `json:"ai_error1_percentage"`
	AIError2Percentage int     `json:"ai_error2_percentage"`
	AIError3Percentage int     `json:"ai_error3_percentage"`
	AITimestamp        int64   `json:"ai_timestamp"`
}

// Store provides read-only database access for the fleet API.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListDevices returns the devices registry, most recently synced first.
func (s *Store) ListDevices(ctx context.Context) ([]models.DeviceInfo, error) {
	rows, err := s.db.QueryContext(ctx, queryListDevices)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.DeviceInfo
	for rows.Next() {
		var d models.DeviceInfo
		if err := rows.Scan(&d.Name, &d.PlatformID, &d.Type, &d.FirstSeen, &d.LastSynced); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// DeviceTableExists reports whether the device's telemetry table has been
// provisioned yet.
func (s *Store) DeviceTableExists(ctx context.Context, deviceName string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, queryTableExists, registry.TableName(deviceName)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("device table exists: %w", err)
	}
	return exists, nil
}

// GetTelemetry returns rows from the device's table inside the epoch
// millisecond window [start, end], ordered by battery timestamp ascending.
// The table name is derived from the device name, never from raw input.
func (s *Store) GetTelemetry(ctx context.Context, deviceName string, start, end int64, limit int) ([]TelemetryEntry, error) {
	stmt := fmt.Sprintf(queryTelemetryTmpl, registry.TableName(deviceName))

	rows, err := s.db.QueryContext(ctx, stmt, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("get telemetry: %w", err)
	}
	defer rows.Close()

	var entries []TelemetryEntry
	for rows.Next() {
		var e TelemetryEntry
		if err := rows.Scan(
			&e.BatteryPercentage,
			&e.BatteryTimestamp,
			&e.GPSLatitude,
			&e.GPSLongitude,
			&e.GPSTimestamp,
			&e.AINormalPercentage,
			&e.AIError1Percentage,
			&e.AIError2Percentage,
			&e.AIError3Percentage,
			&e.AITimestamp,
		); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentRuns returns the most recent sync runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, queryRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Attempted, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
