package datasync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/StatikElektrik/microservices/internal/thingsboard"
)

// AuditStore persists run summaries and the devices registry. Both tables
// are created by migrations, not by the schema registry.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore wraps an existing *sql.DB connection pool.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// RecordRun inserts one sync_runs row for the finished cycle.
func (s *AuditStore) RecordRun(ctx context.Context, report *Report) error {
	_, err := s.db.ExecContext(ctx, queryInsertRun,
		report.RunID,
		report.StartedAt,
		report.FinishedAt,
		report.Attempted(),
		report.Succeeded(),
		report.Failed(),
	)
	if err != nil {
		return fmt.Errorf("insert sync run %s: %w", report.RunID, err)
	}
	return nil
}

// TouchDevice upserts the device into the registry, stamping last_synced.
// first_seen is only set on the initial insert.
func (s *AuditStore) TouchDevice(ctx context.Context, d thingsboard.Device, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, queryUpsertDevice, d.Name, d.ID, d.Type, syncedAt)
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", d.Name, err)
	}
	return nil
}
