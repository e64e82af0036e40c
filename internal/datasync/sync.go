// Package datasync implements the synchronizer: it enumerates devices on
// the IoT platform, fetches each device's latest reading, maps it to a typed
// record, provisions the device's table when needed, and persists one row.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/StatikElektrik/microservices/internal/metrics"
	"github.com/StatikElektrik/microservices/internal/registry"
	"github.com/StatikElektrik/microservices/internal/store"
	"github.com/StatikElektrik/microservices/internal/telemetry"
	"github.com/StatikElektrik/microservices/internal/thingsboard"
)

// ---------------------------------------------------------------------------
// Collaborator interfaces (mockable in tests)
// ---------------------------------------------------------------------------

// Source is the telemetry platform boundary.
type Source interface {
	ListDevices(ctx context.Context) ([]thingsboard.Device, error)
	LatestReading(ctx context.Context, d thingsboard.Device) (telemetry.RawReading, error)
}

// Provisioner ensures a device's table exists before writes.
type Provisioner interface {
	EnsureTable(ctx context.Context, deviceName string) (registry.TableStatus, error)
}

// Writer persists one mapped reading as a row.
type Writer interface {
	InsertRow(ctx context.Context, table string, values []store.ColumnValue) error
}

// Auditor records run summaries and device sightings. Audit failures are
// logged, never fatal.
type Auditor interface {
	RecordRun(ctx context.Context, report *Report) error
	TouchDevice(ctx context.Context, d thingsboard.Device, syncedAt time.Time) error
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// Outcome classifies the result of syncing one device.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeSourceFailure       Outcome = "source_failure"
	OutcomeMappingFailure      Outcome = "mapping_failure"
	OutcomeProvisioningFailure Outcome = "provisioning_failure"
	OutcomeStatementFailure    Outcome = "statement_failure"
)

// DeviceResult is the per-device entry of a run report.
type DeviceResult struct {
	Device  thingsboard.Device
	Outcome Outcome
	Err     error
}

// Report summarizes one sync cycle: every device attempted with its outcome.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []DeviceResult
}

// Attempted returns the number of devices processed.
func (r *Report) Attempted() int { return len(r.Results) }

// Succeeded returns the number of devices whose reading was persisted.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

// Failed returns the number of devices that failed at any step.
func (r *Report) Failed() int { return r.Attempted() - r.Succeeded() }

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Runner drives the sync cycle. audit and m may be nil.
type Runner struct {
	source Source
	prov   Provisioner
	writer Writer
	audit  Auditor
	m      *metrics.Metrics
}

// NewRunner creates a Runner. audit and m are optional; pass nil to disable
// run auditing or metrics.
func NewRunner(source Source, prov Provisioner, writer Writer, audit Auditor, m *metrics.Metrics) *Runner {
	return &Runner{source: source, prov: prov, writer: writer, audit: audit, m: m}
}

// Run starts the periodic sync loop. It blocks until ctx is cancelled.
// Cycle-level failures are logged and the loop keeps going; the next tick
// retries from device enumeration.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	slog.Info("datasync loop started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("datasync loop stopped")
			return
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				slog.Error("sync cycle aborted", "error", err)
				continue
			}
			slog.Info("sync cycle finished",
				"run_id", report.RunID,
				"attempted", report.Attempted(),
				"succeeded", report.Succeeded(),
				"failed", report.Failed(),
				"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
			)
		}
	}
}

// RunOnce executes a single sync cycle. Devices are processed sequentially
// and independently: one device's bad telemetry never blocks the rest of the
// fleet. Only connection-level failures abort the cycle.
func (r *Runner) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}

	devices, err := r.source.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	slog.Debug("devices enumerated", "run_id", report.RunID, "count", len(devices))

	for _, d := range devices {
		outcome, devErr := r.syncDevice(ctx, d)
		if devErr != nil && isFatal(devErr) {
			return nil, fmt.Errorf("device %s: %w", d.Name, devErr)
		}

		report.Results = append(report.Results, DeviceResult{Device: d, Outcome: outcome, Err: devErr})

		if devErr != nil {
			slog.Warn("device sync failed",
				"run_id", report.RunID,
				"device", d.Name,
				"outcome", outcome,
				"error", devErr,
			)
			if r.m != nil {
				r.m.DeviceFailures.WithLabelValues(string(outcome)).Inc()
			}
			continue
		}
		if r.m != nil {
			r.m.DevicesSynced.Inc()
		}
	}

	report.FinishedAt = time.Now().UTC()
	if r.m != nil {
		r.m.RunsTotal.Inc()
		r.m.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}

	if r.audit != nil {
		if err := r.audit.RecordRun(ctx, report); err != nil {
			slog.Error("record sync run", "run_id", report.RunID, "error", err)
		}
	}
	return report, nil
}

// syncDevice runs fetch → map → provision → persist for one device.
func (r *Runner) syncDevice(ctx context.Context, d thingsboard.Device) (Outcome, error) {
	raw, err := r.source.LatestReading(ctx, d)
	if err != nil {
		return OutcomeSourceFailure, err
	}

	rec, err := telemetry.Map(raw)
	if err != nil {
		return OutcomeMappingFailure, err
	}

	status, err := r.prov.EnsureTable(ctx, d.Name)
	if err != nil {
		return OutcomeProvisioningFailure, err
	}
	if status == registry.TableCreated {
		slog.Info("device table provisioned", "device", d.Name, "table", registry.TableName(d.Name))
		if r.m != nil {
			r.m.TablesCreated.Inc()
		}
	}

	if err := r.writer.InsertRow(ctx, registry.TableName(d.Name), registry.RowValues(rec)); err != nil {
		return OutcomeStatementFailure, err
	}

	if r.audit != nil {
		if err := r.audit.TouchDevice(ctx, d, time.Now().UTC()); err != nil {
			slog.Error("touch device", "device", d.Name, "error", err)
		}
	}
	return OutcomeSuccess, nil
}

// isFatal reports whether the error means no further work can succeed this
// cycle: the database connection or the platform session is gone.
func isFatal(err error) bool {
	return errors.Is(err, store.ErrNotConnected) || errors.Is(err, thingsboard.ErrNotLoggedIn)
}
