// Package registry provisions one telemetry table per device and owns the
// fixed column layout those tables share. The layout is the durable contract
// downstream queries depend on and never changes after creation.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/StatikElektrik/microservices/internal/store"
	"github.com/StatikElektrik/microservices/internal/telemetry"
)

// TableStatus is the result of an EnsureTable call.
type TableStatus int

const (
	// TableCreated means the table did not exist and was created.
	TableCreated TableStatus = iota
	// TableAlreadyExists means the table was already provisioned.
	TableAlreadyExists
)

func (s TableStatus) String() string {
	switch s {
	case TableCreated:
		return "created"
	case TableAlreadyExists:
		return "already_exists"
	default:
		return fmt.Sprintf("TableStatus(%d)", int(s))
	}
}

// ProvisioningError reports a rejected table creation, e.g. a naming
// collision with an incompatible pre-existing object or missing privileges.
type ProvisioningError struct {
	Table string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("registry: provision %s: %v", e.Table, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Gateway is the subset of the persistence gateway the registry needs.
type Gateway interface {
	TableExists(ctx context.Context, name string) (bool, error)
	CreateTable(ctx context.Context, name string, columns []store.Column) error
}

// Registry ensures per-device tables exist before rows are written.
type Registry struct {
	gw Gateway
}

// New creates a Registry backed by the given gateway.
func New(gw Gateway) *Registry {
	return &Registry{gw: gw}
}

// TableName derives the storage table name from a device name,
// deterministically: lowercase, any character outside [a-z0-9_] replaced
// with an underscore, prefixed with "device_".
func TableName(deviceName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(deviceName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return "device_" + b.String()
}

// DeviceColumns returns the fixed per-device column layout, in creation
// order. Changing this set is a breaking schema change.
func DeviceColumns() []store.Column {
	return []store.Column{
		{Name: "battery_percentage", Type: "FLOAT"},
		{Name: "battery_timestamp", Type: "BIGINT"},
		{Name: "gps_latitude", Type: "FLOAT"},
		{Name: "gps_longitude", Type: "FLOAT"},
		{Name: "gps_timestamp", Type: "BIGINT"},
		{Name: "ai_normal_percentage", Type: "INT"},
		{Name: "ai_error1_percentage", Type: "INT"},
		{Name: "ai_error2_percentage", Type: "INT"},
		{Name: "ai_error3_percentage", Type: "INT"},
		{Name: "ai_timestamp", Type: "BIGINT"},
	}
}

// RowValues maps a telemetry record onto the persisted column subset, in
// the same order as DeviceColumns.
func RowValues(rec telemetry.Record) []store.ColumnValue {
	return []store.ColumnValue{
		{Name: "battery_percentage", Value: rec.BatteryPercentage},
		{Name: "battery_timestamp", Value: rec.BatteryTimestamp},
		{Name: "gps_latitude", Value: rec.GPSLatitude},
		{Name: "gps_longitude", Value: rec.GPSLongitude},
		{Name: "gps_timestamp", Value: rec.GPSTimestamp},
		{Name: "ai_normal_percentage", Value: rec.AINormalPercentage},
		{Name: "ai_error1_percentage", Value: rec.AIError1Percentage},
		{Name: "ai_error2_percentage", Value: rec.AIError2Percentage},
		{Name: "ai_error3_percentage", Value: rec.AIError3Percentage},
		{Name: "ai_timestamp", Value: rec.AITimestamp},
	}
}

// EnsureTable makes sure the device's table exists. It is idempotent:
// calling it again for the same device returns TableAlreadyExists and
// leaves the table untouched. Connection-level failures pass through
// unwrapped so callers can treat them as fatal.
func (r *Registry) EnsureTable(ctx context.Context, deviceName string) (TableStatus, error) {
	table := TableName(deviceName)

	exists, err := r.gw.TableExists(ctx, table)
	if err != nil {
		return 0, &ProvisioningError{Table: table, Err: err}
	}
	if exists {
		return TableAlreadyExists, nil
	}

	if err := r.gw.CreateTable(ctx, table, DeviceColumns()); err != nil {
		return 0, &ProvisioningError{Table: table, Err: err}
	}
	return TableCreated, nil
}
