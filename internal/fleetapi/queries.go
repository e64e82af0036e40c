// Package fleetapi implements the HTTP handlers and data access for the
// read-only fleet API service.
package fleetapi

// SQL queries for the fleetapi service. Device telemetry lives in one table
// per device, so that statement is a template filled with the derived table
// name (sanitized by registry.TableName).
const (
	// queryListDevices returns the devices registry rows.
	queryListDevices = `
SELECT name, platform_id, type, first_seen, last_synced
FROM devices
ORDER BY last_synced DESC`

	// queryTableExists checks the information schema for a table name.
	queryTableExists = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`

	// queryTelemetryTmpl returns telemetry rows inside an epoch millisecond
	// window. Parameters: $1 = start, $2 = end, $3 = limit.
	queryTelemetryTmpl = `
SELECT battery_percentage, battery_timestamp, gps_latitude, gps_longitude, gps_timestamp,
       ai_normal_percentage, ai_error1_percentage, ai_error2_percentage, ai_error3_percentage, ai_timestamp
FROM %s
WHERE battery_timestamp >= $1
  AND battery_timestamp <= $2
ORDER BY battery_timestamp ASC
LIMIT $3`

	// queryRecentRuns returns the latest sync run summaries.
	queryRecentRuns = `
SELECT id, started_at, finished_at, attempted, succeeded, failed
FROM sync_runs
ORDER BY started_at DESC
LIMIT $1`
)
