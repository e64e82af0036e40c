package datasync

// SQL queries for the datasync service.
const (
	// queryInsertRun records a completed sync cycle.
	queryInsertRun = `
INSERT INTO sync_runs (id, started_at, finished_at, attempted, succeeded, failed)
VALUES ($1, $2, $3, $4, $5, $6)`

	// queryUpsertDevice registers a device sighting. first_seen sticks to
	// the original insert; everything else follows the latest sync.
	queryUpsertDevice = `
INSERT INTO devices (name, platform_id, type, first_seen, last_synced)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (name) DO UPDATE
SET platform_id = EXCLUDED.platform_id,
    type        = EXCLUDED.type,
    last_synced = EXCLUDED.last_synced`
)
