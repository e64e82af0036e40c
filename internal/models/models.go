// Package models contains shared domain structs used across services.
package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthResponse is returned by /healthz and /readyz endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// SyncRun is one completed synchronizer cycle. Written by datasync,
// read back by fleetapi.
type SyncRun struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

// DeviceInfo is a row of the devices registry table.
type DeviceInfo struct {
	Name       string    `json:"name"`
	PlatformID string    `json:"platform_id"`
	Type       string    `json:"type"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSynced time.Time `json:"last_synced"`
}
