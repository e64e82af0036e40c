package fleetapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/StatikElektrik/microservices/internal/models"
)

// Handler exposes the fleet API HTTP endpoints.
type Handler struct {
	store      *Store
	queryLimit int
}

// NewHandler creates a Handler backed by the given Store. queryLimit caps
// the number of telemetry rows returned per request.
func NewHandler(store *Store, queryLimit int) *Handler {
	return &Handler{store: store, queryLimit: queryLimit}
}

// ---------------------------------------------------------------------------
// Response types
// ---------------------------------------------------------------------------

// DevicesResponse is the response for GET /api/v1/devices.
type DevicesResponse struct {
	Devices []models.DeviceInfo `json:"devices"`
}

// TelemetryResponse is the response for GET /api/v1/devices/{name}/telemetry.
type TelemetryResponse struct {
	Device  string           `json:"device"`
	Entries []TelemetryEntry `json:"entries"`
}

// RunsResponse is the response for GET /api/v1/runs.
type RunsResponse struct {
	Runs []models.SyncRun `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---------------------------------------------------------------------------
// GET /api/v1/devices
// ---------------------------------------------------------------------------

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		slog.Error("list devices", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []models.DeviceInfo{}
	}
	writeJSON(w, http.StatusOK, DevicesResponse{Devices: devices})
}

// ---------------------------------------------------------------------------
// GET /api/v1/devices/{name}/telemetry
// ---------------------------------------------------------------------------

func (h *Handler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeErr(w, http.StatusBadRequest, "device name is required")
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := h.store.DeviceTableExists(r.Context(), name)
	if err != nil {
		slog.Error("device table lookup", "device", name, "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to fetch telemetry")
		return
	}
	if !exists {
		writeErr(w, http.StatusNotFound, "unknown device")
		return
	}

	entries, err := h.store.GetTelemetry(r.Context(), name, start, end, h.queryLimit)
	if err != nil {
		slog.Error("get telemetry", "device", name, "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to fetch telemetry")
		return
	}
	if entries == nil {
		entries = []TelemetryEntry{}
	}

	writeJSON(w, http.StatusOK, TelemetryResponse{Device: name, Entries: entries})
}

// parseWindow reads the optional start_ts / end_ts query params as epoch
// milliseconds. Defaults cover all time.
func parseWindow(r *http.Request) (start, end int64, err error) {
	start, end = 0, math.MaxInt64

	if v := r.URL.Query().Get("start_ts"); v != "" {
		start, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid start_ts")
		}
	}
	if v := r.URL.Query().Get("end_ts"); v != "" {
		end, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid end_ts")
		}
	}
	if start > end {
		return 0, 0, fmt.Errorf("start_ts is after end_ts")
	}
	return start, end, nil
}

// ---------------------------------------------------------------------------
// GET /api/v1/runs
// ---------------------------------------------------------------------------

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 100)
	}

	runs, err := h.store.RecentRuns(r.Context(), limit)
	if err != nil {
		slog.Error("list runs", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []models.SyncRun{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
