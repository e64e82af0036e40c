package thingsboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/StatikElektrik/microservices/internal/config"
	"github.com/StatikElektrik/microservices/internal/httpx"
	"github.com/StatikElektrik/microservices/internal/thingsboard"
)

func testConfig(baseURL string) config.ThingsBoard {
	return config.ThingsBoard{
		BaseURL:    baseURL,
		Username:   "tenant@example.com",
		Password:   "secret",
		DeviceType: "DieselMotor",
		PageSize:   2,
		Timeout:    5 * time.Second,
	}
}

func newClient(t *testing.T, ts *httptest.Server) *thingsboard.Client {
	t.Helper()
	return thingsboard.NewClient(httpx.NewClient(5*time.Second, 0), testConfig(ts.URL))
}

// loginOK handles /api/auth/login for test servers.
func loginOK(t *testing.T, w http.ResponseWriter, r *http.Request) bool {
	t.Helper()
	if r.URL.Path != "/api/auth/login" {
		return false
	}
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if req["username"] != "tenant@example.com" || req["password"] != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return true
	}
	json.NewEncoder(w).Encode(map[string]string{"token": "test-token", "refreshToken": "rt"})
	return true
}

func TestLogin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !loginOK(t, w, r) {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := newClient(t, ts)
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := newClient(t, ts)
	if err := c.Login(context.Background()); err == nil {
		t.Fatal("expected login failure")
	}
}

func TestListDevices_PagingAndTypeFilter(t *testing.T) {
	pages := []map[string]any{
		{
			"data": []map[string]any{
				{"id": map[string]string{"entityType": "DEVICE", "id": "id-1"}, "name": "engine-1", "type": "DieselMotor"},
				{"id": map[string]string{"entityType": "DEVICE", "id": "id-2"}, "name": "thermostat", "type": "Thermostat"},
			},
			"totalPages": 2, "totalElements": 3, "hasNext": true,
		},
		{
			"data": []map[string]any{
				{"id": map[string]string{"entityType": "DEVICE", "id": "id-3"}, "name": "engine-2", "type": "DieselMotor"},
			},
			"totalPages": 2, "totalElements": 3, "hasNext": false,
		},
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if loginOK(t, w, r) {
			return
		}
		if r.URL.Path != "/api/tenant/devices" {
			t.Errorf("unexpected path %s", r.URL.Path)
			return
		}
		if got := r.Header.Get("X-Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}
		page := 0
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		json.NewEncoder(w).Encode(pages[page])
	}))
	defer ts.Close()

	c := newClient(t, ts)
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	devices, err := c.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 DieselMotor devices, got %d", len(devices))
	}
	if devices[0].Name != "engine-1" || devices[1].Name != "engine-2" {
		t.Errorf("unexpected devices: %+v", devices)
	}
	if devices[0].ID != "id-1" {
		t.Errorf("expected platform id id-1, got %q", devices[0].ID)
	}
}

func TestListDevices_RequiresLogin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	c := newClient(t, ts)
	if _, err := c.ListDevices(context.Background()); !errors.Is(err, thingsboard.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestLatestReading(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if loginOK(t, w, r) {
			return
		}
		if r.URL.Path != "/api/plugins/telemetry/DEVICE/id-1/values/timeseries" {
			t.Errorf("unexpected path %s", r.URL.Path)
			return
		}
		// ThingsBoard delivers the group payload as a JSON-encoded string.
		json.NewEncoder(w).Encode(map[string]any{
			"bat": []map[string]any{{"ts": 1700000000, "value": `{"v": 87, "ts": 1700000000}`}},
		})
	}))
	defer ts.Close()

	c := newClient(t, ts)
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	raw, err := c.LatestReading(ctx, thingsboard.Device{ID: "id-1", Name: "engine-1"})
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}

	samples, ok := raw["bat"]
	if !ok || len(samples) != 1 {
		t.Fatalf("expected one bat sample, got %+v", raw)
	}
	if samples[0].TS != 1700000000 {
		t.Errorf("expected ts 1700000000, got %d", samples[0].TS)
	}
}

func TestLatestReading_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if loginOK(t, w, r) {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newClient(t, ts)
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := c.LatestReading(ctx, thingsboard.Device{ID: "id-x", Name: "ghost"}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
