// Package thingsboard is the adaptor to the ThingsBoard REST API: login,
// tenant device enumeration, and latest-timeseries reads. All network and
// auth concerns for the telemetry source live here.
package thingsboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/StatikElektrik/microservices/internal/config"
	"github.com/StatikElektrik/microservices/internal/httpx"
	"github.com/StatikElektrik/microservices/internal/telemetry"
)

// ErrNotLoggedIn is returned when an API call is made before Login.
var ErrNotLoggedIn = errors.New("thingsboard: not logged in")

// Device is one device registered on the platform. The platform-assigned ID
// is stable; Name keys the per-device storage table.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// REST API wire types
// ---------------------------------------------------------------------------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type entityID struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
}

type deviceInfo struct {
	ID   entityID `json:"id"`
	Name string   `json:"name"`
	Type string   `json:"type"`
}

type devicePage struct {
	Data          []deviceInfo `json:"data"`
	TotalPages    int          `json:"totalPages"`
	TotalElements int          `json:"totalElements"`
	HasNext       bool         `json:"hasNext"`
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client talks to the ThingsBoard REST API. It is not safe for concurrent
// use during Login; afterwards the token is read-only.
type Client struct {
	http  *httpx.Client
	cfg   config.ThingsBoard
	token string
}

// NewClient creates a Client from the given settings. Call Login before any
// other method.
func NewClient(client *httpx.Client, cfg config.ThingsBoard) *Client {
	return &Client{http: client, cfg: cfg}
}

// Login authenticates with username/password and stores the session token.
// A failed login is fatal for the service, not retried per cycle.
func (c *Client) Login(ctx context.Context) error {
	resp, err := c.http.PostJSON(ctx, c.cfg.BaseURL+"/api/auth/login", loginRequest{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	}, nil)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer drainClose(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var result loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if result.Token == "" {
		return errors.New("login: empty token in response")
	}

	c.token = result.Token
	return nil
}

// ListDevices pages through the tenant's devices and returns those matching
// the configured device type.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}

	var devices []Device
	for page := 0; ; page++ {
		url := fmt.Sprintf("%s/api/tenant/devices?pageSize=%d&page=%d",
			c.cfg.BaseURL, c.cfg.PageSize, page)

		var result devicePage
		if err := c.getJSON(ctx, url, &result); err != nil {
			return nil, fmt.Errorf("list devices page %d: %w", page, err)
		}

		for _, d := range result.Data {
			if d.Type != c.cfg.DeviceType {
				continue
			}
			devices = append(devices, Device{ID: d.ID.ID, Name: d.Name, Type: d.Type})
		}

		if !result.HasNext {
			return devices, nil
		}
	}
}

// LatestReading fetches the device's latest timeseries values across all
// sensor groups. The result keeps the platform's loose shape; mapping into
// a typed record happens in the telemetry package.
func (c *Client) LatestReading(ctx context.Context, d Device) (telemetry.RawReading, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}

	url := fmt.Sprintf("%s/api/plugins/telemetry/DEVICE/%s/values/timeseries", c.cfg.BaseURL, d.ID)

	var raw telemetry.RawReading
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("latest reading for %s: %w", d.Name, err)
	}
	return raw, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into dst.
func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer drainClose(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drainClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
