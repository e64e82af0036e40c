package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/StatikElektrik/microservices/internal/config"
)

func TestLoadDataSync_Defaults(t *testing.T) {
	cfg := config.LoadDataSync()

	if cfg.Port != 8086 {
		t.Errorf("expected default port 8086, got %d", cfg.Port)
	}
	if cfg.SyncInterval != 60*time.Second {
		t.Errorf("expected default interval 60s, got %v", cfg.SyncInterval)
	}
	if cfg.ThingsBoard.DeviceType != "DieselMotor" {
		t.Errorf("expected default device type DieselMotor, got %q", cfg.ThingsBoard.DeviceType)
	}
	if cfg.MigrationsDir != "migrations" {
		t.Errorf("expected default migrations dir, got %q", cfg.MigrationsDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("THINGSBOARD_DEVICE_TYPE", "Pump")
	t.Setenv("PORT", "9001")

	cfg := config.LoadDataSync()
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %v", cfg.SyncInterval)
	}
	if cfg.ThingsBoard.DeviceType != "Pump" {
		t.Errorf("expected device type Pump, got %q", cfg.ThingsBoard.DeviceType)
	}
	if cfg.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Port)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		b := config.Base{LogLevel: tt.in}
		if got := b.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
