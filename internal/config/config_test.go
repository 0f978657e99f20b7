package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
	if cfg.MaxPayloadBytes != 100*1024 {
		t.Errorf("MaxPayloadBytes = %d, want %d", cfg.MaxPayloadBytes, 100*1024)
	}
	if cfg.EmptyRoomTTL != 5*time.Minute {
		t.Errorf("EmptyRoomTTL = %v, want 5m", cfg.EmptyRoomTTL)
	}
	if cfg.SendBuffer != 256 {
		t.Errorf("SendBuffer = %d, want 256", cfg.SendBuffer)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("MAX_PAYLOAD_BYTES", "4096")
	t.Setenv("EMPTY_ROOM_TTL", "10m")
	t.Setenv("WS_SEND_BUFFER", "64")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "prod" {
		t.Errorf("Port/Env = %q/%q", cfg.Port, cfg.Env)
	}
	if cfg.MaxPayloadBytes != 4096 {
		t.Errorf("MaxPayloadBytes = %d, want 4096", cfg.MaxPayloadBytes)
	}
	if cfg.EmptyRoomTTL != 10*time.Minute {
		t.Errorf("EmptyRoomTTL = %v, want 10m", cfg.EmptyRoomTTL)
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("SendBuffer = %d, want 64", cfg.SendBuffer)
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"30", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"1h", time.Hour},
		{"garbage", time.Minute},
		{"-5", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_DURATION", tt.value)
			}
			if got := getduration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getduration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
