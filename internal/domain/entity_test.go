package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestVolumePercent(t *testing.T) {
	tests := []struct {
		name  string
		level float32
		want  int32
	}{
		{name: "half", level: 0.50, want: 50},
		{name: "seventy three", level: 0.73, want: 73},
		{name: "truncates instead of rounding", level: 0.999, want: 99},
		{name: "ten", level: 0.10, want: 10},
		{name: "full", level: 1.0, want: 100},
		{name: "silent", level: 0, want: 0},
		{name: "above range", level: 1.5, want: 100},
		{name: "below range", level: -0.2, want: 0},
		{name: "nan", level: float32(math.NaN()), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VolumePercent(tt.level); got != tt.want {
				t.Fatalf("VolumePercent(%v) = %d, want %d", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewTargets(t *testing.T) {
	targets, err := NewTargets("192.168.1.20:8080", "mute", "volchange")
	if err != nil {
		t.Fatalf("NewTargets: %v", err)
	}
	if targets.Mute != "http://192.168.1.20:8080/interact/trigger/mute" {
		t.Errorf("mute target = %q", targets.Mute)
	}
	if targets.Volume != "http://192.168.1.20:8080/interact/trigger/volchange" {
		t.Errorf("volume target = %q", targets.Volume)
	}
	if targets.URL(TriggerMute) != targets.Mute || targets.URL(TriggerVolume) != targets.Volume {
		t.Errorf("URL lookup does not match fields")
	}
}

func TestNewTargetsRejectsBadInput(t *testing.T) {
	if _, err := NewTargets("  ", "mute", "volchange"); !errors.Is(err, ErrEmptyEndpoint) {
		t.Errorf("empty endpoint: got %v", err)
	}
	if _, err := NewTargets("host", "", "volchange"); !errors.Is(err, ErrInvalidTriggerName) {
		t.Errorf("empty mute trigger: got %v", err)
	}
	if _, err := NewTargets("host", "mute", "a/b"); !errors.Is(err, ErrInvalidTriggerName) {
		t.Errorf("slash in volchange trigger: got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrEmptyEndpoint) {
		t.Fatalf("default config without endpoint: got %v", err)
	}

	cfg.Endpoint = "localhost:9000"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	bad := cfg
	bad.Timeout = -time.Second
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidDuration) || !strings.Contains(err.Error(), "http timeout") {
		t.Errorf("negative timeout: got %v", err)
	}

	bad = cfg
	bad.Metrics.PushgatewayURL = "http://pushgateway:9091"
	bad.Metrics.PushInterval = 0
	err = bad.Validate()
	if !errors.Is(err, ErrInvalidDuration) || !strings.Contains(err.Error(), "push interval") {
		t.Errorf("zero push interval: got %v", err)
	}
}

func TestLevelFromPercentRoundTrips(t *testing.T) {
	for p := 0; p <= 100; p++ {
		if got := VolumePercent(LevelFromPercent(p)); got != int32(p) {
			t.Errorf("VolumePercent(LevelFromPercent(%d)) = %d", p, got)
		}
	}
	if got := LevelFromPercent(153); got != 1 {
		t.Errorf("LevelFromPercent(153) = %v, want 1", got)
	}
	if got := LevelFromPercent(-4); got != 0 {
		t.Errorf("LevelFromPercent(-4) = %v, want 0", got)
	}
}
