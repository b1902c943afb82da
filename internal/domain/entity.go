package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Notification is the raw payload delivered by the audio subsystem on any
// mute or volume change of the default render endpoint.
type Notification struct {
	Muted bool
	// Level is the master volume scalar in [0.0, 1.0].
	Level float32
}

// Volume returns the notification level as an integer percentage.
func (n Notification) Volume() int32 {
	return VolumePercent(n.Level)
}

// VolumePercent scales a volume scalar by 100 and truncates toward zero.
// Out of range input is clamped to [0, 100].
func VolumePercent(level float32) int32 {
	if math.IsNaN(float64(level)) {
		return 0
	}
	v := level * 100
	switch {
	case v <= 0:
		return 0
	case v >= 100:
		return 100
	}
	return int32(v)
}

// Snapshot is a point-in-time copy of the last dispatched state.
type Snapshot struct {
	Muted  bool
	Volume int32
}

// TriggerKind names the dimension a trigger reacts to.
type TriggerKind string

const (
	TriggerMute   TriggerKind = "mute"
	TriggerVolume TriggerKind = "volchange"
)

// Targets holds the fully resolved trigger URLs. It is built once at startup
// and never mutated.
type Targets struct {
	Mute   string
	Volume string
}

// URL returns the target for the given trigger kind.
func (t Targets) URL(kind TriggerKind) string {
	if kind == TriggerMute {
		return t.Mute
	}
	return t.Volume
}

// NewTargets resolves the mute and volume trigger URLs for endpoint.
func NewTargets(endpoint, muteTrigger, volchangeTrigger string) (Targets, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Targets{}, ErrEmptyEndpoint
	}
	if err := validateTriggerName(muteTrigger); err != nil {
		return Targets{}, fmt.Errorf("mute trigger: %w", err)
	}
	if err := validateTriggerName(volchangeTrigger); err != nil {
		return Targets{}, fmt.Errorf("volchange trigger: %w", err)
	}
	return Targets{
		Mute:   triggerURL(endpoint, muteTrigger),
		Volume: triggerURL(endpoint, volchangeTrigger),
	}, nil
}

func triggerURL(endpoint, name string) string {
	return fmt.Sprintf("http://%s/interact/trigger/%s", endpoint, name)
}

func validateTriggerName(name string) error {
	if name == "" || strings.ContainsAny(name, "/ ") {
		return ErrInvalidTriggerName
	}
	return nil
}

// Config represents the bridge configuration entity.
type Config struct {
	Endpoint         string
	MuteTrigger      string
	VolchangeTrigger string
	Timeout          time.Duration
	LogLevel         string
	Metrics          MetricsConfig
}

// MetricsConfig controls the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
	PushInterval   time.Duration
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() Config {
	return Config{
		MuteTrigger:      string(TriggerMute),
		VolchangeTrigger: string(TriggerVolume),
		LogLevel:         "info",
		Metrics: MetricsConfig{
			Job:          "loudstalker",
			PushInterval: 30 * time.Second,
		},
	}
}

// Validate checks if the configuration values are valid.
// A missing endpoint is reported last so callers editing a partial
// configuration can tell it apart from invalid values.
func (c Config) Validate() error {
	if err := validateTriggerName(c.MuteTrigger); err != nil {
		return fmt.Errorf("mute trigger %q: %w", c.MuteTrigger, err)
	}
	if err := validateTriggerName(c.VolchangeTrigger); err != nil {
		return fmt.Errorf("volchange trigger %q: %w", c.VolchangeTrigger, err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("http timeout %s: %w", c.Timeout, ErrInvalidDuration)
	}
	if c.Metrics.PushgatewayURL != "" && c.Metrics.PushInterval <= 0 {
		return fmt.Errorf("metrics push interval %s: %w", c.Metrics.PushInterval, ErrInvalidDuration)
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return ErrEmptyEndpoint
	}
	return nil
}

// Targets resolves the trigger URLs described by the configuration.
func (c Config) Targets() (Targets, error) {
	return NewTargets(c.Endpoint, c.MuteTrigger, c.VolchangeTrigger)
}

// LevelFromPercent returns the scalar for a device that only reports whole
// percentages. The result always maps back to p through VolumePercent.
func LevelFromPercent(p int) float32 {
	if p <= 0 {
		return 0
	}
	if p >= 100 {
		return 1
	}
	l := float32(p) / 100
	for VolumePercent(l) < int32(p) {
		l = math.Nextafter32(l, 1)
	}
	return l
}
