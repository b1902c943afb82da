package volume

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
)

// AppleScriptEndpoint implements domain.EndpointVolume on macOS by polling
// `osascript`, which has no change subscription.
// This is a secondary adapter.
type AppleScriptEndpoint struct {
	run      commandRunner
	interval time.Duration
}

// NewAppleScriptEndpoint creates a polling endpoint.
func NewAppleScriptEndpoint(interval time.Duration) *AppleScriptEndpoint {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &AppleScriptEndpoint{run: execRunner, interval: interval}
}

func (a *AppleScriptEndpoint) Name() string {
	return "osascript (macOS)"
}

// RegisterControlChangeNotify polls the output volume settings and notifies
// l whenever the raw reading differs from the previous one.
func (a *AppleScriptEndpoint) RegisterControlChangeNotify(ctx context.Context, l domain.VolumeListener) error {
	last, err := a.Read(ctx)
	if err != nil {
		return fmt.Errorf("couldn't get endpoint volume control: %w", err)
	}
	go a.poll(ctx, last, l)
	return nil
}

func (a *AppleScriptEndpoint) poll(ctx context.Context, last domain.Notification, l domain.VolumeListener) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Read(ctx)
			if err != nil {
				logging.Debugf("osascript: %v", err)
				continue
			}
			if n == last {
				continue
			}
			last = n
			_ = l.OnNotify(n)
		}
	}
}

// Read returns the current output volume and mute flag.
func (a *AppleScriptEndpoint) Read(ctx context.Context) (domain.Notification, error) {
	out, err := a.run(ctx, "osascript", "-e", "get volume settings")
	if err != nil {
		return domain.Notification{}, fmt.Errorf("osascript failed: %w", err)
	}
	return parseVolumeSettings(string(out))
}

// parseVolumeSettings reads "output volume:50, input volume:75, alert volume:100, output muted:false".
func parseVolumeSettings(out string) (domain.Notification, error) {
	var (
		n                    domain.Notification
		haveVolume, haveMute bool
	)
	for _, field := range strings.Split(strings.TrimSpace(out), ",") {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "output volume":
			// "missing value" is reported for devices without a volume control.
			v, err := strconv.Atoi(value)
			if err != nil {
				return domain.Notification{}, fmt.Errorf("parse output volume %q: %w", value, err)
			}
			n.Level = domain.LevelFromPercent(v)
			haveVolume = true
		case "output muted":
			n.Muted = value == "true"
			haveMute = true
		}
	}
	if !haveVolume || !haveMute {
		return domain.Notification{}, fmt.Errorf("unexpected volume settings %q", out)
	}
	return n, nil
}
