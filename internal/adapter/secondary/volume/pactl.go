package volume

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
)

var (
	subscribeEventRe = regexp.MustCompile(`^Event '(new|change)' on (sink|server)( #\d+)?$`)
	volumePercentRe  = regexp.MustCompile(`(\d+)%`)
)

// subscriber starts `pactl subscribe` and returns its output stream plus a
// function waiting for exit.
type subscriber func(ctx context.Context) (io.ReadCloser, func() error, error)

// PactlEndpoint implements domain.EndpointVolume for PulseAudio and
// PipeWire via the pactl CLI.
// This is a secondary adapter.
type PactlEndpoint struct {
	run       commandRunner
	subscribe subscriber
	settle    time.Duration
}

// NewPactlEndpoint creates an endpoint backed by the pactl binary.
func NewPactlEndpoint() *PactlEndpoint {
	return &PactlEndpoint{
		run:       execRunner,
		subscribe: execSubscribe,
		settle:    50 * time.Millisecond,
	}
}

func (p *PactlEndpoint) Name() string {
	return "pactl (PulseAudio/PipeWire)"
}

// RegisterControlChangeNotify verifies a default sink exists, starts the
// subscription and delivers notifications to l on a single goroutine until
// ctx is cancelled.
func (p *PactlEndpoint) RegisterControlChangeNotify(ctx context.Context, l domain.VolumeListener) error {
	sink, err := p.run(ctx, "pactl", "get-default-sink")
	if err != nil {
		return fmt.Errorf("couldn't get default audio endpoint: %w", err)
	}
	logging.Debugf("got default audio endpoint %s", strings.TrimSpace(string(sink)))

	if _, err := p.Read(ctx); err != nil {
		return fmt.Errorf("couldn't get endpoint volume control: %w", err)
	}

	stdout, wait, err := p.subscribe(ctx)
	if err != nil {
		return fmt.Errorf("couldn't set volume change callback: %w", err)
	}

	go p.deliver(ctx, stdout, wait, l)
	return nil
}

func (p *PactlEndpoint) deliver(ctx context.Context, stdout io.ReadCloser, wait func() error, l domain.VolumeListener) {
	defer stdout.Close()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if !subscribeEventRe.MatchString(strings.TrimSpace(scanner.Text())) {
			continue
		}
		if p.settle > 0 {
			time.Sleep(p.settle)
		}
		n, err := p.Read(ctx)
		if err != nil {
			// The sink may vanish between the event and the query.
			logging.Debugf("pactl: skip event: %v", err)
			continue
		}
		_ = l.OnNotify(n)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logging.Errorf("pactl subscribe read: %v", err)
	}
	if err := wait(); err != nil && ctx.Err() == nil {
		logging.Errorf("pactl subscribe exited: %v", err)
	}
}

// Read queries the current mute flag and volume of the default sink.
func (p *PactlEndpoint) Read(ctx context.Context) (domain.Notification, error) {
	muteOut, err := p.run(ctx, "pactl", "get-sink-mute", "@DEFAULT_SINK@")
	if err != nil {
		return domain.Notification{}, fmt.Errorf("get sink mute: %w", err)
	}
	volOut, err := p.run(ctx, "pactl", "get-sink-volume", "@DEFAULT_SINK@")
	if err != nil {
		return domain.Notification{}, fmt.Errorf("get sink volume: %w", err)
	}
	muted, err := parseMute(string(muteOut))
	if err != nil {
		return domain.Notification{}, err
	}
	level, err := parseLevel(string(volOut))
	if err != nil {
		return domain.Notification{}, err
	}
	return domain.Notification{Muted: muted, Level: level}, nil
}

func execSubscribe(ctx context.Context) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, "pactl", "subscribe")
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return stdout, cmd.Wait, nil
}

// parseMute reads `pactl get-sink-mute` output ("Mute: yes").
func parseMute(out string) (bool, error) {
	_, value, ok := strings.Cut(strings.TrimSpace(out), ":")
	if !ok {
		return false, fmt.Errorf("unexpected mute output %q", out)
	}
	switch strings.TrimSpace(value) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected mute value %q", value)
	}
}

// parseLevel reads the first channel's percentage from `pactl get-sink-volume`.
// Boosted volumes above 100% are reported as full scale.
func parseLevel(out string) (float32, error) {
	m := volumePercentRe.FindStringSubmatch(out)
	if len(m) < 2 {
		return 0, fmt.Errorf("unexpected volume output %q", out)
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse volume: %w", err)
	}
	return domain.LevelFromPercent(pct), nil
}
