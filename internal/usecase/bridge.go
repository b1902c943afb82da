package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"loudstalker/internal/domain"
	"loudstalker/internal/logging"
	"loudstalker/internal/metrics"
)

// BridgeUseCase is the primary port for the notification-to-trigger bridge.
type BridgeUseCase interface {
	domain.VolumeListener
	Snapshot() domain.Snapshot
	Targets() domain.Targets
	FireMute(ctx context.Context) error
	FireVolume(ctx context.Context, volume int32) error
}

// bridgeInteractor implements BridgeUseCase.
// It depends only on domain layer and secondary ports.
type bridgeInteractor struct {
	targets domain.Targets
	trigger domain.TriggerClient
	state   *domain.StateStore
	metrics *metrics.Metrics
}

// volumePayload is the JSON body sent to the volume trigger.
type volumePayload struct {
	Data int32 `json:"data"`
}

// BridgeOption customises a bridge at construction time.
type BridgeOption func(*bridgeInteractor)

// WithState seeds the bridge with an existing state store.
func WithState(s *domain.StateStore) BridgeOption {
	return func(b *bridgeInteractor) {
		if s != nil {
			b.state = s
		}
	}
}

// WithMetrics records notifications and dispatches into m.
func WithMetrics(m *metrics.Metrics) BridgeOption {
	return func(b *bridgeInteractor) {
		b.metrics = m
	}
}

// NewBridgeUseCase creates the bridge.
// Dependencies are injected (secondary ports).
func NewBridgeUseCase(targets domain.Targets, trigger domain.TriggerClient, opts ...BridgeOption) (BridgeUseCase, error) {
	if trigger == nil {
		return nil, errors.New("trigger client is required")
	}
	if targets.Mute == "" || targets.Volume == "" {
		return nil, domain.ErrEmptyEndpoint
	}
	b := &bridgeInteractor{
		targets: targets,
		trigger: trigger,
		state:   &domain.StateStore{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// OnNotify reduces one endpoint notification to at most one mute and one
// volume dispatch. Dispatch failures are logged and never returned, so the
// endpoint keeps delivering.
func (b *bridgeInteractor) OnNotify(n domain.Notification) error {
	log := logging.Logger().With("event", uuid.NewString())
	log.Debug("callback triggered", "muted", n.Muted, "level", n.Level)
	b.metrics.RecordNotification()

	ctx := context.Background()
	volume := n.Volume()

	if b.state.CompareAndUpdateMute(n.Muted) {
		// The receiver only supports toggling, so the mute call carries no body.
		b.dispatch(ctx, log, domain.TriggerMute, nil)
	} else {
		b.metrics.RecordSuppressed(domain.TriggerMute)
	}

	if b.state.CompareAndUpdateVolume(volume) {
		body, err := json.Marshal(volumePayload{Data: volume})
		if err != nil {
			log.Error("encode volume payload", "error", err)
		} else {
			b.dispatch(ctx, log, domain.TriggerVolume, body)
		}
	} else {
		b.metrics.RecordSuppressed(domain.TriggerVolume)
	}

	b.metrics.RecordState(b.state.Read())
	return nil
}

func (b *bridgeInteractor) dispatch(ctx context.Context, log *slog.Logger, kind domain.TriggerKind, body []byte) {
	url := b.targets.URL(kind)
	status, err := b.fire(ctx, kind, body)
	if err != nil {
		log.Error("error in trigger call", "trigger", kind, "url", url, "status", status, "error", err)
		return
	}
	log.Debug(fmt.Sprintf("%s -> %d", url, status), "trigger", kind)
}

// fire posts to the trigger of the given kind and records the attempt.
func (b *bridgeInteractor) fire(ctx context.Context, kind domain.TriggerKind, body []byte) (int, error) {
	start := time.Now()
	status, err := b.post(ctx, b.targets.URL(kind), body)
	b.metrics.RecordDispatch(kind, time.Since(start).Seconds(), err)
	return status, err
}

// post shields the notification path from a panicking transport.
func (b *bridgeInteractor) post(ctx context.Context, url string, body []byte) (status int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigger client panic: %v", r)
		}
	}()
	return b.trigger.Post(ctx, url, body)
}

// Snapshot returns the last dispatched state.
func (b *bridgeInteractor) Snapshot() domain.Snapshot {
	return b.state.Read()
}

// Targets returns the resolved trigger URLs.
func (b *bridgeInteractor) Targets() domain.Targets {
	return b.targets
}

// FireMute calls the mute trigger without touching the stored state.
func (b *bridgeInteractor) FireMute(ctx context.Context) error {
	status, err := b.fire(ctx, domain.TriggerMute, nil)
	if err != nil {
		return err
	}
	logging.Infof("%s -> %d", b.targets.Mute, status)
	return nil
}

// FireVolume calls the volume trigger with volume without touching the stored state.
func (b *bridgeInteractor) FireVolume(ctx context.Context, volume int32) error {
	if volume < 0 || volume > 100 {
		return domain.ErrInvalidVolume
	}
	body, err := json.Marshal(volumePayload{Data: volume})
	if err != nil {
		return fmt.Errorf("encode volume payload: %w", err)
	}
	status, err := b.fire(ctx, domain.TriggerVolume, body)
	if err != nil {
		return err
	}
	logging.Infof("%s -> %d", b.targets.Volume, status)
	return nil
}
