package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"loudstalker/internal/adapter/secondary/webhook"
	"loudstalker/internal/domain"
	"loudstalker/internal/metrics"
)

// fakeTrigger is a test double for domain.TriggerClient.
type fakeTrigger struct {
	mu    sync.Mutex
	calls []triggerCall
	err   error
	panic bool
	delay time.Duration
}

type triggerCall struct {
	url  string
	body []byte
}

func (f *fakeTrigger) Post(_ context.Context, url string, body []byte) (int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, triggerCall{url: url, body: body})
	err, shouldPanic := f.err, f.panic
	f.mu.Unlock()
	if shouldPanic {
		panic("transport exploded")
	}
	if err != nil {
		return 0, err
	}
	return http.StatusOK, nil
}

func (f *fakeTrigger) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTrigger) callsTo(url string) []triggerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []triggerCall
	for _, c := range f.calls {
		if c.url == url {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTrigger) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testTargets(t *testing.T) domain.Targets {
	t.Helper()
	targets, err := domain.NewTargets("streamdeck.local:8080", "mute", "volchange")
	if err != nil {
		t.Fatalf("NewTargets: %v", err)
	}
	return targets
}

func newTestBridge(t *testing.T, trigger domain.TriggerClient, muted bool, volume int32, opts ...BridgeOption) BridgeUseCase {
	t.Helper()
	opts = append([]BridgeOption{WithState(domain.NewStateStore(muted, volume))}, opts...)
	b, err := NewBridgeUseCase(testTargets(t), trigger, opts...)
	if err != nil {
		t.Fatalf("NewBridgeUseCase: %v", err)
	}
	return b
}

func volumeData(t *testing.T, body []byte) int32 {
	t.Helper()
	var p struct {
		Data int32 `json:"data"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return p.Data
}

func TestNewBridgeUseCaseRequiresDependencies(t *testing.T) {
	if _, err := NewBridgeUseCase(testTargets(t), nil); err == nil {
		t.Error("expected error without trigger client")
	}
	if _, err := NewBridgeUseCase(domain.Targets{}, &fakeTrigger{}); !errors.Is(err, domain.ErrEmptyEndpoint) {
		t.Errorf("expected ErrEmptyEndpoint, got %v", err)
	}
}

func TestOnNotify_NoChangeDispatchesNothing(t *testing.T) {
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50)

	if err := b.OnNotify(domain.Notification{Muted: false, Level: 0.50}); err != nil {
		t.Fatalf("OnNotify returned %v", err)
	}
	if n := trigger.total(); n != 0 {
		t.Fatalf("expected no calls, got %d", n)
	}
}

func TestOnNotify_MuteToggle(t *testing.T) {
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50)
	targets := b.Targets()

	_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.50})

	mute := trigger.callsTo(targets.Mute)
	if len(mute) != 1 {
		t.Fatalf("expected 1 mute call, got %d", len(mute))
	}
	if mute[0].body != nil {
		t.Errorf("mute call carried a body: %q", mute[0].body)
	}
	if n := len(trigger.callsTo(targets.Volume)); n != 0 {
		t.Errorf("expected 0 volume calls, got %d", n)
	}
	if got := b.Snapshot(); got != (domain.Snapshot{Muted: true, Volume: 50}) {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestOnNotify_VolumeOnly(t *testing.T) {
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50)
	targets := b.Targets()

	_ = b.OnNotify(domain.Notification{Muted: false, Level: 0.73})

	vol := trigger.callsTo(targets.Volume)
	if len(vol) != 1 {
		t.Fatalf("expected 1 volume call, got %d", len(vol))
	}
	if string(vol[0].body) != `{"data":73}` {
		t.Errorf("body = %s", vol[0].body)
	}
	if n := len(trigger.callsTo(targets.Mute)); n != 0 {
		t.Errorf("expected 0 mute calls, got %d", n)
	}
}

func TestOnNotify_CombinedChangeMuteFirst(t *testing.T) {
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50)
	targets := b.Targets()

	_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.10})

	if trigger.total() != 2 {
		t.Fatalf("expected 2 calls, got %d", trigger.total())
	}
	if trigger.calls[0].url != targets.Mute || trigger.calls[1].url != targets.Volume {
		t.Fatalf("unexpected order: %s, %s", trigger.calls[0].url, trigger.calls[1].url)
	}
	if got := volumeData(t, trigger.calls[1].body); got != 10 {
		t.Errorf("volume = %d", got)
	}
	if got := b.Snapshot(); got != (domain.Snapshot{Muted: true, Volume: 10}) {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestOnNotify_TruncatesVolume(t *testing.T) {
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50)

	_ = b.OnNotify(domain.Notification{Level: 0.999})

	vol := trigger.callsTo(b.Targets().Volume)
	if len(vol) != 1 {
		t.Fatalf("expected 1 volume call, got %d", len(vol))
	}
	if got := volumeData(t, vol[0].body); got != 99 {
		t.Fatalf("volume = %d, want 99", got)
	}
}

func TestOnNotify_ConcurrentSameTransitionDispatchesOnce(t *testing.T) {
	for round := 0; round < 100; round++ {
		trigger := &fakeTrigger{delay: time.Millisecond}
		b := newTestBridge(t, trigger, false, 50)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.50})
			}()
		}
		close(start)
		wg.Wait()

		if n := len(trigger.callsTo(b.Targets().Mute)); n != 1 {
			t.Fatalf("round %d: expected exactly 1 mute call, got %d", round, n)
		}
	}
}

func TestOnNotify_FailureDoesNotBlockLaterTriggers(t *testing.T) {
	trigger := &fakeTrigger{err: errors.New("connection refused")}
	b := newTestBridge(t, trigger, false, 50)
	targets := b.Targets()

	if err := b.OnNotify(domain.Notification{Muted: true, Level: 0.50}); err != nil {
		t.Fatalf("failure escaped OnNotify: %v", err)
	}
	if got := b.Snapshot(); !got.Muted {
		t.Fatalf("state not updated after failed dispatch: %+v", got)
	}

	// Same state again is not retried.
	_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.50})
	if n := len(trigger.callsTo(targets.Mute)); n != 1 {
		t.Fatalf("failed dispatch was retried: %d calls", n)
	}

	trigger.setErr(nil)
	_ = b.OnNotify(domain.Notification{Muted: false, Level: 0.50})
	if n := len(trigger.callsTo(targets.Mute)); n != 2 {
		t.Fatalf("expected second mute call after recovery, got %d", n)
	}
}

func TestOnNotify_PanickingTriggerIsContained(t *testing.T) {
	trigger := &fakeTrigger{panic: true}
	b := newTestBridge(t, trigger, false, 50)

	if err := b.OnNotify(domain.Notification{Muted: true, Level: 0.2}); err != nil {
		t.Fatalf("OnNotify returned %v", err)
	}
	if n := trigger.total(); n != 2 {
		t.Fatalf("volume branch skipped after mute panic: %d calls", n)
	}
}

func TestOnNotify_RecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics("", "")
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50, WithMetrics(m))

	_ = b.OnNotify(domain.Notification{Muted: false, Level: 0.50})
	_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.60})

	if got := testutil.ToFloat64(m.NotificationsTotal); got != 2 {
		t.Errorf("notifications = %v", got)
	}
	if got := testutil.ToFloat64(m.SuppressedTotal.WithLabelValues("mute")); got != 1 {
		t.Errorf("suppressed mute = %v", got)
	}
	if got := testutil.ToFloat64(m.DispatchesTotal.WithLabelValues("volchange", metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("volchange dispatches = %v", got)
	}
	if got := testutil.ToFloat64(m.Volume); got != 60 {
		t.Errorf("volume gauge = %v", got)
	}
}

func TestFireVolumeLeavesStateAlone(t *testing.T) {
	trigger := &fakeTrigger{}
	b := newTestBridge(t, trigger, false, 50)

	if err := b.FireVolume(context.Background(), 80); err != nil {
		t.Fatalf("FireVolume: %v", err)
	}
	if err := b.FireMute(context.Background()); err != nil {
		t.Fatalf("FireMute: %v", err)
	}
	if err := b.FireVolume(context.Background(), 101); !errors.Is(err, domain.ErrInvalidVolume) {
		t.Fatalf("expected ErrInvalidVolume, got %v", err)
	}
	if got := b.Snapshot(); got != (domain.Snapshot{Muted: false, Volume: 50}) {
		t.Fatalf("manual fire changed state: %+v", got)
	}
	if trigger.total() != 2 {
		t.Fatalf("expected 2 calls, got %d", trigger.total())
	}
}

func TestBridgeEndToEndOverHTTP(t *testing.T) {
	var muteHits, volHits atomic.Int32
	var lastBody atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/interact/trigger/mute", func(w http.ResponseWriter, r *http.Request) {
		muteHits.Add(1)
	})
	mux.HandleFunc("/interact/trigger/volchange", func(w http.ResponseWriter, r *http.Request) {
		volHits.Add(1)
		b, _ := io.ReadAll(r.Body)
		lastBody.Store(string(b))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	targets, err := domain.NewTargets(srv.Listener.Addr().String(), "mute", "volchange")
	if err != nil {
		t.Fatalf("NewTargets: %v", err)
	}
	b, err := NewBridgeUseCase(targets, webhook.NewHTTPTrigger(time.Second))
	if err != nil {
		t.Fatalf("NewBridgeUseCase: %v", err)
	}

	_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.25})
	_ = b.OnNotify(domain.Notification{Muted: true, Level: 0.25})

	if muteHits.Load() != 1 || volHits.Load() != 1 {
		t.Fatalf("hits mute=%d vol=%d", muteHits.Load(), volHits.Load())
	}
	if got := lastBody.Load(); got != `{"data":25}` {
		t.Fatalf("volume body = %v", got)
	}
}
