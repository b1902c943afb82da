package usecase

import (
	"context"
	"time"

	"loudstalker/internal/logging"
)

// flushTimeout bounds the final push made on shutdown.
const flushTimeout = 2 * time.Second

// Pusher is the secondary port the metrics loop drives.
type Pusher interface {
	CanPush() bool
	Push(ctx context.Context) error
}

// MetricsPusher periodically exports bridge metrics.
type MetricsPusher struct {
	pusher   Pusher
	interval time.Duration
}

// NewMetricsPusher creates a pusher loop. It does nothing when p cannot push.
func NewMetricsPusher(p Pusher, interval time.Duration) *MetricsPusher {
	return &MetricsPusher{pusher: p, interval: interval}
}

// Start begins the push loop. The returned channel is closed once the loop
// has stopped and the shutdown flush has finished.
func (m *MetricsPusher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if m.pusher == nil || !m.pusher.CanPush() || m.interval <= 0 {
		close(done)
		return done
	}
	go m.loop(ctx, done)
	return done
}

func (m *MetricsPusher) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			m.push(flushCtx)
			cancel()
			return
		case <-ticker.C:
			m.push(ctx)
		}
	}
}

func (m *MetricsPusher) push(ctx context.Context) {
	if err := m.pusher.Push(ctx); err != nil {
		logging.Warnf("metrics: %v", err)
	}
}
