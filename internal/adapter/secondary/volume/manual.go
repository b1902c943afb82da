package volume

import (
	"context"
	"errors"
	"sync"

	"loudstalker/internal/domain"
)

// ErrNoListener is returned by ManualEndpoint.Notify before registration.
var ErrNoListener = errors.New("no listener registered")

// ManualEndpoint implements domain.EndpointVolume for notifications injected
// in-process, by the interactive shell or by tests.
type ManualEndpoint struct {
	mu       sync.RWMutex
	listener domain.VolumeListener
}

// NewManualEndpoint creates an endpoint with no listener.
func NewManualEndpoint() *ManualEndpoint {
	return &ManualEndpoint{}
}

func (m *ManualEndpoint) Name() string {
	return "manual"
}

// RegisterControlChangeNotify stores l. Only one listener is kept.
func (m *ManualEndpoint) RegisterControlChangeNotify(_ context.Context, l domain.VolumeListener) error {
	if l == nil {
		return errors.New("listener is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return errors.New("listener already registered")
	}
	m.listener = l
	return nil
}

// Notify delivers n to the registered listener on the calling goroutine.
func (m *ManualEndpoint) Notify(n domain.Notification) error {
	m.mu.RLock()
	l := m.listener
	m.mu.RUnlock()
	if l == nil {
		return ErrNoListener
	}
	return l.OnNotify(n)
}
