package domain

import "context"

// VolumeListener is a primary port invoked by the audio endpoint on every change.
// Implementations must be safe for concurrent use and must not let
// downstream failures escape back to the endpoint.
type VolumeListener interface {
	OnNotify(n Notification) error
}

// EndpointVolume is a secondary port for the default render endpoint's
// volume control. The listener is registered once for the process lifetime.
type EndpointVolume interface {
	Name() string
	RegisterControlChangeNotify(ctx context.Context, l VolumeListener) error
}

// TriggerClient is a secondary port that fires a POST at a trigger URL.
// A nil body sends an empty request. The status code is returned whenever a
// response was received, even if err is non-nil.
type TriggerClient interface {
	Post(ctx context.Context, url string, body []byte) (int, error)
}
