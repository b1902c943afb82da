package domain

import "errors"

var (
	// ErrEmptyEndpoint indicates that no trigger host was configured.
	ErrEmptyEndpoint = errors.New("endpoint is required")

	// ErrInvalidTriggerName indicates an empty trigger name or one that would escape the trigger path.
	ErrInvalidTriggerName = errors.New("trigger name must be non-empty and contain no '/' or spaces")

	// ErrInvalidDuration indicates a duration outside the range its field accepts.
	ErrInvalidDuration = errors.New("duration out of range")

	// ErrInvalidVolume indicates that the volume value is out of range.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")

	// ErrUnsupportedPlatform indicates there is no endpoint implementation for this OS.
	ErrUnsupportedPlatform = errors.New("no audio endpoint implementation for this platform")

	// ErrTriggerStatus indicates the trigger receiver answered with a non-2xx status.
	ErrTriggerStatus = errors.New("trigger returned error status")
)
