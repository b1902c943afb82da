//go:build linux

package volume

import "loudstalker/internal/domain"

func newPlatformEndpoint() (domain.EndpointVolume, error) {
	return NewPactlEndpoint(), nil
}
