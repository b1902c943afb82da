//go:build !linux && !darwin && !windows

package volume

import "loudstalker/internal/domain"

func newPlatformEndpoint() (domain.EndpointVolume, error) {
	return nil, domain.ErrUnsupportedPlatform
}
