//go:build darwin

package volume

import "loudstalker/internal/domain"

func newPlatformEndpoint() (domain.EndpointVolume, error) {
	return NewAppleScriptEndpoint(0), nil
}
