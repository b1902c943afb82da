package volume

import (
	"context"
	"os/exec"

	"loudstalker/internal/domain"
)

// NewDefaultEndpoint returns the volume control of the default render
// endpoint for the running platform.
func NewDefaultEndpoint() (domain.EndpointVolume, error) {
	return newPlatformEndpoint()
}

// commandRunner runs a command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")
	return cmd.Output()
}
