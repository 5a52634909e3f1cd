package containerizer

import (
	"fmt"
	"strings"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// NewContainerDriver creates a driver for the named runtime.
func NewContainerDriver(runtimeType string, opts DockerOptions) (ContainerDriver, error) {
	rt := RuntimeType(strings.ToLower(runtimeType))

	switch rt {
	case RuntimeTypeDocker, "":
		return NewDockerDriver(opts), nil
	case RuntimeTypePodman:
		return nil, fmt.Errorf("podman runtime not supported: point DOCKER_HOST at the podman socket and use %q", RuntimeTypeDocker)
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", runtimeType)
	}
}
