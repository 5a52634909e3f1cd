package containerizer

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"doco/pkg/topology"
)

// HostGateway is the special alias address that resolves to the Docker host
// from inside a container.
const HostGateway = "host-gateway"

// Labels put on every container doco starts.
const (
	LabelManaged = "dev.doco.managed"
	LabelRun     = "dev.doco.run"
	LabelRole    = "dev.doco.role"
	LabelTest    = "dev.doco.test"
)

// ContainerDriver is the narrow set of container runtime operations the
// orchestrator needs.
type ContainerDriver interface {
	// Start pulls the image if needed, starts the container and blocks until
	// spec.Readiness is satisfied. Failures are returned as *ProvisionError.
	Start(ctx context.Context, spec ContainerSpec) (*Handle, error)

	// PublicEndpoint returns where a process outside the container network
	// reaches the given container port.
	PublicEndpoint(ctx context.Context, h *Handle, port uint16) (Endpoint, error)

	// InternalAddress returns the container's address on the bridge network.
	InternalAddress(ctx context.Context, h *Handle) (string, error)

	// Stop stops and removes the container. Callers treat errors as warnings.
	Stop(ctx context.Context, h *Handle) error
}

// ContainerSpec holds everything needed to start one container.
type ContainerSpec struct {
	Name        string // Optional container name
	Image       string
	Tag         string
	ExposedPort uint16
	Env         []topology.Variable // Applied in order, later entries win
	HostAliases []HostAlias
	Readiness   topology.WaitCondition // nil means ready once started
	Cmd         []string               // Command override
	Labels      map[string]string
}

// Reference returns "image:tag".
func (s ContainerSpec) Reference() string {
	return s.Image + ":" + s.Tag
}

// HostAlias maps a host name to an address inside a container's /etc/hosts.
type HostAlias struct {
	Name    string
	Address string
}

// String renders the alias the way Docker expects it in ExtraHosts.
func (a HostAlias) String() string {
	return a.Name + ":" + a.Address
}

// DedupeAliases collapses aliases sharing a name so that the last one wins,
// keeping the position of the first occurrence.
func DedupeAliases(aliases []HostAlias) []HostAlias {
	index := make(map[string]int, len(aliases))
	out := make([]HostAlias, 0, len(aliases))
	for _, a := range aliases {
		if i, ok := index[a.Name]; ok {
			out[i] = a
			continue
		}
		index[a.Name] = len(out)
		out = append(out, a)
	}
	return out
}

// Endpoint is a host and port pair.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// URL returns scheme://host:port/.
func (e Endpoint) URL(scheme string) string {
	return fmt.Sprintf("%s://%s/", scheme, e.String())
}

// Handle identifies a running container.
type Handle struct {
	ID        string
	Reference string

	native any
}

// NewHandle builds a Handle for a driver implementation. native carries the
// runtime's own container object and is opaque to callers.
func NewHandle(id, reference string, native any) *Handle {
	return &Handle{ID: id, Reference: reference, native: native}
}

// ShortID returns the first 12 characters of the container id.
func (h *Handle) ShortID() string {
	return shortID(h.ID)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
