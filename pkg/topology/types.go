package topology

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Variable is a single environment variable handed to a container.
type Variable struct {
	Name  string
	Value string
}

// String renders the variable in NAME=value form.
func (v Variable) String() string {
	return v.Name + "=" + v.Value
}

// container holds the fields shared by Server and Service.
type container struct {
	image     string
	tag       string
	port      uint16
	readiness WaitCondition
	env       []Variable
}

// Image returns the image repository, e.g. "postgres".
func (c container) Image() string { return c.image }

// Tag returns the image tag, e.g. "14".
func (c container) Tag() string { return c.tag }

// Port returns the container port that is exposed.
func (c container) Port() uint16 { return c.port }

// Readiness returns the declared readiness condition or nil when the
// container counts as ready as soon as it has started.
func (c container) Readiness() WaitCondition { return c.readiness }

// Env returns a copy of the environment in declaration order.
func (c container) Env() []Variable { return slices.Clone(c.env) }

// Reference returns "image:tag".
func (c container) Reference() string { return c.image + ":" + c.tag }

func (c container) String() string {
	return fmt.Sprintf("%s (port %d)", c.Reference(), c.port)
}

// Server is the application under test.
type Server struct {
	container
}

// Service is an auxiliary container the server depends on. Inside the test
// network it is addressable by its image name.
type Service struct {
	container
}

// Alias returns the host name the server uses to reach this service.
func (s Service) Alias() string { return s.image }

// Topology is the full set of containers started for each test.
type Topology struct {
	server   Server
	services []Service
}

// Server returns the application under test.
func (t Topology) Server() Server { return t.server }

// Services returns a copy of the services in declaration order.
func (t Topology) Services() []Service { return slices.Clone(t.services) }

// Aliases lists the host names the server will receive for its services.
// Duplicates are kept; the last service with a given alias wins at runtime.
func (t Topology) Aliases() []string {
	return lo.Map(t.services, func(s Service, _ int) string { return s.Alias() })
}

// DuplicateAliases returns aliases declared by more than one service.
func (t Topology) DuplicateAliases() []string {
	return lo.FindDuplicates(t.Aliases())
}
