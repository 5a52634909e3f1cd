package topology

import "errors"

// specBuilder accumulates the fields common to servers and services.
type specBuilder struct {
	entity  string
	spec    container
	portSet bool
}

func (b *specBuilder) build() (container, error) {
	var errs []error
	if b.spec.image == "" {
		errs = append(errs, missing(b.entity, "image"))
	}
	if b.spec.tag == "" {
		errs = append(errs, missing(b.entity, "tag"))
	}
	if !b.portSet {
		errs = append(errs, missing(b.entity, "port"))
	} else if b.spec.port == 0 {
		errs = append(errs, &ValidationError{Entity: b.entity, Field: "port", Reason: "must be between 1 and 65535"})
	}
	if len(errs) > 0 {
		return container{}, errors.Join(errs...)
	}

	out := b.spec
	// Detach the env slice so later builder calls cannot reach the built value.
	out.env = append([]Variable(nil), b.spec.env...)
	return out, nil
}

// ServerBuilder assembles a Server.
type ServerBuilder struct {
	b specBuilder
}

// NewServer starts a Server declaration.
func NewServer() *ServerBuilder {
	return &ServerBuilder{b: specBuilder{entity: "server"}}
}

// Image sets the image repository.
func (s *ServerBuilder) Image(image string) *ServerBuilder {
	s.b.spec.image = image
	return s
}

// Tag sets the image tag.
func (s *ServerBuilder) Tag(tag string) *ServerBuilder {
	s.b.spec.tag = tag
	return s
}

// Port sets the exposed container port.
func (s *ServerBuilder) Port(port uint16) *ServerBuilder {
	s.b.spec.port = port
	s.b.portSet = true
	return s
}

// Env appends one environment variable. It may be called repeatedly.
func (s *ServerBuilder) Env(name, value string) *ServerBuilder {
	s.b.spec.env = append(s.b.spec.env, Variable{Name: name, Value: value})
	return s
}

// WaitFor sets the readiness condition. The last call wins.
func (s *ServerBuilder) WaitFor(cond WaitCondition) *ServerBuilder {
	s.b.spec.readiness = cond
	return s
}

// Build validates the declaration and returns the frozen Server.
func (s *ServerBuilder) Build() (Server, error) {
	c, err := s.b.build()
	if err != nil {
		return Server{}, err
	}
	return Server{container: c}, nil
}

// ServiceBuilder assembles a Service.
type ServiceBuilder struct {
	b specBuilder
}

// NewService starts a Service declaration.
func NewService() *ServiceBuilder {
	return &ServiceBuilder{b: specBuilder{entity: "service"}}
}

// Image sets the image repository, which also becomes the service's alias.
func (s *ServiceBuilder) Image(image string) *ServiceBuilder {
	s.b.spec.image = image
	return s
}

// Tag sets the image tag.
func (s *ServiceBuilder) Tag(tag string) *ServiceBuilder {
	s.b.spec.tag = tag
	return s
}

// Port sets the exposed container port.
func (s *ServiceBuilder) Port(port uint16) *ServiceBuilder {
	s.b.spec.port = port
	s.b.portSet = true
	return s
}

// Env appends one environment variable. It may be called repeatedly.
func (s *ServiceBuilder) Env(name, value string) *ServiceBuilder {
	s.b.spec.env = append(s.b.spec.env, Variable{Name: name, Value: value})
	return s
}

// WaitFor sets the readiness condition. The last call wins.
func (s *ServiceBuilder) WaitFor(cond WaitCondition) *ServiceBuilder {
	s.b.spec.readiness = cond
	return s
}

// Build validates the declaration and returns the frozen Service.
func (s *ServiceBuilder) Build() (Service, error) {
	c, err := s.b.build()
	if err != nil {
		return Service{}, err
	}
	return Service{container: c}, nil
}

// Builder assembles a Topology.
type Builder struct {
	server    Server
	serverSet bool
	services  []Service
}

// New starts a Topology declaration.
func New() *Builder {
	return &Builder{}
}

// Server sets the application under test.
func (b *Builder) Server(s Server) *Builder {
	b.server = s
	b.serverSet = true
	return b
}

// Service appends a dependency. Services start in the order they are added.
func (b *Builder) Service(s Service) *Builder {
	b.services = append(b.services, s)
	return b
}

// Build returns the frozen Topology.
func (b *Builder) Build() (Topology, error) {
	if !b.serverSet || b.server.image == "" {
		return Topology{}, missing("topology", "server")
	}
	return Topology{
		server:   b.server,
		services: append([]Service(nil), b.services...),
	}, nil
}
