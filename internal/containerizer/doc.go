// Package containerizer starts, inspects and stops the containers of a test
// environment.
//
// # Core Components
//
// ContainerDriver: the interface the orchestrator provisions through
//   - Start: run a container and wait for its readiness condition
//   - PublicEndpoint: the host address a container port is published on
//   - InternalAddress: the container's address on the bridge network
//   - Stop: terminate and remove a container
//
// DockerDriver: implementation on top of testcontainers-go. Containers are
// labelled dev.doco.managed, dev.doco.run, dev.doco.role and dev.doco.test so
// leftovers can be found later.
//
// Janitor: lists and removes labelled containers through the Docker API, for
// runs that were killed before their teardown finished.
//
// FakeDriver: in-memory driver for tests.
//
// # Host aliases
//
// Containers reach each other through /etc/hosts entries rather than a user
// defined network. HostGateway ("host-gateway") is resolved by Docker to the
// host, which is how services call back into the application and how the
// browser container reaches published application ports.
//
// # Usage Example
//
//	driver, err := containerizer.NewContainerDriver("docker", containerizer.DockerOptions{RunID: runID})
//	if err != nil {
//		return err
//	}
//	h, err := driver.Start(ctx, containerizer.ContainerSpec{
//		Image:       "postgres",
//		Tag:         "14",
//		ExposedPort: 5432,
//		Readiness:   topology.LogLine("ready to accept connections"),
//	})
//	if err != nil {
//		return err
//	}
//	defer driver.Stop(context.Background(), h)
//
// Drivers are safe for concurrent use.
package containerizer
