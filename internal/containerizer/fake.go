package containerizer

import (
	"context"
	"fmt"
	"sync"
)

// FakeDriver is an in-memory ContainerDriver for tests. It records every call
// and can be told to fail starts or stops for particular images.
type FakeDriver struct {
	mu sync.Mutex

	// FailStart makes Start fail for the given image.
	FailStart map[string]error
	// FailStop makes Stop fail for the given image.
	FailStop map[string]error
	// OnStart, if set, runs before a start is recorded.
	OnStart func(spec ContainerSpec)

	seq     int
	specs   map[string]ContainerSpec
	ips     map[string]string
	ports   map[string]uint16
	running map[string]bool
	events  []string
	started []ContainerSpec
	starts  int
	stops   int
}

// NewFakeDriver returns an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		FailStart: map[string]error{},
		FailStop:  map[string]error{},
		specs:     map[string]ContainerSpec{},
		ips:       map[string]string{},
		ports:     map[string]uint16{},
		running:   map[string]bool{},
	}
}

func (f *FakeDriver) Start(ctx context.Context, spec ContainerSpec) (*Handle, error) {
	if f.OnStart != nil {
		f.OnStart(spec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &ProvisionError{Reference: spec.Reference(), Stage: "start", Err: err}
	}
	if err, ok := f.FailStart[spec.Image]; ok {
		f.events = append(f.events, "fail "+spec.Reference())
		return nil, &ProvisionError{Reference: spec.Reference(), Stage: "start", Err: err}
	}

	f.seq++
	id := fmt.Sprintf("fake%012d", f.seq)
	f.specs[id] = spec
	f.ips[id] = fmt.Sprintf("172.17.0.%d", f.seq+1)
	f.ports[id] = uint16(40000 + f.seq)
	f.running[id] = true
	f.started = append(f.started, spec)
	f.starts++
	f.events = append(f.events, "start "+spec.Reference())

	return NewHandle(id, spec.Reference(), spec), nil
}

func (f *FakeDriver) PublicEndpoint(_ context.Context, h *Handle, _ uint16) (Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	port, ok := f.ports[h.ID]
	if !ok || !f.running[h.ID] {
		return Endpoint{}, fmt.Errorf("container %s is not running", h.ID)
	}
	return Endpoint{Host: "127.0.0.1", Port: port}, nil
}

func (f *FakeDriver) InternalAddress(_ context.Context, h *Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ip, ok := f.ips[h.ID]
	if !ok || !f.running[h.ID] {
		return "", fmt.Errorf("container %s is not running", h.ID)
	}
	return ip, nil
}

func (f *FakeDriver) Stop(_ context.Context, h *Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	spec := f.specs[h.ID]
	f.stops++
	delete(f.running, h.ID)
	f.events = append(f.events, "stop "+spec.Reference())

	if err, ok := f.FailStop[spec.Image]; ok {
		return err
	}
	return nil
}

// Starts returns how many containers were started successfully.
func (f *FakeDriver) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Stops returns how many Stop calls were made.
func (f *FakeDriver) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Running returns how many containers are still running.
func (f *FakeDriver) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.running)
}

// Started returns the specs of successful starts in order.
func (f *FakeDriver) Started() []ContainerSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ContainerSpec(nil), f.started...)
}

// LastSpec returns the most recent successful start of image.
func (f *FakeDriver) LastSpec(image string) (ContainerSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.started) - 1; i >= 0; i-- {
		if f.started[i].Image == image {
			return f.started[i], true
		}
	}
	return ContainerSpec{}, false
}

// AddressOf returns the bridge address handed to the nth started container
// (zero based).
func (f *FakeDriver) AddressOf(n int) string {
	return fmt.Sprintf("172.17.0.%d", n+2)
}

// Events returns the "start x", "stop x" and "fail x" log in call order.
func (f *FakeDriver) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}
