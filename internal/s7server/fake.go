package s7server

import (
	"context"
	"sync"

	"github.com/juju/errors"
)

// Fake is an in-process Server implementation used by tests and by the
// CLI's default loopback dev mode (see SPEC_FULL.md §4.4's "Server
// contract" addition). It holds the registered external buffers directly
// and lets callers simulate a remote client's write via WriteExternal,
// fulfilling spec.md §9's testability requirement for the server-library
// coupling.
type Fake struct {
	mu      sync.Mutex
	areas   map[uint32][]byte
	started bool
	onEvent EventFunc
}

// NewFake returns a ready-to-register Fake.
func NewFake() *Fake {
	return &Fake{areas: make(map[uint32][]byte)}
}

func (f *Fake) RegisterArea(dbNumber uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areas[dbNumber] = buf
	return nil
}

func (f *Fake) Start(ctx context.Context, port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

func (f *Fake) SetEventsCallback(fn EventFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEvent = fn
}

// WriteExternal simulates a remote S7 client writing raw bytes into a
// registered area, the only way the synchronizer should observe an
// "external" change under test.
func (f *Fake) WriteExternal(dbNumber uint32, offset int, data []byte) error {
	f.mu.Lock()
	buf, ok := f.areas[dbNumber]
	cb := f.onEvent
	f.mu.Unlock()
	if !ok {
		return errors.Errorf("fake server: db %d not registered", dbNumber)
	}
	if offset < 0 || offset+len(data) > len(buf) {
		return errors.Errorf("fake server: write out of range for db %d", dbNumber)
	}
	copy(buf[offset:offset+len(data)], data)
	if cb != nil {
		cb(Event{Kind: EventAreaWritten, DBNumber: dbNumber})
	}
	return nil
}

// SimulateConnect/SimulateDisconnect let tests exercise the events
// callback's connect/disconnect path without a real network stack.
func (f *Fake) SimulateConnect() {
	f.mu.Lock()
	cb := f.onEvent
	f.mu.Unlock()
	if cb != nil {
		cb(Event{Kind: EventClientConnected})
	}
}

func (f *Fake) SimulateDisconnect() {
	f.mu.Lock()
	cb := f.onEvent
	f.mu.Unlock()
	if cb != nil {
		cb(Event{Kind: EventClientDisconnected})
	}
}

// Area returns the registered buffer for dbNumber, or nil if unregistered.
func (f *Fake) Area(dbNumber uint32) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.areas[dbNumber]
}

// Started reports whether Start has been called without a matching Stop.
func (f *Fake) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}
