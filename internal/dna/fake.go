package dna

import (
	"context"
	"sync"
)

// FakeSlave records bring-up calls for test assertions.
type FakeSlave struct {
	mu sync.Mutex

	// Addr is the address passed to Init, 0 if Init was never called.
	Addr uint8

	// Image is the register image passed to Init.
	Image []byte

	// InitCalls counts Init invocations.
	InitCalls int

	// Serving is true while Serve is running.
	Serving bool

	// Closed tracks if Close was called.
	Closed bool

	// InitError, if set, will be returned by Init.
	InitError error

	started chan struct{}
}

// NewFakeSlave creates a FakeSlave.
func NewFakeSlave() *FakeSlave {
	return &FakeSlave{started: make(chan struct{})}
}

// Init records the address and image.
func (f *FakeSlave) Init(addr uint8, image []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InitCalls++
	if f.InitError != nil {
		return f.InitError
	}
	f.Addr = addr
	f.Image = append([]byte(nil), image...)
	return nil
}

// Serve blocks until ctx is done.
func (f *FakeSlave) Serve(ctx context.Context) error {
	f.mu.Lock()
	f.Serving = true
	f.mu.Unlock()
	close(f.started)

	<-ctx.Done()

	f.mu.Lock()
	f.Serving = false
	f.mu.Unlock()
	return f.Close()
}

// Started is closed once Serve has been entered.
func (f *FakeSlave) Started() <-chan struct{} {
	return f.started
}

// IsServing reports whether Serve is running.
func (f *FakeSlave) IsServing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Serving
}

// Calls returns the number of Init calls.
func (f *FakeSlave) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.InitCalls
}

// Close marks the slave as closed.
func (f *FakeSlave) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
