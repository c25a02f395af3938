// ABOUTME: Interrupt line emulation for host-side peripherals
// ABOUTME: Latches raised events and dispatches them serially to one handler
package irq

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyAttached is returned when a handler is attached twice
	ErrAlreadyAttached = errors.New("irq: handler already attached")

	// ErrNoHandler is returned when enabling a line with nothing attached
	ErrNoHandler = errors.New("irq: no handler attached")
)

// Handler runs to completion for every dispatched interrupt
type Handler func()

// Stats holds interrupt counters
type Stats struct {
	Raised     uint64
	Dispatched uint64
	Coalesced  uint64
}

// Line is one interrupt source.
//
// Raise latches a pending flag and never blocks. While the line is enabled a
// single dispatcher goroutine runs the handler once per latched flag, so two
// handler invocations never overlap. Raises that arrive while a flag is
// already pending are coalesced. A flag latched while disabled is dispatched
// as soon as the line is enabled.
type Line struct {
	name string

	mu      sync.Mutex
	handler Handler
	stop    chan struct{}
	done    chan struct{}

	pending chan struct{}

	raised     atomic.Uint64
	dispatched atomic.Uint64
	coalesced  atomic.Uint64
}

// New creates a disabled line with no handler
func New(name string) *Line {
	return &Line{
		name:    name,
		pending: make(chan struct{}, 1),
	}
}

// Name returns the line name
func (l *Line) Name() string {
	return l.name
}

// Attach registers the handler. A line takes exactly one handler.
func (l *Line) Attach(h Handler) error {
	if h == nil {
		return ErrNoHandler
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handler != nil {
		return ErrAlreadyAttached
	}
	l.handler = h
	return nil
}

// Detach removes the handler. The line must be disabled first.
func (l *Line) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stop == nil {
		l.handler = nil
	}
}

// Attached reports whether a handler is registered
func (l *Line) Attached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handler != nil
}

// Enable arms dispatch. Enabling an enabled line is a no-op.
func (l *Line) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handler == nil {
		return ErrNoHandler
	}
	if l.stop != nil {
		return nil
	}

	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.dispatch(l.handler, l.stop, l.done)
	return nil
}

// Disable disarms dispatch and waits for an in-flight handler to return.
// It must not be called from the handler itself.
func (l *Line) Disable() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Enabled reports whether the line is armed
func (l *Line) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stop != nil
}

// Raise latches the interrupt. Safe from any goroutine.
func (l *Line) Raise() {
	l.raised.Add(1)
	select {
	case l.pending <- struct{}{}:
	default:
		l.coalesced.Add(1)
	}
}

// Pending reports whether an interrupt is latched but not yet dispatched
func (l *Line) Pending() bool {
	return len(l.pending) > 0
}

// Stats returns a snapshot of the counters
func (l *Line) Stats() Stats {
	return Stats{
		Raised:     l.raised.Load(),
		Dispatched: l.dispatched.Load(),
		Coalesced:  l.coalesced.Load(),
	}
}

func (l *Line) dispatch(h Handler, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		select {
		case <-stop:
			return
		case <-l.pending:
			l.dispatched.Add(1)
			h()
		}
	}
}
