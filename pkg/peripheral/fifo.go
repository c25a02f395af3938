// ABOUTME: Transmit and receive byte FIFOs with latched status flags
// ABOUTME: Device-side drains and fills raise the attached interrupt line
package peripheral

import (
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
)

// ring is a fixed-capacity circular byte buffer (not thread-safe)
type ring struct {
	buf   []byte
	r, w  int
	count int
}

func newRing(capacity int) ring {
	return ring{buf: make([]byte, capacity)}
}

func (b *ring) free() int {
	return len(b.buf) - b.count
}

func (b *ring) write(p []byte) int {
	n := min(len(p), b.free())
	for written := 0; written < n; {
		k := copy(b.buf[b.w:], p[written:n])
		b.w = (b.w + k) % len(b.buf)
		written += k
	}
	b.count += n
	return n
}

func (b *ring) read(p []byte) int {
	n := min(len(p), b.count)
	for read := 0; read < n; {
		end := len(b.buf)
		if b.r+(n-read) < end {
			end = b.r + (n - read)
		}
		k := copy(p[read:], b.buf[b.r:end])
		b.r = (b.r + k) % len(b.buf)
		read += k
	}
	b.count -= n
	return n
}

func (b *ring) reset() {
	b.r, b.w, b.count = 0, 0, 0
}

// TxFIFO sits between a speaker and its device.
//
// The host writes chunks; the device drains them. When a drain leaves the
// FIFO empty the empty flag is latched and the line is raised. The line is
// also raised when the level falls through half capacity. The flag stays
// latched until ClearEmpty.
type TxFIFO struct {
	mu    sync.Mutex
	ring  ring
	empty bool
	line  *irq.Line

	underruns atomic.Uint64
}

// NewTxFIFO creates a transmit FIFO. line may be nil.
func NewTxFIFO(capacity int, line *irq.Line) *TxFIFO {
	return &TxFIFO{ring: newRing(capacity), line: line}
}

// Write queues up to the free space and returns the bytes accepted
func (f *TxFIFO) Write(p []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ring.write(p)
}

// Drain moves queued bytes into p for the device, zero-filling any underrun.
// Returns the number of real bytes.
func (f *TxFIFO) Drain(p []byte) int {
	f.mu.Lock()
	before := f.ring.count
	n := f.ring.read(p)
	clear(p[n:])
	after := f.ring.count
	if n < len(p) {
		f.underruns.Add(1)
	}
	if after == 0 {
		f.empty = true
	}
	half := len(f.ring.buf) / 2
	raise := after == 0 || (before > half && after <= half)
	f.mu.Unlock()

	if raise && f.line != nil {
		f.line.Raise()
	}
	return n
}

// Latch sets the empty flag if nothing is queued and raises the line
func (f *TxFIFO) Latch() {
	f.mu.Lock()
	latched := f.ring.count == 0
	if latched {
		f.empty = true
	}
	f.mu.Unlock()

	if latched && f.line != nil {
		f.line.Raise()
	}
}

// Empty reports the latched empty flag
func (f *TxFIFO) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.empty
}

// ClearEmpty acknowledges the empty flag
func (f *TxFIFO) ClearEmpty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.empty = false
}

// Len returns the queued byte count
func (f *TxFIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ring.count
}

// Cap returns the FIFO capacity
func (f *TxFIFO) Cap() int {
	return len(f.ring.buf)
}

// Underruns counts drains that ran out of data
func (f *TxFIFO) Underruns() uint64 {
	return f.underruns.Load()
}

// Reset discards queued data and clears the flag
func (f *TxFIFO) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ring.reset()
	f.empty = false
}

// RxFIFO sits between a microphone device and the host.
//
// The device fills it; bytes beyond capacity are dropped and counted. When
// the FIFO becomes full the full flag is latched and the line is raised.
type RxFIFO struct {
	mu   sync.Mutex
	ring ring
	full bool
	line *irq.Line

	overruns atomic.Uint64
}

// NewRxFIFO creates a receive FIFO. line may be nil.
func NewRxFIFO(capacity int, line *irq.Line) *RxFIFO {
	return &RxFIFO{ring: newRing(capacity), line: line}
}

// Fill stores captured bytes from the device and returns how many fit
func (f *RxFIFO) Fill(p []byte) int {
	f.mu.Lock()
	n := f.ring.write(p)
	if n < len(p) {
		f.overruns.Add(1)
	}
	raise := f.ring.free() == 0
	if raise {
		f.full = true
	}
	f.mu.Unlock()

	if raise && f.line != nil {
		f.line.Raise()
	}
	return n
}

// Read copies captured bytes into p, zero-filling what is not available
func (f *RxFIFO) Read(p []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.ring.read(p)
	clear(p[n:])
	return n
}

// Full reports the latched full flag
func (f *RxFIFO) Full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.full
}

// ClearFull acknowledges the full flag
func (f *RxFIFO) ClearFull() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full = false
}

// Len returns the captured byte count
func (f *RxFIFO) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ring.count
}

// Cap returns the FIFO capacity
func (f *RxFIFO) Cap() int {
	return len(f.ring.buf)
}

// Overruns counts fills that did not fit
func (f *RxFIFO) Overruns() uint64 {
	return f.overruns.Load()
}

// Reset discards captured data and clears the flag
func (f *RxFIFO) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ring.reset()
	f.full = false
}
