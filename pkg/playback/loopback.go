// ABOUTME: Microphone-to-speaker loopback driven by the speaker interrupt
// ABOUTME: Each drained speaker FIFO is refilled with one FIFO of captured audio
package playback

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/rs/zerolog/log"
)

// Loopback plays the microphone through the speaker
type Loopback struct {
	speaker peripheral.Speaker
	mic     peripheral.Microphone
	cfg     Config

	mu     sync.Mutex
	line   *irq.Line
	buffer []byte

	started  atomic.Bool
	cycles   atomic.Uint64
	captured atomic.Uint64
	bytes    atomic.Uint64
}

// NewLoopback creates an idle loopback. Only FIFOSize and Allocator of cfg apply.
func NewLoopback(speaker peripheral.Speaker, mic peripheral.Microphone, cfg Config) *Loopback {
	if cfg.FIFOSize == 0 {
		cfg.FIFOSize = peripheral.DefaultFIFOSize
	}
	if cfg.Allocator == nil {
		cfg.Allocator = HeapAllocator
	}
	return &Loopback{speaker: speaker, mic: mic, cfg: cfg}
}

// Setup configures both directions and arms the speaker interrupt
func (l *Loopback) Setup(line *irq.Line, rate audio.SampleRate) error {
	err := l.setup(line, rate)
	if err != nil {
		log.Printf("Loopback setup failed: %v", err)
	}
	return err
}

func (l *Loopback) setup(line *irq.Line, rate audio.SampleRate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line != nil {
		return ErrAlreadySetUp
	}
	if line == nil {
		return fmt.Errorf("%w: nil interrupt line", ErrInvalidConfig)
	}
	if err := l.cfg.Validate(); err != nil {
		return err
	}

	if err := l.speaker.Configure(rate); err != nil {
		return fmt.Errorf("failed to configure speaker: %w", err)
	}
	if err := l.mic.Configure(rate); err != nil {
		return fmt.Errorf("failed to configure microphone: %w", err)
	}

	buffer, err := l.cfg.Allocator(l.cfg.FIFOSize)
	if err != nil || len(buffer) < l.cfg.FIFOSize {
		return fmt.Errorf("%w: loopback buffer: %v", ErrAllocFailed, err)
	}
	l.buffer = buffer[:l.cfg.FIFOSize]

	if err := line.Attach(l.HandleInterrupt); err != nil {
		l.buffer = nil
		return fmt.Errorf("failed to attach handler: %w", err)
	}
	if err := l.mic.Begin(); err != nil {
		line.Detach()
		l.buffer = nil
		return fmt.Errorf("failed to begin microphone: %w", err)
	}
	if err := l.speaker.Begin(); err != nil {
		l.mic.End()
		line.Detach()
		l.buffer = nil
		return fmt.Errorf("failed to begin speaker: %w", err)
	}
	if err := line.Enable(); err != nil {
		l.speaker.End()
		l.mic.End()
		line.Detach()
		l.buffer = nil
		return fmt.Errorf("failed to enable interrupt: %w", err)
	}

	l.line = line
	log.Printf("Loopback ready at %s, %d byte FIFO", rate, l.cfg.FIFOSize)
	return nil
}

// Start lets the next interrupt begin copying
func (l *Loopback) Start() {
	l.started.Store(true)
}

// Stop disables the line and ends both directions
func (l *Loopback) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.line == nil {
		return
	}
	l.line.Disable()
	l.line.Detach()
	l.line = nil
	l.speaker.End()
	l.mic.End()
	l.started.Store(false)
	l.buffer = nil
}

// HandleInterrupt copies one FIFO of capture into the drained speaker
func (l *Loopback) HandleInterrupt() {
	if !l.started.Load() {
		return
	}

	if l.speaker.Ready() {
		n := l.mic.Record(l.buffer)
		accepted := l.speaker.Submit(l.buffer)
		l.speaker.Clear()

		l.cycles.Add(1)
		l.captured.Add(uint64(n))
		l.bytes.Add(uint64(accepted))
	}
}

// LoopbackStats is a snapshot of loopback counters
type LoopbackStats struct {
	Cycles         uint64
	BytesCaptured  uint64
	BytesSubmitted uint64
}

// Stats returns current counters
func (l *Loopback) Stats() LoopbackStats {
	return LoopbackStats{
		Cycles:         l.cycles.Load(),
		BytesCaptured:  l.captured.Load(),
		BytesSubmitted: l.bytes.Load(),
	}
}
