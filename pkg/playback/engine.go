// ABOUTME: Interrupt-driven streaming playback engine
// ABOUTME: Feeds half-FIFO mono chunks as stereo and pads end of payload with silence
package playback

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/rs/zerolog/log"
)

// DefaultSilenceCycles is the number of silent transfers between loops
const DefaultSilenceCycles = 150

var (
	ErrAllocFailed      = errors.New("buffer allocation failed")
	ErrEmptyPayload     = errors.New("payload is empty")
	ErrUnalignedPayload = errors.New("payload is not a whole number of 16-bit samples")
	ErrInvalidConfig    = errors.New("invalid engine config")
	ErrAlreadySetUp     = errors.New("engine already set up")
)

// Payload is the read-only mono 16-bit little-endian source.
// *bytes.Reader and *os.File (via io.NewSectionReader) satisfy it.
type Payload interface {
	io.ReaderAt
	Size() int64
}

// Allocator provides the engine's transfer buffers
type Allocator func(size int) ([]byte, error)

// HeapAllocator allocates with make
func HeapAllocator(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// Config tunes the engine
type Config struct {
	// FIFOSize is the speaker FIFO capacity in bytes. Each streamed
	// transfer reads FIFOSize/2 payload bytes and submits FIFOSize bytes.
	FIFOSize int

	// SilenceCycles is the number of zero transfers after the payload ends.
	// Zero selects SilenceDuration, or DefaultSilenceCycles if that is zero too.
	SilenceCycles int

	// SilenceDuration converts to cycles using the sample rate at Setup
	SilenceDuration time.Duration

	// Allocator defaults to HeapAllocator
	Allocator Allocator
}

// Validate checks the config
func (c Config) Validate() error {
	if c.FIFOSize <= 0 || c.FIFOSize%audio.FrameSizeStereo != 0 {
		return fmt.Errorf("%w: fifo size %d must be a positive multiple of %d", ErrInvalidConfig, c.FIFOSize, audio.FrameSizeStereo)
	}
	if c.SilenceCycles < 0 {
		return fmt.Errorf("%w: silence cycles %d is negative", ErrInvalidConfig, c.SilenceCycles)
	}
	if c.SilenceDuration < 0 {
		return fmt.Errorf("%w: silence duration %s is negative", ErrInvalidConfig, c.SilenceDuration)
	}
	return nil
}

// CycleDuration is the playing time of one full FIFO at rate
func CycleDuration(fifoSize int, rate audio.SampleRate) time.Duration {
	frames := fifoSize / audio.FrameSizeStereo
	return time.Duration(frames) * time.Second / time.Duration(rate.Hz())
}

// silenceCycles resolves the silence length for rate
func (c Config) silenceCycles(rate audio.SampleRate) int {
	switch {
	case c.SilenceCycles > 0:
		return c.SilenceCycles
	case c.SilenceDuration > 0:
		cycle := CycleDuration(c.FIFOSize, rate)
		return int(math.Ceil(float64(c.SilenceDuration) / float64(cycle)))
	default:
		return DefaultSilenceCycles
	}
}

// Engine streams a payload into a speaker, one chunk per interrupt.
//
// The cursor and transfer buffers are only touched by HandleInterrupt once
// the line is enabled. Setup writes them before Enable, and the line's
// dispatcher serializes handler runs.
type Engine struct {
	speaker peripheral.Speaker
	payload Payload
	cfg     Config

	mu      sync.Mutex
	line    *irq.Line
	staging []byte
	output  []byte
	rate    audio.SampleRate

	size    int64
	silence int

	started atomic.Bool
	cursor  atomic.Int64
	stats   counters
}

// New creates an idle engine
func New(speaker peripheral.Speaker, payload Payload, cfg Config) *Engine {
	if cfg.FIFOSize == 0 {
		cfg.FIFOSize = peripheral.DefaultFIFOSize
	}
	if cfg.Allocator == nil {
		cfg.Allocator = HeapAllocator
	}

	return &Engine{
		speaker: speaker,
		payload: payload,
		cfg:     cfg,
	}
}

// Setup configures the speaker, allocates buffers, attaches the handler to
// line and enables it. On any failure the line is left without a handler and
// disabled, and the error is logged once.
func (e *Engine) Setup(line *irq.Line, rate audio.SampleRate) error {
	err := e.setup(line, rate)
	if err != nil {
		log.Printf("Playback setup failed: %v", err)
	}
	return err
}

func (e *Engine) setup(line *irq.Line, rate audio.SampleRate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.line != nil {
		return ErrAlreadySetUp
	}
	if line == nil {
		return fmt.Errorf("%w: nil interrupt line", ErrInvalidConfig)
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	size := e.payload.Size()
	if size <= 0 {
		return ErrEmptyPayload
	}
	if size%audio.BytesPerSample != 0 {
		return fmt.Errorf("%w: %d bytes", ErrUnalignedPayload, size)
	}

	if err := e.speaker.Configure(rate); err != nil {
		return fmt.Errorf("failed to configure speaker: %w", err)
	}

	staging, err := e.cfg.Allocator(e.cfg.FIFOSize / 2)
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %v", ErrAllocFailed, err)
	}
	output, err := e.cfg.Allocator(e.cfg.FIFOSize)
	if err != nil {
		return fmt.Errorf("%w: output buffer: %v", ErrAllocFailed, err)
	}
	if len(staging) < e.cfg.FIFOSize/2 || len(output) < e.cfg.FIFOSize {
		return fmt.Errorf("%w: allocator returned short buffers", ErrAllocFailed)
	}

	e.staging = staging[:e.cfg.FIFOSize/2]
	e.output = output[:e.cfg.FIFOSize]
	e.size = size
	e.rate = rate
	e.silence = e.cfg.silenceCycles(rate)
	e.cursor.Store(0)
	e.started.Store(false)
	e.stats.reset()

	if err := line.Attach(e.HandleInterrupt); err != nil {
		e.release()
		return fmt.Errorf("failed to attach handler: %w", err)
	}
	if err := e.speaker.Begin(); err != nil {
		line.Detach()
		e.release()
		return fmt.Errorf("failed to begin speaker: %w", err)
	}
	if err := line.Enable(); err != nil {
		e.speaker.End()
		line.Detach()
		e.release()
		return fmt.Errorf("failed to enable interrupt: %w", err)
	}

	e.line = line
	log.Printf("Playback ready: %d byte payload at %s, %d byte FIFO, %d silence cycles (%s)",
		size, rate, e.cfg.FIFOSize, e.silence, time.Duration(e.silence)*CycleDuration(e.cfg.FIFOSize, rate))
	return nil
}

// Start lets the next interrupt begin streaming
func (e *Engine) Start() {
	e.started.Store(true)
	log.Printf("Playback started")
}

// Stop disables the line, ends the speaker and releases the buffers.
// The engine can be set up again afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.line == nil {
		return
	}

	e.line.Disable()
	e.line.Detach()
	e.line = nil
	e.speaker.End()
	e.started.Store(false)
	e.release()

	log.Printf("Playback stopped after %d loops", e.stats.loops.Load())
}

func (e *Engine) release() {
	e.staging = nil
	e.output = nil
}

// HandleInterrupt runs one engine cycle. It must only be called from the
// attached line's dispatcher (or, in tests, from a single goroutine).
func (e *Engine) HandleInterrupt() {
	if !e.started.Load() {
		return
	}
	e.stats.cycles.Add(1)

	cursor := e.cursor.Load()

	if cursor < 0 {
		if e.speaker.Ready() {
			clear(e.output)
			e.submit(e.output)
			cursor++
			e.stats.silence.Add(1)
			e.speaker.Clear()
			if cursor == 0 {
				log.Trace().Uint64("loop", e.stats.loops.Load()).Msg("silence done, restarting payload")
			}
		} else {
			e.stats.notReady.Add(1)
		}
		e.cursor.Store(cursor)
		return
	}

	if e.speaker.Ready() {
		size := min(int64(len(e.staging)), e.size-cursor)
		chunk := e.staging[:size]

		n, err := e.payload.ReadAt(chunk, cursor)
		if n < len(chunk) {
			clear(chunk[n:])
			e.stats.readErrors.Add(1)
			log.Trace().Err(err).Int64("cursor", cursor).Int("short", len(chunk)-n).Msg("payload read short, zero-filled")
		}

		out := audio.MonoToStereo(e.output, chunk)
		e.submit(e.output[:out])
		cursor += size
		e.stats.streamed.Add(1)
		// Cleared after submit as the ISR does; a drain lost in between
		// re-latches on the next device read of the empty FIFO.
		e.speaker.Clear()
	} else {
		e.stats.notReady.Add(1)
	}

	if cursor == e.size {
		cursor = -int64(e.silence)
		e.stats.loops.Add(1)
	}
	e.cursor.Store(cursor)
}

func (e *Engine) submit(p []byte) {
	accepted := e.speaker.Submit(p)
	e.stats.bytes.Add(uint64(accepted))
	if accepted < len(p) {
		e.stats.dropped.Add(uint64(len(p) - accepted))
	}
}

// SilenceCycles returns the resolved silence length (valid after Setup)
func (e *Engine) SilenceCycles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.silence
}

// Stats returns a snapshot safe to take from any goroutine
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	size, silence, rate := e.size, e.silence, e.rate
	e.mu.Unlock()

	cursor := e.cursor.Load()
	state := StateStreaming
	switch {
	case !e.started.Load():
		state = StateIdle
	case cursor < 0:
		state = StateSilence
	}

	return Stats{
		State:          state,
		Cursor:         cursor,
		PayloadSize:    size,
		SilenceLength:  silence,
		SampleRate:     rate,
		Cycles:         e.stats.cycles.Load(),
		StreamCycles:   e.stats.streamed.Load(),
		SilenceCycles:  e.stats.silence.Load(),
		NotReady:       e.stats.notReady.Load(),
		BytesSubmitted: e.stats.bytes.Load(),
		BytesDropped:   e.stats.dropped.Load(),
		Loops:          e.stats.loops.Load(),
		ReadErrors:     e.stats.readErrors.Load(),
	}
}
