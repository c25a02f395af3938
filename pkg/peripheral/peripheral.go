// ABOUTME: Speaker and microphone capability interfaces and backend registry
// ABOUTME: Backends are selected by name when the device is opened
package peripheral

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
)

// DefaultFIFOSize is the codec FIFO capacity in bytes
const DefaultFIFOSize = 2048

var (
	// ErrUnsupportedRate is returned when configuring a rate the codec cannot clock
	ErrUnsupportedRate = errors.New("unsupported sample rate")

	// ErrNotConfigured is returned when beginning a peripheral before Configure
	ErrNotConfigured = errors.New("peripheral not configured")

	// ErrUnknownBackend is returned by Open for unregistered names
	ErrUnknownBackend = errors.New("unknown backend")
)

// Speaker is the transmit side of the codec
type Speaker interface {
	// Configure sets the sample rate used by the next Begin
	Configure(rate audio.SampleRate) error

	// Begin starts transmitting. The FIFO starts empty.
	Begin() error

	// End stops transmitting
	End()

	// Ready reports whether the transmit FIFO drained and can take a chunk
	Ready() bool

	// Submit queues interleaved 16-bit stereo bytes and returns how many were accepted
	Submit(p []byte) int

	// Clear acknowledges the ready condition so the next drain re-arms it
	Clear()
}

// Microphone is the receive side of the codec
type Microphone interface {
	Configure(rate audio.SampleRate) error
	Begin() error
	End()

	// Ready reports whether the receive FIFO filled
	Ready() bool

	// Record copies captured interleaved 16-bit stereo bytes into p and
	// returns how many were real data. The rest of p is zeroed.
	Record(p []byte) int

	Clear()
}

// Options configure a backend
type Options struct {
	// FIFOSize is the capacity of each FIFO in bytes (multiple of 4)
	FIFOSize int

	// SpeakerLine is raised when the transmit FIFO drains
	SpeakerLine *irq.Line

	// MicLine is raised when the receive FIFO fills
	MicLine *irq.Line

	// Generator feeds the simulated microphone. Defaults to a 440Hz tone.
	Generator Generator

	// Monitor receives everything the simulated speaker plays
	Monitor io.Writer

	// Manual disables the simulated pacing goroutines; the caller drives
	// the clock with Sim.StepSpeaker and Sim.StepMicrophone.
	Manual bool
}

func (o Options) withDefaults() Options {
	if o.FIFOSize <= 0 {
		o.FIFOSize = DefaultFIFOSize
	}
	if o.Generator == nil {
		o.Generator = NewToneGenerator(440, 0.5)
	}
	return o
}

// Device is an opened backend
type Device struct {
	Name       string
	Speaker    *FIFOSpeaker
	Microphone *FIFOMicrophone // nil when the backend cannot capture

	// Sim is set for the simulated backend
	Sim *Sim

	closeFn func() error
}

// Close ends both directions and releases backend resources
func (d *Device) Close() error {
	if d.Speaker != nil {
		d.Speaker.End()
	}
	if d.Microphone != nil {
		d.Microphone.End()
	}
	if d.closeFn != nil {
		return d.closeFn()
	}
	return nil
}

// Factory opens a backend
type Factory func(opts Options) (*Device, error)

var backends = map[string]Factory{
	"sim":   openSim,
	"malgo": openMalgo,
	"oto":   openOto,
}

// Open opens the named backend
func Open(name string, opts Options) (*Device, error) {
	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}

	opts = opts.withDefaults()
	if opts.FIFOSize%audio.FrameSizeStereo != 0 {
		return nil, fmt.Errorf("fifo size %d is not a multiple of %d", opts.FIFOSize, audio.FrameSizeStereo)
	}

	dev, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", name, err)
	}
	dev.Name = name
	return dev, nil
}

// Backends lists registered backend names
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkRate(rate audio.SampleRate) error {
	if !rate.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedRate, rate)
	}
	return nil
}
