// ABOUTME: Simulated I2S codec backend
// ABOUTME: Drains and fills the FIFOs at the configured rate without audio hardware
package peripheral

import (
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/rs/zerolog/log"
)

// simTick is the pacing granularity of the simulated clock
const simTick = 2 * time.Millisecond

// Sim is the simulated codec. In manual mode nothing moves until the caller
// steps the clock.
type Sim struct {
	out *simClock
	in  *simClock
}

// StepSpeaker drains n bytes (whole frames) from the transmit FIFO now
func (s *Sim) StepSpeaker(n int) {
	s.out.step(n)
}

// StepMicrophone captures n bytes (whole frames) into the receive FIFO now
func (s *Sim) StepMicrophone(n int) {
	s.in.step(n)
}

// simClock moves bytes between a FIFO and a virtual device at rate×4 bytes/s
type simClock struct {
	name   string
	manual bool
	chunk  int

	// transfer is set by start: drain for playback, generate+fill for capture
	transfer func(p []byte)

	mu   sync.Mutex
	buf  []byte
	stop chan struct{}
	done chan struct{}
}

func newSimClock(name string, manual bool, chunk int) *simClock {
	return &simClock{name: name, manual: manual, chunk: chunk, buf: make([]byte, chunk)}
}

func (c *simClock) start(rate audio.SampleRate, transfer func(p []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transfer = transfer
	if c.manual {
		return
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(rate.Hz()*audio.FrameSizeStereo, c.stop, c.done)
}

func (c *simClock) halt() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	c.mu.Lock()
	c.transfer = nil
	c.mu.Unlock()
}

func (c *simClock) step(n int) {
	n -= n % audio.FrameSizeStereo

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transfer == nil {
		return
	}
	for n > 0 {
		k := min(n, len(c.buf))
		c.transfer(c.buf[:k])
		n -= k
	}
}

func (c *simClock) run(bytesPerSecond int, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(simTick)
	defer ticker.Stop()

	begin := time.Now()
	var moved int64

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			due := int64(now.Sub(begin).Seconds() * float64(bytesPerSecond))
			n := due - moved
			n -= n % audio.FrameSizeStereo
			if n <= 0 {
				continue
			}
			if n > int64(c.chunk) {
				log.Trace().Str("clock", c.name).Int64("late_bytes", n-int64(c.chunk)).Msg("simulated clock fell behind")
				n = int64(c.chunk)
				moved = due - n
			}
			c.step(int(n))
			moved += n
		}
	}
}

type simSink struct {
	clock   *simClock
	monitor io.Writer
}

func (s *simSink) open(rate audio.SampleRate, drain func(p []byte)) error {
	s.clock.start(rate, func(p []byte) {
		drain(p)
		if s.monitor != nil {
			if _, err := s.monitor.Write(p); err != nil {
				log.Trace().Err(err).Msg("monitor write failed")
			}
		}
	})
	return nil
}

func (s *simSink) close() error {
	s.clock.halt()
	return nil
}

type simSource struct {
	clock     *simClock
	generator Generator
}

func (s *simSource) open(rate audio.SampleRate, fill func(p []byte)) error {
	s.clock.start(rate, func(p []byte) {
		s.generator.Generate(p, rate.Hz())
		fill(p)
	})
	return nil
}

func (s *simSource) close() error {
	s.clock.halt()
	return nil
}

// NewSim builds a simulated device with both directions
func NewSim(opts Options) *Device {
	opts = opts.withDefaults()

	sim := &Sim{
		out: newSimClock("speaker", opts.Manual, opts.FIFOSize),
		in:  newSimClock("microphone", opts.Manual, opts.FIFOSize),
	}

	speaker := newFIFOSpeaker(
		NewTxFIFO(opts.FIFOSize, opts.SpeakerLine),
		&simSink{clock: sim.out, monitor: opts.Monitor},
	)
	mic := newFIFOMicrophone(
		NewRxFIFO(opts.FIFOSize, opts.MicLine),
		&simSource{clock: sim.in, generator: opts.Generator},
	)

	return &Device{
		Name:       "sim",
		Speaker:    speaker,
		Microphone: mic,
		Sim:        sim,
	}
}

func openSim(opts Options) (*Device, error) {
	return NewSim(opts), nil
}
