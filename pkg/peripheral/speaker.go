// ABOUTME: FIFO-backed speaker shared by every backend
// ABOUTME: Backends only supply the device that drains the transmit FIFO
package peripheral

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/rs/zerolog/log"
)

// sink is the playback device behind a speaker. drain fills a device buffer.
type sink interface {
	open(rate audio.SampleRate, drain func(p []byte)) error
	close() error
}

// FIFOSpeaker implements Speaker on a TxFIFO and a backend sink
type FIFOSpeaker struct {
	fifo *TxFIFO
	sink sink

	mu      sync.Mutex
	rate    audio.SampleRate
	running bool

	volume atomic.Int32
	muted  atomic.Bool
}

func newFIFOSpeaker(fifo *TxFIFO, s sink) *FIFOSpeaker {
	sp := &FIFOSpeaker{fifo: fifo, sink: s}
	sp.volume.Store(100)
	return sp
}

// Configure sets the sample rate
func (s *FIFOSpeaker) Configure(rate audio.SampleRate) error {
	if err := checkRate(rate); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	return nil
}

// Rate returns the configured sample rate
func (s *FIFOSpeaker) Rate() audio.SampleRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Begin opens the device and latches the empty FIFO
func (s *FIFOSpeaker) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rate == 0 {
		return ErrNotConfigured
	}
	if s.running {
		return nil
	}

	s.fifo.Reset()
	if err := s.sink.open(s.rate, s.drain); err != nil {
		return fmt.Errorf("failed to start speaker: %w", err)
	}
	s.running = true

	log.Printf("Speaker started: %s stereo, %d byte FIFO", s.rate, s.fifo.Cap())

	s.fifo.Latch()
	return nil
}

// End closes the device
func (s *FIFOSpeaker) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	if err := s.sink.close(); err != nil {
		log.Printf("Warning: speaker close error: %v", err)
	}
	s.running = false
}

// Running reports whether the device is open
func (s *FIFOSpeaker) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *FIFOSpeaker) Ready() bool {
	return s.fifo.Empty()
}

func (s *FIFOSpeaker) Submit(p []byte) int {
	return s.fifo.Write(p)
}

func (s *FIFOSpeaker) Clear() {
	s.fifo.ClearEmpty()
}

// FIFO exposes the transmit FIFO
func (s *FIFOSpeaker) FIFO() *TxFIFO {
	return s.fifo
}

// SetVolume sets the volume (0-100)
func (s *FIFOSpeaker) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	s.volume.Store(int32(volume))
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (s *FIFOSpeaker) SetMuted(muted bool) {
	s.muted.Store(muted)
	log.Printf("Muted: %v", muted)
}

// Volume returns current volume
func (s *FIFOSpeaker) Volume() int {
	return int(s.volume.Load())
}

// Muted returns mute state
func (s *FIFOSpeaker) Muted() bool {
	return s.muted.Load()
}

// drain runs on the device side
func (s *FIFOSpeaker) drain(p []byte) {
	s.fifo.Drain(p)
	applyGain(p, int(s.volume.Load()), s.muted.Load())
}

// applyGain scales 16-bit LE samples in place with clipping protection
func applyGain(p []byte, volume int, muted bool) {
	if muted {
		clear(p)
		return
	}
	if volume >= 100 {
		return
	}

	multiplier := float64(volume) / 100.0
	for i := 0; i+1 < len(p); i += audio.BytesPerSample {
		scaled := int(float64(audio.SampleAt(p, i/2)) * multiplier)
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		audio.PutSample(p, i/2, int16(scaled))
	}
}
