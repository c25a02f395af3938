// ABOUTME: FIFO-backed microphone shared by every capture backend
// ABOUTME: Backends only supply the device that fills the receive FIFO
package peripheral

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/rs/zerolog/log"
)

// source is the capture device behind a microphone
type source interface {
	open(rate audio.SampleRate, fill func(p []byte)) error
	close() error
}

// FIFOMicrophone implements Microphone on an RxFIFO and a backend source
type FIFOMicrophone struct {
	fifo *RxFIFO
	src  source

	mu      sync.Mutex
	rate    audio.SampleRate
	running bool
}

func newFIFOMicrophone(fifo *RxFIFO, src source) *FIFOMicrophone {
	return &FIFOMicrophone{fifo: fifo, src: src}
}

// Configure sets the sample rate
func (m *FIFOMicrophone) Configure(rate audio.SampleRate) error {
	if err := checkRate(rate); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
	return nil
}

// Begin opens the capture device with an empty FIFO
func (m *FIFOMicrophone) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rate == 0 {
		return ErrNotConfigured
	}
	if m.running {
		return nil
	}

	m.fifo.Reset()
	if err := m.src.open(m.rate, m.fill); err != nil {
		return fmt.Errorf("failed to start microphone: %w", err)
	}
	m.running = true

	log.Printf("Microphone started: %s stereo, %d byte FIFO", m.rate, m.fifo.Cap())
	return nil
}

// End closes the capture device
func (m *FIFOMicrophone) End() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if err := m.src.close(); err != nil {
		log.Printf("Warning: microphone close error: %v", err)
	}
	m.running = false
}

func (m *FIFOMicrophone) Ready() bool {
	return m.fifo.Full()
}

func (m *FIFOMicrophone) Record(p []byte) int {
	return m.fifo.Read(p)
}

func (m *FIFOMicrophone) Clear() {
	m.fifo.ClearFull()
}

// FIFO exposes the receive FIFO
func (m *FIFOMicrophone) FIFO() *RxFIFO {
	return m.fifo
}

func (m *FIFOMicrophone) fill(p []byte) {
	m.fifo.Fill(p)
}
