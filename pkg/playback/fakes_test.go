// ABOUTME: Test doubles for speaker and microphone
// ABOUTME: Record submissions and let tests control the ready signal
package playback

import (
	"errors"
	"sync"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

type fakeSpeaker struct {
	mu          sync.Mutex
	rate        audio.SampleRate
	configErr   error
	beginErr    error
	began       int
	ended       int
	notReady    bool
	cleared     int
	submissions [][]byte
}

func (s *fakeSpeaker) Configure(rate audio.SampleRate) error {
	if s.configErr != nil {
		return s.configErr
	}
	s.rate = rate
	return nil
}

func (s *fakeSpeaker) Begin() error {
	if s.beginErr != nil {
		return s.beginErr
	}
	s.began++
	return nil
}

func (s *fakeSpeaker) End() { s.ended++ }

func (s *fakeSpeaker) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.notReady
}

func (s *fakeSpeaker) setReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notReady = !ready
}

func (s *fakeSpeaker) Submit(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, append([]byte(nil), p...))
	return len(p)
}

func (s *fakeSpeaker) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
}

func (s *fakeSpeaker) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.submissions))
	for i, p := range s.submissions {
		out[i] = len(p)
	}
	return out
}

func (s *fakeSpeaker) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = nil
}

type fakeMic struct {
	rate     audio.SampleRate
	fill     byte
	ready    bool
	began    int
	ended    int
	cleared  int
	recorded int
}

func (m *fakeMic) Configure(rate audio.SampleRate) error {
	m.rate = rate
	return nil
}

func (m *fakeMic) Begin() error { m.began++; return nil }
func (m *fakeMic) End()         { m.ended++ }
func (m *fakeMic) Ready() bool  { return m.ready }
func (m *fakeMic) Clear()       { m.cleared++ }

func (m *fakeMic) Record(p []byte) int {
	for i := range p {
		p[i] = m.fill + byte(i%4)
	}
	m.recorded++
	return len(p)
}

// failingReader returns an error after limit bytes
type failingReader struct {
	data  []byte
	limit int64
}

func (r *failingReader) Size() int64 { return int64(len(r.data)) }

func (r *failingReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.limit {
		return 0, errors.New("flash read error")
	}
	n := copy(p, r.data[off:min(int64(len(r.data)), r.limit)])
	if n < len(p) {
		return n, errors.New("flash read error")
	}
	return n, nil
}
