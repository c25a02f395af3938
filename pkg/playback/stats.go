// ABOUTME: Engine state and statistics types
// ABOUTME: Counters are atomics so snapshots can be taken while streaming
package playback

import (
	"sync/atomic"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

// State is the engine's position in its cycle
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateSilence
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateSilence:
		return "silence"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of engine progress
type Stats struct {
	State         State
	Cursor        int64
	PayloadSize   int64
	SilenceLength int
	SampleRate    audio.SampleRate

	Cycles         uint64
	StreamCycles   uint64
	SilenceCycles  uint64
	NotReady       uint64
	BytesSubmitted uint64
	BytesDropped   uint64
	Loops          uint64
	ReadErrors     uint64
}

// Progress returns the fraction of the payload streamed in the current loop
func (s Stats) Progress() float64 {
	if s.PayloadSize == 0 || s.Cursor < 0 {
		return 0
	}
	return float64(s.Cursor) / float64(s.PayloadSize)
}

// SilenceRemaining returns the silent transfers left before the payload restarts
func (s Stats) SilenceRemaining() int {
	if s.Cursor >= 0 {
		return 0
	}
	return int(-s.Cursor)
}

type counters struct {
	cycles     atomic.Uint64
	streamed   atomic.Uint64
	silence    atomic.Uint64
	notReady   atomic.Uint64
	bytes      atomic.Uint64
	dropped    atomic.Uint64
	loops      atomic.Uint64
	readErrors atomic.Uint64
}

func (c *counters) reset() {
	c.cycles.Store(0)
	c.streamed.Store(0)
	c.silence.Store(0)
	c.notReady.Store(0)
	c.bytes.Store(0)
	c.dropped.Store(0)
	c.loops.Store(0)
	c.readErrors.Store(0)
}
