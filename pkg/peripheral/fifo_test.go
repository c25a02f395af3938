// ABOUTME: Tests for transmit and receive FIFOs
// ABOUTME: Covers wraparound, zero-filled underrun, latching and line raises
package peripheral

import (
	"bytes"
	"testing"

	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int, start byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = start + byte(i)
	}
	return p
}

func TestRingWraparound(t *testing.T) {
	r := newRing(8)

	assert.Equal(t, 6, r.write(seq(6, 1)))
	out := make([]byte, 4)
	assert.Equal(t, 4, r.read(out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	// Writes across the end of the backing array
	assert.Equal(t, 6, r.write(seq(10, 10)))
	assert.Equal(t, 0, r.free())

	out = make([]byte, 8)
	assert.Equal(t, 8, r.read(out))
	assert.Equal(t, []byte{5, 6, 10, 11, 12, 13, 14, 15}, out)
}

func TestTxFIFOWriteAcceptsUpToFreeSpace(t *testing.T) {
	f := NewTxFIFO(8, nil)

	assert.Equal(t, 6, f.Write(seq(6, 0)))
	assert.Equal(t, 2, f.Write(seq(6, 0)))
	assert.Equal(t, 8, f.Len())
	assert.Equal(t, 8, f.Cap())
}

func TestTxFIFODrainZeroFillsUnderrun(t *testing.T) {
	f := NewTxFIFO(8, nil)
	f.Write([]byte{1, 2, 3, 4})

	p := bytes.Repeat([]byte{0xAA}, 8)
	n := f.Drain(p)

	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, p)
	assert.Equal(t, uint64(1), f.Underruns())
	assert.True(t, f.Empty())
}

func TestTxFIFOEmptyLatchAndRaise(t *testing.T) {
	line := irq.New("tx")
	f := NewTxFIFO(8, line)

	f.Write(seq(8, 0))
	f.Drain(make([]byte, 2))
	assert.False(t, f.Empty())
	assert.Equal(t, uint64(0), line.Stats().Raised)

	// Falling through half capacity raises without latching
	f.Drain(make([]byte, 2))
	assert.False(t, f.Empty())
	assert.Equal(t, uint64(1), line.Stats().Raised)

	// Draining the rest latches empty and raises again
	f.Drain(make([]byte, 4))
	assert.True(t, f.Empty())
	assert.Equal(t, uint64(2), line.Stats().Raised)

	// Writing does not clear the latch; ClearEmpty does
	f.Write(seq(8, 0))
	assert.True(t, f.Empty())
	f.ClearEmpty()
	assert.False(t, f.Empty())
}

func TestTxFIFORelatchesAfterClearedDrain(t *testing.T) {
	line := irq.New("tx")
	f := NewTxFIFO(8, line)

	// Submit, the device drains everything, then the late clear drops the latch
	f.Write(seq(8, 0))
	f.Drain(make([]byte, 8))
	f.ClearEmpty()
	require.False(t, f.Empty())

	// The next device read of the empty FIFO latches and raises again
	f.Drain(make([]byte, 4))
	assert.True(t, f.Empty())
	assert.Equal(t, uint64(2), line.Stats().Raised)
	assert.Equal(t, uint64(1), f.Underruns())
}

func TestTxFIFOLatch(t *testing.T) {
	line := irq.New("tx")
	f := NewTxFIFO(8, line)

	f.Latch()
	assert.True(t, f.Empty())
	assert.Equal(t, uint64(1), line.Stats().Raised)

	f.ClearEmpty()
	f.Write(seq(4, 0))
	f.Latch()
	assert.False(t, f.Empty(), "latch must not fire while data is queued")
}

func TestTxFIFOReset(t *testing.T) {
	f := NewTxFIFO(8, nil)
	f.Write(seq(8, 0))
	f.Latch()
	f.Reset()

	assert.Equal(t, 0, f.Len())
	assert.False(t, f.Empty())
}

func TestRxFIFOFillLatchesFull(t *testing.T) {
	line := irq.New("rx")
	f := NewRxFIFO(8, line)

	assert.Equal(t, 4, f.Fill(seq(4, 1)))
	assert.False(t, f.Full())

	assert.Equal(t, 4, f.Fill(seq(6, 5)))
	assert.True(t, f.Full())
	assert.Equal(t, uint64(1), f.Overruns())
	assert.Equal(t, uint64(1), line.Stats().Raised)

	p := make([]byte, 10)
	n := f.Read(p)
	require.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 0, 0}, p)

	assert.True(t, f.Full(), "full stays latched until cleared")
	f.ClearFull()
	assert.False(t, f.Full())
}
