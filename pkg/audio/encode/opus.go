// ABOUTME: Opus audio encoder
// ABOUTME: Buffers int16 samples into 20ms frames and emits length-prefixed packets
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxPacketSize is the largest Opus packet the encoder will produce
const maxPacketSize = 4000

// OpusEncoder encodes Opus audio.
//
// Every packet is written as a 2-byte little-endian length followed by the
// packet, so a byte stream of encoder output can be split again on decode.
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	pending   []int16
	packet    []byte
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// 20ms frame
	frameSize := format.SampleRate / 50

	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: frameSize,
		packet:    make([]byte, maxPacketSize),
	}, nil
}

// Encode appends samples to the pending frame and encodes every complete frame
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	e.pending = append(e.pending, samples...)

	frameLen := e.frameSize * e.channels
	var out []byte
	for len(e.pending) >= frameLen {
		var err error
		out, err = e.encodeFrame(out, e.pending[:frameLen])
		if err != nil {
			return nil, err
		}
		e.pending = e.pending[frameLen:]
	}

	// Compact so the backing array does not grow without bound
	e.pending = append([]int16(nil), e.pending...)
	return out, nil
}

// Flush pads the pending partial frame with silence and encodes it
func (e *OpusEncoder) Flush() ([]byte, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}

	frame := make([]int16, e.frameSize*e.channels)
	copy(frame, e.pending)
	e.pending = nil
	return e.encodeFrame(nil, frame)
}

func (e *OpusEncoder) encodeFrame(out []byte, frame []int16) ([]byte, error) {
	n, err := e.encoder.Encode(frame, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out = binary.LittleEndian.AppendUint16(out, uint16(n))
	return append(out, e.packet[:n]...), nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	e.pending = nil
	return nil
}
