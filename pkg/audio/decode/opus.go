// ABOUTME: Opus audio decoder
// ABOUTME: Decodes length-prefixed Opus packets to int16 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxFrameSize is the largest Opus frame per channel (120ms at 48kHz)
const maxFrameSize = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm     []int16
	partial []byte
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm:     make([]int16, maxFrameSize*format.Channels),
	}, nil
}

// Decode consumes a stream of 2-byte length-prefixed packets. A packet split
// across calls is held until the rest arrives.
func (d *OpusDecoder) Decode(data []byte) ([]int16, error) {
	buf := append(d.partial, data...)
	d.partial = nil

	var out []int16
	for len(buf) >= 2 {
		size := int(binary.LittleEndian.Uint16(buf))
		if len(buf) < 2+size {
			break
		}

		n, err := d.decoder.Decode(buf[2:2+size], d.pcm)
		if err != nil {
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}
		out = append(out, d.pcm[:n*d.format.Channels]...)
		buf = buf[2+size:]
	}

	if len(buf) > 0 {
		d.partial = append([]byte(nil), buf...)
	}
	return out, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	d.partial = nil
	return nil
}
