// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit little-endian PCM audio to int16 samples
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	return &PCMDecoder{}, nil
}

// Decode converts PCM bytes to int16 samples. An odd trailing byte is dropped.
func (d *PCMDecoder) Decode(data []byte) ([]int16, error) {
	return audio.BytesToSamples(data), nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
