// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus a codec-name factory
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

// Decoder decodes audio in various formats to 16-bit PCM samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int16, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder registered for format.Codec
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "ulaw":
		return NewULaw(format)
	case "opus":
		return NewOpus(format)
	case "mp3":
		return NewMP3(format)
	case "flac":
		return NewFLAC(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}

// to16 scales a sample of the given bit depth to 16 bits
func to16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth < 16:
		return int16(sample << (16 - bitDepth))
	default:
		return int16(sample)
	}
}
