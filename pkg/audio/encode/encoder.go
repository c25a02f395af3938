// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders plus a codec-name factory
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

// Encoder encodes 16-bit PCM samples to various formats
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// Flusher is implemented by encoders that buffer partial frames
type Flusher interface {
	Flush() ([]byte, error)
}

// New returns the encoder registered for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "ulaw":
		return NewULaw(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
