// ABOUTME: G.711 µ-law encoder
// ABOUTME: Compands int16 samples to one byte per sample
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
)

// ULawEncoder encodes µ-law audio
type ULawEncoder struct{}

// NewULaw creates a new µ-law encoder
func NewULaw(format audio.Format) (Encoder, error) {
	if format.Codec != "ulaw" {
		return nil, fmt.Errorf("invalid codec for ulaw encoder: %s", format.Codec)
	}
	return &ULawEncoder{}, nil
}

// Encode converts int16 samples to µ-law codes
func (e *ULawEncoder) Encode(samples []int16) ([]byte, error) {
	return ulaw.Encode(samples), nil
}

// Close releases resources
func (e *ULawEncoder) Close() error {
	return nil
}
