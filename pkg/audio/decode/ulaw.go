// ABOUTME: G.711 µ-law decoder
// ABOUTME: Expands µ-law bytes to int16 samples
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
)

// ULawDecoder decodes µ-law audio
type ULawDecoder struct{}

// NewULaw creates a new µ-law decoder
func NewULaw(format audio.Format) (Decoder, error) {
	if format.Codec != "ulaw" {
		return nil, fmt.Errorf("invalid codec for ulaw decoder: %s", format.Codec)
	}
	return &ULawDecoder{}, nil
}

// Decode converts µ-law bytes to int16 samples
func (d *ULawDecoder) Decode(data []byte) ([]int16, error) {
	return ulaw.Decode(data), nil
}

// Close releases resources
func (d *ULawDecoder) Close() error {
	return nil
}
