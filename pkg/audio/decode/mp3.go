// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes complete MP3 files to interleaved stereo int16 samples
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. Each Decode call takes a complete file.
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3(format audio.Format) (Decoder, error) {
	if format.Codec != "mp3" {
		return nil, fmt.Errorf("invalid codec for MP3 decoder: %s", format.Codec)
	}
	return &MP3Decoder{}, nil
}

// Decode converts MP3 bytes to interleaved stereo int16 samples
func (d *MP3Decoder) Decode(data []byte) ([]int16, error) {
	samples, _, err := ReadMP3(bytes.NewReader(data))
	return samples, err
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}

// ReadMP3 decodes an MP3 stream. go-mp3 always produces 16-bit stereo.
func ReadMP3(r io.Reader) ([]int16, audio.Format, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	format := audio.Format{
		Codec:      "mp3",
		SampleRate: decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, format, fmt.Errorf("mp3 decode error: %w", err)
	}

	return audio.BytesToSamples(pcm), format, nil
}
