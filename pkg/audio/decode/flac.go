// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes complete FLAC files to interleaved int16 samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio. Each Decode call takes a complete file.
type FLACDecoder struct {
	format audio.Format
}

// NewFLAC creates a new FLAC decoder
func NewFLAC(format audio.Format) (Decoder, error) {
	if format.Codec != "flac" {
		return nil, fmt.Errorf("invalid codec for FLAC decoder: %s", format.Codec)
	}

	return &FLACDecoder{
		format: format,
	}, nil
}

// Decode converts FLAC bytes to int16 samples
func (d *FLACDecoder) Decode(data []byte) ([]int16, error) {
	samples, _, err := ReadFLAC(bytes.NewReader(data))
	return samples, err
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}

// ReadFLAC decodes a FLAC stream frame by frame, scaling every sample to 16 bits
func ReadFLAC(r io.Reader) ([]int16, audio.Format, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	format := audio.Format{
		Codec:      "flac",
		SampleRate: int(stream.Info.SampleRate),
		Channels:   int(stream.Info.NChannels),
		BitDepth:   int(stream.Info.BitsPerSample),
	}

	var samples []int16
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, format, fmt.Errorf("flac decode error: %w", err)
		}

		if len(frame.Subframes) == 0 {
			continue
		}
		blockSize := len(frame.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			for _, sub := range frame.Subframes {
				samples = append(samples, to16(sub.Samples[i], format.BitDepth))
			}
		}
	}

	return samples, format, nil
}
