// ABOUTME: Audio type definitions
// ABOUTME: Defines sample rates, stream formats and 16-bit sample access
package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	// BytesPerSample is the size of one 16-bit linear PCM sample
	BytesPerSample = 2

	// FrameSizeStereo is the size of one interleaved 16-bit stereo frame
	FrameSizeStereo = 2 * BytesPerSample
)

// SampleRate is one of the rates the codec path is clocked for
type SampleRate int

const (
	Rate44100 SampleRate = 44100
	Rate48000 SampleRate = 48000
	Rate32000 SampleRate = 32000
	Rate16000 SampleRate = 16000
	Rate8000  SampleRate = 8000
)

// SupportedRates lists every rate in descending order
var SupportedRates = []SampleRate{Rate48000, Rate44100, Rate32000, Rate16000, Rate8000}

// Valid reports whether r is a supported rate
func (r SampleRate) Valid() bool {
	for _, s := range SupportedRates {
		if r == s {
			return true
		}
	}
	return false
}

// Hz returns the rate as a plain int
func (r SampleRate) Hz() int {
	return int(r)
}

func (r SampleRate) String() string {
	if r%1000 == 0 {
		return fmt.Sprintf("%dKHz", int(r)/1000)
	}
	return fmt.Sprintf("%dHz", int(r))
}

// ParseSampleRate converts a Hz value to a supported SampleRate
func ParseSampleRate(hz int) (SampleRate, error) {
	r := SampleRate(hz)
	if !r.Valid() {
		return 0, fmt.Errorf("unsupported sample rate: %d", hz)
	}
	return r, nil
}

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerSecond returns the PCM byte rate of the format
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitDepth / 8)
}

// SampleAt reads the i-th 16-bit little-endian sample from buf
func SampleAt(buf []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[i*BytesPerSample:]))
}

// PutSample writes s as the i-th 16-bit little-endian sample of buf
func PutSample(buf []byte, i int, s int16) {
	binary.LittleEndian.PutUint16(buf[i*BytesPerSample:], uint16(s))
}

// BytesToSamples converts 16-bit LE bytes to samples (odd trailing byte ignored)
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = SampleAt(data, i)
	}
	return samples
}

// SamplesToBytes converts samples to 16-bit LE bytes
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		PutSample(out, i, s)
	}
	return out
}
