// ABOUTME: Loads audio files into read-only playback payloads
// ABOUTME: Decodes by extension, downmixes to mono and resamples to the playback rate
package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/resample"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/rs/zerolog/log"
)

// ErrEmpty is returned when a file decodes to no samples
var ErrEmpty = errors.New("asset contains no audio")

// Kind identifies a file format
type Kind string

const (
	KindPCM  Kind = "pcm"
	KindULaw Kind = "ulaw"
	KindMP3  Kind = "mp3"
	KindFLAC Kind = "flac"
)

// KindOf maps a file extension to its format
func KindOf(path string) (Kind, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".raw", ".pcm", ".s16":
		return KindPCM, nil
	case ".ul", ".ulaw", ".mulaw":
		return KindULaw, nil
	case ".mp3":
		return KindMP3, nil
	case ".flac":
		return KindFLAC, nil
	default:
		return "", fmt.Errorf("unsupported audio format: %s (supported: .raw, .pcm, .s16, .ul, .ulaw, .mulaw, .mp3, .flac)", ext)
	}
}

// Asset is a decoded mono 16-bit little-endian payload. It satisfies
// playback.Payload through the embedded reader.
type Asset struct {
	*bytes.Reader

	Title  string
	Source audio.Format
	Rate   audio.SampleRate
}

// Duration returns the playing time in seconds
func (a *Asset) Duration() float64 {
	return float64(a.Size()) / float64(audio.BytesPerSample*a.Rate.Hz())
}

// Load reads and decodes path for playback at rate. Headerless PCM and µ-law
// files are taken to be mono at rate already.
func Load(path string, rate audio.SampleRate) (*Asset, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	a, err := Read(f, kind, rate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	filename := filepath.Base(path)
	a.Title = strings.TrimSuffix(filename, filepath.Ext(filename))

	log.Printf("Loaded %s: %s (%dHz, %d ch) -> %d bytes mono at %s (%.1fs)",
		kind, a.Title, a.Source.SampleRate, a.Source.Channels, a.Size(), rate, a.Duration())
	return a, nil
}

// Read decodes r as kind for playback at rate
func Read(r io.Reader, kind Kind, rate audio.SampleRate) (*Asset, error) {
	var (
		samples []int16
		format  audio.Format
	)

	switch kind {
	case KindPCM:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcm: %w", err)
		}
		// odd trailing byte dropped
		samples = audio.BytesToSamples(data)
		format = audio.Format{Codec: "pcm", SampleRate: rate.Hz(), Channels: 1, BitDepth: 16}

	case KindULaw:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read ulaw: %w", err)
		}
		samples = ulaw.Decode(data)
		format = audio.Format{Codec: "ulaw", SampleRate: rate.Hz(), Channels: 1, BitDepth: 8}

	case KindMP3:
		var err error
		samples, format, err = decode.ReadMP3(r)
		if err != nil {
			return nil, err
		}

	case KindFLAC:
		var err error
		samples, format, err = decode.ReadFLAC(r)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported asset kind: %q", kind)
	}

	mono := audio.DownmixSamples(samples, format.Channels)
	mono = resample.Convert(mono, format.SampleRate, rate.Hz(), 1)
	if len(mono) == 0 {
		return nil, ErrEmpty
	}

	return &Asset{
		Reader: bytes.NewReader(audio.SamplesToBytes(mono)),
		Source: format,
		Rate:   rate,
	}, nil
}

// FromSamples wraps already decoded mono samples at rate
func FromSamples(title string, samples []int16, rate audio.SampleRate) (*Asset, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	return &Asset{
		Reader: bytes.NewReader(audio.SamplesToBytes(samples)),
		Title:  title,
		Source: audio.Format{Codec: "pcm", SampleRate: rate.Hz(), Channels: 1, BitDepth: 16},
		Rate:   rate,
	}, nil
}

// Tone renders a sine tone of the given length as a payload
func Tone(frequency, amplitude float64, length time.Duration, rate audio.SampleRate) (*Asset, error) {
	frames := int(int64(length) * int64(rate.Hz()) / int64(time.Second))
	stereo := make([]byte, frames*audio.FrameSizeStereo)
	peripheral.NewToneGenerator(frequency, amplitude).Generate(stereo, rate.Hz())

	n := audio.StereoToMono(stereo, stereo)
	return FromSamples(fmt.Sprintf("%gHz tone", frequency), audio.BytesToSamples(stereo[:n]), rate)
}
