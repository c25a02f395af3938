// ABOUTME: Microphone recorder producing encoded mono audio
// ABOUTME: Polls the receive FIFO, keeps the left channel and writes encoded chunks
package playback

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/encode"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/rs/zerolog/log"
)

// DefaultMaxRecordBytes caps a recording at 10s of 16kHz mono PCM
const DefaultMaxRecordBytes = 10 * 16000 * audio.BytesPerSample

// RecorderConfig tunes a Recorder
type RecorderConfig struct {
	FIFOSize int
	Rate     audio.SampleRate

	// MaxBytes limits captured mono PCM bytes
	MaxBytes int64

	// PollInterval is how often the microphone is checked
	PollInterval time.Duration
}

// RecordResult summarizes a recording
type RecordResult struct {
	Captured int64 // mono PCM bytes
	Written  int64 // encoded bytes
	Chunks   int
}

// Recorder records the microphone until a limit or cancellation
type Recorder struct {
	mic peripheral.Microphone
	enc encode.Encoder
	cfg RecorderConfig
}

// NewRecorder creates a recorder; enc receives mono samples
func NewRecorder(mic peripheral.Microphone, enc encode.Encoder, cfg RecorderConfig) *Recorder {
	if cfg.FIFOSize == 0 {
		cfg.FIFOSize = peripheral.DefaultFIFOSize
	}
	if cfg.Rate == 0 {
		cfg.Rate = audio.Rate16000
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxRecordBytes
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	return &Recorder{mic: mic, enc: enc, cfg: cfg}
}

// Record captures into w. It returns when MaxBytes of mono PCM were captured,
// ctx is done (not an error) or a write fails.
func (r *Recorder) Record(ctx context.Context, w io.Writer) (RecordResult, error) {
	var result RecordResult

	if err := r.mic.Configure(r.cfg.Rate); err != nil {
		return result, fmt.Errorf("failed to configure microphone: %w", err)
	}
	if err := r.mic.Begin(); err != nil {
		return result, fmt.Errorf("failed to begin microphone: %w", err)
	}
	defer r.mic.End()

	buf := make([]byte, r.cfg.FIFOSize)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for result.Captured < r.cfg.MaxBytes && ctx.Err() == nil {
		if r.mic.Ready() {
			r.mic.Record(buf)
			mono := buf[:audio.StereoToMono(buf, buf)]
			if remaining := r.cfg.MaxBytes - result.Captured; int64(len(mono)) > remaining {
				mono = mono[:remaining-remaining%audio.BytesPerSample]
			}

			encoded, err := r.enc.Encode(audio.BytesToSamples(mono))
			if err != nil {
				r.mic.Clear()
				return result, fmt.Errorf("failed to encode chunk: %w", err)
			}
			n, err := w.Write(encoded)
			result.Written += int64(n)
			if err != nil {
				r.mic.Clear()
				return result, fmt.Errorf("failed to write chunk: %w", err)
			}

			r.mic.Clear()
			result.Captured += int64(len(mono))
			result.Chunks++
			if len(mono) == 0 {
				break
			}
			continue
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	return r.flush(w, result)
}

func (r *Recorder) flush(w io.Writer, result RecordResult) (RecordResult, error) {
	if f, ok := r.enc.(encode.Flusher); ok {
		tail, err := f.Flush()
		if err != nil {
			return result, fmt.Errorf("failed to flush encoder: %w", err)
		}
		n, err := w.Write(tail)
		result.Written += int64(n)
		if err != nil {
			return result, fmt.Errorf("failed to write chunk: %w", err)
		}
	}

	log.Printf("Recorded %d bytes (16-bit, %s, mono), %d bytes written",
		result.Captured, r.cfg.Rate, result.Written)
	return result, nil
}
