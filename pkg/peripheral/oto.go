// ABOUTME: Oto backend for playback-only output
// ABOUTME: The oto player pulls from the transmit FIFO as an io.Reader
package peripheral

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// oto only allows one context per process
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate audio.SampleRate
)

// fifoReader feeds the oto player. It never blocks and never ends.
type fifoReader struct {
	drain func(p []byte)
}

func (r fifoReader) Read(p []byte) (int, error) {
	n := len(p) - len(p)%audio.FrameSizeStereo
	r.drain(p[:n])
	return n, nil
}

type otoSink struct {
	fifoSize int
	player   *oto.Player
}

func (s *otoSink) open(rate audio.SampleRate, drain func(p []byte)) error {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   rate.Hz(),
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		otoCtx = ctx
		otoRate = rate
		log.Printf("Audio output initialized: %s, 2 channels (oto)", rate)
	} else if otoRate != rate {
		return fmt.Errorf("oto context already running at %s, cannot switch to %s", otoRate, rate)
	} else {
		if err := otoCtx.Resume(); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
	}

	s.player = otoCtx.NewPlayer(fifoReader{drain: drain})
	s.player.SetBufferSize(s.fifoSize)
	s.player.Play()
	return nil
}

func (s *otoSink) close() error {
	if s.player == nil {
		return nil
	}
	s.player.Pause()
	err := s.player.Close()
	s.player = nil

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if serr := otoCtx.Suspend(); serr != nil {
			log.Printf("Warning: oto suspend error: %v", serr)
		}
	}
	return err
}

func openOto(opts Options) (*Device, error) {
	speaker := newFIFOSpeaker(
		NewTxFIFO(opts.FIFOSize, opts.SpeakerLine),
		&otoSink{fifoSize: opts.FIFOSize},
	)

	return &Device{
		Speaker: speaker,
	}, nil
}
