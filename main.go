// ABOUTME: Entry point for the fifoplay player
// ABOUTME: Loops an asset through the FIFO engine, or runs loopback or record mode
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/fifoplay/internal/config"
	"github.com/Resonate-Protocol/fifoplay/internal/logging"
	"github.com/Resonate-Protocol/fifoplay/internal/ui"
	"github.com/Resonate-Protocol/fifoplay/internal/version"
	"github.com/Resonate-Protocol/fifoplay/pkg/asset"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/encode"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/Resonate-Protocol/fifoplay/pkg/playback"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// runner is the engine driven by the speaker interrupt
type runner interface {
	Setup(line *irq.Line, rate audio.SampleRate) error
	Start()
	Stop()
}

func main() {
	cfg, err := config.Load("fifoplay", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fifoplay: %v\n", err)
		os.Exit(2)
	}

	useTUI := !cfg.NoTUI && cfg.Mode != config.ModeRecord

	// TUI mode: log only to file
	closer, err := logging.Setup(cfg.LogFile, cfg.LogLevel, !useTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fifoplay: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	log.Printf("Starting %s %s: backend=%s mode=%s rate=%s fifo=%d",
		version.Product, version.Version, cfg.Backend, cfg.Mode, cfg.Rate(), cfg.FIFOSize)

	line := irq.New("i2s-tx")
	dev, err := peripheral.Open(cfg.Backend, peripheral.Options{
		FIFOSize:    cfg.FIFOSize,
		SpeakerLine: line,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audio backend")
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("Error closing device: %v", err)
		}
	}()
	dev.Speaker.SetVolume(cfg.Volume)

	if cfg.Mode == config.ModeRecord {
		if err := record(cfg, dev); err != nil {
			log.Error().Err(err).Msg("record failed")
			dev.Close()
			os.Exit(1)
		}
		return
	}

	var (
		engine   *playback.Engine
		loopback *playback.Loopback
		run      runner
		title    string
	)

	switch cfg.Mode {
	case config.ModeLoopback:
		if dev.Microphone == nil {
			log.Fatal().Str("backend", dev.Name).Msg("loopback needs a backend with a microphone")
		}
		loopback = playback.NewLoopback(dev.Speaker, dev.Microphone, cfg.Playback())
		run = loopback
		title = "microphone"

	default:
		payload, err := loadPayload(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load asset")
		}
		engine = playback.New(dev.Speaker, payload, cfg.Playback())
		run = engine
		title = payload.Title
	}

	if err := run.Setup(line, cfg.Rate()); err != nil {
		log.Fatal().Err(err).Msg("engine setup failed")
	}
	run.Start()

	if engine != nil {
		log.Printf("Looping %s with %d silence cycles (%s each)",
			title, engine.SilenceCycles(), playback.CycleDuration(cfg.FIFOSize, cfg.Rate()))
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg = ui.Run(controls, cfg.Volume)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		tuiProg.Send(ui.StatusMsg{Backend: dev.Name, Mode: cfg.Mode, Title: title})
		go handleVolumeControl(dev.Speaker, controls)
	}

	stopStats := make(chan struct{})
	go statsUpdateLoop(tuiProg, engine, loopback, line, dev.Speaker, stopStats)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if controls != nil {
		select {
		case <-controls.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
			tuiProg.Quit()
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	close(stopStats)
	run.Stop()
	log.Printf("Player stopped")
}

func loadPayload(cfg config.Config) (*asset.Asset, error) {
	if cfg.Asset == "" {
		log.Printf("No asset given, looping a 440Hz test tone")
		return asset.Tone(440, 0.5, time.Second, cfg.Rate())
	}
	return asset.Load(cfg.Asset, cfg.Rate())
}

// record captures the microphone to a file until the length or a signal
func record(cfg config.Config, dev *peripheral.Device) error {
	if dev.Microphone == nil {
		return fmt.Errorf("backend %s has no microphone", dev.Name)
	}

	enc, err := encode.New(audio.Format{
		Codec:      cfg.Record.Codec,
		SampleRate: cfg.SampleRate,
		Channels:   1,
		BitDepth:   16,
	})
	if err != nil {
		return err
	}
	defer enc.Close()

	f, err := os.Create(cfg.Record.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maxBytes := int64(cfg.Record.Seconds) * int64(cfg.SampleRate) * audio.BytesPerSample
	rec := playback.NewRecorder(dev.Microphone, enc, playback.RecorderConfig{
		FIFOSize: cfg.FIFOSize,
		Rate:     cfg.Rate(),
		MaxBytes: maxBytes,
	})

	log.Printf("Recording %ds of %s %s to %s", cfg.Record.Seconds, cfg.Rate(), cfg.Record.Codec, filepath.Clean(cfg.Record.Output))

	result, err := rec.Record(ctx, f)
	if err != nil {
		return err
	}
	log.Printf("Recorded %d bytes in %d chunks", result.Captured, result.Chunks)
	return f.Sync()
}

// handleVolumeControl applies volume changes from the TUI
func handleVolumeControl(speaker *peripheral.FIFOSpeaker, controls *ui.Controls) {
	for {
		select {
		case vol := <-controls.Changes:
			log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			speaker.SetVolume(vol.Volume)
			speaker.SetMuted(vol.Muted)
		case <-controls.Quit:
			return
		}
	}
}

// statsUpdateLoop feeds the TUI, or logs a summary line without one
func statsUpdateLoop(prog *tea.Program, engine *playback.Engine, loopback *playback.Loopback,
	line *irq.Line, speaker *peripheral.FIFOSpeaker, stop <-chan struct{}) {
	interval := 250 * time.Millisecond
	if prog == nil {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		irqStats := line.Stats()
		msg := ui.StatusMsg{IRQ: &irqStats, Underruns: speaker.FIFO().Underruns()}

		if engine != nil {
			st := engine.Stats()
			msg.Engine = &st
			if prog == nil {
				log.Printf("Engine %s: cursor %d/%d, %d cycles, %d loops, %d underruns",
					st.State, st.Cursor, st.PayloadSize, st.Cycles, st.Loops, msg.Underruns)
			}
		}
		if loopback != nil {
			lb := loopback.Stats()
			msg.Loopback = &lb
			if prog == nil {
				log.Printf("Loopback: %d cycles, %d bytes captured", lb.Cycles, lb.BytesCaptured)
			}
		}

		if prog != nil {
			prog.Send(msg)
		}
	}
}
