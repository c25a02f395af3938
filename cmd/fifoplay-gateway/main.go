// ABOUTME: Entry point for the fifoplay push gateway
// ABOUTME: Plays µ-law streams pushed over WebSocket on the local speaker
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/fifoplay/internal/config"
	"github.com/Resonate-Protocol/fifoplay/internal/gateway"
	"github.com/Resonate-Protocol/fifoplay/internal/logging"
	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load("fifoplay-gateway", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fifoplay-gateway: %v\n", err)
		os.Exit(2)
	}

	// Log to both file and stdout
	closer, err := logging.Setup(cfg.LogFile, cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fifoplay-gateway: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	serverName := cfg.Gateway.Name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-fifoplay", hostname)
	}

	log.Printf("Starting gateway %s on port %d (backend %s)", serverName, cfg.Gateway.Port, cfg.Backend)
	log.Printf("Logging to: %s", cfg.LogFile)
	log.Printf("Press Ctrl-C to stop")

	line := irq.New("i2s-tx")
	dev, err := peripheral.Open(cfg.Backend, peripheral.Options{
		FIFOSize:    cfg.FIFOSize,
		SpeakerLine: line,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audio backend")
	}
	defer dev.Close()
	dev.Speaker.SetVolume(cfg.Volume)

	srv, err := gateway.New(gateway.Config{
		Port:       cfg.Gateway.Port,
		Name:       serverName,
		EnableMDNS: cfg.Gateway.MDNS,
	}, dev.Speaker, line)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("gateway error")
		dev.Close()
		os.Exit(1)
	}

	st := srv.Stats()
	log.Printf("Gateway stopped after %d streams (%d rejected, %d bytes played)", st.Sessions, st.Rejected, st.BytesPlayed)
}
