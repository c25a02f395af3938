// ABOUTME: Pushes an audio file to a fifoplay gateway as µ-law
// ABOUTME: Finds the gateway via mDNS unless an address is given
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/fifoplay/internal/discovery"
	"github.com/Resonate-Protocol/fifoplay/internal/gateway"
	"github.com/Resonate-Protocol/fifoplay/internal/logging"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

var (
	serverAddr = pflag.StringP("server", "s", "", "Gateway address host:port (skip mDNS)")
	rate       = pflag.IntP("rate", "r", 16000, "Sample rate to stream at")
	timeout    = pflag.Duration("timeout", 10*time.Second, "mDNS discovery timeout")
	logLevel   = pflag.String("log-level", "debug", "Log level")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fifoplay-push [flags] <file>\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	if _, err := logging.Setup("", *logLevel, true); err != nil {
		fmt.Fprintf(os.Stderr, "fifoplay-push: %v\n", err)
		os.Exit(2)
	}

	sampleRate, err := audio.ParseSampleRate(*rate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := *serverAddr
	if addr == "" {
		addr, err = discover(ctx, *timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("discovery failed")
		}
	}

	ack, err := gateway.Push(ctx, addr, pflag.Arg(0), sampleRate)
	if err != nil {
		log.Fatal().Err(err).Msg("push failed")
	}

	log.Printf("Gateway played %d/%d bytes in %d frames (%dms), session %s",
		ack.BytesPlayed, ack.BytesReceived, ack.Frames, ack.DurationMs, ack.Session)
}

func discover(ctx context.Context, timeout time.Duration) (string, error) {
	log.Printf("Starting gateway discovery...")
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()
	disc.Browse()

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered gateway at %s", server.Addr())
		return server.Addr(), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no gateway found after %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
