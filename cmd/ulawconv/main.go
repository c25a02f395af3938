// ABOUTME: Offline converter between 16-bit PCM and µ-law files
// ABOUTME: Encodes any loadable asset to µ-law, or expands µ-law to mono or stereo PCM
package main

import (
	"fmt"
	"os"

	"github.com/Resonate-Protocol/fifoplay/internal/logging"
	"github.com/Resonate-Protocol/fifoplay/pkg/asset"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/audio/ulaw"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

var (
	rate   = pflag.IntP("rate", "r", 16000, "Target sample rate when encoding")
	stereo = pflag.Bool("stereo", false, "Decode to interleaved stereo")
	quiet  = pflag.BoolP("quiet", "q", false, "Only log errors")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  ulawconv encode <in.{raw,pcm,s16,mp3,flac}> <out.ul>\n  ulawconv decode <in.ul> <out.raw>\n\nFlags:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 3 {
		pflag.Usage()
		os.Exit(2)
	}

	level := "debug"
	if *quiet {
		level = "error"
	}
	if _, err := logging.Setup("", level, true); err != nil {
		fmt.Fprintf(os.Stderr, "ulawconv: %v\n", err)
		os.Exit(2)
	}

	cmd, in, out := pflag.Arg(0), pflag.Arg(1), pflag.Arg(2)

	var err error
	switch cmd {
	case "encode":
		err = encodeFile(in, out)
	case "decode":
		err = decodeFile(in, out, *stereo)
	default:
		pflag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("conversion failed")
	}
}

func encodeFile(in, out string) error {
	sampleRate, err := audio.ParseSampleRate(*rate)
	if err != nil {
		return err
	}

	a, err := asset.Load(in, sampleRate)
	if err != nil {
		return err
	}

	pcm := make([]byte, a.Size())
	if _, err := a.ReadAt(pcm, 0); err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}

	codes := make([]byte, len(pcm)/audio.BytesPerSample)
	ulaw.EncodePCM16(codes, pcm)

	if err := os.WriteFile(out, codes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	log.Printf("Encoded %s -> %s: %d samples at %s", in, out, len(codes), sampleRate)
	return nil
}

func decodeFile(in, out string, toStereo bool) error {
	codes, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}

	var pcm []byte
	if toStereo {
		pcm = make([]byte, len(codes)*audio.FrameSizeStereo)
		ulaw.DecodePCM16Stereo(pcm, codes)
	} else {
		pcm = make([]byte, len(codes)*audio.BytesPerSample)
		ulaw.DecodePCM16(pcm, codes)
	}

	if err := os.WriteFile(out, pcm, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	log.Printf("Decoded %s -> %s: %d samples, %d bytes", in, out, len(codes), len(pcm))
	return nil
}
