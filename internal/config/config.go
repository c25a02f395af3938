// ABOUTME: Runtime configuration for the fifoplay binaries
// ABOUTME: Layers defaults, a YAML file, .env, FIFOPLAY_* variables and CLI flags
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/Resonate-Protocol/fifoplay/pkg/peripheral"
	"github.com/Resonate-Protocol/fifoplay/pkg/playback"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "FIFOPLAY_"

// Modes for the player binary
const (
	ModePlay     = "play"
	ModeLoopback = "loopback"
	ModeRecord   = "record"
)

var ErrInvalid = errors.New("invalid config")

// Config holds every tunable of the player and gateway
type Config struct {
	Backend       string `yaml:"backend"`
	SampleRate    int    `yaml:"sample_rate"`
	FIFOSize      int    `yaml:"fifo_size"`
	SilenceCycles int    `yaml:"silence_cycles"`
	SilenceMs     int    `yaml:"silence_ms"`
	Asset         string `yaml:"asset"`
	Mode          string `yaml:"mode"`
	Volume        int    `yaml:"volume"`

	Record RecordConfig `yaml:"record"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
	NoTUI    bool   `yaml:"no_tui"`

	Gateway GatewayConfig `yaml:"gateway"`
}

// RecordConfig controls record mode
type RecordConfig struct {
	Output  string `yaml:"output"`
	Codec   string `yaml:"codec"`
	Seconds int    `yaml:"seconds"`
}

// GatewayConfig controls the push gateway
type GatewayConfig struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
	MDNS bool   `yaml:"mdns"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Backend:       "sim",
		SampleRate:    audio.Rate16000.Hz(),
		FIFOSize:      peripheral.DefaultFIFOSize,
		SilenceCycles: playback.DefaultSilenceCycles,
		Mode:          ModePlay,
		Volume:        100,
		Record: RecordConfig{
			Output:  "capture.raw",
			Codec:   "pcm",
			Seconds: 10,
		},
		LogFile:  "fifoplay.log",
		LogLevel: "debug",
		Gateway: GatewayConfig{
			Port: 8930,
			MDNS: true,
		},
	}
}

// Rate returns the configured sample rate
func (c *Config) Rate() audio.SampleRate {
	return audio.SampleRate(c.SampleRate)
}

// Playback builds the engine configuration
func (c *Config) Playback() playback.Config {
	return playback.Config{
		FIFOSize:        c.FIFOSize,
		SilenceCycles:   c.SilenceCycles,
		SilenceDuration: time.Duration(c.SilenceMs) * time.Millisecond,
	}
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if !c.Rate().Valid() {
		return fmt.Errorf("%w: sample_rate %d not one of %v", ErrInvalid, c.SampleRate, audio.SupportedRates)
	}
	if c.FIFOSize <= 0 || c.FIFOSize%audio.FrameSizeStereo != 0 {
		return fmt.Errorf("%w: fifo_size %d must be a positive multiple of %d", ErrInvalid, c.FIFOSize, audio.FrameSizeStereo)
	}
	if c.SilenceCycles < 0 {
		return fmt.Errorf("%w: silence_cycles %d is negative", ErrInvalid, c.SilenceCycles)
	}
	if c.SilenceMs < 0 {
		return fmt.Errorf("%w: silence_ms %d is negative", ErrInvalid, c.SilenceMs)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("%w: volume %d outside 0-100", ErrInvalid, c.Volume)
	}
	switch c.Mode {
	case ModePlay, ModeLoopback, ModeRecord:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, c.Mode)
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("%w: gateway port %d", ErrInvalid, c.Gateway.Port)
	}
	return nil
}

// LoadFile merges a YAML file over c. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv applies FIFOPLAY_* overrides using lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("BACKEND", &c.Backend)
	num("SAMPLE_RATE", &c.SampleRate)
	num("FIFO_SIZE", &c.FIFOSize)
	num("SILENCE_CYCLES", &c.SilenceCycles)
	num("SILENCE_MS", &c.SilenceMs)
	str("ASSET", &c.Asset)
	str("MODE", &c.Mode)
	num("VOLUME", &c.Volume)
	str("RECORD_OUTPUT", &c.Record.Output)
	str("RECORD_CODEC", &c.Record.Codec)
	num("RECORD_SECONDS", &c.Record.Seconds)
	str("LOG_FILE", &c.LogFile)
	str("LOG_LEVEL", &c.LogLevel)
	flag("NO_TUI", &c.NoTUI)
	num("GATEWAY_PORT", &c.Gateway.Port)
	str("GATEWAY_NAME", &c.Gateway.Name)
	flag("GATEWAY_MDNS", &c.Gateway.MDNS)

	return errors.Join(errs...)
}

// Flags binds CLI flags for c. Only flags the user set override earlier layers,
// so call Apply after parsing.
type Flags struct {
	fs  *pflag.FlagSet
	cfg Config
}

// BindFlags registers every option on fs with defaults from c
func BindFlags(fs *pflag.FlagSet, c Config) *Flags {
	f := &Flags{fs: fs, cfg: c}
	fs.StringVarP(&f.cfg.Backend, "backend", "b", c.Backend, "Audio backend: "+strings.Join(peripheral.Backends(), ", "))
	fs.IntVarP(&f.cfg.SampleRate, "rate", "r", c.SampleRate, "Sample rate in Hz")
	fs.IntVar(&f.cfg.FIFOSize, "fifo", c.FIFOSize, "FIFO capacity in bytes")
	fs.IntVar(&f.cfg.SilenceCycles, "silence-cycles", c.SilenceCycles, "Silence cycles between loops (0 derives from --silence-ms)")
	fs.IntVar(&f.cfg.SilenceMs, "silence-ms", c.SilenceMs, "Silence between loops in milliseconds when --silence-cycles is 0")
	fs.StringVarP(&f.cfg.Asset, "asset", "a", c.Asset, "Audio file to loop (.raw .pcm .s16 .ul .ulaw .mulaw .mp3 .flac)")
	fs.StringVarP(&f.cfg.Mode, "mode", "m", c.Mode, "Mode: play, loopback or record")
	fs.IntVar(&f.cfg.Volume, "volume", c.Volume, "Speaker volume 0-100")
	fs.StringVarP(&f.cfg.Record.Output, "output", "o", c.Record.Output, "Record mode output file")
	fs.StringVar(&f.cfg.Record.Codec, "record-codec", c.Record.Codec, "Record mode codec: pcm, ulaw or opus")
	fs.IntVar(&f.cfg.Record.Seconds, "record-seconds", c.Record.Seconds, "Record mode length in seconds")
	fs.StringVar(&f.cfg.LogFile, "log-file", c.LogFile, "Log file path")
	fs.StringVar(&f.cfg.LogLevel, "log-level", c.LogLevel, "Log level: trace, debug, info, warn, error")
	fs.BoolVar(&f.cfg.NoTUI, "no-tui", c.NoTUI, "Disable TUI, use streaming logs instead")
	fs.IntVarP(&f.cfg.Gateway.Port, "port", "p", c.Gateway.Port, "Gateway listen port")
	fs.StringVar(&f.cfg.Gateway.Name, "name", c.Gateway.Name, "Gateway friendly name (default: hostname-fifoplay)")
	fs.BoolVar(&f.cfg.Gateway.MDNS, "mdns", c.Gateway.MDNS, "Advertise the gateway via mDNS")
	return f
}

// Apply copies flags the user changed onto c
func (f *Flags) Apply(c *Config) {
	set := func(name string, apply func()) {
		if f.fs.Changed(name) {
			apply()
		}
	}
	set("backend", func() { c.Backend = f.cfg.Backend })
	set("rate", func() { c.SampleRate = f.cfg.SampleRate })
	set("fifo", func() { c.FIFOSize = f.cfg.FIFOSize })
	set("silence-cycles", func() { c.SilenceCycles = f.cfg.SilenceCycles })
	set("silence-ms", func() { c.SilenceMs = f.cfg.SilenceMs })
	set("asset", func() { c.Asset = f.cfg.Asset })
	set("mode", func() { c.Mode = f.cfg.Mode })
	set("volume", func() { c.Volume = f.cfg.Volume })
	set("output", func() { c.Record.Output = f.cfg.Record.Output })
	set("record-codec", func() { c.Record.Codec = f.cfg.Record.Codec })
	set("record-seconds", func() { c.Record.Seconds = f.cfg.Record.Seconds })
	set("log-file", func() { c.LogFile = f.cfg.LogFile })
	set("log-level", func() { c.LogLevel = f.cfg.LogLevel })
	set("no-tui", func() { c.NoTUI = f.cfg.NoTUI })
	set("port", func() { c.Gateway.Port = f.cfg.Gateway.Port })
	set("name", func() { c.Gateway.Name = f.cfg.Gateway.Name })
	set("mdns", func() { c.Gateway.MDNS = f.cfg.Gateway.MDNS })
}

// Load builds the configuration for a binary: defaults, then the YAML file
// named by --config, then .env, then the environment, then flags.
func Load(name string, args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "fifoplay.yaml", "YAML config file")
	flags := BindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if err := cfg.LoadFile(*configPath); err != nil {
		return cfg, err
	}
	if err := LoadDotEnv(".env"); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	flags.Apply(&cfg)

	if cfg.Asset == "" && fs.NArg() > 0 {
		cfg.Asset = fs.Arg(0)
	}

	return cfg, cfg.Validate()
}
