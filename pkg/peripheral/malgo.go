// ABOUTME: Malgo (miniaudio) backend for real playback and capture
// ABOUTME: Device callbacks drain the transmit FIFO and fill the receive FIFO
package peripheral

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
)

// malgoDevice wraps one playback or capture device on a shared context
type malgoDevice struct {
	ctx        *malgo.AllocatedContext
	deviceType malgo.DeviceType
	fifoSize   int

	mu     sync.Mutex
	device *malgo.Device
}

func (d *malgoDevice) start(rate audio.SampleRate, callback malgo.DataProc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return nil
	}

	deviceConfig := malgo.DefaultDeviceConfig(d.deviceType)
	deviceConfig.SampleRate = uint32(rate.Hz())
	deviceConfig.Alsa.NoMMap = 1
	// Quarter-FIFO periods so the FIFO drains in several steps like the codec does
	deviceConfig.PeriodSizeInFrames = uint32(d.fifoSize / audio.FrameSizeStereo / 4)

	switch d.deviceType {
	case malgo.Playback:
		deviceConfig.Playback.Format = malgo.FormatS16
		deviceConfig.Playback.Channels = 2
	case malgo.Capture:
		deviceConfig.Capture.Format = malgo.FormatS16
		deviceConfig.Capture.Channels = 2
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: callback,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	d.device = device
	log.Printf("Audio device initialized: %s, 2 channels, 16-bit (malgo/%s)", rate, deviceTypeName(d.deviceType))
	return nil
}

func (d *malgoDevice) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil
	}
	if err := d.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	d.device.Uninit()
	d.device = nil
	return nil
}

type malgoSink struct {
	dev *malgoDevice
}

func (s *malgoSink) open(rate audio.SampleRate, drain func(p []byte)) error {
	return s.dev.start(rate, func(pOutput, _ []byte, frameCount uint32) {
		drain(pOutput[:int(frameCount)*audio.FrameSizeStereo])
	})
}

func (s *malgoSink) close() error {
	return s.dev.stop()
}

type malgoSource struct {
	dev *malgoDevice
}

func (s *malgoSource) open(rate audio.SampleRate, fill func(p []byte)) error {
	return s.dev.start(rate, func(_, pInput []byte, frameCount uint32) {
		fill(pInput[:int(frameCount)*audio.FrameSizeStereo])
	})
}

func (s *malgoSource) close() error {
	return s.dev.stop()
}

func openMalgo(opts Options) (*Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	speaker := newFIFOSpeaker(
		NewTxFIFO(opts.FIFOSize, opts.SpeakerLine),
		&malgoSink{dev: &malgoDevice{ctx: ctx, deviceType: malgo.Playback, fifoSize: opts.FIFOSize}},
	)
	mic := newFIFOMicrophone(
		NewRxFIFO(opts.FIFOSize, opts.MicLine),
		&malgoSource{dev: &malgoDevice{ctx: ctx, deviceType: malgo.Capture, fifoSize: opts.FIFOSize}},
	)

	return &Device{
		Speaker:    speaker,
		Microphone: mic,
		closeFn: func() error {
			if err := ctx.Uninit(); err != nil {
				log.Printf("Warning: malgo context uninit error: %v", err)
			}
			ctx.Free()
			return nil
		},
	}, nil
}

func deviceTypeName(t malgo.DeviceType) string {
	switch t {
	case malgo.Playback:
		return "playback"
	case malgo.Capture:
		return "capture"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}
