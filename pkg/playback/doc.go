// ABOUTME: Playback package with the streaming engine, loopback and recorder
// ABOUTME: All three drive peripheral capability interfaces
// Package playback streams audio between payloads and codec peripherals.
//
// Engine is the core: every speaker interrupt it moves FIFOSize/2 bytes of
// mono 16-bit payload into the speaker as FIFOSize bytes of stereo. When the
// payload ends it submits a run of all-zero FIFOs, then loops.
//
//	cursor:   0 ... L-H ... L  →  -SilenceCycles ... -1  →  0 ...
//	transfer: H       H    r       FIFO of zeros              H
//
// Loopback copies the microphone into the speaker and Recorder writes the
// microphone (left channel) to an encoder.
//
// Example:
//
//	engine := playback.New(dev.Speaker, bytes.NewReader(pcm), playback.Config{})
//	if err := engine.Setup(line, audio.Rate16000); err != nil {
//		return err
//	}
//	engine.Start()
//	defer engine.Stop()
package playback
