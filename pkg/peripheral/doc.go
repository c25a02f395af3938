// ABOUTME: Peripheral package for codec speaker and microphone access
// ABOUTME: Provides capability interfaces, FIFOs and sim/malgo/oto backends
// Package peripheral models an I2S audio codec as two FIFOs.
//
// A Speaker accepts interleaved 16-bit stereo chunks into a transmit FIFO
// which its device drains at the sample rate. When the FIFO drains, the
// speaker becomes Ready and raises its interrupt line. A Microphone is the
// mirror image: the device fills a receive FIFO and raises its line when full.
//
// Backends:
//   - sim: a virtual codec paced by a goroutine (or stepped manually in tests)
//   - malgo: miniaudio playback and capture devices
//   - oto: playback only
//
// Example:
//
//	line := irq.New("i2s")
//	dev, err := peripheral.Open("sim", peripheral.Options{SpeakerLine: line})
//	defer dev.Close()
package peripheral
