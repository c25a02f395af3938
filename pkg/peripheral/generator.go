// ABOUTME: Signal generators feeding the simulated microphone
// ABOUTME: Produces interleaved 16-bit stereo frames on demand
package peripheral

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

// Generator fills p with interleaved 16-bit stereo frames at rate
type Generator interface {
	Generate(p []byte, rate int)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(p []byte, rate int)

func (f GeneratorFunc) Generate(p []byte, rate int) { f(p, rate) }

// Silence generates zeros
var Silence = GeneratorFunc(func(p []byte, _ int) { clear(p) })

// ToneGenerator generates a sine tone on both channels
type ToneGenerator struct {
	frequency   float64
	amplitude   float64
	sampleIndex uint64
	mu          sync.Mutex
}

// NewToneGenerator creates a tone at frequency Hz; amplitude is 0..1
func NewToneGenerator(frequency, amplitude float64) *ToneGenerator {
	return &ToneGenerator{
		frequency: frequency,
		amplitude: amplitude,
	}
}

func (g *ToneGenerator) Generate(p []byte, rate int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	frames := len(p) / audio.FrameSizeStereo
	for i := 0; i < frames; i++ {
		t := float64(g.sampleIndex+uint64(i)) / float64(rate)
		value := int16(math.Sin(2*math.Pi*g.frequency*t) * 32767.0 * g.amplitude)

		audio.PutSample(p, i*2, value)
		audio.PutSample(p, i*2+1, value)
	}
	clear(p[frames*audio.FrameSizeStereo:])

	g.sampleIndex += uint64(frames)
}
