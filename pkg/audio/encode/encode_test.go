// ABOUTME: Unit tests for audio encoders
// ABOUTME: Tests PCM, µ-law and Opus encoding plus the codec factory
package encode

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/fifoplay/pkg/audio"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{
			name:   "pcm",
			format: audio.Format{Codec: "pcm", SampleRate: 16000, Channels: 1, BitDepth: 16},
		},
		{
			name:   "ulaw",
			format: audio.Format{Codec: "ulaw", SampleRate: 16000, Channels: 1, BitDepth: 16},
		},
		{
			name:   "opus 48kHz stereo",
			format: audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16},
		},
		{
			name:        "unsupported codec",
			format:      audio.Format{Codec: "aac", SampleRate: 48000, Channels: 2, BitDepth: 16},
			wantErr:     true,
			errContains: "unsupported codec",
		},
		{
			name:        "unsupported bit depth",
			format:      audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 24},
			wantErr:     true,
			errContains: "unsupported bit depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := New(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("New() error = %v, want error containing %v", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}
			if err := encoder.Close(); err != nil {
				t.Errorf("Close() unexpected error = %v", err)
			}
		})
	}
}

func TestPCMEncoder_Encode(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 16000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	samples := []int16{0, 1000, -1000, 32767, -32768}
	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(output))
	}
	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(output[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestNewPCM_InvalidCodec(t *testing.T) {
	_, err := NewPCM(audio.Format{Codec: "opus", BitDepth: 16})
	if err == nil || err.Error() != "invalid codec for PCM encoder: opus" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestULawEncoder_Encode(t *testing.T) {
	encoder, err := NewULaw(audio.Format{Codec: "ulaw", SampleRate: 8000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewULaw() failed: %v", err)
	}

	output, err := encoder.Encode([]int16{0, 1000, -1000})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	want := []byte{0xFF, 0xCE, 0x4E}
	if string(output) != string(want) {
		t.Errorf("expected % X, got % X", want, output)
	}
}

func TestOpusEncoder_BuffersPartialFrames(t *testing.T) {
	encoder, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	frameSize := 48000 / 50

	// Half a frame produces no packet yet
	out, err := encoder.Encode(make([]int16, frameSize/2))
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no output for partial frame, got %d bytes", len(out))
	}

	// Completing the frame emits exactly one length-prefixed packet
	samples := make([]int16, frameSize/2)
	for i := range samples {
		samples[i] = int16((i % 100) * 200)
	}
	out, err = encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(out) < 3 {
		t.Fatalf("expected a packet, got %d bytes", len(out))
	}
	n := int(binary.LittleEndian.Uint16(out))
	if n == 0 || n > maxPacketSize || 2+n != len(out) {
		t.Errorf("bad packet framing: prefix=%d total=%d", n, len(out))
	}
}

func TestOpusEncoder_Flush(t *testing.T) {
	enc, err := NewOpus(audio.Format{Codec: "opus", SampleRate: 16000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer enc.Close()

	flusher, ok := enc.(Flusher)
	if !ok {
		t.Fatal("Opus encoder should implement Flusher")
	}

	out, err := flusher.Flush()
	if err != nil || len(out) != 0 {
		t.Fatalf("empty flush should be a no-op, got %d bytes err=%v", len(out), err)
	}

	if _, err := enc.Encode(make([]int16, 100)); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	out, err = flusher.Flush()
	if err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(out) < 3 {
		t.Errorf("expected padded frame packet, got %d bytes", len(out))
	}
}
