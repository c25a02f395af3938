// ABOUTME: Tests for the linear resampler
// ABOUTME: Covers up/downsampling lengths and interpolation values
package resample

import (
	"testing"
)

func TestResampleUpsampleInterpolates(t *testing.T) {
	r := New(8000, 16000, 1)
	input := []int16{0, 100, 200, 300}
	output := make([]int16, 8)

	n := r.Resample(input, output)
	if n != 6 {
		t.Fatalf("expected 6 samples, got %d", n)
	}

	expected := []int16{0, 50, 100, 150, 200, 250}
	for i, want := range expected {
		if output[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, output[i])
		}
	}
}

func TestResampleDownsample(t *testing.T) {
	r := New(48000, 16000, 1)
	input := make([]int16, 30)
	for i := range input {
		input[i] = int16(i * 10)
	}
	output := make([]int16, 10)

	n := r.Resample(input, output)
	if n != 10 {
		t.Fatalf("expected 10 samples, got %d", n)
	}
	for i := 0; i < n; i++ {
		if output[i] != int16(i*30) {
			t.Errorf("sample %d: expected %d, got %d", i, i*30, output[i])
		}
	}
}

func TestResampleStereoKeepsChannelsApart(t *testing.T) {
	r := New(16000, 32000, 2)
	input := []int16{0, 1000, 100, 900, 200, 800}
	output := make([]int16, 12)

	n := r.Resample(input, output)
	if n%2 != 0 {
		t.Fatalf("expected whole frames, got %d samples", n)
	}
	if output[2] != 50 || output[3] != 950 {
		t.Errorf("unexpected interpolated frame: %d %d", output[2], output[3])
	}
}

func TestConvert(t *testing.T) {
	same := []int16{1, 2, 3}
	if got := Convert(same, 16000, 16000, 1); len(got) != 3 {
		t.Errorf("equal rates should pass through, got %v", got)
	}

	input := make([]int16, 441)
	got := Convert(input, 44100, 16000, 1)
	if len(got) < 158 || len(got) > 161 {
		t.Errorf("unexpected output length %d", len(got))
	}
}

func TestSamplesNeeded(t *testing.T) {
	r := New(44100, 48000, 2)
	if got := r.OutputSamplesNeeded(44100 * 2); got < 47999*2 || got > 48000*2 {
		t.Errorf("expected about %d, got %d", 48000*2, got)
	}
	if got := r.InputSamplesNeeded(48000 * 2); got < 44099*2 || got > 44100*2 {
		t.Errorf("expected about %d, got %d", 44100*2, got)
	}
}
