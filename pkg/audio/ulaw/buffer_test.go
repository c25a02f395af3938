// ABOUTME: Tests for the µ-law buffer helpers
// ABOUTME: Checks lengths, little-endian layout, in-place encode and stereo duplication
package ulaw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePCM16(t *testing.T) {
	tests := []struct {
		name  string
		src   []byte
		codes []byte
	}{
		{"empty", nil, []byte{}},
		{"zero", []byte{0x00, 0x00}, []byte{0xFF}},
		{"little endian", []byte{0xE8, 0x03, 0x00, 0x01}, []byte{0xCE, 0xE7}},
		{"negative", []byte{0xFF, 0xFF, 0x00, 0x80, 0x00, 0xFF}, []byte{0x7E, 0x00, 0x67}},
		{"odd trailing byte ignored", []byte{0xE8, 0x03, 0x42}, []byte{0xCE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, len(tt.src)/2)
			n := EncodePCM16(dst, tt.src)
			assert.Equal(t, len(tt.src)/2, n)
			assert.Equal(t, tt.codes, dst[:n])
		})
	}
}

func TestEncodePCM16InPlace(t *testing.T) {
	// 0, -1, 1000, -32768
	buf := []byte{0x00, 0x00, 0xFF, 0xFF, 0xE8, 0x03, 0x00, 0x80}

	n := EncodePCM16(buf, buf)

	require.Equal(t, 4, n)
	assert.Equal(t, []byte{0xFF, 0x7E, 0xCE, 0x00}, buf[:n])
}

func TestDecodePCM16(t *testing.T) {
	tests := []struct {
		name  string
		codes []byte
		pcm   []byte
	}{
		{"empty", nil, []byte{}},
		{"zero", []byte{0xFF}, []byte{0x00, 0x00}},
		{"negative zero", []byte{0x7F}, []byte{0x00, 0x00}},
		{"small negative", []byte{0x7E}, []byte{0xF8, 0xFF}},
		{"little endian", []byte{0xCE, 0x80, 0x00}, []byte{0xDC, 0x03, 0x7C, 0x7D, 0x84, 0x82}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 2*len(tt.codes))
			n := DecodePCM16(dst, tt.codes)
			assert.Equal(t, len(tt.codes), n)
			assert.Equal(t, tt.pcm, dst)
		})
	}
}

func TestDecodePCM16Stereo(t *testing.T) {
	codes := []byte{0xCE, 0x7E, 0xFF}
	dst := make([]byte, 4*len(codes))

	n := DecodePCM16Stereo(dst, codes)

	require.Equal(t, 3, n)
	assert.Equal(t, []byte{
		0xDC, 0x03, 0xDC, 0x03,
		0xF8, 0xFF, 0xF8, 0xFF,
		0x00, 0x00, 0x00, 0x00,
	}, dst)
}

func TestDecodePCM16StereoMatchesMono(t *testing.T) {
	codes := make([]byte, 256)
	for i := range codes {
		codes[i] = byte(i)
	}
	mono := make([]byte, 2*len(codes))
	stereo := make([]byte, 4*len(codes))
	DecodePCM16(mono, codes)
	DecodePCM16Stereo(stereo, codes)

	for i := range codes {
		sample := mono[i*2 : i*2+2]
		assert.Equal(t, sample, stereo[i*4:i*4+2], "left of frame %d", i)
		assert.Equal(t, sample, stereo[i*4+2:i*4+4], "right of frame %d", i)
	}
}

func TestEncodeDecodeSlices(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		codes   []byte
		decoded []int16
	}{
		{"empty", []int16{}, []byte{}, []int16{}},
		{"mixed", []int16{0, -1, 1000, -32768}, []byte{0xFF, 0x7E, 0xCE, 0x00}, []int16{0, -8, 988, -32124}},
		{"symmetric", []int16{256, -256}, []byte{0xE7, 0x67}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := Encode(tt.samples)
			require.Len(t, codes, len(tt.samples))
			assert.Equal(t, tt.codes, codes)

			decoded := Decode(codes)
			require.Len(t, decoded, len(codes))
			if tt.decoded != nil {
				assert.Equal(t, tt.decoded, decoded)
			}
			for i, s := range decoded {
				assert.Equal(t, ULawToLinear(codes[i]), s)
			}
		})
	}
}

func TestEncodeMatchesEncodePCM16(t *testing.T) {
	samples := []int16{-32768, -5000, -33, -1, 0, 1, 33, 5000, 32767}
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		pcm[i*2] = byte(uint16(s))
		pcm[i*2+1] = byte(uint16(s) >> 8)
	}

	dst := make([]byte, len(samples))
	EncodePCM16(dst, pcm)

	assert.Equal(t, Encode(samples), dst)
}
