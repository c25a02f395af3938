// ABOUTME: Buffer helpers applying the µ-law codec over raw byte slices
// ABOUTME: PCM side is always signed 16-bit little-endian
package ulaw

import "encoding/binary"

// EncodePCM16 converts 16-bit LE samples in src to µ-law codes in dst.
// It writes len(src)/2 codes and returns that count. dst may alias src.
func EncodePCM16(dst, src []byte) int {
	n := len(src) / 2
	for i := 0; i < n; i++ {
		dst[i] = LinearToULaw(int16(binary.LittleEndian.Uint16(src[i*2:])))
	}
	return n
}

// DecodePCM16 expands µ-law codes in src into 16-bit LE samples in dst.
// dst must hold 2*len(src) bytes. Returns the number of samples written.
func DecodePCM16(dst, src []byte) int {
	for i, code := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(ULawToLinear(code)))
	}
	return len(src)
}

// DecodePCM16Stereo expands µ-law codes in src into interleaved 16-bit LE
// stereo frames in dst, writing each decoded sample to both channels.
// dst must hold 4*len(src) bytes. Returns the number of frames written.
func DecodePCM16Stereo(dst, src []byte) int {
	for i, code := range src {
		s := uint16(ULawToLinear(code))
		binary.LittleEndian.PutUint16(dst[i*4:], s)
		binary.LittleEndian.PutUint16(dst[i*4+2:], s)
	}
	return len(src)
}

// Encode converts samples to a newly allocated µ-law slice.
func Encode(samples []int16) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = LinearToULaw(s)
	}
	return out
}

// Decode converts µ-law codes to a newly allocated sample slice.
func Decode(codes []byte) []int16 {
	out := make([]int16, len(codes))
	for i, c := range codes {
		out[i] = ULawToLinear(c)
	}
	return out
}
