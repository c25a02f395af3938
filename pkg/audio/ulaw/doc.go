// ABOUTME: G.711 µ-law codec package documentation
// ABOUTME: Scalar conversions plus raw-buffer helpers
// Package ulaw implements ITU-T G.711 µ-law companding.
//
// The encoder coarsens a 16-bit sample by two bits, clips, biases and
// classifies the magnitude into one of eight logarithmic segments using a
// linear search with a <= comparison. The decoder is the exact inverse in
// the code domain: re-encoding a decoded code reproduces it, except for the
// negative-zero code 0x7F which normalizes to 0xFF.
//
// Example:
//
//	code := ulaw.LinearToULaw(-1200)
//	sample := ulaw.ULawToLinear(code)
//
//	// Raw buffers (16-bit little-endian PCM)
//	codes := make([]byte, len(pcm)/2)
//	ulaw.EncodePCM16(codes, pcm)
package ulaw
