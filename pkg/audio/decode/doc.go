// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides Decoder interface and implementations for PCM, µ-law, Opus, FLAC, MP3
// Package decode provides audio decoders for various codecs.
//
// Supports: PCM (16-bit), G.711 µ-law, Opus, FLAC, MP3
//
// All decoders implement the Decoder interface and output signed 16-bit
// samples. PCM, µ-law and Opus decode incrementally; MP3 and FLAC decode
// whole files (see ReadMP3 and ReadFLAC, which also report the format).
//
// Example:
//
//	decoder, err := decode.New(format)
//	samples, err := decoder.Decode(audioData)
package decode
