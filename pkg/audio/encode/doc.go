// ABOUTME: Audio encoder package for encoding PCM to various formats
// ABOUTME: Provides Encoder interface and implementations for PCM, µ-law, Opus
// Package encode provides audio encoders for various codecs.
//
// Supports: PCM (16-bit), G.711 µ-law, Opus
//
// All encoders accept signed 16-bit samples and encode to wire format.
//
// Example:
//
//	encoder, err := encode.New(audio.Format{Codec: "ulaw", SampleRate: 16000, Channels: 1, BitDepth: 16})
//	data, err := encoder.Encode(samples)
package encode
