// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleRate, Format and 16-bit buffer helpers
// Package audio provides the fundamental audio types used by fifoplay.
//
// Everything on the playback path is signed 16-bit little-endian PCM:
//   - SampleRate: the rates the codec path can be clocked at
//   - Format: describes an encoded or decoded stream
//
// It also provides buffer helpers:
//   - mono → stereo upmix by duplication (MonoToStereo)
//   - stereo → mono by keeping the left channel (StereoToMono)
//   - sample ↔ byte conversion
//
// Example:
//
//	rate, err := audio.ParseSampleRate(16000)
//	stereo := make([]byte, len(mono)*2)
//	audio.MonoToStereo(stereo, mono)
package audio
