// ABOUTME: Linear interpolation sample rate conversion
// ABOUTME: Used when loading assets recorded at a different rate
// Package resample converts 16-bit samples between sample rates.
//
// Convert handles a whole buffer at once and returns the input unchanged when
// the rates match. A Resampler keeps its position between calls for streamed
// input.
//
// Example:
//
//	mono := resample.Convert(samples, 44100, 16000, 1)
package resample
