// ABOUTME: Mono/stereo conversion on raw 16-bit little-endian buffers
// ABOUTME: Upmix duplicates samples, downmix keeps the left channel
package audio

// MonoToStereo duplicates every 16-bit sample of src into two interleaved
// slots of dst. dst must hold 2*len(src) bytes. An odd trailing byte of src
// is ignored. Returns the number of bytes written.
func MonoToStereo(dst, src []byte) int {
	n := len(src) / BytesPerSample
	for i := 0; i < n; i++ {
		lo, hi := src[i*2], src[i*2+1]
		dst[i*4] = lo
		dst[i*4+1] = hi
		dst[i*4+2] = lo
		dst[i*4+3] = hi
	}
	return n * FrameSizeStereo
}

// StereoToMono keeps the left sample of each interleaved frame. dst may be
// src itself (in-place), and must hold len(src)/2 bytes. Returns the number
// of bytes written.
func StereoToMono(dst, src []byte) int {
	n := len(src) / FrameSizeStereo
	for i := 0; i < n; i++ {
		dst[i*2] = src[i*4]
		dst[i*2+1] = src[i*4+1]
	}
	return n * BytesPerSample
}

// DownmixSamples averages interleaved frames of the given channel count to mono
func DownmixSamples(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
