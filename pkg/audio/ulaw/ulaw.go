// ABOUTME: G.711 µ-law companding between 16-bit linear PCM and 8-bit codes
// ABOUTME: Table-driven segment search with the classic BIAS/CLIP constants
package ulaw

const (
	signBit   = 0x80
	quantMask = 0x0F
	segShift  = 4
	segMask   = 0x70

	// Bias is added to linear magnitudes before segment classification.
	Bias = 0x84

	// Clip is the largest magnitude (after the 2-bit shift) that is encoded
	// without saturating.
	Clip = 8159
)

// segmentEnd holds the upper bound of each of the 8 quantization segments.
var segmentEnd = [8]int{0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF}

// segment returns the first segment whose bound is >= value, or 8.
func segment(value int) int {
	for i, end := range segmentEnd {
		if value <= end {
			return i
		}
	}
	return len(segmentEnd)
}

// LinearToULaw converts a signed 16-bit PCM sample to a µ-law code.
func LinearToULaw(sample int16) byte {
	value := int(sample) >> 2

	mask := byte(0xFF)
	if value < 0 {
		value = -value
		mask = 0x7F
	}
	if value > Clip {
		value = Clip
	}
	value += Bias >> 2

	seg := segment(value)
	if seg >= len(segmentEnd) {
		return 0x7F ^ mask
	}

	code := byte(seg<<4) | byte((value>>(seg+1))&quantMask)
	return code ^ mask
}

// ULawToLinear converts a µ-law code to a signed 16-bit PCM sample.
func ULawToLinear(code byte) int16 {
	u := ^code

	t := (int(u&quantMask) << 3) + Bias
	t <<= (u & segMask) >> segShift

	if u&signBit != 0 {
		return int16(Bias - t)
	}
	return int16(t - Bias)
}

// Step returns the quantization step, in linear 16-bit units, of the segment
// a µ-law code belongs to.
func Step(code byte) int {
	seg := int((^code & segMask) >> segShift)
	return 1 << (seg + 3)
}
