// Package brr implements Sony's Bit Rate Reduction codec: stateless
// decode/encode of 9-byte, 16-sample compressed audio blocks, the format
// every SNES PCM sample is stored in.
package brr

import "errors"

const (
	// BlockSize is the encoded size of one BRR block: one header byte
	// plus eight bytes holding sixteen 4-bit signed nibbles.
	BlockSize = 9
	// SamplesPerBlock is the number of decoded samples per block.
	SamplesPerBlock = 16

	sample15Min = -0x4000
	sample15Max = 0x3FFF
)

// ErrMalformedBlock is returned when the input slices are smaller than
// the codec's fixed block/sample-count requirements.
var ErrMalformedBlock = errors.New("brr: malformed block")

// Header is the decoded 9th-byte control field of a BRR block.
type Header struct {
	Shift  uint8
	Filter uint8
	Loop   bool
	End    bool
}

// ParseHeader decodes the control byte of a BRR block.
func ParseHeader(b byte) Header {
	return Header{
		Shift:  b >> 4,
		Filter: (b >> 2) & 3,
		Loop:   b&2 != 0,
		End:    b&1 != 0,
	}
}

// Byte re-encodes a Header back into its control byte.
func (h Header) Byte() byte {
	b := (h.Shift << 4) | ((h.Filter & 3) << 2)
	if h.Loop {
		b |= 2
	}
	if h.End {
		b |= 1
	}
	return b
}

// DecodeBlock decodes one 9-byte BRR block into 16 signed samples in the
// 15-bit domain used throughout the S-DSP voice pipeline (§4.4's
// interpolator and envelope multiply both operate on this 15-bit range).
// prev1 and prev2 are the two previously decoded samples (the IIR filter
// state); it returns the updated pair as primed for the next block.
func DecodeBlock(block []byte, out []int16, prev1, prev2 int32) (newPrev1, newPrev2 int32, hdr Header, err error) {
	if len(block) < BlockSize || len(out) < SamplesPerBlock {
		return prev1, prev2, Header{}, ErrMalformedBlock
	}

	hdr = ParseHeader(block[0])

	for i := 0; i < SamplesPerBlock; i++ {
		byteIdx := 1 + i/2
		var nibble byte
		if i%2 == 0 {
			nibble = block[byteIdx] >> 4
		} else {
			nibble = block[byteIdx] & 0x0F
		}
		n := signExtendNibble(nibble)

		var raw int32
		if hdr.Shift <= 12 {
			raw = n << hdr.Shift
		} else if n < 0 {
			raw = -0x800
		} else {
			raw = 0
		}

		sample := applyFilter(hdr.Filter, raw, prev1, prev2)
		sample = clamp15(sample)

		prev2 = prev1
		prev1 = sample

		out[i] = int16(sample)
	}

	return prev1, prev2, hdr, nil
}

// signExtendNibble interprets the low 4 bits of n as a signed value in
// -8..7.
func signExtendNibble(n byte) int32 {
	v := int32(n & 0x0F)
	if v >= 8 {
		v -= 16
	}
	return v
}

func applyFilter(filter uint8, raw, prev1, prev2 int32) int32 {
	switch filter {
	case 0:
		return raw
	case 1:
		return raw + prev1 + ((-prev1) >> 4)
	case 2:
		return raw + 2*prev1 + ((-prev1*3)>>5) - prev2 + (prev2 >> 4)
	case 3:
		return raw + 2*prev1 + ((-prev1*13)>>6) - prev2 + ((prev2 * 3) >> 4)
	default:
		return raw
	}
}

func clamp15(v int32) int32 {
	if v < sample15Min {
		return sample15Min
	}
	if v > sample15Max {
		return sample15Max
	}
	return v
}

// ToPCM16 widens a decoded 15-bit sample to the 16-bit signed range
// hardware exposes on its DAC bus (an arithmetic shift left by 1). The
// S-DSP voice pipeline itself stays in the 15-bit domain end to end, so
// this is only needed by callers that want hardware-scale PCM directly
// out of the codec.
func ToPCM16(sample int16) int16 {
	return int16(clampI32(int32(sample)*2, -0x8000, 0x7FFF))
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EncodeBlock compresses 16 PCM samples into a single 9-byte BRR block,
// choosing the shift/filter pair that minimizes reconstruction error
// against prev1/prev2, tie-breaking by lowest shift then lowest filter.
// Not used on the real-time decode path — this exists for offline
// sample-editor tooling that re-encodes edited audio.
func EncodeBlock(samples []int16, prev1, prev2 int32, loop, end bool) (block [BlockSize]byte, newPrev1, newPrev2 int32, err error) {
	if len(samples) < SamplesPerBlock {
		return block, prev1, prev2, ErrMalformedBlock
	}

	bestErr := int64(-1)
	var bestShift, bestFilter uint8
	var bestNibbles [SamplesPerBlock]byte
	var bestPrev1, bestPrev2 int32

	for shift := uint8(0); shift <= 12; shift++ {
		for filter := uint8(0); filter <= 3; filter++ {
			nibbles, p1, p2, sumErr := tryEncode(samples, shift, filter, prev1, prev2)
			if bestErr < 0 || sumErr < bestErr {
				bestErr = sumErr
				bestShift = shift
				bestFilter = filter
				bestNibbles = nibbles
				bestPrev1 = p1
				bestPrev2 = p2
			}
		}
	}

	hdr := Header{Shift: bestShift, Filter: bestFilter, Loop: loop, End: end}
	block[0] = hdr.Byte()
	for i := 0; i < SamplesPerBlock; i += 2 {
		block[1+i/2] = (bestNibbles[i] << 4) | (bestNibbles[i+1] & 0x0F)
	}

	return block, bestPrev1, bestPrev2, nil
}

// tryEncode quantizes samples against one candidate (shift, filter) pair,
// returning the chosen nibbles, the resulting filter state, and the
// summed squared reconstruction error.
func tryEncode(samples []int16, shift, filter uint8, prev1, prev2 int32) (nibbles [SamplesPerBlock]byte, newPrev1, newPrev2 int32, sumErr int64) {
	p1, p2 := prev1, prev2

	for i := 0; i < SamplesPerBlock; i++ {
		target := int32(samples[i])

		predicted := applyFilter(filter, 0, p1, p2)
		residual := target - predicted

		var n int32
		if shift == 0 {
			n = residual
		} else {
			n = residual >> shift
		}
		if n > 7 {
			n = 7
		} else if n < -8 {
			n = -8
		}
		nibbles[i] = byte(n & 0x0F)

		var raw int32
		if shift <= 12 {
			raw = n << shift
		} else if n < 0 {
			raw = -0x800
		}
		decoded := clamp15(applyFilter(filter, raw, p1, p2))

		diff := int64(target - decoded)
		sumErr += diff * diff

		p2 = p1
		p1 = decoded
	}

	return nibbles, p1, p2, sumErr
}
