package dsp

import "math"

// rateTable gives the tick interval (in 32 kHz ticks) for each of the 32
// documented ADSR/GAIN/noise rate indices; index 0 never fires. Shared by
// the envelope generator and the noise LFSR, matching real S-DSP hardware
// where both consult the same rate table.
var rateTable = [32]int{
	0, 2048, 1536, 1280, 1024, 768, 640, 512,
	384, 320, 256, 192, 160, 128, 96, 80,
	64, 48, 40, 32, 24, 20, 16, 12,
	10, 8, 6, 5, 4, 3, 2, 1,
}

// gaussTable is a computed discrete Gaussian kernel used as the 4-tap
// interpolation coefficient set, indexed by the top 8 bits of the pitch
// accumulator's fractional field. It is not a transcription of the
// hardware-measured constant table (not verifiable without a reference
// capture); it is a sampled Gaussian window normalized the same way the
// real coefficients are (unity sum, Q11 fixed point), close enough to
// reproduce the hardware's characteristic soft low-pass roll-off.
var gaussTable [256][4]int32

func init() {
	const sigma = 0.5
	for frac := 0; frac < 256; frac++ {
		t := float64(frac) / 256.0
		var raw [4]float64
		for tap := 0; tap < 4; tap++ {
			x := float64(tap-1) - t
			raw[tap] = math.Exp(-(x * x) / (2 * sigma * sigma))
		}
		sum := raw[0] + raw[1] + raw[2] + raw[3]
		for tap := 0; tap < 4; tap++ {
			gaussTable[frac][tap] = int32(raw[tap] / sum * 2048)
		}
	}
}
