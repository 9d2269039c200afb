// Package timing holds the cycle/tick constants for the clock relationship
// between the spc700 CPU core and the dsp sound chip. The engine's driver
// loop uses them to interleave the two; neither spc700 nor dsp imports
// this package.
package timing

const (
	// DSPSampleRateHz is the fixed rate the S-DSP emits stereo sample
	// pairs at, independent of host playback rate.
	DSPSampleRateHz = 32000

	// CPUCyclesPerDSPTick is the number of SPC700 master-clock cycles the
	// engine advances the CPU by for every one DSP tick it pulls. The
	// spec gives this as "≈ 64 master clocks"; 64 is the value used
	// throughout this module and is not itself the open question — the
	// still-uncalibrated ratio is the hardware-timer stage rate handled
	// in package bus, which ticks independently of this constant.
	CPUCyclesPerDSPTick = 64
)

// Cycles is a running count of SPC700 master-clock cycles. It is
// monotonically increasing for the lifetime of a CPU core; Reset is the
// only operation that sets it back to zero.
type Cycles int64

// Add returns the counter advanced by n cycles. n is always non-negative
// for every real opcode, but the type does not enforce that itself —
// callers are the ones with the invariant to uphold.
func (c Cycles) Add(n int) Cycles {
	return c + Cycles(n)
}
