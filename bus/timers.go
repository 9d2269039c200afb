package bus

// Assumed CPU-cycle cadence for the two hardware timer stage rates, driven
// from the CPU's own cycle counter per spec (§4.3: "the implementation MUST
// drive timers from CPU cycles to stay in phase"). The exact constant is an
// open question in the spec (it depends on the assumed master clock); these
// values are calibrated against the commonly documented SPC700 timer ratio
// and are the ones the timer regression tests in bus_test.go pin down.
const (
	timer8kHzDivisor  = 256 // CPU cycles per 8 kHz timer stage tick (T0, T1)
	timer64kHzDivisor = 32  // CPU cycles per 64 kHz timer stage tick (T2)
)

// timer models one of the three SPC700 hardware timers: an 8-bit divider
// (target) compared against a stage counter ticking at a fixed 8 kHz or
// 64 kHz rate, driving a 4-bit output counter that wraps and clears on read.
type timer struct {
	cycleAcc int
	divider  uint8
	stage    uint16
	counter  uint8
}

func (t *timer) setDivider(v uint8) {
	t.divider = v
	t.stage = 0
}

func (t *timer) reset() {
	*t = timer{}
}

// advance folds cpuCycles worth of CPU clock into the timer's stage
// counter, ticking the stage at one per cyclesPerStage CPU cycles, and
// bumping the 4-bit output counter every time the stage counter reaches
// the programmable divider (a divider of 0 behaves as 256, as on hardware).
func (t *timer) advance(cpuCycles int, cyclesPerStage int) {
	t.cycleAcc += cpuCycles
	target := uint16(t.divider)
	if target == 0 {
		target = 256
	}
	for t.cycleAcc >= cyclesPerStage {
		t.cycleAcc -= cyclesPerStage
		t.stage++
		if t.stage >= target {
			t.stage -= target
			t.counter = (t.counter + 1) & 0x0F
		}
	}
}

// readCounter returns the current 4-bit count and clears it, per the
// documented hardware behavior.
func (t *timer) readCounter() uint8 {
	v := t.counter
	t.counter = 0
	return v
}
