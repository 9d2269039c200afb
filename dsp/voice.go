package dsp

import "github.com/TheAnsarya/ableton-snes-spc-sub001/brr"

// envelope phases, matching the documented ADSR/GAIN state machine.
type envPhase int

const (
	phaseOff envPhase = iota
	phaseAttack
	phaseDecay
	phaseSustain
	phaseRelease
	phaseGain
)

const envelopeFullScale = 0x7FF

type voice struct {
	phase envPhase

	envelope int32 // 0..0x7FF internal resolution; ENVX = envelope>>4

	pitchAccum uint32 // low 12 bits fraction, used for Gaussian tap selection

	srcn        uint8
	brrAddr     uint16 // address of the block currently being decoded
	nextBlock   uint16
	blockBuf    [brr.SamplesPerBlock]int16
	blockPos    int
	blockLoaded bool
	loopFlag    bool
	endFlag     bool
	prev1       int32
	prev2       int32

	hist [4]int32 // most recent decoded samples, hist[3] newest

	pendingKeyOn  int
	active        bool
	endedThisTick bool
	rateCounter   int

	envxLatch byte
	outxLatch int8
}

func (v *voice) reset() {
	*v = voice{}
}

// keyOn restarts the voice: BRR cursor returns to the sample's start
// address, the envelope begins Attack, and the history/interpolation
// state is cleared so no stale samples leak across a restart.
func (v *voice) keyOn(d *DSP, i int) {
	srcn := d.voxReg(i, voxSRCN)
	dirPage := uint16(d.regs[regDIR]) << 8
	entry := dirPage + uint16(srcn)*4
	start := uint16(d.ram.Read8(entry)) | uint16(d.ram.Read8(entry+1))<<8

	v.srcn = srcn
	v.brrAddr = start
	v.blockPos = brr.SamplesPerBlock
	v.blockLoaded = false
	v.prev1, v.prev2 = 0, 0
	v.hist = [4]int32{}
	v.pitchAccum = 0
	v.active = true
	v.endFlag = false
	v.envelope = 0
	v.phase = phaseAttack
}

// keyOff forces an immediate transition into Release, the documented
// behavior (unlike key-on, no staged delay is specified for key-off).
func (v *voice) keyOff() {
	if v.active {
		v.phase = phaseRelease
	}
}

// step produces one 32 kHz output sample for this voice, advancing its
// BRR decode cursor, envelope and pitch accumulator.
func (v *voice) step(d *DSP, idx int, pitch uint16, pitchMod bool, prevOutx int8, noiseOn bool, noise int16) int16 {
	if !v.active {
		v.envxLatch = 0
		v.outxLatch = 0
		v.endedThisTick = false
		return 0
	}

	v.fillHistory(d, idx)

	eff := uint32(pitch)
	if pitchMod {
		mod := int32(prevOutx)
		eff = uint32(int32(pitch) + ((int32(pitch) * mod) >> 15))
		if eff > 0x3FFF {
			eff = 0x3FFF
		}
	}

	v.pitchAccum += eff
	for v.pitchAccum >= 0x1000 {
		v.pitchAccum -= 0x1000
		v.advanceSample(d, idx)
	}

	frac := (v.pitchAccum >> 4) & 0xFF
	taps := gaussTable[frac]
	interp := taps[0]*v.hist[0] + taps[1]*v.hist[1] + taps[2]*v.hist[2] + taps[3]*v.hist[3]
	sample := int32(interp >> 11)

	if noiseOn {
		sample = int32(noise)
	}

	v.runEnvelope(d, idx)
	scaled := (sample * v.envelope) >> 11
	if scaled > 32767 {
		scaled = 32767
	}
	if scaled < -32768 {
		scaled = -32768
	}

	v.envxLatch = byte(v.envelope >> 4)
	v.outxLatch = int8(scaled >> 8)
	return int16(scaled)
}

// fillHistory ensures the decode buffer has a current sample ready; it
// decodes only when no block is loaded yet (the first block after key-on).
// Later blocks are decoded by advanceSample.
func (v *voice) fillHistory(d *DSP, idx int) {
	if !v.blockLoaded {
		v.decodeNextBlock(d, idx)
	}
}

func (v *voice) decodeNextBlock(d *DSP, idx int) {
	var block [brr.BlockSize]byte
	for i := 0; i < brr.BlockSize; i++ {
		block[i] = d.ram.Read8(v.brrAddr + uint16(i))
	}
	p1, p2, hdr, err := brr.DecodeBlock(block[:], v.blockBuf[:], v.prev1, v.prev2)
	if err != nil {
		v.active = false
		return
	}
	v.prev1, v.prev2 = p1, p2
	v.blockPos = 0
	v.blockLoaded = true
	v.loopFlag = hdr.Loop
	v.endFlag = hdr.End

	if hdr.End {
		v.endedThisTick = true
		if hdr.Loop {
			dirPage := uint16(d.regs[regDIR]) << 8
			entry := dirPage + uint16(v.srcn)*4
			loopAddr := uint16(d.ram.Read8(entry+2)) | uint16(d.ram.Read8(entry+3))<<8
			v.nextBlock = loopAddr
		} else {
			v.nextBlock = v.brrAddr // will be overwritten once we deactivate
		}
	} else {
		v.nextBlock = v.brrAddr + brr.BlockSize
	}
}

func (v *voice) advanceSample(d *DSP, idx int) {
	v.endedThisTick = false
	if v.blockPos >= brr.SamplesPerBlock {
		if v.endFlag && !v.loopFlag {
			v.active = false
			return
		}
		v.brrAddr = v.nextBlock
		v.decodeNextBlock(d, idx)
	}
	s := int32(v.blockBuf[v.blockPos])
	v.blockPos++
	v.hist[0], v.hist[1], v.hist[2] = v.hist[1], v.hist[2], v.hist[3]
	v.hist[3] = s
}

// runEnvelope applies exactly one envelope-generator step per output
// sample, following the documented ADSR/GAIN state machine: ADSR1 bit 7
// selects ADSR mode (1) versus direct GAIN-register mode (0). Release,
// once entered by key-off, applies in either mode.
func (v *voice) runEnvelope(d *DSP, idx int) {
	adsr1 := d.voxReg(idx, voxADSR1)
	adsr2 := d.voxReg(idx, voxADSR2)
	gain := d.voxReg(idx, voxGAIN)

	if adsr1&0x80 == 0 && v.phase != phaseRelease {
		v.runGain(gain)
		return
	}

	switch v.phase {
	case phaseAttack:
		rate := adsr1 & 0x0F
		step := int32(envelopeFullScale + 1) / 64
		if rate == 31 {
			step = int32(envelopeFullScale+1) / 2
		}
		if v.tickRate(int(rate)*2 + 1) {
			v.envelope += step
			if v.envelope >= envelopeFullScale {
				v.envelope = envelopeFullScale
				v.phase = phaseDecay
			}
		}
	case phaseDecay:
		rate := (adsr1 >> 4) & 0x07
		if v.tickRate(int(rate)*2 + 16) {
			v.envelope -= ((v.envelope - 1) >> 8) + 1
		}
		sustainLevel := int32((adsr2>>5)&0x07+1) * (envelopeFullScale + 1) / 8
		if v.envelope <= sustainLevel {
			v.phase = phaseSustain
		}
	case phaseSustain:
		rate := adsr2 & 0x1F
		if v.tickRate(int(rate)) {
			v.envelope -= ((v.envelope - 1) >> 8) + 1
		}
	case phaseRelease:
		v.envelope -= 8
	}

	if v.envelope < 0 {
		v.envelope = 0
	}
	if v.envelope > envelopeFullScale {
		v.envelope = envelopeFullScale
	}
}

// runGain implements the documented GAIN-register behaviors when ADSR is
// disabled: direct set, plus the four modes linear decrease, exponential
// decrease, linear increase and bent-line increase.
func (v *voice) runGain(gain byte) {
	if gain&0x80 == 0 {
		v.envelope = int32(gain&0x7F) << 4
		return
	}

	mode := (gain >> 5) & 0x03
	rate := gain & 0x1F
	if !v.tickRate(int(rate)) {
		return
	}
	switch mode {
	case 0: // linear decrease
		v.envelope -= 32
	case 1: // exponential decrease
		v.envelope -= ((v.envelope - 1) >> 8) + 1
	case 2: // linear increase
		v.envelope += 32
	case 3: // bent-line increase: slows past 3/4 scale
		if v.envelope < (envelopeFullScale*3)/4 {
			v.envelope += 32
		} else {
			v.envelope += 8
		}
	}

	if v.envelope < 0 {
		v.envelope = 0
	}
	if v.envelope > envelopeFullScale {
		v.envelope = envelopeFullScale
	}
}

// tickRate reports whether the shared 32-entry rate table fires this
// sample for rate index r, using the voice's single rateCounter field
// (shared by all envelope phases and GAIN modes of that voice).
func (v *voice) tickRate(r int) bool {
	if r < 0 || r >= len(rateTable) {
		return false
	}
	interval := rateTable[r]
	if interval == 0 {
		return false
	}
	v.rateCounter++
	if v.rateCounter < interval {
		return false
	}
	v.rateCounter = 0
	return true
}
