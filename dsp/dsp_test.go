package dsp

import "testing"

// flatRAM is a minimal bus.RAMPort backed by a flat byte array, enough to
// stand in for the shared 64 KiB bus RAM in isolation.
type flatRAM struct {
	mem [1 << 16]byte
}

func (r *flatRAM) Read8(addr uint16) uint8         { return r.mem[addr] }
func (r *flatRAM) Write8(addr uint16, value uint8) { r.mem[addr] = value }

func newTestDSP() (*DSP, *flatRAM) {
	ram := &flatRAM{}
	d := New()
	d.AttachRAM(ram)
	return d, ram
}

// writeSilentSample installs a one-block BRR sample (shift 0, filter 0,
// all-zero nibbles, end+no-loop) at the given address and registers it
// in the sample directory for the given source number.
func writeSilentSample(ram *flatRAM, dirPage uint16, srcn uint8, sampleAddr uint16) {
	entry := dirPage + uint16(srcn)*4
	ram.mem[entry] = byte(sampleAddr)
	ram.mem[entry+1] = byte(sampleAddr >> 8)
	ram.mem[entry+2] = byte(sampleAddr)
	ram.mem[entry+3] = byte(sampleAddr >> 8)

	ram.mem[sampleAddr] = 0x01 // shift=0, filter=0, loop=0, end=1
	for i := 1; i < 9; i++ {
		ram.mem[sampleAddr+uint16(i)] = 0
	}
}

func TestReadWriteRegisterRoundTrip(t *testing.T) {
	d, _ := newTestDSP()
	d.WriteRegister(0x00, 0x42)
	if v := d.ReadRegister(0x00); v != 0x42 {
		t.Fatalf("register 0x00 = 0x%02X, want 0x42", v)
	}
}

func TestEndxWriteClearsRegardlessOfValue(t *testing.T) {
	d, _ := newTestDSP()
	d.regs[regENDX] = 0xFF
	d.WriteRegister(regENDX, 0x01)
	if d.regs[regENDX] != 0 {
		t.Fatalf("ENDX after write = 0x%02X, want 0", d.regs[regENDX])
	}
}

func TestSoftResetSilencesAllVoices(t *testing.T) {
	d, ram := newTestDSP()
	writeSilentSample(ram, 0x0200, 0, 0x1000)
	d.setVoxReg(0, voxSRCN, 0)
	d.regs[regDIR] = 0x02
	d.regs[regMVOLL] = 0x7F
	d.regs[regMVOLR] = 0x7F
	d.setVoxReg(0, voxVOLL, 0x7F)
	d.setVoxReg(0, voxVOLR, 0x7F)
	d.setVoxReg(0, voxADSR1, 0x80) // ADSR enabled, attack rate 0
	d.regs[regKON] = 0x01
	for i := 0; i < 3; i++ {
		d.Tick()
	}

	d.regs[regFLG] = flgSoftReset
	left, right := d.Tick()
	if left != 0 || right != 0 {
		t.Fatalf("output after soft reset = %d/%d, want 0/0", left, right)
	}
	if d.voices[0].active {
		t.Fatalf("voice 0 still active after soft reset")
	}
}

func TestKeyOnStartsAttackAfterLatchDelay(t *testing.T) {
	d, ram := newTestDSP()
	writeSilentSample(ram, 0x0200, 0, 0x1000)
	d.regs[regDIR] = 0x02
	d.setVoxReg(0, voxSRCN, 0)
	d.setVoxReg(0, voxADSR1, 0x80)
	d.regs[regKON] = 0x01

	if d.voices[0].active {
		t.Fatalf("voice active before any Tick")
	}
	activatedWithin := -1
	for i := 0; i < 12; i++ {
		d.Tick()
		if d.voices[0].active && activatedWithin == -1 {
			activatedWithin = i
		}
	}
	if activatedWithin == -1 {
		t.Fatalf("voice never activated after KON")
	}
}

func TestKeyOffMovesToRelease(t *testing.T) {
	d, ram := newTestDSP()
	writeSilentSample(ram, 0x0200, 0, 0x1000)
	d.regs[regDIR] = 0x02
	d.setVoxReg(0, voxSRCN, 0)
	d.setVoxReg(0, voxADSR1, 0x80)
	d.regs[regKON] = 0x01
	for i := 0; i < 12; i++ {
		d.Tick()
	}
	if !d.voices[0].active {
		t.Fatalf("voice never activated")
	}
	d.regs[regKOFF] = 0x01
	d.Tick()
	if d.voices[0].phase != phaseRelease {
		t.Fatalf("phase after key-off = %v, want phaseRelease", d.voices[0].phase)
	}
}

func TestDirectGainSetsEnvelopeImmediately(t *testing.T) {
	v := &voice{active: true, phase: phaseGain}
	d, _ := newTestDSP()
	d.setVoxReg(0, voxADSR1, 0x00) // ADSR disabled
	d.setVoxReg(0, voxGAIN, 0x40)  // direct gain, value 0x40
	v.runEnvelope(d, 0)
	if v.envelope != 0x40<<4 {
		t.Fatalf("envelope = %d, want %d", v.envelope, 0x40<<4)
	}
}

func TestReleaseEnvelopeDecaysToZero(t *testing.T) {
	v := &voice{active: true, phase: phaseRelease, envelope: 100}
	d, _ := newTestDSP()
	for i := 0; i < 20 && v.envelope > 0; i++ {
		v.runEnvelope(d, 0)
	}
	if v.envelope != 0 {
		t.Fatalf("envelope after release decay = %d, want 0", v.envelope)
	}
}

func TestNoiseGeneratorAdvancesAtConfiguredRate(t *testing.T) {
	d, _ := newTestDSP()
	d.regs[regFLG] = 31 // fastest noise rate (index 31 -> interval 1)
	first := d.noiseLFSR
	d.advanceNoise()
	if d.noiseLFSR == first {
		t.Fatalf("LFSR did not advance at fastest rate")
	}
}

func TestReleaseEnvelopeIsNonIncreasingEveryTick(t *testing.T) {
	v := &voice{active: true, phase: phaseRelease, envelope: envelopeFullScale}
	d, _ := newTestDSP()
	prev := v.envelope
	for i := 0; i < envelopeFullScale+10 && v.envelope > 0; i++ {
		v.runEnvelope(d, 0)
		if v.envelope > prev {
			t.Fatalf("tick %d: envelope increased from %d to %d", i, prev, v.envelope)
		}
		prev = v.envelope
	}
	if v.envelope != 0 {
		t.Fatalf("envelope never reached 0")
	}
}

func TestEchoWriteGatingLeavesRamUntouched(t *testing.T) {
	d, ram := newTestDSP()
	d.regs[regFLG] = flgEchoWriteOff
	d.regs[regESA] = 0x20 // echo buffer at 0x2000
	d.regs[regEDL] = 0x01 // one 2048-byte delay unit

	const esaBase = 0x2000
	const windowLen = echoBlockBytes
	var before [windowLen]byte
	for i := range before {
		ram.mem[esaBase+i] = byte(i * 7)
		before[i] = ram.mem[esaBase+i]
	}

	for i := 0; i < 10000; i++ {
		d.Tick()
	}

	for i := range before {
		if ram.mem[esaBase+i] != before[i] {
			t.Fatalf("echo RAM at offset %d changed from %d to %d with echo writes disabled", i, before[i], ram.mem[esaBase+i])
		}
	}
}
