package dsp

// echoUnit implements the 8-tap FIR echo filter: a ring buffer living in
// main RAM at ESA*0x100, EDL*0x800 bytes long (4 bytes, a single stereo
// sample, when EDL is 0), mixed back into the main
// output and optionally fed back into itself through EFB.
type echoUnit struct {
	history [8][2]int32 // ring of the last 8 raw echo samples, per channel
	pos     int
}

const echoBlockBytes = 2048 // one echo delay unit: 4 bytes/sample * 512 samples (EDL=1)

// process reads the current ring-buffer slot, applies the 8-tap FIR using
// the DSP's C0-C7 coefficient registers, optionally writes the fed-in
// voice mix plus feedback back into the ring (gated by FLG's echo-write
// -disable bit), and advances the ring position by one sample.
func (e *echoUnit) process(d *DSP, feedL, feedR int32) (outL, outR int32) {
	edl := d.regs[regEDL] & 0x0F
	delayBytes := int(edl) * echoBlockBytes
	if delayBytes == 0 {
		delayBytes = 4
	}
	esa := uint16(d.regs[regESA]) << 8
	slot := e.pos % (delayBytes / 4)
	addr := esa + uint16(slot*4)

	rawL := readEchoSample(d, addr)
	rawR := readEchoSample(d, addr+2)

	e.history[e.pos%8][0] = int32(rawL)
	e.history[e.pos%8][1] = int32(rawR)

	var firL, firR int32
	for tap := 0; tap < 8; tap++ {
		coeff := int8(d.regs[tap*0x10+0x0F])
		idx := ((e.pos-tap)%8 + 8) % 8
		firL += e.history[idx][0] * int32(coeff)
		firR += e.history[idx][1] * int32(coeff)
	}
	outL = clampS16(firL >> 6)
	outR = clampS16(firR >> 6)

	if d.flg()&flgEchoWriteOff == 0 {
		efb := int8(d.regs[regEFB])
		newL := clampS16(feedL + ((outL * int32(efb)) >> 7))
		newR := clampS16(feedR + ((outR * int32(efb)) >> 7))
		writeEchoSample(d, addr, int16(newL))
		writeEchoSample(d, addr+2, int16(newR))
	}

	e.pos++
	return outL, outR
}

func readEchoSample(d *DSP, addr uint16) int16 {
	lo := d.ram.Read8(addr)
	hi := d.ram.Read8(addr + 1)
	return int16(uint16(lo) | uint16(hi)<<8)
}

func writeEchoSample(d *DSP, addr uint16, v int16) {
	d.ram.Write8(addr, byte(uint16(v)))
	d.ram.Write8(addr+1, byte(uint16(v)>>8))
}
