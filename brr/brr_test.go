package brr

import (
	"testing"

	"pgregory.net/rapid"
)

func TestDecodeBlockShiftZeroFilterZero(t *testing.T) {
	block := []byte{0x00, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0}
	out := make([]int16, SamplesPerBlock)

	_, _, hdr, err := DecodeBlock(block, out, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if hdr.Shift != 0 || hdr.Filter != 0 {
		t.Fatalf("header = %+v, want shift=0 filter=0", hdr)
	}

	want := []int16{1, 2, 3, 4}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], w)
		}
	}
}

func TestDecodeBlockShift4ScalesNibbleOne(t *testing.T) {
	// Nibble value 1 at shift 4 must produce raw = 1<<4 = 16 before filtering.
	block := make([]byte, BlockSize)
	block[0] = ParseHeader(0).Byte()
	block[0] = (4 << 4) // shift=4, filter=0, loop=0, end=0
	block[1] = 0x11     // both nibbles = 1

	out := make([]int16, SamplesPerBlock)
	_, _, _, err := DecodeBlock(block, out, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if out[0] != 16 {
		t.Fatalf("out[0] = %d, want 16", out[0])
	}
}

func TestDecodeBlockNibbleSignExtension(t *testing.T) {
	block := make([]byte, BlockSize)
	block[0] = 0x00 // shift 0, filter 0
	block[1] = 0xF0 // high nibble 0xF -> -1, low nibble 0x0 -> 0

	out := make([]int16, SamplesPerBlock)
	_, _, _, err := DecodeBlock(block, out, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if out[0] != -1 {
		t.Fatalf("out[0] = %d, want -1", out[0])
	}
	if out[1] != 0 {
		t.Fatalf("out[1] = %d, want 0", out[1])
	}
}

func TestDecodeBlockFlags(t *testing.T) {
	cases := []struct {
		header     byte
		wantLoop   bool
		wantEnd    bool
	}{
		{0x00, false, false},
		{0x01, false, true},
		{0x02, true, false},
		{0x03, true, true},
	}
	block := make([]byte, BlockSize)
	out := make([]int16, SamplesPerBlock)
	for _, c := range cases {
		block[0] = c.header
		_, _, hdr, err := DecodeBlock(block, out, 0, 0)
		if err != nil {
			t.Fatalf("DecodeBlock: %v", err)
		}
		if hdr.Loop != c.wantLoop || hdr.End != c.wantEnd {
			t.Fatalf("header 0x%02X: loop=%v end=%v, want loop=%v end=%v", c.header, hdr.Loop, hdr.End, c.wantLoop, c.wantEnd)
		}
	}
}

func TestDecodeBlockMalformedInputs(t *testing.T) {
	out := make([]int16, SamplesPerBlock)
	if _, _, _, err := DecodeBlock(make([]byte, BlockSize-1), out, 0, 0); err != ErrMalformedBlock {
		t.Fatalf("short block: err = %v, want ErrMalformedBlock", err)
	}
	if _, _, _, err := DecodeBlock(make([]byte, BlockSize), make([]int16, SamplesPerBlock-1), 0, 0); err != ErrMalformedBlock {
		t.Fatalf("short out: err = %v, want ErrMalformedBlock", err)
	}
}

func TestDecodeBlockShiftAbove12ClampsToSignMagnitude(t *testing.T) {
	block := make([]byte, BlockSize)
	block[0] = 13 << 4 // shift 13, invalid per hardware
	block[1] = 0xF1    // nibble -1 then nibble 1

	out := make([]int16, SamplesPerBlock)
	_, _, _, err := DecodeBlock(block, out, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if out[0] != -0x800 {
		t.Fatalf("out[0] = %d, want -2048 (negative nibble, shift>12)", out[0])
	}
	if out[1] != 0 {
		t.Fatalf("out[1] = %d, want 0 (non-negative nibble, shift>12)", out[1])
	}
}

func TestDecodeBlockClampsTo15Bit(t *testing.T) {
	block := make([]byte, BlockSize)
	block[0] = (12 << 4) | (0 << 2) // shift 12, filter 0
	block[1] = 0x70                 // nibble 7, 0

	out := make([]int16, SamplesPerBlock)
	_, _, _, err := DecodeBlock(block, out, 0, 0)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	// raw = 7<<12 = 28672, must clamp to 0x3FFF.
	if out[0] != sample15Max {
		t.Fatalf("out[0] = %d, want %d (clamped)", out[0], sample15Max)
	}
}

func TestEncodeDecodeRoundTripIsBoundedError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		samples := make([]int16, SamplesPerBlock)
		for i := range samples {
			samples[i] = int16(rapid.IntRange(-16384, 16383).Draw(t, "sample"))
		}

		block, _, _, err := EncodeBlock(samples, 0, 0, false, false)
		if err != nil {
			t.Fatalf("EncodeBlock: %v", err)
		}

		out := make([]int16, SamplesPerBlock)
		_, _, _, err = DecodeBlock(block[:], out, 0, 0)
		if err != nil {
			t.Fatalf("DecodeBlock: %v", err)
		}

		for i := range samples {
			diff := int32(samples[i]) - int32(out[i])
			if diff < 0 {
				diff = -diff
			}
			// Shift 0 (no quantization) is always a candidate, so the chosen
			// encoding can never do worse than the unshifted nibble clamp.
			if diff > 16384 {
				t.Fatalf("sample %d: encoded/decoded drift too large: want %d got %d", i, samples[i], out[i])
			}
		}
	})
}

func TestHeaderByteRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := byte(rapid.IntRange(0, 255).Draw(t, "header"))
		hdr := ParseHeader(b)
		if hdr.Byte() != b {
			t.Fatalf("ParseHeader(0x%02X).Byte() = 0x%02X, want 0x%02X", b, hdr.Byte(), b)
		}
	})
}
