// Package spcfile parses and exports .spc snapshot files: a 66 048-byte
// dump of a running SPC700's RAM, the S-DSP's 128-byte register file, the
// CPU's visible register state and a best-effort ID666 metadata block.
package spcfile

import (
	"errors"
	"fmt"
)

// Byte offsets within a well-formed .spc file.
const (
	MinSize = 0x10180

	offsetPC  = 0x25 // 16-bit little-endian: 0x25 lo, 0x26 hi
	offsetA   = 0x27
	offsetX   = 0x28
	offsetY   = 0x29
	offsetPSW = 0x2A
	offsetSP  = 0x2B

	offsetID666 = 0x2E
	offsetID666End = 0x100

	offsetRAM      = 0x100
	ramSize        = 0x10000
	offsetDSPRegs  = 0x10100
	dspRegsSize    = 128
	offsetExtraRAM = 0x101C0
	extraRAMSize   = 0x40

	// fileSize is the full 66 048-byte layout, extra-RAM page included.
	fileSize = offsetExtraRAM + extraRAMSize
)

// ErrTruncatedSpcFile is returned when the input is shorter than MinSize.
var ErrTruncatedSpcFile = errors.New("spcfile: truncated SPC file")

// CPUState is the CPU register snapshot carried in the header.
type CPUState struct {
	PC  uint16
	A   uint8
	X   uint8
	Y   uint8
	PSW uint8
	SP  uint8
}

// Metadata is a best-effort, read-only parse of the ID666 tag block. It
// never fails the load: a malformed or absent tag simply yields zero
// values, matching the documented "not validated by core" contract.
type Metadata struct {
	Song    string
	Game    string
	Artist  string
	Comment string
}

// File is a fully parsed .spc snapshot.
type File struct {
	CPU      CPUState
	RAM      [ramSize]byte
	DSPRegs  [dspRegsSize]byte
	ExtraRAM [extraRAMSize]byte
	Metadata Metadata
}

// Parse decodes a raw .spc file image. It returns ErrTruncatedSpcFile if
// data is shorter than MinSize; every other field is read best-effort.
func Parse(data []byte) (*File, error) {
	if len(data) < MinSize {
		return nil, fmt.Errorf("%w: got %d bytes, want at least %d", ErrTruncatedSpcFile, len(data), MinSize)
	}

	f := &File{}
	f.CPU.PC = uint16(data[offsetPC]) | uint16(data[offsetPC+1])<<8
	f.CPU.A = data[offsetA]
	f.CPU.X = data[offsetX]
	f.CPU.Y = data[offsetY]
	f.CPU.PSW = data[offsetPSW]
	f.CPU.SP = data[offsetSP]

	copy(f.RAM[:], data[offsetRAM:offsetRAM+ramSize])
	copy(f.DSPRegs[:], data[offsetDSPRegs:offsetDSPRegs+dspRegsSize])
	if len(data) > offsetExtraRAM {
		copy(f.ExtraRAM[:], data[offsetExtraRAM:])
	}

	f.Metadata = parseID666(data[offsetID666:offsetID666End])

	return f, nil
}

// parseID666 reads the four human-readable fields of the ID666 tag using
// the common (non-extended) text layout: fixed-width, NUL/space-padded
// ASCII fields. Any parse trouble yields the empty string rather than an
// error — the tag never gates playback.
func parseID666(tag []byte) Metadata {
	field := func(start, length int) string {
		if start < 0 || start+length > len(tag) {
			return ""
		}
		return trimTagField(tag[start : start+length])
	}
	return Metadata{
		Song:    field(0x00, 32),
		Game:    field(0x20, 32),
		Comment: field(0x50, 32),
		Artist:  field(0x82, 32),
	}
}

func trimTagField(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0x00 || b[end-1] == ' ') {
		end--
	}
	return string(b[:end])
}

// Export serializes a File back into a raw .spc image of the full 66 048
// bytes, extra-RAM page included. The ID666 tag is round-tripped using the
// same fixed-width layout Parse reads.
func Export(f *File) []byte {
	out := make([]byte, fileSize)
	copy(out[0:], "SNES-SPC700 Sound File Data v0.30")

	out[offsetPC] = byte(f.CPU.PC)
	out[offsetPC+1] = byte(f.CPU.PC >> 8)
	out[offsetA] = f.CPU.A
	out[offsetX] = f.CPU.X
	out[offsetY] = f.CPU.Y
	out[offsetPSW] = f.CPU.PSW
	out[offsetSP] = f.CPU.SP

	writeField(out[offsetID666+0x00:], f.Metadata.Song, 32)
	writeField(out[offsetID666+0x20:], f.Metadata.Game, 32)
	writeField(out[offsetID666+0x50:], f.Metadata.Comment, 32)
	writeField(out[offsetID666+0x82:], f.Metadata.Artist, 32)

	copy(out[offsetRAM:], f.RAM[:])
	copy(out[offsetDSPRegs:], f.DSPRegs[:])
	copy(out[offsetExtraRAM:], f.ExtraRAM[:])

	return out
}

func writeField(dst []byte, s string, length int) {
	n := copy(dst[:length], s)
	for i := n; i < length; i++ {
		dst[i] = 0x00
	}
}
