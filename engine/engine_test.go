package engine

import (
	"math"
	"testing"
)

func TestCreateRejectsInvalidSampleRate(t *testing.T) {
	if _, err := Create(0); err != ErrInvalidSampleRate {
		t.Fatalf("err = %v, want ErrInvalidSampleRate", err)
	}
	if _, err := Create(-1); err != ErrInvalidSampleRate {
		t.Fatalf("err = %v, want ErrInvalidSampleRate", err)
	}
}

func TestProcessSilenceOnEmptyLoad(t *testing.T) {
	e, err := Create(44100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	out := make([]float32, 2*256)
	e.Process(out, 256)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0", i, v)
		}
	}
}

// minimalSpc builds a MinSize (0x10180-byte) .spc image, without the
// extra-RAM page, with a trivial CPU program (one NOP, then a branch to
// itself forever so nothing touches the DSP port) and DSP/RAM left
// zeroed, enough to exercise LoadSpc/Process end to end without needing
// real SNES music data.
func minimalSpc() []byte {
	data := make([]byte, 0x10180)
	copy(data, "SNES-SPC700 Sound File Data v0.30")
	data[0x25] = 0x00 // PC lo
	data[0x26] = 0x02 // PC hi -> 0x0200
	// RAM program at 0x100+0x200: NOP, BRA -2 (branches to itself forever)
	prog := []byte{0x00, 0x2F, 0xFE}
	copy(data[0x100+0x0200:], prog)
	return data
}

func TestLoadSpcThenProcessRuns(t *testing.T) {
	e, _ := Create(44100)
	if err := e.LoadSpc(minimalSpc()); err != nil {
		t.Fatalf("LoadSpc: %v", err)
	}
	if e.IsPlaying() {
		t.Fatalf("engine should start paused")
	}
	e.Play()
	if !e.IsPlaying() {
		t.Fatalf("engine should be playing after Play()")
	}

	out := make([]float32, 2*256)
	e.Process(out, 256) // must not panic or allocate meaningfully
	if e.TotalCycles() == 0 {
		t.Fatalf("TotalCycles = 0, want > 0 after Process")
	}
}

func TestLoadSpcRejectsTruncatedInput(t *testing.T) {
	e, _ := Create(44100)
	if err := e.LoadSpc(make([]byte, 100)); err == nil {
		t.Fatalf("expected error for truncated SPC data")
	}
}

func TestStopResetsPosition(t *testing.T) {
	e, _ := Create(44100)
	e.LoadSpc(minimalSpc())
	e.Play()
	out := make([]float32, 2*256)
	e.Process(out, 256)
	if e.Position() == 0 {
		t.Fatalf("expected non-zero position after processing")
	}
	e.Stop()
	if e.Position() != 0 {
		t.Fatalf("position after Stop = %v, want 0", e.Position())
	}
	if e.IsPlaying() {
		t.Fatalf("engine should not be playing after Stop")
	}
}

func TestMuteSoloShadowState(t *testing.T) {
	e, _ := Create(44100)
	e.SetVoiceMuted(2, true)
	if !e.VoiceMuted(2) {
		t.Fatalf("voice 2 should be muted")
	}
	e.UnmuteAll()
	if e.VoiceMuted(2) {
		t.Fatalf("UnmuteAll should have cleared voice 2's mute")
	}
	e.SetVoiceSolo(0, true)
	if !e.VoiceSolo(0) {
		t.Fatalf("voice 0 should be soloed")
	}
	e.ClearSolo()
	if e.VoiceSolo(0) {
		t.Fatalf("ClearSolo should have cleared voice 0's solo")
	}
}

func TestMasterVolumeClamped(t *testing.T) {
	e, _ := Create(44100)
	e.SetMasterVolume(5.0)
	if e.MasterVolume() != 2.0 {
		t.Fatalf("master volume = %v, want clamped 2.0", e.MasterVolume())
	}
	e.SetMasterVolume(-1.0)
	if e.MasterVolume() != 0 {
		t.Fatalf("master volume = %v, want clamped 0", e.MasterVolume())
	}
}

func TestMidiCCMuteTogglesVoice(t *testing.T) {
	e, _ := Create(44100)
	e.LoadSpc(minimalSpc())
	e.Play()
	e.SendMidiEvent(CCEvent(0, 102, 3))
	e.drainMidiEvents()
	if !e.VoiceMuted(3) {
		t.Fatalf("voice 3 should be muted after first CC 102")
	}
	e.SendMidiEvent(CCEvent(0, 102, 3))
	e.drainMidiEvents()
	if e.VoiceMuted(3) {
		t.Fatalf("voice 3 should be unmuted after second CC 102")
	}
}

func TestPitchBendZeroProducesUnityMultiplier(t *testing.T) {
	e, _ := Create(44100)
	e.SetPitchBendRange(2)
	e.applyPitchBend(0)
	mul := bitsToFloat32(e.pitchMultiplier.Load())
	if mul != 1.0 {
		t.Fatalf("bend=0 multiplier = %v, want 1.0", mul)
	}
}

func TestPitchBendFormulaMatchesSpec(t *testing.T) {
	const bend = 8191
	const rangeSemis = 2
	e, _ := Create(44100)
	e.SetPitchBendRange(rangeSemis)
	e.applyPitchBend(bend)
	got := bitsToFloat32(e.pitchMultiplier.Load())
	want := float32(math.Pow(2, (8191.0/8192.0)*2.0/12.0))
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPitchBendRangeClamped(t *testing.T) {
	e, _ := Create(44100)
	e.SetPitchBendRange(0)
	if e.pitchBendRange.Load() != 1 {
		t.Fatalf("range = %d, want clamped to 1", e.pitchBendRange.Load())
	}
	e.SetPitchBendRange(100)
	if e.pitchBendRange.Load() != 24 {
		t.Fatalf("range = %d, want clamped to 24", e.pitchBendRange.Load())
	}
}

func TestDeterminismSameBytesSameOutput(t *testing.T) {
	data := minimalSpc()

	e1, _ := Create(44100)
	e1.LoadSpc(data)
	e1.Play()
	out1 := make([]float32, 2*512)
	e1.Process(out1, 512)

	e2, _ := Create(44100)
	e2.LoadSpc(data)
	e2.Play()
	out2 := make([]float32, 2*512)
	e2.Process(out2, 512)

	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("out1[%d]=%v != out2[%d]=%v, want byte-identical streams", i, out1[i], i, out2[i])
		}
	}
}

func TestSyncVoiceMixSoloZeroesOtherVoiceRegisters(t *testing.T) {
	e, _ := Create(44100)
	e.LoadSpc(minimalSpc())
	for v := 0; v < numEngineVoices; v++ {
		e.SetVoiceVolume(v, 1.0)
	}
	e.SetVoiceSolo(0, true)

	core := e.core.Load()
	e.syncVoiceMix(core)

	l0, r0 := core.dsp.VoiceVolume(0)
	if l0 == 0 || r0 == 0 {
		t.Fatalf("soloed voice 0 should have nonzero volume registers, got %d/%d", l0, r0)
	}
	for v := 1; v < numEngineVoices; v++ {
		l, r := core.dsp.VoiceVolume(v)
		if l != 0 || r != 0 {
			t.Fatalf("non-soloed voice %d should be zeroed, got %d/%d", v, l, r)
		}
	}
}

func TestDiagnosticsSnapshot(t *testing.T) {
	e, _ := Create(44100)
	e.diag.BufferUnderruns.Add(3)
	snap := e.Diagnostics()
	if snap.BufferUnderruns != 3 {
		t.Fatalf("BufferUnderruns = %d, want 3", snap.BufferUnderruns)
	}
}
