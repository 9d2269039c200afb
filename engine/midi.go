package engine

import "math"

// MIDI event kinds the engine ingests (§6's MIDI control map).
type midiEventKind int

const (
	midiNoteOn midiEventKind = iota
	midiNoteOff
	midiCC
	midiPitchBend
	midiReset
)

// MidiEvent is one queued control-plane event, handed from a control
// thread to the audio thread via the lock-free event queue. Events carry
// no frame offset: each is applied at the start of the Process call that
// drains it, never mid-buffer.
type MidiEvent struct {
	Kind        midiEventKind
	Channel     uint8
	Note        uint8
	Velocity    uint8
	Controller  uint8
	Value       uint8
	PitchBend14 int16
}

// NoteOnEvent/NoteOffEvent/CCEvent/PitchBendEvent/ResetEvent construct the
// queued variants of MidiEvent for SendMidiEvent.
func NoteOnEvent(channel, note, velocity uint8) MidiEvent {
	return MidiEvent{Kind: midiNoteOn, Channel: channel, Note: note, Velocity: velocity}
}
func NoteOffEvent(channel, note uint8) MidiEvent {
	return MidiEvent{Kind: midiNoteOff, Channel: channel, Note: note}
}
func CCEvent(channel, controller, value uint8) MidiEvent {
	return MidiEvent{Kind: midiCC, Channel: channel, Controller: controller, Value: value}
}
func PitchBendEvent(channel uint8, signed14 int16) MidiEvent {
	return MidiEvent{Kind: midiPitchBend, Channel: channel, PitchBend14: signed14}
}
func ResetEvent() MidiEvent { return MidiEvent{Kind: midiReset} }

// noteToVoice maps notes 60-67 to voices 0-7; other notes are ignored.
func noteToVoice(note uint8) (voice int, ok bool) {
	if note < 60 || note > 67 {
		return 0, false
	}
	return int(note) - 60, true
}

// applyMidiEvent mutates engine shadow state and DSP registers in
// response to one event. Always called from the audio thread (the start
// of Process), so direct register pokes here are not a data race with
// DSP.Tick.
func (e *Engine) applyMidiEvent(ev MidiEvent) {
	switch ev.Kind {
	case midiNoteOn:
		v, ok := noteToVoice(ev.Note)
		if !ok {
			e.diag.InvalidVoiceIndex.Add(1)
			return
		}
		e.setVoiceVolume(v, float32(ev.Velocity)/127.0)
		e.keyOn(v)
		e.noteActive[v] = true

	case midiNoteOff:
		v, ok := noteToVoice(ev.Note)
		if !ok {
			return
		}
		if e.sustain[ev.Channel&0x0F] {
			e.sustainedOff[v] = true
			return
		}
		e.keyOff(v)
		e.noteActive[v] = false

	case midiCC:
		e.applyCC(ev.Channel, ev.Controller, ev.Value)

	case midiPitchBend:
		e.applyPitchBend(ev.PitchBend14)

	case midiReset:
		e.allSoundOff()
		e.resetControllers()
	}
}

func (e *Engine) applyCC(channel, controller, value uint8) {
	switch controller {
	case 7, 104:
		e.masterVolume.Store(float32bits(float32(value) / 127.0 * 2.0))
	case 64:
		on := value >= 64
		e.sustain[channel&0x0F] = on
		if !on {
			for v := 0; v < numEngineVoices; v++ {
				if e.sustainedOff[v] {
					e.sustainedOff[v] = false
					e.keyOff(v)
					e.noteActive[v] = false
				}
			}
		}
	case 102:
		if int(value) < numEngineVoices {
			e.SetVoiceMuted(int(value), !e.VoiceMuted(int(value)))
		}
	case 103:
		if int(value) < numEngineVoices {
			e.SetVoiceSolo(int(value), !e.VoiceSolo(int(value)))
		}
	case 105:
		e.setEchoFeedback(int8(int(value) - 64))
	case 106:
		e.setEchoDelay(uint8(value / 8))
	case 108:
		e.SetLoopEnabled(value >= 64)
	case 109:
		if value >= 64 {
			if e.IsPlaying() {
				e.Pause()
			} else {
				e.Play()
			}
		}
	case 110:
		if value >= 64 {
			e.Stop()
		}
	case 120, 123:
		e.allSoundOff()
	case 121:
		e.resetControllers()
	}
}

func (e *Engine) applyPitchBend(bend int16) {
	rangeSemis := e.pitchBendRange.Load()
	mul := math.Pow(2, (float64(bend)/8192.0)*float64(rangeSemis)/12.0)
	e.pitchMultiplier.Store(float32bits(float32(mul)))
	for v := 0; v < numEngineVoices; v++ {
		if e.noteActive[v] {
			e.applyPitchMultiplier(v, mul)
		}
	}
}

func (e *Engine) resetControllers() {
	e.masterVolume.Store(float32bits(1.0))
	e.pitchBendRange.Store(2)
	e.pitchMultiplier.Store(float32bits(1.0))
	for i := range e.sustain {
		e.sustain[i] = false
	}
}

func (e *Engine) allSoundOff() {
	for v := 0; v < numEngineVoices; v++ {
		e.keyOff(v)
		e.noteActive[v] = false
		e.sustainedOff[v] = false
	}
}

func float32bits(f float32) uint32 { return math.Float32bits(f) }
func bitsToFloat32(b uint32) float32 { return math.Float32frombits(b) }
