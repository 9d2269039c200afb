// Command cabi builds, via `go build -buildmode=c-shared`, the C ABI a
// plugin host links against to drive an engine.Engine: handle-based
// lifecycle management, transport, the full mute/solo/volume/tempo
// control surface and MIDI ingestion, generalized from the teacher's own
// cgo-bound native bindings (its ALSA backend, its GTK4 frontend) from
// "binds a toolkit" to "binds a plugin host".
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"github.com/TheAnsarya/ableton-snes-spc-sub001/engine"
)

// handle registry. A handle encodes a slot index in its low 32 bits and a
// generation counter in its high 32 bits so a stale handle (one whose
// slot has since been destroyed and reused) is rejected rather than
// silently operating on the wrong engine.
type slot struct {
	eng        *engine.Engine
	generation uint32
	live       bool
}

// slotsMu guards slots/freeList: a plugin host may call engine_create and
// engine_destroy from a UI thread while process runs on an audio thread, so
// the registry itself (not the per-engine audio path) needs locking.
var (
	slotsMu  sync.Mutex
	slots    []slot
	freeList []int
)

func packHandle(idx int, gen uint32) C.int64_t {
	return C.int64_t(uint64(gen)<<32 | uint64(uint32(idx)))
}

func unpackHandle(h C.int64_t) (idx int, gen uint32) {
	u := uint64(h)
	return int(uint32(u)), uint32(u >> 32)
}

func lookup(h C.int64_t) *engine.Engine {
	slotsMu.Lock()
	defer slotsMu.Unlock()
	idx, gen := unpackHandle(h)
	if idx < 0 || idx >= len(slots) {
		return nil
	}
	s := &slots[idx]
	if !s.live || s.generation != gen {
		return nil
	}
	return s.eng
}

func allocate(e *engine.Engine) C.int64_t {
	slotsMu.Lock()
	defer slotsMu.Unlock()
	if n := len(freeList); n > 0 {
		idx := freeList[n-1]
		freeList = freeList[:n-1]
		slots[idx].eng = e
		slots[idx].live = true
		return packHandle(idx, slots[idx].generation)
	}
	idx := len(slots)
	slots = append(slots, slot{eng: e, generation: 1, live: true})
	return packHandle(idx, 1)
}

func release(h C.int64_t) {
	slotsMu.Lock()
	defer slotsMu.Unlock()
	idx, gen := unpackHandle(h)
	if idx < 0 || idx >= len(slots) {
		return
	}
	s := &slots[idx]
	if !s.live || s.generation != gen {
		return
	}
	s.eng = nil
	s.live = false
	s.generation++
	freeList = append(freeList, idx)
}

//export engine_create
func engine_create(sampleRate C.int) C.int64_t {
	e, err := engine.Create(int(sampleRate))
	if err != nil {
		return -1
	}
	return allocate(e)
}

//export engine_destroy
func engine_destroy(h C.int64_t) {
	release(h)
}

//export load_spc_bytes
func load_spc_bytes(h C.int64_t, data *C.uchar, length C.int) C.int {
	e := lookup(h)
	if e == nil {
		return -1
	}
	buf := C.GoBytes(unsafe.Pointer(data), length)
	if err := e.LoadSpc(buf); err != nil {
		return -1
	}
	return 0
}

//export load_spc_path
func load_spc_path(h C.int64_t, path *C.char) C.int {
	e := lookup(h)
	if e == nil {
		return -1
	}
	data, err := os.ReadFile(C.GoString(path))
	if err != nil {
		return -1
	}
	if err := e.LoadSpc(data); err != nil {
		return -1
	}
	return 0
}

//export play
func play(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.Play()
	}
}

//export pause_playback
func pause_playback(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.Pause()
	}
}

//export stop
func stop(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.Stop()
	}
}

//export is_playing
func is_playing(h C.int64_t) C.int {
	e := lookup(h)
	if e == nil {
		return 0
	}
	if e.IsPlaying() {
		return 1
	}
	return 0
}

//export seek
func seek(h C.int64_t, seconds C.double) {
	if e := lookup(h); e != nil {
		e.Seek(float64(seconds))
	}
}

//export get_position
func get_position(h C.int64_t) C.double {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.double(e.Position())
}

// process renders frames of interleaved stereo float32 into a caller-owned
// buffer of at least 2*frames floats. The host is responsible for calling
// this from its real-time audio callback; nothing here allocates.
//
//export process
func process(h C.int64_t, out *C.float, frames C.int) {
	e := lookup(h)
	if e == nil || frames <= 0 {
		return
	}
	buf := unsafe.Slice((*float32)(unsafe.Pointer(out)), int(frames)*2)
	e.Process(buf, int(frames))
}

//export get_master_volume
func get_master_volume(h C.int64_t) C.float {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.float(e.MasterVolume())
}

//export set_master_volume
func set_master_volume(h C.int64_t, v C.float) {
	if e := lookup(h); e != nil {
		e.SetMasterVolume(float32(v))
	}
}

//export get_loop_enabled
func get_loop_enabled(h C.int64_t) C.int {
	e := lookup(h)
	if e == nil || !e.LoopEnabled() {
		return 0
	}
	return 1
}

//export set_loop_enabled
func set_loop_enabled(h C.int64_t, v C.int) {
	if e := lookup(h); e != nil {
		e.SetLoopEnabled(v != 0)
	}
}

//export get_voice_muted
func get_voice_muted(h C.int64_t, voice C.int) C.int {
	e := lookup(h)
	if e == nil || !e.VoiceMuted(int(voice)) {
		return 0
	}
	return 1
}

//export set_voice_muted
func set_voice_muted(h C.int64_t, voice C.int, muted C.int) {
	if e := lookup(h); e != nil {
		e.SetVoiceMuted(int(voice), muted != 0)
	}
}

//export get_voice_solo
func get_voice_solo(h C.int64_t, voice C.int) C.int {
	e := lookup(h)
	if e == nil || !e.VoiceSolo(int(voice)) {
		return 0
	}
	return 1
}

//export set_voice_solo
func set_voice_solo(h C.int64_t, voice C.int, solo C.int) {
	if e := lookup(h); e != nil {
		e.SetVoiceSolo(int(voice), solo != 0)
	}
}

//export get_voice_volume
func get_voice_volume(h C.int64_t, voice C.int) C.float {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.float(e.VoiceVolume(int(voice)))
}

//export set_voice_volume
func set_voice_volume(h C.int64_t, voice C.int, gain C.float) {
	if e := lookup(h); e != nil {
		e.SetVoiceVolume(int(voice), float32(gain))
	}
}

//export mute_all
func mute_all(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.MuteAll()
	}
}

//export unmute_all
func unmute_all(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.UnmuteAll()
	}
}

//export clear_solo
func clear_solo(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.ClearSolo()
	}
}

//export set_host_tempo
func set_host_tempo(h C.int64_t, bpm C.double) {
	if e := lookup(h); e != nil {
		e.SetHostTempo(float64(bpm))
	}
}

//export set_time_signature
func set_time_signature(h C.int64_t, num, den C.double) {
	if e := lookup(h); e != nil {
		e.SetTimeSignature(float64(num), float64(den))
	}
}

//export get_position_beats
func get_position_beats(h C.int64_t) C.double {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.double(e.PositionBeats())
}

//export get_position_bars
func get_position_bars(h C.int64_t) C.double {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.double(e.PositionBars())
}

//export get_total_cycles
func get_total_cycles(h C.int64_t) C.int64_t {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.int64_t(e.TotalCycles())
}

//export get_sample_rate
func get_sample_rate(h C.int64_t) C.int {
	e := lookup(h)
	if e == nil {
		return 0
	}
	return C.int(e.SampleRate())
}

//export set_sample_rate
func set_sample_rate(h C.int64_t, rate C.int) C.int {
	e := lookup(h)
	if e == nil {
		return -1
	}
	if err := e.SetSampleRate(int(rate)); err != nil {
		return -1
	}
	return 0
}

//export set_pitch_bend_range
func set_pitch_bend_range(h C.int64_t, semitones C.int) {
	if e := lookup(h); e != nil {
		e.SetPitchBendRange(int(semitones))
	}
}

//export send_midi_note_on
func send_midi_note_on(h C.int64_t, channel, note, velocity C.uchar) {
	if e := lookup(h); e != nil {
		e.SendMidiEvent(engine.NoteOnEvent(uint8(channel), uint8(note), uint8(velocity)))
	}
}

//export send_midi_note_off
func send_midi_note_off(h C.int64_t, channel, note C.uchar) {
	if e := lookup(h); e != nil {
		e.SendMidiEvent(engine.NoteOffEvent(uint8(channel), uint8(note)))
	}
}

//export send_midi_cc
func send_midi_cc(h C.int64_t, channel, controller, value C.uchar) {
	if e := lookup(h); e != nil {
		e.SendMidiEvent(engine.CCEvent(uint8(channel), uint8(controller), uint8(value)))
	}
}

//export send_midi_pitch_bend
func send_midi_pitch_bend(h C.int64_t, channel C.uchar, bend14 C.short) {
	if e := lookup(h); e != nil {
		e.SendMidiEvent(engine.PitchBendEvent(uint8(channel), int16(bend14)))
	}
}

//export send_midi_reset
func send_midi_reset(h C.int64_t) {
	if e := lookup(h); e != nil {
		e.SendMidiEvent(engine.ResetEvent())
	}
}

func main() {}
