// Package engine is the real-time driver that ties the SPC700 CPU, the
// S-DSP and the BRR/spcfile codecs into a renderer callable from a host
// audio thread: it advances emulator time, drains 32 kHz stereo samples
// into an arbitrary host sample rate, and exposes a control surface
// (transport, mute/solo/volume, DAW sync, MIDI ingestion) that a control
// thread can drive concurrently with Process.
package engine

import (
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/TheAnsarya/ableton-snes-spc-sub001/bus"
	"github.com/TheAnsarya/ableton-snes-spc-sub001/dsp"
	"github.com/TheAnsarya/ableton-snes-spc-sub001/spc700"
	"github.com/TheAnsarya/ableton-snes-spc-sub001/spcfile"
	"github.com/TheAnsarya/ableton-snes-spc-sub001/timing"
)

const numEngineVoices = 8

// PlayState is the engine's coarse transport state.
type PlayState int32

const (
	StateUnloaded PlayState = iota
	StatePaused
	StatePlaying
)

// ErrInvalidSampleRate is returned by Create/SetSampleRate for non-positive rates.
var ErrInvalidSampleRate = errors.New("engine: sample rate must be > 0")

// engineCore bundles the bus/CPU/DSP triple installed by LoadSpc. A whole
// new core is built per load and installed via an atomic pointer swap so
// Process always observes either the prior or the new core, never a
// half-updated mix (§5 "double buffering... pointer swap").
type engineCore struct {
	bus *bus.Bus
	cpu *spc700.CPU
	dsp *dsp.DSP
}

// Engine is safe for one control-thread caller plus one audio-thread
// caller of Process running concurrently; multiple concurrent control
// callers must serialize through their own synchronization (mirroring
// the documented single-control-mutex contract).
type Engine struct {
	logger *log.Logger

	hostSampleRate atomic.Int32
	core           atomic.Pointer[engineCore]
	mu             sync.Mutex

	state atomic.Int32

	ring *ringBuffer
	rs   resampler

	diag Diagnostics

	events chan MidiEvent

	loopEnabled  atomic.Bool
	masterVolume atomic.Uint32 // float32 bits

	voiceMuted  [numEngineVoices]atomic.Bool
	voiceSolo   [numEngineVoices]atomic.Bool
	voiceVolume [numEngineVoices]atomic.Uint32 // float32 bits, velocity-derived

	voiceBasePitch [numEngineVoices]uint16
	noteActive     [numEngineVoices]bool
	sustain        [16]bool
	sustainedOff   [numEngineVoices]bool

	pitchBendRange  atomic.Int32
	pitchMultiplier atomic.Uint32 // float32 bits

	sampleCounter atomic.Int64

	tempoBPM atomic.Uint64 // float64 bits
	tsNum    atomic.Uint32
	tsDen    atomic.Uint32
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger injects a structured logger for control-plane diagnostics.
// A nil logger (the default) falls back to a discard logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Create allocates an Engine and all of its audio-path buffers; no
// allocation happens on the audio path afterward.
func Create(sampleRate int, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	e := &Engine{
		logger: log.New(io.Discard),
		ring:   newRingBuffer(4096),
		events: make(chan MidiEvent, 256),
	}
	e.hostSampleRate.Store(int32(sampleRate))
	e.masterVolume.Store(float32bits(1.0))
	e.pitchMultiplier.Store(float32bits(1.0))
	e.pitchBendRange.Store(2)
	e.tsNum.Store(4)
	e.tsDen.Store(4)
	e.tempoBPM.Store(math.Float64bits(120.0))
	for i := range e.voiceVolume {
		e.voiceVolume[i].Store(float32bits(1.0))
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// LoadSpc parses an .spc snapshot and installs it as the active program.
// The engine starts paused. A parse failure leaves the previous program
// (if any) installed and playing.
func (e *Engine) LoadSpc(data []byte) error {
	f, err := spcfile.Parse(data)
	if err != nil {
		e.logger.Error("load spc failed", "err", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b := bus.New()
	d := dsp.New()
	b.AttachDSP(d)
	d.AttachRAM(b.RAMPort())

	b.LoadImage(f.RAM[:])
	b.LoadRegisterSnapshot(f.ExtraRAM[:])

	for i, v := range f.DSPRegs {
		d.WriteRegister(uint8(i), v)
	}

	cpu := spc700.New(b)
	cpu.PC = f.CPU.PC
	cpu.A = f.CPU.A
	cpu.X = f.CPU.X
	cpu.Y = f.CPU.Y
	cpu.PSW = f.CPU.PSW
	cpu.SP = f.CPU.SP

	e.core.Store(&engineCore{bus: b, cpu: cpu, dsp: d})
	e.ring.reset()
	e.rs.reset()
	e.sampleCounter.Store(0)
	e.state.Store(int32(StatePaused))
	return nil
}

// Play transitions Paused -> Playing. A no-op if nothing is loaded.
func (e *Engine) Play() {
	if e.core.Load() == nil {
		return
	}
	e.state.Store(int32(StatePlaying))
}

// Pause transitions Playing -> Paused.
func (e *Engine) Pause() {
	if PlayState(e.state.Load()) == StatePlaying {
		e.state.Store(int32(StatePaused))
	}
}

// Stop pauses and resets playback position to the start.
func (e *Engine) Stop() {
	if e.core.Load() == nil {
		return
	}
	e.state.Store(int32(StatePaused))
	e.sampleCounter.Store(0)
	e.ring.reset()
	e.rs.reset()
}

// IsPlaying reports whether the engine is currently in the Playing state.
func (e *Engine) IsPlaying() bool { return PlayState(e.state.Load()) == StatePlaying }

// Seek resets the running sample counter to the position implied by
// seconds. Seeking on an emulator is not sample-exact: the BRR/CPU state
// keeps running forward from wherever it is; only position-reporting and
// buffering are reset.
func (e *Engine) Seek(seconds float64) {
	if e.core.Load() == nil {
		return
	}
	e.sampleCounter.Store(int64(seconds * timing.DSPSampleRateHz))
	e.ring.reset()
	e.rs.reset()
}

// Position returns the current playback position in seconds.
func (e *Engine) Position() float64 {
	return float64(e.sampleCounter.Load()) / timing.DSPSampleRateHz
}

// SendMidiEvent enqueues a control-thread MIDI event for the audio thread
// to apply at the start of its next Process call. Non-blocking; if the
// queue is full the event is dropped (matches the documented "no
// blocking on the audio path" contract — a dropped event is preferable to
// a stall).
func (e *Engine) SendMidiEvent(ev MidiEvent) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("midi event queue full, dropping event")
	}
}

// Process renders frames of interleaved stereo float32 into out (length
// must be >= 2*frames). It never allocates and completes in bounded time
// proportional to frames.
func (e *Engine) Process(out []float32, frames int) {
	e.drainMidiEvents()

	core := e.core.Load()
	if core == nil || !e.IsPlaying() {
		for i := 0; i < 2*frames; i++ {
			out[i] = 0
		}
		return
	}

	e.syncVoiceMix(core)

	hostRate := int(e.hostSampleRate.Load())
	step := sourceStepRatio(hostRate)
	required := int(math.Ceil(float64(frames)*32000.0/float64(hostRate))) + 4
	if required > e.ring.cap() {
		required = e.ring.cap()
	}
	need := int(step) + 2 // most source samples one output frame can pop

	for e.ring.len() < required {
		core.cpu.Execute(timing.CPUCyclesPerDSPTick)
		l, r := core.dsp.Tick()
		e.ring.push(stereoSample{l: l, r: r})
		e.sampleCounter.Add(1)
	}

	master := bitsToFloat32(e.masterVolume.Load())
	for i := 0; i < frames; i++ {
		for e.ring.len() < need {
			core.cpu.Execute(timing.CPUCyclesPerDSPTick)
			tl, tr := core.dsp.Tick()
			e.ring.push(stereoSample{l: tl, r: tr})
			e.sampleCounter.Add(1)
		}
		l, r, ok := e.rs.next(e.ring, step)
		if !ok {
			e.diag.BufferUnderruns.Add(1)
		}
		out[2*i] = l * master
		out[2*i+1] = r * master
	}
}

// Diagnostics returns a snapshot of the audio-path counters.
func (e *Engine) Diagnostics() DiagnosticsSnapshot { return e.diag.snapshot() }

func (e *Engine) drainMidiEvents() {
	for {
		select {
		case ev := <-e.events:
			e.applyMidiEvent(ev)
		default:
			return
		}
	}
}

// keyOn/keyOff drive the DSP's edge registers and capture the voice's
// nominal pitch so pitch-bend math always scales from an un-bent base.
func (e *Engine) keyOn(v int) {
	core := e.core.Load()
	if core == nil {
		return
	}
	e.voiceBasePitch[v] = core.dsp.VoicePitch(v)
	core.dsp.KeyOn(v)
}

func (e *Engine) keyOff(v int) {
	core := e.core.Load()
	if core == nil {
		return
	}
	core.dsp.KeyOff(v)
}

func (e *Engine) setVoiceVolume(v int, vel float32) {
	if v < 0 || v >= numEngineVoices {
		return
	}
	e.voiceVolume[v].Store(float32bits(vel))
}

func (e *Engine) applyPitchMultiplier(v int, mul float64) {
	core := e.core.Load()
	if core == nil {
		return
	}
	core.dsp.SetVoicePitch(v, uint16(float64(e.voiceBasePitch[v])*mul))
}

func (e *Engine) setEchoFeedback(fb int8) {
	if core := e.core.Load(); core != nil {
		core.dsp.SetEchoFeedback(fb)
	}
}

func (e *Engine) setEchoDelay(edl uint8) {
	if core := e.core.Load(); core != nil {
		core.dsp.SetEchoDelay(edl)
	}
}

// syncVoiceMix pushes the engine-side mute/solo/velocity shadow into the
// DSP's per-voice volume registers and the main mute flag. It runs once
// per Process call on the audio thread, so it never races a concurrent
// control-thread write to the same shadow fields (those are atomics).
func (e *Engine) syncVoiceMix(core *engineCore) {
	anySolo := false
	for v := 0; v < numEngineVoices; v++ {
		if e.voiceSolo[v].Load() {
			anySolo = true
			break
		}
	}

	core.dsp.SetMute(false)
	for v := 0; v < numEngineVoices; v++ {
		audible := !e.voiceMuted[v].Load()
		if anySolo {
			audible = audible && e.voiceSolo[v].Load()
		}
		vel := bitsToFloat32(e.voiceVolume[v].Load())
		gain := int8(0)
		if audible {
			gain = int8(clampFloat(vel, 0, 1) * 127)
		}
		core.dsp.SetVoiceVolume(v, gain, gain)
	}
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetVoiceMuted mutes or unmutes voice v (ignored if out of range 0..7).
func (e *Engine) SetVoiceMuted(v int, muted bool) {
	if v < 0 || v >= numEngineVoices {
		return
	}
	e.voiceMuted[v].Store(muted)
}

// VoiceMuted reports voice v's mute state.
func (e *Engine) VoiceMuted(v int) bool {
	if v < 0 || v >= numEngineVoices {
		return false
	}
	return e.voiceMuted[v].Load()
}

// SetVoiceSolo solos or un-solos voice v.
func (e *Engine) SetVoiceSolo(v int, solo bool) {
	if v < 0 || v >= numEngineVoices {
		return
	}
	e.voiceSolo[v].Store(solo)
}

// VoiceSolo reports voice v's solo state.
func (e *Engine) VoiceSolo(v int) bool {
	if v < 0 || v >= numEngineVoices {
		return false
	}
	return e.voiceSolo[v].Load()
}

// SetVoiceVolume sets voice v's velocity-style gain (0..1).
func (e *Engine) SetVoiceVolume(v int, gain float32) {
	if v < 0 || v >= numEngineVoices {
		return
	}
	e.voiceVolume[v].Store(float32bits(clampFloat(gain, 0, 1)))
}

// VoiceVolume reports voice v's velocity-style gain (0..1).
func (e *Engine) VoiceVolume(v int) float32 {
	if v < 0 || v >= numEngineVoices {
		return 0
	}
	return bitsToFloat32(e.voiceVolume[v].Load())
}

// MuteAll mutes every voice.
func (e *Engine) MuteAll() {
	for v := range e.voiceMuted {
		e.voiceMuted[v].Store(true)
	}
}

// UnmuteAll clears every voice's mute flag.
func (e *Engine) UnmuteAll() {
	for v := range e.voiceMuted {
		e.voiceMuted[v].Store(false)
	}
}

// ClearSolo clears every voice's solo flag.
func (e *Engine) ClearSolo() {
	for v := range e.voiceSolo {
		e.voiceSolo[v].Store(false)
	}
}

// SetMasterVolume sets the final output scalar (0 = silent, 1 = unity,
// up to 2 per the MIDI CC 7/104 mapping's 0-200% range).
func (e *Engine) SetMasterVolume(v float32) {
	e.masterVolume.Store(float32bits(clampFloat(v, 0, 2)))
}

// MasterVolume returns the current master volume scalar.
func (e *Engine) MasterVolume() float32 { return bitsToFloat32(e.masterVolume.Load()) }

// SetLoopEnabled records the loop setting reported by LoopEnabled. The
// value is not read by Process or the DSP: playback always follows each
// BRR sample's own loop flag, whatever this setting is.
func (e *Engine) SetLoopEnabled(v bool) { e.loopEnabled.Store(v) }

// LoopEnabled reports the current loop setting.
func (e *Engine) LoopEnabled() bool { return e.loopEnabled.Load() }

// SetSampleRate changes the host output sample rate.
func (e *Engine) SetSampleRate(rate int) error {
	if rate <= 0 {
		return ErrInvalidSampleRate
	}
	e.hostSampleRate.Store(int32(rate))
	return nil
}

// SampleRate returns the host output sample rate.
func (e *Engine) SampleRate() int { return int(e.hostSampleRate.Load()) }

// TotalCycles returns the CPU's monotonic cycle counter of the currently
// installed program, or 0 if nothing is loaded.
func (e *Engine) TotalCycles() int64 {
	if core := e.core.Load(); core != nil {
		return core.cpu.TotalCycles
	}
	return 0
}

// SetHostTempo records the DAW's tempo for beat/bar position derivation.
func (e *Engine) SetHostTempo(bpm float64) { e.tempoBPM.Store(math.Float64bits(bpm)) }

// SetTimeSignature records the DAW's time signature.
func (e *Engine) SetTimeSignature(num, den float64) {
	e.tsNum.Store(uint32(num))
	e.tsDen.Store(uint32(den))
}

// PositionBeats derives the current beat position from the running 32
// kHz sample counter and the configured tempo.
func (e *Engine) PositionBeats() float64 {
	bpm := math.Float64frombits(e.tempoBPM.Load())
	seconds := e.Position()
	return seconds * bpm / 60.0
}

// PositionBars derives the current bar position from PositionBeats and
// the configured time signature.
func (e *Engine) PositionBars() float64 {
	num := float64(e.tsNum.Load())
	if num == 0 {
		num = 4
	}
	return e.PositionBeats() / num
}

// SetPitchBendRange sets the pitch-bend range in semitones, clamped to
// the documented 1..24 range.
func (e *Engine) SetPitchBendRange(semitones int) {
	if semitones < 1 {
		semitones = 1
	}
	if semitones > 24 {
		semitones = 24
	}
	e.pitchBendRange.Store(int32(semitones))
}
