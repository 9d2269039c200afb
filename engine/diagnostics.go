package engine

import "sync/atomic"

// Diagnostics exposes atomic counters the control thread can poll since
// the audio thread itself never returns errors: invalid or uninitialized
// state is replaced with silence and counted here instead.
type Diagnostics struct {
	BufferUnderruns       atomic.Uint64
	InvalidVoiceIndex     atomic.Uint64
	MalformedBrrDuringPlay atomic.Uint64
}

func (d *Diagnostics) snapshot() DiagnosticsSnapshot {
	return DiagnosticsSnapshot{
		BufferUnderruns:        d.BufferUnderruns.Load(),
		InvalidVoiceIndex:      d.InvalidVoiceIndex.Load(),
		MalformedBrrDuringPlay: d.MalformedBrrDuringPlay.Load(),
	}
}

// DiagnosticsSnapshot is a point-in-time, allocation-free copy suitable
// for logging or UI display.
type DiagnosticsSnapshot struct {
	BufferUnderruns        uint64
	InvalidVoiceIndex      uint64
	MalformedBrrDuringPlay uint64
}
