// Command spcplay is a terminal demo player for .spc snapshots: it loads a
// file, renders it through engine.Engine and an oto player exactly the way
// the teacher's own OtoPlayer drives its SoundChip, and reads single
// keystrokes from a raw terminal to drive the transport.
package main

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/charmbracelet/log"

	"github.com/TheAnsarya/ableton-snes-spc-sub001/engine"
)

var (
	sampleRate   = pflag.IntP("rate", "r", 44100, "output sample rate in Hz")
	loop         = pflag.BoolP("loop", "l", false, "set the engine's loop flag (BRR loop points apply either way)")
	masterVolume = pflag.Float32P("volume", "v", 1.0, "initial master volume (0-2)")
	verbose      = pflag.BoolP("verbose", "V", false, "enable debug logging")
)

// enginePlayer adapts engine.Engine to io.Reader for oto's Player, mirroring
// OtoPlayer.Read's atomic-pointer hot path: the audio callback never takes
// the control mutex, it only ever loads an atomic snapshot of "is there an
// engine to pull from".
type enginePlayer struct {
	eng       atomic.Pointer[engine.Engine]
	sampleBuf []float32
}

func (p *enginePlayer) Read(out []byte) (int, error) {
	e := p.eng.Load()
	if e == nil {
		for i := range out {
			out[i] = 0
		}
		return len(out), nil
	}

	frames := len(out) / 4 / 2 // 2 channels, 4 bytes per float32
	need := frames * 2
	if len(p.sampleBuf) < need {
		p.sampleBuf = make([]float32, need)
	}
	samples := p.sampleBuf[:need]
	e.Process(samples, frames)

	for i, s := range samples {
		bits := math.Float32bits(s)
		out[4*i+0] = byte(bits)
		out[4*i+1] = byte(bits >> 8)
		out[4*i+2] = byte(bits >> 16)
		out[4*i+3] = byte(bits >> 24)
	}
	return len(out), nil
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: spcplay [flags] <file.spc>\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	path := pflag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading spc file", "path", path, "err", err)
	}

	eng, err := engine.Create(*sampleRate, engine.WithLogger(logger))
	if err != nil {
		logger.Fatal("creating engine", "err", err)
	}
	if err := eng.LoadSpc(data); err != nil {
		logger.Fatal("loading spc", "path", path, "err", err)
	}
	eng.SetLoopEnabled(*loop)
	eng.SetMasterVolume(*masterVolume)

	player := &enginePlayer{}
	player.eng.Store(eng)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	})
	if err != nil {
		logger.Fatal("initializing audio output", "err", err)
	}
	<-ready

	otoPlayer := ctx.NewPlayer(player)
	otoPlayer.Play()
	defer otoPlayer.Close()

	eng.Play()
	logger.Info("playing", "file", path, "sample_rate", *sampleRate)

	runKeyLoop(eng, logger)
}

// runKeyLoop puts the terminal in raw mode and maps single keystrokes to
// transport controls: space=play/pause, s=stop, m=mute-all, u=unmute-all,
// q/ctrl-c=quit.
func runKeyLoop(eng *engine.Engine, logger *log.Logger) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		logger.Warn("stdin is not a terminal, running until interrupted")
		select {}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		logger.Warn("could not enter raw terminal mode", "err", err)
		select {}
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		switch buf[0] {
		case ' ':
			if eng.IsPlaying() {
				eng.Pause()
			} else {
				eng.Play()
			}
		case 's':
			eng.Stop()
		case 'm':
			eng.MuteAll()
		case 'u':
			eng.UnmuteAll()
		case 'q', 3: // q or ctrl-c
			return
		}
	}
}
