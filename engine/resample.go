package engine

// resampler converts the DSP's fixed 32 kHz stereo stream to an
// arbitrary host sample rate with linear interpolation, carrying its
// fractional phase across Process calls so output stays phase-continuous.
type resampler struct {
	phase float64 // 0..1, position between prevSample and curSample
	prevL, prevR int32
	curL, curR   int32
	primed       bool
}

// step ratio returns how many 32 kHz source samples the phase needs
// to advance in order to produce one host-rate output sample.
func sourceStepRatio(hostRate int) float64 {
	const dspRate = 32000.0
	return dspRate / float64(hostRate)
}

// next consumes source samples from src (via pop) as needed and returns
// one interpolated host-rate stereo frame. It returns false if src runs
// dry mid-interpolation; the frame returned then holds the last source
// sample read (silence if none was ever read).
func (rs *resampler) next(src *ringBuffer, step float64) (l, r float32, ok bool) {
	if !rs.primed {
		s, ok := src.pop()
		if !ok {
			return 0, 0, false
		}
		rs.curL, rs.curR = s.l, s.r
		rs.prevL, rs.prevR = s.l, s.r
		rs.primed = true
	}

	rs.phase += step
	for rs.phase >= 1.0 {
		rs.phase -= 1.0
		s, ok := src.pop()
		if !ok {
			rs.phase = 0
			return float32(rs.curL) / 32768.0, float32(rs.curR) / 32768.0, false
		}
		rs.prevL, rs.prevR = rs.curL, rs.curR
		rs.curL, rs.curR = s.l, s.r
	}

	t := rs.phase
	outL := float64(rs.prevL)*(1-t) + float64(rs.curL)*t
	outR := float64(rs.prevR)*(1-t) + float64(rs.curR)*t
	return float32(outL / 32768.0), float32(outR / 32768.0), true
}

func (rs *resampler) reset() {
	*rs = resampler{}
}
