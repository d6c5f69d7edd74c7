package synth

import (
	"math"
	"math/rand"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSaw
	WaveSquare
	WavePulse
	WaveNoise
	WaveKick
	WaveSnare
	WaveTomHigh
	WaveTomMid
	WaveTomLow
	WaveHatClosed
	WaveHatOpen
	WaveHatPedal
	WaveClap
	WaveRim
)

var waveformNames = map[Waveform]string{
	WaveSine:      "sine",
	WaveTriangle:  "triangle",
	WaveSaw:       "saw",
	WaveSquare:    "square",
	WavePulse:     "pulse",
	WaveNoise:     "noise",
	WaveKick:      "kick",
	WaveSnare:     "snare",
	WaveTomHigh:   "tom_high",
	WaveTomMid:    "tom_mid",
	WaveTomLow:    "tom_low",
	WaveHatClosed: "hat_closed",
	WaveHatOpen:   "hat_open",
	WaveHatPedal:  "hat_pedal",
	WaveClap:      "clap",
	WaveRim:       "rim",
}

func (w Waveform) String() string {
	if s, ok := waveformNames[w]; ok {
		return s
	}
	return "sine"
}

// ParseWaveform maps a preset name to a Waveform; unknown names fall back
// to sine rather than failing.
func ParseWaveform(s string) Waveform {
	for w, name := range waveformNames {
		if name == s {
			return w
		}
	}
	return WaveSine
}

// discontinuous reports whether the shape has step discontinuities that
// benefit from polyBLEP correction at the phase wrap.
func (w Waveform) discontinuous() bool {
	switch w {
	case WaveSaw, WaveSquare, WavePulse:
		return true
	}
	return false
}

const twoPi = 2.0 * math.Pi

// waveformSample evaluates one oscillator shape at phase in [0,1).
// Noise-based shapes draw from the engine-owned generator so renders are
// reproducible for a given seed.
func waveformSample(w Waveform, phase float32, rng *rand.Rand) float32 {
	switch w {
	case WaveSine:
		return float32(math.Sin(float64(phase) * twoPi))
	case WaveTriangle:
		return abs32(2.0*(phase-0.5))*2.0 - 1.0
	case WaveSaw:
		return 1.0 - phase*2.0
	case WaveSquare:
		if phase < 0.5 {
			return 1.0
		}
		return -1.0
	case WavePulse:
		if phase < 0.25 || phase >= 0.75 {
			return 1.0
		}
		return -1.0
	case WaveNoise:
		return noise(rng)
	case WaveKick:
		// Sine carrier; the pitch drop comes from envelope-driven tuning.
		return float32(math.Sin(float64(phase) * twoPi))
	case WaveSnare:
		tone := float32(math.Sin(float64(phase) * twoPi))
		return noise(rng)*0.7 + tone*0.3
	case WaveTomHigh:
		return tomSample(phase, rng, 0.15)
	case WaveTomMid:
		return tomSample(phase, rng, 0.18)
	case WaveTomLow:
		return tomSample(phase, rng, 0.2)
	case WaveHatClosed:
		return (noise(rng) + noise(rng)*0.7) * 0.6
	case WaveHatOpen:
		return (noise(rng) + noise(rng)*0.8 + noise(rng)*0.4) * 0.5
	case WaveHatPedal:
		return noise(rng) * 0.7
	case WaveClap:
		return noise(rng)*0.6 + noise(rng)*0.4
	case WaveRim:
		click := float32(0.0)
		if phase < 0.01 {
			click = 1.0
		}
		return noise(rng)*0.4 + click*0.6
	}
	return 0.0
}

func tomSample(phase float32, rng *rand.Rand, noiseMix float32) float32 {
	tone := float32(math.Sin(float64(phase) * twoPi))
	return tone*(1.0-noiseMix) + noise(rng)*noiseMix
}

func noise(rng *rand.Rand) float32 {
	return rng.Float32()*2.0 - 1.0
}

// polyBLEP returns the band-limiting residual to subtract near the phase
// wrap. t is the current phase, dt the phase increment per sample. Away
// from the discontinuity it is zero, and the two branch values agree at
// the wrap itself so the correction is continuous across it.
func polyBLEP(t, dt float32) float32 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		u := t / dt
		return u + u - u*u - 1.0
	}
	if t > 1.0-dt {
		u := (t - 1.0) / dt
		return u*u + u + u + 1.0
	}
	return 0.0
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
