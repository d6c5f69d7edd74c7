package synth

import "math"

// LFOShape selects a modulator waveform.
type LFOShape int

const (
	LFOSine LFOShape = iota
	LFOTriangle
	LFOSaw
	LFOSquare
)

var lfoShapeNames = map[LFOShape]string{
	LFOSine:     "sine",
	LFOTriangle: "triangle",
	LFOSaw:      "saw",
	LFOSquare:   "square",
}

func (s LFOShape) String() string {
	if n, ok := lfoShapeNames[s]; ok {
		return n
	}
	return "sine"
}

// ParseLFOShape maps a preset name to an LFOShape, defaulting to sine.
func ParseLFOShape(s string) LFOShape {
	for shape, name := range lfoShapeNames {
		if name == s {
			return shape
		}
	}
	return LFOSine
}

// ModulatorParams configure one LFO.
type ModulatorParams struct {
	RateHz    float32
	Intensity float32
	AttackMS  float32
	Shape     LFOShape
}

// Modulator is an attack-ramped low-frequency oscillator. The intensity
// ramps linearly from zero over the attack duration; the oscillator phase
// keeps running off the unclamped elapsed time so the waveform does not
// freeze once the ramp completes.
type Modulator struct {
	rate      float32
	intensity float32
	attackSec float32
	shape     LFOShape
	time      float32
}

// NewModulator builds an LFO from params. Attack is given in milliseconds.
func NewModulator(p ModulatorParams) Modulator {
	return Modulator{
		rate:      p.RateHz,
		intensity: p.Intensity,
		attackSec: p.AttackMS / 1000.0,
		shape:     p.Shape,
	}
}

// Configure updates rate/intensity/shape without restarting the ramp.
func (m *Modulator) Configure(p ModulatorParams) {
	m.rate = p.RateHz
	m.intensity = p.Intensity
	m.attackSec = p.AttackMS / 1000.0
	m.shape = p.Shape
}

// Trigger restarts the LFO, resetting both phase and intensity ramp.
func (m *Modulator) Trigger() {
	m.time = 0
}

// Next advances the LFO by one sample and returns its output,
// waveform(rate, t) scaled by the ramped intensity.
func (m *Modulator) Next(sampleRate float32) float32 {
	m.time += 1.0 / sampleRate

	ramp := float32(1.0)
	if m.attackSec > 0 {
		ramp = clampf(m.time/m.attackSec, 0, 1)
	}
	intensity := m.intensity * ramp

	x := float64(m.rate * m.time)
	var wave float32
	switch m.shape {
	case LFOSine:
		wave = float32(math.Sin(twoPi * x))
	case LFOTriangle:
		_, frac := math.Modf(x)
		wave = float32(math.Abs(frac-0.5))*4.0 - 1.0
	case LFOSaw:
		_, frac := math.Modf(x)
		wave = float32(frac)*2.0 - 1.0
	case LFOSquare:
		_, frac := math.Modf(x)
		if frac >= 0.5 {
			wave = 1.0
		} else {
			wave = -1.0
		}
	}
	return wave * intensity
}
