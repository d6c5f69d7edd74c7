package synth

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// FilterType selects which filter algorithm a voice routes through.
type FilterType int

const (
	FilterNone FilterType = iota
	FilterLowpass
	FilterBandpass
	FilterHighpass
	FilterNotch
	FilterStateVariable
)

var filterTypeNames = map[FilterType]string{
	FilterNone:          "none",
	FilterLowpass:       "lowpass",
	FilterBandpass:      "bandpass",
	FilterHighpass:      "highpass",
	FilterNotch:         "notch",
	FilterStateVariable: "statevariable",
}

func (t FilterType) String() string {
	if s, ok := filterTypeNames[t]; ok {
		return s
	}
	return "none"
}

// ParseFilterType maps a preset name to a FilterType, defaulting to none.
func ParseFilterType(s string) FilterType {
	for t, name := range filterTypeNames {
		if name == s {
			return t
		}
	}
	return FilterNone
}

const (
	minCutoffHz = 20.0
	maxCutoffHz = 20000.0

	// Coefficient recompute thresholds. Cutoff and bandwidth changes below
	// these are inaudible and not worth the trigonometry.
	cutoffEpsilonHz  = 0.1
	resonanceEpsilon = 0.001
)

func clampCutoff(hz, sampleRate float32) float32 {
	nyquistCap := sampleRate * 0.45
	hi := float32(maxCutoffHz)
	if nyquistCap < hi {
		hi = nyquistCap
	}
	return clampf(hz, minCutoffHz, hi)
}

// onePoleCore holds the shared coefficient cache for the one-pole filter
// family. alpha is recomputed only when the cutoff drifts past epsilon.
type onePoleCore struct {
	sampleRate  float32
	cutoff      float32
	alpha       float32
	coeffCutoff float32
	coeffValid  bool
}

func (c *onePoleCore) setSampleRate(sampleRate float32) {
	c.sampleRate = sampleRate
	c.coeffValid = false
}

func (c *onePoleCore) refresh() {
	if c.coeffValid && abs32(c.cutoff-c.coeffCutoff) <= cutoffEpsilonHz {
		return
	}
	omega := float32(twoPi) * c.cutoff / c.sampleRate
	c.alpha = omega / (omega + 1.0)
	c.coeffCutoff = c.cutoff
	c.coeffValid = true
}

// LowpassFilter is a one-pole lowpass with resonance feedback.
type LowpassFilter struct {
	core       onePoleCore
	resonance  float32
	prevOutput float32
}

func NewLowpassFilter(cutoff, resonance, sampleRate float32) LowpassFilter {
	f := LowpassFilter{}
	f.core.sampleRate = sampleRate
	f.SetCutoff(cutoff)
	f.SetResonance(resonance)
	return f
}

func (f *LowpassFilter) SetCutoff(hz float32)     { f.core.cutoff = clampCutoff(hz, f.core.sampleRate) }
func (f *LowpassFilter) SetResonance(r float32)   { f.resonance = clampf(r, 0.0, 0.99) }
func (f *LowpassFilter) SetSampleRate(sr float32) { f.core.setSampleRate(sr) }

func (f *LowpassFilter) Process(input float32) float32 {
	f.core.refresh()
	feedback := f.prevOutput * f.resonance
	out := f.prevOutput + f.core.alpha*(input+feedback-f.prevOutput)
	out = float32(dspcore.FlushDenormals(float64(out)))
	f.prevOutput = out
	return out
}

// HighpassFilter computes the complement of an internal one-pole lowpass
// estimate, with resonance fed back into the lowpass state.
type HighpassFilter struct {
	core       onePoleCore
	resonance  float32
	prevOutput float32
}

func NewHighpassFilter(cutoff, resonance, sampleRate float32) HighpassFilter {
	f := HighpassFilter{}
	f.core.sampleRate = sampleRate
	f.SetCutoff(cutoff)
	f.SetResonance(resonance)
	return f
}

func (f *HighpassFilter) SetCutoff(hz float32)     { f.core.cutoff = clampCutoff(hz, f.core.sampleRate) }
func (f *HighpassFilter) SetResonance(r float32)   { f.resonance = clampf(r, 0.0, 0.99) }
func (f *HighpassFilter) SetSampleRate(sr float32) { f.core.setSampleRate(sr) }

func (f *HighpassFilter) Process(input float32) float32 {
	f.core.refresh()
	lowpass := f.prevOutput + f.core.alpha*(input-f.prevOutput)
	highpass := input - lowpass
	state := lowpass + highpass*f.resonance
	f.prevOutput = float32(dspcore.FlushDenormals(float64(state)))
	return highpass
}

// BandpassFilter blends the lowpass estimate and its complement; resonance
// sets the blend toward the highpass edge.
type BandpassFilter struct {
	core       onePoleCore
	resonance  float32
	prevOutput float32
}

func NewBandpassFilter(cutoff, resonance, sampleRate float32) BandpassFilter {
	f := BandpassFilter{}
	f.core.sampleRate = sampleRate
	f.SetCutoff(cutoff)
	f.SetResonance(resonance)
	return f
}

func (f *BandpassFilter) SetCutoff(hz float32)     { f.core.cutoff = clampCutoff(hz, f.core.sampleRate) }
func (f *BandpassFilter) SetResonance(r float32)   { f.resonance = clampf(r, 0.01, 0.99) }
func (f *BandpassFilter) SetSampleRate(sr float32) { f.core.setSampleRate(sr) }

func (f *BandpassFilter) Process(input float32) float32 {
	f.core.refresh()
	lowpass := f.prevOutput + f.core.alpha*(input-f.prevOutput)
	highpass := input - lowpass
	bandpass := lowpass*(1.0-f.resonance) + highpass*f.resonance
	f.prevOutput = float32(dspcore.FlushDenormals(float64(lowpass)))
	return bandpass
}

// NotchFilter is a biquad band-reject filter. The resonance control maps to
// bandwidth; coefficients are renormalized only when cutoff or bandwidth
// drift past their epsilons.
type NotchFilter struct {
	sampleRate float32
	cutoff     float32
	bandwidth  float32

	coeffCutoff    float32
	coeffBandwidth float32
	coeffValid     bool

	a0, a1, a2 float32
	b1, b2     float32
	buf0, buf1 float32
}

func NewNotchFilter(cutoff, bandwidth, sampleRate float32) NotchFilter {
	f := NotchFilter{sampleRate: sampleRate}
	f.SetCutoff(cutoff)
	f.SetResonance(bandwidth)
	return f
}

func (f *NotchFilter) SetCutoff(hz float32)   { f.cutoff = clampCutoff(hz, f.sampleRate) }
func (f *NotchFilter) SetResonance(r float32) { f.bandwidth = clampf(r, 0.01, 1.0) }
func (f *NotchFilter) SetSampleRate(sr float32) {
	f.sampleRate = sr
	f.coeffValid = false
}

func (f *NotchFilter) refresh() {
	if f.coeffValid &&
		abs32(f.cutoff-f.coeffCutoff) <= cutoffEpsilonHz &&
		abs32(f.bandwidth-f.coeffBandwidth) <= resonanceEpsilon {
		return
	}
	wc := float64(twoPi) * float64(f.cutoff) / float64(f.sampleRate)
	q := math.Max(float64(f.bandwidth)*10.0, 0.1)
	alpha := math.Sin(wc) / (2.0 * q)
	norm := 1.0 / (1.0 + alpha)
	cosw := math.Cos(wc)

	f.a0 = float32(norm)
	f.a1 = float32(-2.0 * cosw * norm)
	f.a2 = float32(norm)
	f.b1 = float32(-2.0 * cosw * norm)
	f.b2 = float32((1.0 - alpha) * norm)
	f.coeffCutoff = f.cutoff
	f.coeffBandwidth = f.bandwidth
	f.coeffValid = true
}

func (f *NotchFilter) Process(input float32) float32 {
	f.refresh()
	out := f.a0*input + f.a1*f.buf0 + f.a2*f.buf1 - f.b1*f.buf0 - f.b2*f.buf1
	out = float32(dspcore.FlushDenormals(float64(out)))
	f.buf1 = f.buf0
	f.buf0 = out
	return out
}

// StateVariableFilter is a coupled two-integrator loop. It produces
// simultaneous low/high/band outputs internally; only the bandpass output
// is exposed.
type StateVariableFilter struct {
	sampleRate float32
	cutoff     float32
	resonance  float32

	coeffCutoff    float32
	coeffResonance float32
	coeffValid     bool
	f, q           float32

	low, high, band float32
}

func NewStateVariableFilter(cutoff, resonance, sampleRate float32) StateVariableFilter {
	f := StateVariableFilter{sampleRate: sampleRate}
	f.SetCutoff(cutoff)
	f.SetResonance(resonance)
	return f
}

func (f *StateVariableFilter) SetCutoff(hz float32)   { f.cutoff = clampCutoff(hz, f.sampleRate) }
func (f *StateVariableFilter) SetResonance(r float32) { f.resonance = clampf(r, 0.01, 0.99) }
func (f *StateVariableFilter) SetSampleRate(sr float32) {
	f.sampleRate = sr
	f.coeffValid = false
}

func (f *StateVariableFilter) refresh() {
	if f.coeffValid &&
		abs32(f.cutoff-f.coeffCutoff) <= cutoffEpsilonHz &&
		abs32(f.resonance-f.coeffResonance) <= resonanceEpsilon {
		return
	}
	fc := f.cutoff / f.sampleRate
	if fc > 0.45 {
		fc = 0.45
	}
	f.f = 2.0 * fc
	q := 1.0 / (2.0 * f.resonance)
	if q < 0.5 {
		q = 0.5
	}
	f.q = q
	f.coeffCutoff = f.cutoff
	f.coeffResonance = f.resonance
	f.coeffValid = true
}

func (f *StateVariableFilter) Process(input float32) float32 {
	f.refresh()
	low := f.low + f.f*f.band
	high := (input - f.high) - low*f.q - f.band
	band := f.f*high + f.band

	f.low = float32(dspcore.FlushDenormals(float64(low)))
	f.high = float32(dspcore.FlushDenormals(float64(high)))
	f.band = float32(dspcore.FlushDenormals(float64(band)))
	return f.band
}

// DCBlocker removes constant offset left behind by asymmetric waveforms or
// filter feedback: y[n] = x[n] - x[n-1] + r*y[n-1] with the pole fixed at
// 0.995.
type DCBlocker struct {
	x1, y1 float32
}

const dcBlockerPole = 0.995

func (d *DCBlocker) Process(input float32) float32 {
	y := input - d.x1 + dcBlockerPole*d.y1
	d.x1 = input
	d.y1 = float32(dspcore.FlushDenormals(float64(y)))
	return d.y1
}
