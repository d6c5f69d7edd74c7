package main

import (
	"math"

	"github.com/cwbudde/algo-synth/synth"
)

// knobDef describes one optimizable parameter and its search range.
type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

type candidate struct {
	Vals []float64
}

// initCandidate builds the knob set over the patch parameters the
// optimizer may move, seeded from the base patch.
func initCandidate(base *synth.Params) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 16)
	vals := make([]float64, 0, 16)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, clamp(val, def.Min, def.Max))
	}

	addKnob(knobDef{Name: "gain_db", Min: -36, Max: 0}, float64(synth.GainToDB(base.Gain)))

	addKnob(knobDef{Name: "amp.attack_ms", Min: 0, Max: 500}, float64(base.AmpEnv.AttackMS))
	addKnob(knobDef{Name: "amp.decay_ms", Min: 1, Max: 2000}, float64(base.AmpEnv.DecayMS))
	addKnob(knobDef{Name: "amp.sustain", Min: 0, Max: 1}, float64(base.AmpEnv.SustainL))
	addKnob(knobDef{Name: "amp.release_ms", Min: 1, Max: 2000}, float64(base.AmpEnv.ReleaseMS))

	addKnob(knobDef{Name: "filter.cutoff_hz", Min: 40, Max: 18000}, float64(base.FilterCutoffHz))
	addKnob(knobDef{Name: "filter.resonance", Min: 0, Max: 0.95}, float64(base.FilterResonance))
	addKnob(knobDef{Name: "filter.amount", Min: 0, Max: 1}, float64(base.FilterAmount))

	addKnob(knobDef{Name: "cutoff_env.depth", Min: 0, Max: 1}, float64(base.CutoffEnv.Depth))
	addKnob(knobDef{Name: "cutoff_env.decay_ms", Min: 1, Max: 2000}, float64(base.CutoffEnv.DecayMS))

	addKnob(knobDef{Name: "vibrato.rate_hz", Min: 0, Max: 12}, float64(base.Vibrato.RateHz))
	addKnob(knobDef{Name: "vibrato.intensity", Min: 0, Max: 0.3}, float64(base.Vibrato.Intensity))
	addKnob(knobDef{Name: "tremolo.rate_hz", Min: 0, Max: 12}, float64(base.Tremolo.RateHz))
	addKnob(knobDef{Name: "tremolo.intensity", Min: 0, Max: 0.5}, float64(base.Tremolo.Intensity))

	return defs, candidate{Vals: vals}
}

// applyCandidate maps knob values onto a copy of the base patch.
func applyCandidate(base *synth.Params, defs []knobDef, c candidate) *synth.Params {
	params := *base
	for i, def := range defs {
		v := c.Vals[i]
		switch def.Name {
		case "gain_db":
			params.Gain = synth.DBToGain(float32(v))
		case "amp.attack_ms":
			params.AmpEnv.AttackMS = float32(v)
		case "amp.decay_ms":
			params.AmpEnv.DecayMS = float32(v)
		case "amp.sustain":
			params.AmpEnv.SustainL = float32(v)
		case "amp.release_ms":
			params.AmpEnv.ReleaseMS = float32(v)
		case "filter.cutoff_hz":
			params.FilterCutoffHz = float32(v)
		case "filter.resonance":
			params.FilterResonance = float32(v)
		case "filter.amount":
			params.FilterAmount = float32(v)
		case "cutoff_env.depth":
			params.CutoffEnv.Depth = float32(v)
		case "cutoff_env.decay_ms":
			params.CutoffEnv.DecayMS = float32(v)
		case "vibrato.rate_hz":
			params.Vibrato.RateHz = float32(v)
		case "vibrato.intensity":
			params.Vibrato.Intensity = float32(v)
		case "tremolo.rate_hz":
			params.Tremolo.RateHz = float32(v)
		case "tremolo.intensity":
			params.Tremolo.Intensity = float32(v)
		}
	}
	return &params
}

// fromNormalized maps a [0,1] position vector onto knob ranges.
func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		vals[i] = defs[i].Min + x*(defs[i].Max-defs[i].Min)
	}
	return candidate{Vals: vals}
}

func cloneCandidate(c candidate) candidate {
	return candidate{Vals: append([]float64(nil), c.Vals...)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func roundPop(pop int) int {
	return maxInt(1, int(math.Round(0.05*float64(pop))))
}
