// Package preset loads and saves synth patches as JSON.
package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/algo-synth/synth"
)

// File is the JSON schema for patches. All fields are optional; missing
// ones keep their defaults so a patch only has to name what it changes.
type File struct {
	GainDB       *float32   `json:"gain_db"`
	Waveform     string     `json:"waveform"`
	AmpEnv       *Envelope  `json:"amp_env"`
	Filter       *Filter    `json:"filter"`
	CutoffEnv    *Envelope  `json:"cutoff_env"`
	ResonanceEnv *Envelope  `json:"resonance_env"`
	Vibrato      *Modulator `json:"vibrato"`
	Tremolo      *Modulator `json:"tremolo"`
}

// Envelope is a partial envelope override.
type Envelope struct {
	AttackMS  *float32 `json:"attack_ms"`
	HoldMS    *float32 `json:"hold_ms"`
	DecayMS   *float32 `json:"decay_ms"`
	Sustain   *float32 `json:"sustain"`
	ReleaseMS *float32 `json:"release_ms"`
	Depth     *float32 `json:"depth"`
}

// Filter is a partial filter section override.
type Filter struct {
	Type      string   `json:"type"`
	CutoffHz  *float32 `json:"cutoff_hz"`
	Resonance *float32 `json:"resonance"`
	Amount    *float32 `json:"amount"`
}

// Modulator is a partial LFO override.
type Modulator struct {
	RateHz    *float32 `json:"rate_hz"`
	Intensity *float32 `json:"intensity"`
	AttackMS  *float32 `json:"attack_ms"`
	Shape     string   `json:"shape"`
}

// LoadJSON loads a patch file and applies it on top of default params.
func LoadJSON(path string) (*synth.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := synth.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveJSON writes the full parameter set to path as a patch file.
func SaveJSON(path string, p *synth.Params) error {
	b, err := json.MarshalIndent(FromParams(p), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// FromParams captures every parameter into a fully populated File.
func FromParams(p *synth.Params) *File {
	gainDB := synth.GainToDB(p.Gain)
	return &File{
		GainDB:   &gainDB,
		Waveform: p.Waveform.String(),
		AmpEnv:   envelopeFromParams(p.AmpEnv),
		Filter: &Filter{
			Type:      p.FilterType.String(),
			CutoffHz:  f32p(p.FilterCutoffHz),
			Resonance: f32p(p.FilterResonance),
			Amount:    f32p(p.FilterAmount),
		},
		CutoffEnv:    envelopeFromParams(p.CutoffEnv),
		ResonanceEnv: envelopeFromParams(p.ResonanceEnv),
		Vibrato:      modulatorFromParams(p.Vibrato),
		Tremolo:      modulatorFromParams(p.Tremolo),
	}
}

// ApplyFile applies a parsed patch onto an existing params object.
func ApplyFile(dst *synth.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.GainDB != nil {
		if *f.GainDB > 6 {
			return fmt.Errorf("gain_db must be <= 6")
		}
		dst.Gain = synth.DBToGain(*f.GainDB)
	}
	if f.Waveform != "" {
		w := synth.ParseWaveform(f.Waveform)
		if w.String() != f.Waveform {
			return fmt.Errorf("unknown waveform %q", f.Waveform)
		}
		dst.Waveform = w
	}
	if err := applyEnvelope(&dst.AmpEnv, f.AmpEnv, "amp_env"); err != nil {
		return err
	}
	if err := applyFilter(dst, f.Filter); err != nil {
		return err
	}
	if err := applyEnvelope(&dst.CutoffEnv, f.CutoffEnv, "cutoff_env"); err != nil {
		return err
	}
	if err := applyEnvelope(&dst.ResonanceEnv, f.ResonanceEnv, "resonance_env"); err != nil {
		return err
	}
	if err := applyModulator(&dst.Vibrato, f.Vibrato, "vibrato"); err != nil {
		return err
	}
	return applyModulator(&dst.Tremolo, f.Tremolo, "tremolo")
}

func applyEnvelope(dst *synth.EnvelopeParams, e *Envelope, name string) error {
	if e == nil {
		return nil
	}
	set := func(field *float32, v *float32, key string, min, max float32) error {
		if v == nil {
			return nil
		}
		if *v < min || *v > max {
			return fmt.Errorf("%s.%s must be in [%g, %g]", name, key, min, max)
		}
		*field = *v
		return nil
	}
	if err := set(&dst.AttackMS, e.AttackMS, "attack_ms", 0, 60000); err != nil {
		return err
	}
	if err := set(&dst.HoldMS, e.HoldMS, "hold_ms", 0, 60000); err != nil {
		return err
	}
	if err := set(&dst.DecayMS, e.DecayMS, "decay_ms", 0, 60000); err != nil {
		return err
	}
	if err := set(&dst.SustainL, e.Sustain, "sustain", 0, 1); err != nil {
		return err
	}
	if err := set(&dst.ReleaseMS, e.ReleaseMS, "release_ms", 0, 60000); err != nil {
		return err
	}
	return set(&dst.Depth, e.Depth, "depth", 0, 1)
}

func applyFilter(dst *synth.Params, f *Filter) error {
	if f == nil {
		return nil
	}
	if f.Type != "" {
		t := synth.ParseFilterType(f.Type)
		if t.String() != f.Type {
			return fmt.Errorf("unknown filter type %q", f.Type)
		}
		dst.FilterType = t
	}
	if f.CutoffHz != nil {
		if *f.CutoffHz < 20 || *f.CutoffHz > 20000 {
			return fmt.Errorf("filter.cutoff_hz must be in [20, 20000]")
		}
		dst.FilterCutoffHz = *f.CutoffHz
	}
	if f.Resonance != nil {
		if *f.Resonance < 0 || *f.Resonance > 1 {
			return fmt.Errorf("filter.resonance must be in [0, 1]")
		}
		dst.FilterResonance = *f.Resonance
	}
	if f.Amount != nil {
		if *f.Amount < 0 || *f.Amount > 1 {
			return fmt.Errorf("filter.amount must be in [0, 1]")
		}
		dst.FilterAmount = *f.Amount
	}
	return nil
}

func applyModulator(dst *synth.ModulatorParams, m *Modulator, name string) error {
	if m == nil {
		return nil
	}
	if m.RateHz != nil {
		if *m.RateHz < 0 || *m.RateHz > 100 {
			return fmt.Errorf("%s.rate_hz must be in [0, 100]", name)
		}
		dst.RateHz = *m.RateHz
	}
	if m.Intensity != nil {
		if *m.Intensity < 0 || *m.Intensity > 1 {
			return fmt.Errorf("%s.intensity must be in [0, 1]", name)
		}
		dst.Intensity = *m.Intensity
	}
	if m.AttackMS != nil {
		if *m.AttackMS < 0 || *m.AttackMS > 60000 {
			return fmt.Errorf("%s.attack_ms must be in [0, 60000]", name)
		}
		dst.AttackMS = *m.AttackMS
	}
	if m.Shape != "" {
		s := synth.ParseLFOShape(m.Shape)
		if s.String() != m.Shape {
			return fmt.Errorf("unknown %s shape %q", name, m.Shape)
		}
		dst.Shape = s
	}
	return nil
}

func envelopeFromParams(p synth.EnvelopeParams) *Envelope {
	return &Envelope{
		AttackMS:  f32p(p.AttackMS),
		HoldMS:    f32p(p.HoldMS),
		DecayMS:   f32p(p.DecayMS),
		Sustain:   f32p(p.SustainL),
		ReleaseMS: f32p(p.ReleaseMS),
		Depth:     f32p(p.Depth),
	}
}

func modulatorFromParams(p synth.ModulatorParams) *Modulator {
	return &Modulator{
		RateHz:    f32p(p.RateHz),
		Intensity: f32p(p.Intensity),
		AttackMS:  f32p(p.AttackMS),
		Shape:     p.Shape.String(),
	}
}

func f32p(v float32) *float32 { return &v }
