package synth

import "math"

// Params holds the engine's control parameters. The engine reads them at
// the start of every rendered sub-block, so a host may mutate them between
// Process calls to automate the sound.
type Params struct {
	// Gain is the linear output gain, smoothed over a few milliseconds
	// before it reaches the voices.
	Gain float32

	Waveform Waveform

	// AmpEnv shapes the per-voice amplitude. Its Depth scales the whole
	// envelope output.
	AmpEnv EnvelopeParams

	FilterType      FilterType
	FilterCutoffHz  float32
	FilterResonance float32
	// FilterAmount blends the raw oscillator with the filtered signal,
	// 0 bypassing the filter entirely and 1 using only its output.
	FilterAmount float32

	// CutoffEnv modulates the filter cutoff around FilterCutoffHz; its
	// Depth sets how far the envelope pulls the cutoff down.
	CutoffEnv EnvelopeParams
	// ResonanceEnv does the same for the resonance.
	ResonanceEnv EnvelopeParams

	Vibrato ModulatorParams
	Tremolo ModulatorParams
}

// Gain parameter range in decibels, used to map normalized modulation
// offsets onto linear gain values.
const (
	gainMinDB float32 = -36
	gainMaxDB float32 = 0
)

// DBToGain converts decibels to a linear gain factor.
func DBToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// GainToDB converts a linear gain factor to decibels.
func GainToDB(gain float32) float32 {
	if gain <= 0 {
		return gainMinDB
	}
	return float32(20 * math.Log10(float64(gain)))
}

// normalizeGain maps a linear gain onto [0, 1] across the parameter's
// decibel range.
func normalizeGain(gain float32) float32 {
	return clampf((GainToDB(gain)-gainMinDB)/(gainMaxDB-gainMinDB), 0, 1)
}

// gainFromNormalized is the inverse of normalizeGain.
func gainFromNormalized(normalized float32) float32 {
	return DBToGain(gainMinDB + clampf(normalized, 0, 1)*(gainMaxDB-gainMinDB))
}

// NewDefaultParams returns a sensible starting patch: a plain sine with a
// fast attack, a wide-open lowpass and no modulation.
func NewDefaultParams() *Params {
	return &Params{
		Gain:     DBToGain(-12),
		Waveform: WaveSine,
		AmpEnv: EnvelopeParams{
			AttackMS:  1,
			HoldMS:    0,
			DecayMS:   10,
			SustainL:  1,
			ReleaseMS: 50,
			Depth:     1,
		},
		FilterType:      FilterLowpass,
		FilterCutoffHz:  18000,
		FilterResonance: 0.1,
		FilterAmount:    1,
		CutoffEnv: EnvelopeParams{
			AttackMS:  1,
			HoldMS:    0,
			DecayMS:   100,
			SustainL:  1,
			ReleaseMS: 50,
			Depth:     0,
		},
		ResonanceEnv: EnvelopeParams{
			AttackMS:  1,
			HoldMS:    0,
			DecayMS:   100,
			SustainL:  1,
			ReleaseMS: 50,
			Depth:     0,
		},
		Vibrato: ModulatorParams{RateHz: 5, Intensity: 0, AttackMS: 100, Shape: LFOSine},
		Tremolo: ModulatorParams{RateHz: 5, Intensity: 0, AttackMS: 100, Shape: LFOSine},
	}
}
