package synth

import "math/rand"

// blockParams is the per-sub-block snapshot of the control parameters.
// Voices read it instead of Params so every voice in a block sees the
// same values.
type blockParams struct {
	waveform       Waveform
	filterType     FilterType
	cutoffHz       float32
	resonance      float32
	filterAmount   float32
	cutoffDepth    float32
	resonanceDepth float32
	ampDepth       float32
	vibrato        ModulatorParams
	tremolo        ModulatorParams
}

func snapshotParams(p *Params) blockParams {
	return blockParams{
		waveform:       p.Waveform,
		filterType:     p.FilterType,
		cutoffHz:       p.FilterCutoffHz,
		resonance:      p.FilterResonance,
		filterAmount:   clampf(p.FilterAmount, 0, 1),
		cutoffDepth:    clampf(p.CutoffEnv.Depth, 0, 1),
		resonanceDepth: clampf(p.ResonanceEnv.Depth, 0, 1),
		ampDepth:       p.AmpEnv.Depth,
		vibrato:        p.Vibrato,
		tremolo:        p.Tremolo,
	}
}

// Voice renders one sounding note. Slots live in a fixed array inside the
// Engine; the filter instances belong to the slot and keep their feedback
// memory across notes, everything else is rewritten when a note starts.
type Voice struct {
	active    bool
	releasing bool

	voiceID    int32
	channel    uint8
	note       uint8
	internalID uint64

	velocity     float32
	velocitySqrt float32

	phase      float32
	phaseDelta float32

	ampEnv       Envelope
	cutoffEnv    Envelope
	resonanceEnv Envelope

	vibrato Modulator
	tremolo Modulator

	// Per-note expression, updated by poly events.
	pan        float32
	pressure   float32
	tuning     float32 // semitone offset
	vibratoAmt float32

	// Polyphonic gain modulation state. The smoother is a copy of the
	// engine's global gain smoother taken when the first modulation
	// event arrives for this voice.
	hasPolyGain    bool
	polyGainOffset float32
	polyGain       Smoother

	lowpass       LowpassFilter
	highpass      HighpassFilter
	bandpass      BandpassFilter
	notch         NotchFilter
	stateVariable StateVariableFilter
	dcBlocker     DCBlocker
}

// noteFrequency returns the oscillator frequency for a MIDI note with a
// fractional semitone offset.
func noteFrequency(note uint8, tuning float32) float32 {
	return midiNoteToFreq(int(note)) * pow2Approx(tuning/12)
}

func (v *Voice) retune(sampleRate float32) {
	v.phaseDelta = noteFrequency(v.note, v.tuning) / sampleRate
}

// setVelocity updates the velocity and everything derived from it.
func (v *Voice) setVelocity(velocity float32) {
	v.velocity = velocity
	v.velocitySqrt = sqrt32(velocity)
	v.ampEnv.SetVelocity(velocity)
	v.cutoffEnv.SetVelocity(velocity)
	v.resonanceEnv.SetVelocity(velocity)
}

// render accumulates one sub-block of this voice into left and right.
// gain carries the smoothed per-sample gain for the block, already
// swapped for the voice's own smoother when it is poly-modulated.
func (v *Voice) render(left, right, gain []float32, bp *blockParams, sampleRate float32, rng *rand.Rand) {
	v.ampEnv.SetScale(bp.ampDepth)
	v.vibrato.Configure(bp.vibrato)
	v.tremolo.Configure(bp.tremolo)

	vibAmount := clampf(bp.vibrato.Intensity+v.vibratoAmt, 0, 1)
	panL, panR := panGains(v.pan)

	for i := range left {
		vib := v.vibrato.Next(sampleRate)
		delta := v.phaseDelta * (1 + vibAmount*vib)

		v.ampEnv.Advance()
		v.cutoffEnv.Advance()
		v.resonanceEnv.Advance()

		raw := waveformSample(bp.waveform, v.phase, rng)
		shaped := raw*(1-bp.filterAmount) + v.filter(raw, bp)*bp.filterAmount
		if bp.waveform.discontinuous() {
			shaped -= polyBLEP(v.phase, delta)
		}

		trem := v.tremolo.Next(sampleRate)
		amp := v.velocitySqrt * gain[i] * v.ampEnv.Value() * 0.5 * (trem + 1)
		sample := v.dcBlocker.Process(shaped * amp)

		left[i] += sample * panL
		right[i] += sample * panR

		v.phase += delta
		if v.phase >= 1 {
			v.phase -= 1
		}
	}
}

// filter runs one sample through the active filter algorithm, with the
// cutoff and resonance envelopes folded into the base settings first.
func (v *Voice) filter(input float32, bp *blockParams) float32 {
	cutoff := bp.cutoffHz * (1 - bp.cutoffDepth + bp.cutoffDepth*v.cutoffEnv.Value())
	cutoff = clampf(cutoff, minCutoffHz, maxCutoffHz)
	resonance := bp.resonance * (1 - bp.resonanceDepth + bp.resonanceDepth*v.resonanceEnv.Value())

	switch bp.filterType {
	case FilterLowpass:
		v.lowpass.SetCutoff(cutoff)
		v.lowpass.SetResonance(resonance)
		return v.lowpass.Process(input)
	case FilterBandpass:
		v.bandpass.SetCutoff(cutoff)
		v.bandpass.SetResonance(resonance)
		return v.bandpass.Process(input)
	case FilterHighpass:
		v.highpass.SetCutoff(cutoff)
		v.highpass.SetResonance(resonance)
		return v.highpass.Process(input)
	case FilterNotch:
		v.notch.SetCutoff(cutoff)
		v.notch.SetResonance(resonance)
		return v.notch.Process(input)
	case FilterStateVariable:
		v.stateVariable.SetCutoff(cutoff)
		v.stateVariable.SetResonance(resonance)
		return v.stateVariable.Process(input)
	default:
		return input
	}
}
