// Package synth implements a real-time polyphonic subtractive
// synthesizer: a fixed pool of sixteen voices with oldest-first
// stealing, per-voice oscillator, envelopes, filter bank and LFOs,
// driven by sample-accurate timestamped events.
package synth

import "math/rand"

const (
	// MaxVoices is the size of the fixed voice pool.
	MaxVoices = 16
	// MaxBlockSize caps the number of samples rendered between event
	// boundaries, so parameter changes land within 64 samples even
	// when the host buffer is much larger.
	MaxBlockSize = 64
)

// Engine is a polyphonic subtractive synthesizer. It renders stereo
// audio into caller-provided buffers, driven by timestamped events, and
// allocates nothing on the audio path: the voice pool, the scratch
// buffers and the noise source are all owned by the engine.
//
// Engine is not safe for concurrent use; drive it from a single
// goroutine and deliver control changes as events or between Process
// calls.
type Engine struct {
	sampleRate int
	params     *Params
	rng        *rand.Rand

	voices         [MaxVoices]Voice
	nextInternalID uint64

	gainSmoother Smoother
	gainBuf      [MaxBlockSize]float32
	voiceGainBuf [MaxBlockSize]float32

	onTerminated func(VoiceTerminated)
}

// NewEngine creates an engine at the given sample rate. A nil params uses
// NewDefaultParams. The seed feeds the noise oscillator, so renders with
// the same seed and event stream are reproducible.
func NewEngine(sampleRate int, params *Params, seed int64) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	e := &Engine{
		sampleRate:   sampleRate,
		params:       params,
		rng:          rand.New(rand.NewSource(seed)),
		gainSmoother: NewSmoother(SmoothLogarithmic, 5.0),
	}
	e.gainSmoother.Reset(params.Gain)
	sr := float32(sampleRate)
	for i := range e.voices {
		v := &e.voices[i]
		v.lowpass = NewLowpassFilter(1000, 0.1, sr)
		v.highpass = NewHighpassFilter(1000, 0.1, sr)
		v.bandpass = NewBandpassFilter(1000, 0.1, sr)
		v.notch = NewNotchFilter(1000, 0.1, sr)
		v.stateVariable = NewStateVariableFilter(1000, 0.1, sr)
	}
	return e
}

// SampleRate returns the rate the engine renders at.
func (e *Engine) SampleRate() int { return e.sampleRate }

// Params returns the live parameter set.
func (e *Engine) Params() *Params { return e.params }

// SetVoiceTerminatedHandler installs a callback invoked whenever a voice
// slot is freed. The callback runs inside Process.
func (e *Engine) SetVoiceTerminatedHandler(fn func(VoiceTerminated)) {
	e.onTerminated = fn
}

// ActiveVoices reports how many pool slots are currently sounding.
func (e *Engine) ActiveVoices() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

// Reset silences all voices without notifications and reseeds the noise
// source, returning the engine to its initial state.
func (e *Engine) Reset(seed int64) {
	for i := range e.voices {
		e.voices[i].active = false
	}
	e.rng = rand.New(rand.NewSource(seed))
	e.gainSmoother.Reset(e.params.Gain)
}

// Process renders len(left) samples of stereo audio. Both buffers must
// have equal length and are fully overwritten. Events must be sorted by
// Time; events at or past the buffer end are dropped.
func (e *Engine) Process(left, right []float32, events []Event) {
	n := minInt(len(left), len(right))
	next := 0
	blockStart := 0
	for blockStart < n {
		// Voices started by the events below get ids at or above this
		// mark, which tells modulation handling that their smoothers
		// may jump instead of ramp.
		idMark := e.nextInternalID
		for next < len(events) && int(events[next].Time) <= blockStart {
			e.applyEvent(&events[next], idMark)
			next++
		}
		blockEnd := minInt(blockStart+MaxBlockSize, n)
		if next < len(events) && int(events[next].Time) < blockEnd {
			blockEnd = int(events[next].Time)
		}
		e.renderBlock(left, right, blockStart, blockEnd)
		e.reap(uint32(blockEnd))
		blockStart = blockEnd
	}
}

func (e *Engine) renderBlock(left, right []float32, start, end int) {
	for i := start; i < end; i++ {
		left[i] = 0
		right[i] = 0
	}
	blockLen := end - start
	if blockLen <= 0 {
		return
	}

	if e.gainSmoother.Target() != e.params.Gain {
		e.gainSmoother.SetTarget(float32(e.sampleRate), e.params.Gain)
	}
	e.gainSmoother.NextBlock(e.gainBuf[:], blockLen)

	bp := snapshotParams(e.params)
	sr := float32(e.sampleRate)
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		gain := e.gainBuf[:blockLen]
		if v.hasPolyGain {
			v.polyGain.NextBlock(e.voiceGainBuf[:], blockLen)
			gain = e.voiceGainBuf[:blockLen]
		}
		v.render(left[start:end], right[start:end], gain, &bp, sr, e.rng)
	}
}

func (e *Engine) applyEvent(ev *Event, idMark uint64) {
	switch ev.Kind {
	case EventNoteOn:
		e.startVoice(ev)
	case EventNoteOff:
		e.releaseVoices(ev)
	case EventChoke:
		e.chokeVoices(ev)
	case EventPolyModulation:
		e.polyModulate(ev, idMark)
	case EventMonoAutomation:
		e.monoAutomate(ev)
	case EventPolyPressure:
		if v := e.findOrCreateVoice(ev); v != nil {
			v.pressure = ev.Value
		}
	case EventPolyVolume:
		if v := e.findOrCreateVoice(ev); v != nil {
			v.setVelocity(clampf(ev.Value, 0, 1))
		}
	case EventPolyPan:
		if v := e.findOrCreateVoice(ev); v != nil {
			v.pan = clampf(ev.Value, 0, 1)
		}
	case EventPolyTuning:
		if v := e.findOrCreateVoice(ev); v != nil {
			v.tuning = ev.Value
			v.retune(float32(e.sampleRate))
		}
	case EventPolyVibrato:
		if v := e.findOrCreateVoice(ev); v != nil {
			v.vibratoAmt = clampf(ev.Value, 0, 1)
		}
	}
}

// startVoice allocates a slot for a new note, stealing the oldest voice
// when the pool is full.
func (e *Engine) startVoice(ev *Event) {
	voiceID := ev.VoiceID
	if voiceID == NoVoiceID {
		voiceID = fallbackVoiceID(ev.Note, ev.Channel)
	}
	slot := e.allocateSlot(ev.Time)
	e.initVoice(slot, voiceID, ev.Channel, ev.Note, clampf(ev.Velocity, 0, 1))
}

// allocateSlot returns a free slot, or steals the oldest active voice.
// A stolen voice that was already fading out is replaced silently; an
// abrupt steal emits a termination notification so the host can retire
// the old voice id.
func (e *Engine) allocateSlot(timing uint32) *Voice {
	for i := range e.voices {
		if !e.voices[i].active {
			return &e.voices[i]
		}
	}
	oldest := &e.voices[0]
	for i := 1; i < len(e.voices); i++ {
		if e.voices[i].internalID < oldest.internalID {
			oldest = &e.voices[i]
		}
	}
	stage := oldest.ampEnv.Stage()
	if stage != StageIdle && stage != StageRelease {
		e.emitTerminated(timing, oldest)
	}
	return oldest
}

// initVoice rewrites a slot for a fresh note. The slot's filter and DC
// blocker state deliberately carries over from the previous occupant.
func (e *Engine) initVoice(slot *Voice, voiceID int32, channel, note uint8, velocity float32) {
	sr := float32(e.sampleRate)
	slot.active = true
	slot.releasing = false
	slot.voiceID = voiceID
	slot.channel = channel
	slot.note = note
	slot.internalID = e.nextInternalID
	e.nextInternalID++

	slot.velocity = velocity
	slot.velocitySqrt = sqrt32(velocity)
	slot.phase = e.rng.Float32()
	slot.tuning = 0
	slot.retune(sr)

	p := e.params
	slot.ampEnv = NewEnvelope(p.AmpEnv, sr, velocity)
	cutoffEnv := p.CutoffEnv
	cutoffEnv.Depth = 1
	slot.cutoffEnv = NewEnvelope(cutoffEnv, sr, velocity)
	resonanceEnv := p.ResonanceEnv
	resonanceEnv.Depth = 1
	slot.resonanceEnv = NewEnvelope(resonanceEnv, sr, velocity)
	slot.ampEnv.Trigger()
	slot.cutoffEnv.Trigger()
	slot.resonanceEnv.Trigger()

	slot.vibrato = NewModulator(p.Vibrato)
	slot.tremolo = NewModulator(p.Tremolo)
	slot.vibrato.Trigger()
	slot.tremolo.Trigger()

	slot.pan = 0.5
	slot.pressure = 0
	slot.vibratoAmt = 0
	slot.hasPolyGain = false
	slot.polyGainOffset = 0
}

// matches reports whether a voice is addressed by an event: an explicit
// voice id must equal the voice's id, otherwise channel and note both
// have to match.
func (v *Voice) matches(ev *Event) bool {
	if ev.VoiceID != NoVoiceID {
		return v.voiceID == ev.VoiceID
	}
	return v.channel == ev.Channel && v.note == ev.Note
}

// releaseVoices moves every matching voice into its release stage.
func (e *Engine) releaseVoices(ev *Event) {
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active || !v.matches(ev) {
			continue
		}
		v.releasing = true
		v.ampEnv.Release()
		v.cutoffEnv.Release()
		v.resonanceEnv.Release()
	}
}

// chokeVoices silences matching voices immediately, emitting a
// termination for each. With an explicit voice id only the first match
// is choked.
func (e *Engine) chokeVoices(ev *Event) {
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active || !v.matches(ev) {
			continue
		}
		e.emitTerminated(ev.Time, v)
		v.active = false
		if ev.VoiceID != NoVoiceID {
			return
		}
	}
}

// polyModulate applies a per-voice gain offset. Targets other than
// GainModulationID are ignored, as are ids with no matching voice.
func (e *Engine) polyModulate(ev *Event, idMark uint64) {
	if ev.Target != GainModulationID {
		return
	}
	var v *Voice
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].voiceID == ev.VoiceID {
			v = &e.voices[i]
			break
		}
	}
	if v == nil {
		return
	}
	if !v.hasPolyGain {
		v.hasPolyGain = true
		v.polyGain = e.gainSmoother
	}
	v.polyGainOffset = ev.Value
	target := gainFromNormalized(normalizeGain(e.params.Gain) + ev.Value)
	if v.internalID >= idMark {
		// The voice started inside this sub-block, so the modulated
		// gain is its first value and must not ramp in from the old one.
		v.polyGain.Reset(target)
	} else {
		v.polyGain.SetTarget(float32(e.sampleRate), target)
	}
}

// monoAutomate applies a global parameter change, re-aiming the per-voice
// smoothers of poly-modulated voices so their offsets stay relative to
// the new base value.
func (e *Engine) monoAutomate(ev *Event) {
	if ev.Target != GainModulationID {
		return
	}
	gain := gainFromNormalized(ev.Value)
	e.params.Gain = gain
	sr := float32(e.sampleRate)
	e.gainSmoother.SetTarget(sr, gain)
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active || !v.hasPolyGain {
			continue
		}
		v.polyGain.SetTarget(sr, gainFromNormalized(ev.Value+v.polyGainOffset))
	}
}

// findOrCreateVoice returns the voice an expression event addresses,
// starting one at default values when none exists so the event is not
// lost.
func (e *Engine) findOrCreateVoice(ev *Event) *Voice {
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].matches(ev) {
			return &e.voices[i]
		}
	}
	voiceID := ev.VoiceID
	if voiceID == NoVoiceID {
		voiceID = fallbackVoiceID(ev.Note, ev.Channel)
	}
	slot := e.allocateSlot(ev.Time)
	e.initVoice(slot, voiceID, ev.Channel, ev.Note, 0)
	return slot
}

// reap frees voices whose release has run to completion.
func (e *Engine) reap(timing uint32) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.releasing && v.ampEnv.Stage() == StageIdle {
			e.emitTerminated(timing, v)
			v.active = false
		}
	}
}

func (e *Engine) emitTerminated(timing uint32, v *Voice) {
	if e.onTerminated == nil {
		return
	}
	e.onTerminated(VoiceTerminated{
		Time:    timing,
		VoiceID: v.voiceID,
		Channel: v.channel,
		Note:    v.note,
	})
}
