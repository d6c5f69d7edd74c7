package synth

// EnvelopeStage identifies the current segment of an ADSR(H) envelope.
type EnvelopeStage int

const (
	StageIdle EnvelopeStage = iota
	StageAttack
	StageHold
	StageDecay
	StageSustain
	StageRelease
)

// EnvelopeParams are the timing and level settings for one envelope.
// All durations are in milliseconds; sustain and depth are 0..1.
type EnvelopeParams struct {
	AttackMS  float32
	HoldMS    float32
	DecayMS   float32
	SustainL  float32
	ReleaseMS float32
	Depth     float32
}

// Envelope is a linear-segment ADSR generator with an optional hold stage
// between attack and decay. Stage transitions run strictly forward except
// Release, which Release() can enter from any non-idle stage. A stage with
// zero duration jumps to its target level instead of dividing by zero.
type Envelope struct {
	attackMS  float32
	holdMS    float32
	decayMS   float32
	sustain   float32
	releaseMS float32
	scale     float32 // output multiplier, does not affect timing
	velFactor float32 // duration multiplier derived from velocity

	sampleRate  float32
	stage       EnvelopeStage
	time        float32 // seconds spent in the current stage
	level       float32 // pre-scale output, 0..1
	releaseFrom float32
}

// NewEnvelope builds an envelope from params at the given sample rate and
// initial velocity. The envelope starts Idle; call Trigger to start it.
func NewEnvelope(p EnvelopeParams, sampleRate float32, velocity float32) Envelope {
	e := Envelope{
		attackMS:   p.AttackMS,
		holdMS:     p.HoldMS,
		decayMS:    p.DecayMS,
		sustain:    clampf(p.SustainL, 0, 1),
		releaseMS:  p.ReleaseMS,
		scale:      clampf(p.Depth, 0, 1),
		velFactor:  1.0,
		sampleRate: sampleRate,
		stage:      StageIdle,
	}
	e.SetVelocity(velocity)
	return e
}

// SetVelocity rescales the four stage durations: louder notes get
// proportionally snappier envelopes, down to half duration at velocity 1.
func (e *Envelope) SetVelocity(velocity float32) {
	v := clampf(velocity, 0, 1)
	e.velFactor = 1.0 / (1.0 + v)
}

// SetScale sets the output multiplier (envelope depth).
func (e *Envelope) SetScale(scale float32) {
	e.scale = clampf(scale, 0, 1)
}

// Trigger restarts the envelope from the beginning of the attack stage.
func (e *Envelope) Trigger() {
	e.stage = StageAttack
	e.time = 0
	e.level = 0
}

// Release moves the envelope into its release stage from wherever it is,
// ramping down from the current level. Idle stays idle.
func (e *Envelope) Release() {
	if e.stage == StageIdle {
		return
	}
	e.releaseFrom = e.level
	e.stage = StageRelease
	e.time = 0
}

// Stage returns the current envelope stage.
func (e *Envelope) Stage() EnvelopeStage { return e.stage }

// Value returns the current output including the depth scale.
func (e *Envelope) Value() float32 { return e.level * e.scale }

// Advance steps the envelope by one sample. Stages whose duration has
// elapsed (or was zero to begin with) complete within the same sample,
// so a 0/0/x envelope reaches its sustain level immediately.
func (e *Envelope) Advance() {
	if e.stage == StageIdle {
		e.level = 0
		return
	}
	e.time += 1.0 / e.sampleRate

	for {
		switch e.stage {
		case StageAttack:
			dur := e.stageSeconds(e.attackMS)
			if dur <= 0 || e.time >= dur {
				e.level = 1.0
				e.enter(e.afterAttack())
				continue
			}
			e.level = e.time / dur
			return
		case StageHold:
			e.level = 1.0
			dur := e.stageSeconds(e.holdMS)
			if dur <= 0 || e.time >= dur {
				e.enter(StageDecay)
				continue
			}
			return
		case StageDecay:
			dur := e.stageSeconds(e.decayMS)
			if dur <= 0 || e.time >= dur {
				e.level = e.sustain
				e.enter(StageSustain)
				return
			}
			e.level = 1.0 - (1.0-e.sustain)*(e.time/dur)
			return
		case StageSustain:
			e.level = e.sustain
			return
		case StageRelease:
			dur := e.stageSeconds(e.releaseMS)
			if dur <= 0 || e.time >= dur {
				e.level = 0
				e.enter(StageIdle)
				return
			}
			e.level = e.releaseFrom * (1.0 - e.time/dur)
			return
		default:
			return
		}
	}
}

func (e *Envelope) afterAttack() EnvelopeStage {
	if e.holdMS > 0 {
		return StageHold
	}
	return StageDecay
}

func (e *Envelope) enter(s EnvelopeStage) {
	e.stage = s
	e.time = 0
}

func (e *Envelope) stageSeconds(ms float32) float32 {
	return ms * e.velFactor / 1000.0
}
