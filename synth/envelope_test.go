package synth

import "testing"

func advance(e *Envelope, n int) {
	for i := 0; i < n; i++ {
		e.Advance()
	}
}

func TestEnvelopeStageProgression(t *testing.T) {
	p := EnvelopeParams{AttackMS: 10, HoldMS: 5, DecayMS: 10, SustainL: 0.5, ReleaseMS: 10, Depth: 1}
	e := NewEnvelope(p, 1000, 0) // velocity 0 keeps durations unscaled

	if e.Stage() != StageIdle {
		t.Fatalf("fresh envelope not idle")
	}
	e.Trigger()

	advance(&e, 5)
	if e.Stage() != StageAttack {
		t.Fatalf("stage after 5ms = %v, want attack", e.Stage())
	}
	if e.Value() < 0.4 || e.Value() > 0.6 {
		t.Errorf("mid-attack value = %f, want about 0.5", e.Value())
	}

	advance(&e, 7)
	if e.Stage() != StageHold {
		t.Fatalf("stage after attack = %v, want hold", e.Stage())
	}
	if e.Value() != 1.0 {
		t.Errorf("hold value = %f, want 1", e.Value())
	}

	advance(&e, 10)
	if e.Stage() != StageDecay {
		t.Fatalf("stage after hold = %v, want decay", e.Stage())
	}

	advance(&e, 15)
	if e.Stage() != StageSustain {
		t.Fatalf("stage after decay = %v, want sustain", e.Stage())
	}
	if e.Value() != 0.5 {
		t.Errorf("sustain value = %f, want 0.5", e.Value())
	}

	e.Release()
	advance(&e, 15)
	if e.Stage() != StageIdle {
		t.Fatalf("stage after release = %v, want idle", e.Stage())
	}
	if e.Value() != 0 {
		t.Errorf("idle value = %f, want 0", e.Value())
	}
}

func TestEnvelopeZeroDurationsJump(t *testing.T) {
	p := EnvelopeParams{AttackMS: 0, HoldMS: 0, DecayMS: 0, SustainL: 0.7, ReleaseMS: 0, Depth: 1}
	e := NewEnvelope(p, 48000, 0)
	e.Trigger()

	e.Advance()
	if e.Stage() != StageSustain {
		t.Fatalf("stage after one sample = %v, want sustain", e.Stage())
	}
	if e.Value() != 0.7 {
		t.Errorf("value = %f, want 0.7", e.Value())
	}

	e.Release()
	e.Advance()
	if e.Stage() != StageIdle {
		t.Fatalf("stage after zero-length release = %v, want idle", e.Stage())
	}
}

func TestEnvelopeReleaseFromAttack(t *testing.T) {
	p := EnvelopeParams{AttackMS: 100, HoldMS: 0, DecayMS: 10, SustainL: 0.5, ReleaseMS: 10, Depth: 1}
	e := NewEnvelope(p, 1000, 0)
	e.Trigger()
	advance(&e, 30) // 30% into the attack
	from := e.Value()
	if from < 0.25 || from > 0.35 {
		t.Fatalf("pre-release value = %f, want about 0.3", from)
	}

	e.Release()
	e.Advance()
	if e.Stage() != StageRelease {
		t.Fatalf("release from attack failed, stage = %v", e.Stage())
	}
	if e.Value() > from {
		t.Errorf("release value %f rose above start level %f", e.Value(), from)
	}

	advance(&e, 15)
	if e.Stage() != StageIdle {
		t.Errorf("release did not complete, stage = %v", e.Stage())
	}
}

func TestEnvelopeReleaseWhileIdleStaysIdle(t *testing.T) {
	e := NewEnvelope(EnvelopeParams{AttackMS: 1, DecayMS: 1, SustainL: 1, ReleaseMS: 1, Depth: 1}, 48000, 0)
	e.Release()
	if e.Stage() != StageIdle {
		t.Errorf("release on idle envelope changed stage to %v", e.Stage())
	}
}

func TestEnvelopeValueBounded(t *testing.T) {
	p := EnvelopeParams{AttackMS: 3, HoldMS: 2, DecayMS: 4, SustainL: 0.6, ReleaseMS: 5, Depth: 1}
	e := NewEnvelope(p, 48000, 1)
	e.Trigger()
	for i := 0; i < 48000; i++ {
		e.Advance()
		if v := e.Value(); v < 0 || v > 1 {
			t.Fatalf("value out of range at sample %d: %f", i, v)
		}
		if i == 24000 {
			e.Release()
		}
	}
}

func TestEnvelopeVelocityShortensStages(t *testing.T) {
	p := EnvelopeParams{AttackMS: 10, DecayMS: 10, SustainL: 0.5, ReleaseMS: 10, Depth: 1}

	slow := NewEnvelope(p, 1000, 0)
	fast := NewEnvelope(p, 1000, 1)
	slow.Trigger()
	fast.Trigger()

	// At velocity 1 the attack halves, so 6ms lands past the fast
	// envelope's attack but inside the slow one's.
	advance(&slow, 6)
	advance(&fast, 6)
	if slow.Stage() != StageAttack {
		t.Errorf("slow envelope left attack early, stage = %v", slow.Stage())
	}
	if fast.Stage() == StageAttack {
		t.Errorf("fast envelope still in attack")
	}
}

func TestEnvelopeDepthScalesOutputOnly(t *testing.T) {
	p := EnvelopeParams{AttackMS: 0, DecayMS: 0, SustainL: 1, ReleaseMS: 10, Depth: 0.25}
	e := NewEnvelope(p, 1000, 0)
	e.Trigger()
	e.Advance()
	if e.Value() != 0.25 {
		t.Errorf("scaled sustain = %f, want 0.25", e.Value())
	}
	if e.Stage() != StageSustain {
		t.Errorf("depth altered timing, stage = %v", e.Stage())
	}
}
