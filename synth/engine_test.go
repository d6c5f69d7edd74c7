package synth

import (
	"math"
	"testing"
)

const testSampleRate = 48000

func newTestEngine() *Engine {
	return NewEngine(testSampleRate, nil, 1)
}

func (e *Engine) findVoice(note uint8) *Voice {
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].note == note {
			return &e.voices[i]
		}
	}
	return nil
}

func TestNoteOnStartsVoiceAtEventTime(t *testing.T) {
	e := newTestEngine()
	left := renderMono(e, 512, []Event{noteOn(100, 69, 0.8)})

	for i := 0; i < 100; i++ {
		if left[i] != 0 {
			t.Fatalf("sample %d nonzero before note start: %f", i, left[i])
		}
	}
	if rms := windowRMS(left[100:]); rms == 0 {
		t.Fatalf("no output after note start")
	}

	v := e.findVoice(69)
	if v == nil {
		t.Fatalf("voice for note 69 not active")
	}
	want := midiNoteToFreq(69) / testSampleRate
	if math.Abs(float64(v.phaseDelta-want)) > 1e-5 {
		t.Errorf("phase delta = %f, want %f", v.phaseDelta, want)
	}
}

func TestTuningAccuracy(t *testing.T) {
	tests := []struct {
		name         string
		note         uint8
		expectedFreq float32
		tolerance    float32 // Hz
	}{
		{"A4", 69, 440.0, 2.0},
		{"MiddleC", 60, 261.63, 2.0},
		{"C5", 72, 523.25, 3.0},
		{"A3", 57, 220.0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			left := renderMono(e, testSampleRate, []Event{noteOn(0, tt.note, 0.8)})
			got := measureFundamentalFreq(left, testSampleRate)
			if diff := math.Abs(float64(got - tt.expectedFreq)); diff > float64(tt.tolerance) {
				t.Errorf("note %d: measured %.2f Hz, want %.2f Hz", tt.note, got, tt.expectedFreq)
			}
		})
	}
}

func TestBuffersFullyOverwritten(t *testing.T) {
	e := newTestEngine()
	left := make([]float32, 256)
	right := make([]float32, 256)
	for i := range left {
		left[i] = 1
		right[i] = 1
	}
	e.Process(left, right, nil)
	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("stale sample at %d: left=%f right=%f", i, left[i], right[i])
		}
	}
}

func TestEventsBeyondBufferDropped(t *testing.T) {
	e := newTestEngine()
	renderMono(e, 64, []Event{noteOn(100, 69, 0.8)})
	if n := e.ActiveVoices(); n != 0 {
		t.Errorf("voice started from out-of-range event, active=%d", n)
	}
}

func TestVoiceStealingTakesOldest(t *testing.T) {
	e := newTestEngine()
	var terminated []VoiceTerminated
	e.SetVoiceTerminatedHandler(func(vt VoiceTerminated) {
		terminated = append(terminated, vt)
	})

	events := make([]Event, 0, MaxVoices+1)
	for i := 0; i <= MaxVoices; i++ {
		events = append(events, noteOn(0, uint8(40+i), 0.8))
	}
	renderMono(e, 64, events)

	if n := e.ActiveVoices(); n != MaxVoices {
		t.Errorf("active voices = %d, want %d", n, MaxVoices)
	}
	if len(terminated) != 1 {
		t.Fatalf("terminations = %d, want 1", len(terminated))
	}
	if terminated[0].Note != 40 {
		t.Errorf("stole note %d, want oldest note 40", terminated[0].Note)
	}
	if e.findVoice(40) != nil {
		t.Errorf("stolen voice still active")
	}
}

func TestStealingReleasingVoiceIsSilent(t *testing.T) {
	e := newTestEngine()
	var terminated []VoiceTerminated
	e.SetVoiceTerminatedHandler(func(vt VoiceTerminated) {
		terminated = append(terminated, vt)
	})

	events := make([]Event, 0, MaxVoices)
	for i := 0; i < MaxVoices; i++ {
		events = append(events, noteOn(0, uint8(40+i), 0.8))
	}
	renderMono(e, 64, events)
	renderMono(e, 64, []Event{noteOff(0, 40)})
	renderMono(e, 64, []Event{noteOn(0, 60, 0.8)})

	if len(terminated) != 0 {
		t.Errorf("stealing a releasing voice emitted %d terminations", len(terminated))
	}
	if e.findVoice(60) == nil {
		t.Errorf("new note did not take the releasing slot")
	}
}

func TestNoteOffReleasesAndReaps(t *testing.T) {
	e := newTestEngine()
	var terminated []VoiceTerminated
	e.SetVoiceTerminatedHandler(func(vt VoiceTerminated) {
		terminated = append(terminated, vt)
	})

	renderMono(e, 4800, []Event{noteOn(0, 69, 0.8)})
	if e.ActiveVoices() != 1 {
		t.Fatalf("voice not active after note on")
	}

	// Release is 50ms scaled down by velocity, well under half a second.
	left := renderMono(e, testSampleRate/2, []Event{noteOff(0, 69)})

	if e.ActiveVoices() != 0 {
		t.Errorf("voice still active after release completed")
	}
	if len(terminated) != 1 || terminated[0].Note != 69 {
		t.Fatalf("terminations = %+v, want one for note 69", terminated)
	}
	if tail := windowRMS(left[len(left)-4800:]); tail > 1e-6 {
		t.Errorf("output tail not silent after release: rms=%g", tail)
	}
}

func TestChokeSilencesImmediately(t *testing.T) {
	e := newTestEngine()
	var terminated []VoiceTerminated
	e.SetVoiceTerminatedHandler(func(vt VoiceTerminated) {
		terminated = append(terminated, vt)
	})

	left := renderMono(e, 512, []Event{
		noteOn(0, 69, 0.8),
		{Kind: EventChoke, Time: 128, VoiceID: NoVoiceID, Note: 69},
	})

	if len(terminated) != 1 {
		t.Fatalf("terminations = %d, want 1", len(terminated))
	}
	if terminated[0].Time != 128 {
		t.Errorf("termination time = %d, want 128", terminated[0].Time)
	}
	for i := 128; i < len(left); i++ {
		if left[i] != 0 {
			t.Fatalf("sample %d nonzero after choke: %f", i, left[i])
		}
	}
}

func TestChokeByVoiceIDStopsAtFirstMatch(t *testing.T) {
	e := newTestEngine()
	var terminated []VoiceTerminated
	e.SetVoiceTerminatedHandler(func(vt VoiceTerminated) {
		terminated = append(terminated, vt)
	})

	renderMono(e, 64, []Event{
		{Kind: EventNoteOn, Time: 0, VoiceID: 7, Note: 60, Velocity: 0.8},
		{Kind: EventNoteOn, Time: 0, VoiceID: 8, Note: 64, Velocity: 0.8},
	})
	renderMono(e, 64, []Event{{Kind: EventChoke, Time: 0, VoiceID: 7}})

	if len(terminated) != 1 || terminated[0].VoiceID != 7 {
		t.Fatalf("terminations = %+v, want exactly voice 7", terminated)
	}
	if e.ActiveVoices() != 1 {
		t.Errorf("active voices = %d, want 1", e.ActiveVoices())
	}
}

func TestPolyModulationSnapsForFreshVoice(t *testing.T) {
	e := newTestEngine()
	renderMono(e, 64, []Event{
		{Kind: EventNoteOn, Time: 0, VoiceID: 42, Note: 69, Velocity: 0.8},
		{Kind: EventPolyModulation, Time: 0, VoiceID: 42, Target: GainModulationID, Value: -0.5},
	})

	v := e.findVoice(69)
	if v == nil {
		t.Fatalf("voice not active")
	}
	if !v.hasPolyGain {
		t.Fatalf("voice has no poly gain smoother")
	}
	want := gainFromNormalized(normalizeGain(e.params.Gain) - 0.5)
	if v.polyGain.current != want {
		t.Errorf("poly gain = %f, want immediate %f", v.polyGain.current, want)
	}
}

func TestPolyModulationRampsForRunningVoice(t *testing.T) {
	e := newTestEngine()
	renderMono(e, 64, []Event{{Kind: EventNoteOn, Time: 0, VoiceID: 42, Note: 69, Velocity: 0.8}})
	renderMono(e, 64, []Event{
		{Kind: EventPolyModulation, Time: 0, VoiceID: 42, Target: GainModulationID, Value: -0.5},
	})

	v := e.findVoice(69)
	if v == nil {
		t.Fatalf("voice not active")
	}
	want := gainFromNormalized(normalizeGain(e.params.Gain) - 0.5)
	if v.polyGain.Target() != want {
		t.Errorf("poly gain target = %f, want %f", v.polyGain.Target(), want)
	}
	if v.polyGain.stepsLeft == 0 {
		t.Errorf("poly gain jumped instead of ramping")
	}
}

func TestPolyModulationUnknownTargetIgnored(t *testing.T) {
	e := newTestEngine()
	renderMono(e, 64, []Event{
		{Kind: EventNoteOn, Time: 0, VoiceID: 42, Note: 69, Velocity: 0.8},
		{Kind: EventPolyModulation, Time: 0, VoiceID: 42, Target: 99, Value: -0.5},
	})

	v := e.findVoice(69)
	if v == nil {
		t.Fatalf("voice not active")
	}
	if v.hasPolyGain {
		t.Errorf("unknown modulation target was applied")
	}
}

func TestMonoAutomationMovesModulatedVoices(t *testing.T) {
	e := newTestEngine()
	renderMono(e, 64, []Event{
		{Kind: EventNoteOn, Time: 0, VoiceID: 42, Note: 69, Velocity: 0.8},
		{Kind: EventPolyModulation, Time: 0, VoiceID: 42, Target: GainModulationID, Value: -0.25},
	})
	renderMono(e, 64, []Event{
		{Kind: EventMonoAutomation, Time: 0, Target: GainModulationID, Value: 0.5},
	})

	wantGain := gainFromNormalized(0.5)
	if math.Abs(float64(e.params.Gain-wantGain)) > 1e-6 {
		t.Errorf("params gain = %f, want %f", e.params.Gain, wantGain)
	}
	v := e.findVoice(69)
	if v == nil {
		t.Fatalf("voice not active")
	}
	wantTarget := gainFromNormalized(0.5 - 0.25)
	if v.polyGain.Target() != wantTarget {
		t.Errorf("poly gain target = %f, want %f", v.polyGain.Target(), wantTarget)
	}
}

func TestPolyPanHardLeft(t *testing.T) {
	e := newTestEngine()
	left := make([]float32, 4800)
	right := make([]float32, 4800)
	e.Process(left, right, []Event{
		{Kind: EventNoteOn, Time: 0, VoiceID: 7, Note: 69, Velocity: 0.8},
		{Kind: EventPolyPan, Time: 0, VoiceID: 7, Value: 0},
	})

	if windowRMS(left) == 0 {
		t.Fatalf("left channel silent")
	}
	if r := windowRMS(right); r != 0 {
		t.Errorf("right channel not silent at hard-left pan: rms=%g", r)
	}
}

func TestPolyTuningShiftsPitch(t *testing.T) {
	e := newTestEngine()
	left := renderMono(e, testSampleRate, []Event{
		{Kind: EventNoteOn, Time: 0, VoiceID: 7, Note: 69, Velocity: 0.8},
		{Kind: EventPolyTuning, Time: 0, VoiceID: 7, Value: 12},
	})

	got := measureFundamentalFreq(left, testSampleRate)
	if math.Abs(float64(got-880)) > 5 {
		t.Errorf("measured %.2f Hz after +12 semitone tuning, want 880", got)
	}
}

func TestExpressionCreatesMissingVoice(t *testing.T) {
	e := newTestEngine()
	renderMono(e, 64, []Event{
		{Kind: EventPolyPressure, Time: 0, VoiceID: NoVoiceID, Note: 60, Value: 0.7},
	})

	v := e.findVoice(60)
	if v == nil {
		t.Fatalf("expression event did not create a voice")
	}
	if v.pressure != 0.7 {
		t.Errorf("pressure = %f, want 0.7", v.pressure)
	}
	if v.voiceID != fallbackVoiceID(60, 0) {
		t.Errorf("voice id = %d, want fallback %d", v.voiceID, fallbackVoiceID(60, 0))
	}
}

func TestRendersAreReproducible(t *testing.T) {
	params := NewDefaultParams()
	params.Waveform = WaveNoise
	a := NewEngine(testSampleRate, params, 1234)

	paramsB := NewDefaultParams()
	paramsB.Waveform = WaveNoise
	b := NewEngine(testSampleRate, paramsB, 1234)

	events := []Event{noteOn(0, 60, 0.9)}
	outA := renderMono(a, 4096, events)
	outB := renderMono(b, 4096, events)

	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("outputs diverge at sample %d: %f vs %f", i, outA[i], outB[i])
		}
	}
}

func TestPolyphonyAccumulates(t *testing.T) {
	one := newTestEngine()
	oneOut := renderMono(one, 9600, []Event{noteOn(0, 60, 0.8)})

	three := newTestEngine()
	threeOut := renderMono(three, 9600, []Event{
		noteOn(0, 60, 0.8),
		noteOn(0, 64, 0.8),
		noteOn(0, 67, 0.8),
	})

	if windowRMS(threeOut) <= windowRMS(oneOut) {
		t.Errorf("chord rms %.6f not above single note rms %.6f",
			windowRMS(threeOut), windowRMS(oneOut))
	}
}
