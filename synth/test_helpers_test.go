package synth

import "math"

func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	crossings := 0
	for i := startIdx + 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float32(len(samples)-startIdx) / sampleRate
	return float32(crossings) / (2.0 * duration)
}

func windowRMS(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// renderMono drives the engine for n samples with the given events and
// returns the left channel.
func renderMono(e *Engine, n int, events []Event) []float32 {
	left := make([]float32, n)
	right := make([]float32, n)
	e.Process(left, right, events)
	return left
}

func noteOn(time uint32, note uint8, velocity float32) Event {
	return Event{Kind: EventNoteOn, Time: time, VoiceID: NoVoiceID, Note: note, Velocity: velocity}
}

func noteOff(time uint32, note uint8) Event {
	return Event{Kind: EventNoteOff, Time: time, VoiceID: NoVoiceID, Note: note}
}
