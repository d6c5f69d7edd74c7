package synth

// EventKind identifies the type of a timestamped engine event.
type EventKind int

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventChoke
	EventPolyModulation
	EventMonoAutomation
	EventPolyPressure
	EventPolyVolume
	EventPolyPan
	EventPolyTuning
	EventPolyVibrato
)

// NoVoiceID marks an event that carries no host voice id. Matching then
// falls back to channel and note, and newly started voices receive a
// synthesized id derived from both.
const NoVoiceID int32 = -1

// GainModulationID is the only polyphonic modulation target the engine
// recognizes. Events addressing any other target are ignored.
const GainModulationID uint32 = 0

// Event is a timestamped instruction delivered to Process. Time is the
// sample offset within the current buffer; events must arrive sorted by
// Time, and events at or beyond the buffer length are dropped.
type Event struct {
	Kind     EventKind
	Time     uint32
	VoiceID  int32 // NoVoiceID when the host did not assign one
	Channel  uint8
	Note     uint8
	Velocity float32 // note on/off velocity in [0, 1]
	Target   uint32  // modulation target id for EventPolyModulation
	Value    float32 // modulation offset, pressure, volume, pan, tuning or vibrato amount
}

// VoiceTerminated reports that a voice slot was freed, either by running
// its release to completion, by a choke, or by being stolen while already
// fading out. Hosts that assign voice ids use it to retire them.
type VoiceTerminated struct {
	Time    uint32
	VoiceID int32
	Channel uint8
	Note    uint8
}

// fallbackVoiceID synthesizes a stable voice id for events without one.
func fallbackVoiceID(note, channel uint8) int32 {
	return int32(note) | int32(channel)<<16
}
