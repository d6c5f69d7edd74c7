// Command synth-play runs the engine live: audio out through the system
// mixer, notes in from a MIDI port or a built-in demo sequence.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ebitengine/oto/v3"
	"gitlab.com/gomidi/rtmididrv"

	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Playback sample rate in Hz")
	presetPath := flag.String("preset", "", "Patch JSON file path (optional)")
	waveform := flag.String("waveform", "", "Waveform override (sine, saw, square, ...)")
	midiPort := flag.Int("midi-port", 0, "MIDI input port index")
	listPorts := flag.Bool("list", false, "List MIDI input ports and exit")
	demo := flag.Bool("demo", false, "Play a built-in sequence instead of reading MIDI")
	bufferMS := flag.Int("buffer", 20, "Audio buffer size in milliseconds")
	flag.Parse()

	params := synth.NewDefaultParams()
	if *presetPath != "" {
		loaded, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading patch %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		params = loaded
	}
	if *waveform != "" {
		w := synth.ParseWaveform(*waveform)
		if w.String() != *waveform {
			fmt.Fprintf(os.Stderr, "Error: unknown waveform %q\n", *waveform)
			os.Exit(1)
		}
		params.Waveform = w
	}

	engine := synth.NewEngine(*sampleRate, params, time.Now().UnixNano())
	stream := newEngineStream(engine)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(*bufferMS) * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	<-ready

	player := ctx.NewPlayer(stream)
	player.Play()
	defer player.Close()

	if *demo {
		fmt.Println("Playing demo sequence, Ctrl+C to stop...")
		go playDemo(stream)
		waitForInterrupt()
		return
	}

	drv, err := rtmididrv.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening MIDI driver: %v\n", err)
		os.Exit(1)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing MIDI inputs: %v\n", err)
		os.Exit(1)
	}
	if *listPorts {
		for i, in := range ins {
			fmt.Printf("%d: %s\n", i, in.String())
		}
		return
	}
	if len(ins) == 0 {
		fmt.Fprintf(os.Stderr, "No MIDI inputs found (try -demo)\n")
		os.Exit(1)
	}
	if *midiPort < 0 || *midiPort >= len(ins) {
		fmt.Fprintf(os.Stderr, "MIDI port %d out of range (0-%d)\n", *midiPort, len(ins)-1)
		os.Exit(1)
	}

	in := ins[*midiPort]
	if err := in.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening MIDI port: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	err = in.SetListener(func(data []byte, deltaMicroseconds int64) {
		if ev, ok := midiToEvent(data); ok {
			stream.push(ev)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error attaching MIDI listener: %v\n", err)
		os.Exit(1)
	}
	defer in.StopListening()

	fmt.Printf("Listening on %q, Ctrl+C to stop...\n", in.String())
	waitForInterrupt()
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println()
}

// midiToEvent translates note on/off channel messages. A note-on with
// velocity zero counts as a note-off.
func midiToEvent(data []byte) (synth.Event, bool) {
	if len(data) < 3 {
		return synth.Event{}, false
	}
	status := data[0] >> 4
	channel := data[0] & 0x0F
	note := data[1] & 0x7F
	velocity := data[2] & 0x7F

	switch {
	case status == 9 && velocity > 0:
		return synth.Event{
			Kind:     synth.EventNoteOn,
			VoiceID:  synth.NoVoiceID,
			Channel:  channel,
			Note:     note,
			Velocity: float32(velocity) / 127.0,
		}, true
	case status == 8 || status == 9:
		return synth.Event{
			Kind:    synth.EventNoteOff,
			VoiceID: synth.NoVoiceID,
			Channel: channel,
			Note:    note,
		}, true
	}
	return synth.Event{}, false
}

// engineStream adapts the engine to oto's io.Reader interface, rendering
// float32 little-endian stereo frames on demand. Incoming events queue up
// under a mutex and are handed to the engine at the start of the next
// rendered chunk.
type engineStream struct {
	mu      sync.Mutex
	pending []synth.Event

	engine *synth.Engine
	left   []float32
	right  []float32
}

func newEngineStream(e *synth.Engine) *engineStream {
	return &engineStream{engine: e}
}

func (s *engineStream) push(ev synth.Event) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
}

func (s *engineStream) Read(p []byte) (int, error) {
	const bytesPerFrame = 8 // two float32 channels
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if len(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}

	s.mu.Lock()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.engine.Process(s.left[:frames], s.right[:frames], events)

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*bytesPerFrame:], math.Float32bits(s.left[i]))
		binary.LittleEndian.PutUint32(p[i*bytesPerFrame+4:], math.Float32bits(s.right[i]))
	}
	return frames * bytesPerFrame, nil
}

// playDemo walks a little arpeggio so the engine can be heard without a
// MIDI keyboard attached.
func playDemo(stream *engineStream) {
	notes := []uint8{57, 60, 64, 69, 64, 60}
	for {
		for _, n := range notes {
			stream.push(synth.Event{
				Kind:     synth.EventNoteOn,
				VoiceID:  synth.NoVoiceID,
				Note:     n,
				Velocity: 0.8,
			})
			time.Sleep(250 * time.Millisecond)
			stream.push(synth.Event{
				Kind:    synth.EventNoteOff,
				VoiceID: synth.NoVoiceID,
				Note:    n,
			})
		}
	}
}
