package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-synth/internal/wavio"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	note := flag.Int("note", 69, "MIDI note number (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127)")
	duration := flag.Float64("duration", 2.0, "Total render duration in seconds")
	releaseAfter := flag.Float64("release-after", 1.5, "Send NoteOff after this many seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	seed := flag.Int64("seed", 1, "Noise generator seed")
	presetPath := flag.String("preset", "", "Patch JSON file path (optional)")
	waveform := flag.String("waveform", "", "Waveform override (sine, saw, square, ...)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	if *note < 0 || *note > 127 {
		fmt.Fprintf(os.Stderr, "Error: note must be 0-127\n")
		os.Exit(1)
	}
	if *velocity < 0 || *velocity > 127 {
		fmt.Fprintf(os.Stderr, "Error: velocity must be 0-127\n")
		os.Exit(1)
	}

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

	totalFrames := int(float64(*sampleRate) * (*duration))
	if totalFrames < 1 {
		totalFrames = 1
	}
	releaseFrame := int(float64(*sampleRate) * (*releaseAfter))
	if releaseFrame < 0 {
		releaseFrame = 0
	}

	fmt.Printf("Rendering note %d, velocity %d, %s wave, for %.2f seconds at %d Hz...\n",
		*note, *velocity, params.Waveform, *duration, *sampleRate)

	engine := synth.NewEngine(*sampleRate, params, *seed)

	left := make([]float32, totalFrames)
	right := make([]float32, totalFrames)
	vel := float32(*velocity) / 127.0

	const blockSize = 128
	rendered := 0
	for rendered < totalFrames {
		n := blockSize
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}

		var events []synth.Event
		if rendered == 0 {
			events = append(events, synth.Event{
				Kind:     synth.EventNoteOn,
				Time:     0,
				VoiceID:  synth.NoVoiceID,
				Note:     uint8(*note),
				Velocity: vel,
			})
		}
		if releaseFrame >= rendered && releaseFrame < rendered+n {
			events = append(events, synth.Event{
				Kind:    synth.EventNoteOff,
				Time:    uint32(releaseFrame - rendered),
				VoiceID: synth.NoVoiceID,
				Note:    uint8(*note),
			})
		}

		engine.Process(left[rendered:rendered+n], right[rendered:rendered+n], events)
		rendered += n
	}

	if err := wavio.WriteStereo(*output, left, right, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, totalFrames)
}
