package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-synth/internal/wavio"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	referencePath := flag.String("reference", "reference/a4.wav", "Reference WAV path")
	presetPath := flag.String("preset", "", "Base patch JSON path (optional)")
	outputPreset := flag.String("output-preset", "fitted.json", "Path to write best fitted patch JSON")
	outputWAV := flag.String("output-wav", "", "Optional path to write the best candidate render")
	waveform := flag.String("waveform", "", "Waveform override (sine, saw, square, ...)")
	note := flag.Int("note", 69, "MIDI note to fit")
	velocity := flag.Int("velocity", 100, "MIDI velocity for rendering during fit")
	duration := flag.Float64("duration", 2.0, "Render duration per evaluation in seconds")
	releaseAfter := flag.Float64("release-after", 1.5, "Seconds before NoteOff for each evaluation render")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 120.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	workers := flag.String("workers", "1", "Parallel optimization workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *note < 0 || *note > 127 {
		die("note must be 0-127")
	}
	if *velocity < 0 || *velocity > 127 {
		die("velocity must be 0-127")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *releaseAfter < 0.05 {
		*releaseAfter = 0.05
	}
	if *duration < *releaseAfter {
		*duration = *releaseAfter + 0.25
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	parsedWorkers, err := parseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	base := synth.NewDefaultParams()
	if *presetPath != "" {
		base, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load patch: %v", err)
		}
	}
	if *waveform != "" {
		w := synth.ParseWaveform(*waveform)
		if w.String() != *waveform {
			die("unknown waveform %q", *waveform)
		}
		base.Waveform = w
	}

	reference, refRate, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("failed to load reference: %v", err)
	}
	if refRate != *sampleRate {
		reference, err = wavio.Resample(reference, refRate, *sampleRate)
		if err != nil {
			die("failed to resample reference: %v", err)
		}
	}

	defs, init := initCandidate(base)
	fmt.Printf("Fitting %d knobs against %s (note %d, %s wave, budget %d evals / %.0f s)...\n",
		len(defs), *referencePath, *note, base.Waveform, *maxEvals, *timeBudget)

	result, err := runFit(fitConfig{
		reference:    reference,
		base:         base,
		defs:         defs,
		init:         init,
		note:         uint8(*note),
		velocity:     float32(*velocity) / 127.0,
		sampleRate:   *sampleRate,
		duration:     *duration,
		releaseAfter: *releaseAfter,
		seed:         *seed,
		maxEvals:     *maxEvals,
		roundEvals:   *mayflyRoundEvals,
		pop:          *mayflyPop,
		workers:      parsedWorkers,
		timeBudget:   *timeBudget,
		variant:      *mayflyVariant,
	})
	if err != nil {
		die("optimization failed: %v", err)
	}

	fmt.Printf("Done: %d evals in %.1f s, score=%.4f sim=%.2f%%\n",
		result.evals, result.elapsed, result.metrics.Score, result.metrics.Similarity*100.0)
	for i, def := range defs {
		fmt.Printf("  %-22s %.4g\n", def.Name, result.best.Vals[i])
	}

	if err := preset.SaveJSON(*outputPreset, result.params); err != nil {
		die("failed to write patch: %v", err)
	}
	fmt.Printf("Wrote %s\n", *outputPreset)

	if *outputWAV != "" {
		left, right := renderPatch(result.params, uint8(*note), float32(*velocity)/127.0, *sampleRate, *duration, *releaseAfter, *seed)
		if err := wavio.WriteStereo(*outputWAV, left, right, *sampleRate); err != nil {
			die("failed to write render: %v", err)
		}
		fmt.Printf("Wrote %s\n", *outputWAV)
	}
}

func parseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
