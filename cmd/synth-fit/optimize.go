package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-synth/analysis"
	"github.com/cwbudde/algo-synth/internal/wavio"
	"github.com/cwbudde/algo-synth/synth"
)

type fitConfig struct {
	reference    []float64
	base         *synth.Params
	defs         []knobDef
	init         candidate
	note         uint8
	velocity     float32
	sampleRate   int
	duration     float64
	releaseAfter float64
	seed         int64
	maxEvals     int
	roundEvals   int
	pop          int
	workers      int
	timeBudget   float64
	variant      string
}

type fitResult struct {
	best    candidate
	params  *synth.Params
	metrics analysis.Metrics
	evals   int
	elapsed float64
}

type fitState struct {
	mu      sync.Mutex
	best    candidate
	params  *synth.Params
	metrics analysis.Metrics
}

// runFit searches the knob space with repeated mayfly rounds spread over a
// worker pool, scoring each candidate against the reference recording.
func runFit(cfg fitConfig) (fitResult, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))

	if _, err := newMayflyConfig(cfg.variant, cfg.pop, len(cfg.defs), 1); err != nil {
		return fitResult{}, err
	}

	initParams := applyCandidate(cfg.base, cfg.defs, cfg.init)
	initMetrics := evaluateCandidate(cfg, initParams)
	fmt.Printf("Initial score=%.4f sim=%.2f%%\n", initMetrics.Score, initMetrics.Similarity*100.0)

	state := &fitState{
		best:    cloneCandidate(cfg.init),
		params:  initParams,
		metrics: initMetrics,
	}

	var evals int64 = 1
	var rounds int64
	var improves int64

	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if time.Now().After(deadline) {
					return
				}
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}

				round := int(atomic.AddInt64(&rounds, 1))
				budget := minInt(cfg.roundEvals, remaining)
				iters := maxInt(1, budget/(2*cfg.pop))

				mayflyConfig, err := newMayflyConfig(cfg.variant, cfg.pop, len(cfg.defs), iters)
				if err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d setup failed: %v\n", round, err)
					return
				}
				mayflyConfig.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
				mayflyConfig.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fromNormalized(pos, cfg.defs)
					params := applyCandidate(cfg.base, cfg.defs, cand)
					metrics := evaluateCandidate(cfg, params)

					state.mu.Lock()
					if metrics.Score < state.metrics.Score {
						state.best = cloneCandidate(cand)
						state.params = params
						state.metrics = metrics
						improveNum := atomic.AddInt64(&improves, 1)
						fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n",
							improveNum, evalNum, metrics.Score, metrics.Similarity*100.0)
					}
					state.mu.Unlock()
					return metrics.Score
				}

				if _, err := runMayfly(mayflyConfig); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	defer state.mu.Unlock()
	return fitResult{
		best:    cloneCandidate(state.best),
		params:  state.params,
		metrics: state.metrics,
		evals:   int(atomic.LoadInt64(&evals)),
		elapsed: time.Since(start).Seconds(),
	}, nil
}

// evaluateCandidate renders the patch and scores it against the reference.
func evaluateCandidate(cfg fitConfig, params *synth.Params) analysis.Metrics {
	left, right := renderPatch(params, cfg.note, cfg.velocity, cfg.sampleRate, cfg.duration, cfg.releaseAfter, cfg.seed)
	mono := wavio.MixToMono64(left, right)
	return analysis.Compare(cfg.reference, mono, cfg.sampleRate)
}

// renderPatch plays a single note through a fresh engine instance.
func renderPatch(params *synth.Params, note uint8, velocity float32, sampleRate int, duration, releaseAfter float64, seed int64) ([]float32, []float32) {
	totalFrames := maxInt(1, int(float64(sampleRate)*duration))
	releaseFrame := maxInt(0, int(float64(sampleRate)*releaseAfter))

	engine := synth.NewEngine(sampleRate, params, seed)
	left := make([]float32, totalFrames)
	right := make([]float32, totalFrames)

	const blockSize = 128
	rendered := 0
	for rendered < totalFrames {
		n := minInt(blockSize, totalFrames-rendered)

		var events []synth.Event
		if rendered == 0 {
			events = append(events, synth.Event{
				Kind:     synth.EventNoteOn,
				Time:     0,
				VoiceID:  synth.NoVoiceID,
				Note:     note,
				Velocity: velocity,
			})
		}
		if releaseFrame >= rendered && releaseFrame < rendered+n {
			events = append(events, synth.Event{
				Kind:    synth.EventNoteOff,
				Time:    uint32(releaseFrame - rendered),
				VoiceID: synth.NoVoiceID,
				Note:    note,
			})
		}

		engine.Process(left[rendered:rendered+n], right[rendered:rendered+n], events)
		rendered += n
	}
	return left, right
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = roundPop(pop)
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *fitState) float64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.metrics.Score
}
