// Package analysis measures how close a rendered tone is to a reference
// recording. The score drives the patch-fitting optimizer.
package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains distance and similarity measurements between two audio
// signals.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`

	RefAttackMS  float64 `json:"ref_attack_ms"`
	CandAttackMS float64 `json:"cand_attack_ms"`
	AttackDiffMS float64 `json:"attack_diff_ms"`

	RefSustainDB  float64 `json:"ref_sustain_db"`
	CandSustainDB float64 `json:"cand_sustain_db"`
	SustainDiffDB float64 `json:"sustain_diff_db"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

const spectralFrameSize = 4096

// Compare returns objective distance metrics and a combined score in
// [0,1], 0 meaning identical. Both signals are trimmed, loudness
// normalized and lag aligned before measurement, so absolute level and
// onset offsets do not dominate the score.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		return m
	}

	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	if len(ref) == 0 || len(cand) == 0 {
		m.Score = 1.0
		return m
	}

	ref = normalizeRMS(ref, 0.1)
	cand = normalizeRMS(cand, 0.1)

	maxLag := sampleRate / 2
	if maxLag > len(ref)-1 {
		maxLag = len(ref) - 1
	}
	if maxLag > len(cand)-1 {
		maxLag = len(cand) - 1
	}
	if maxLag < 1 {
		maxLag = 1
	}
	lag := estimateLag(ref, cand, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := len(refA)
	if len(candA) < n {
		n = len(candA)
	}
	if n < 256 {
		m.Score = 1.0
		return m
	}
	maxFrames := sampleRate * 12
	if n > maxFrames {
		n = maxFrames
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(refA, candA)

	refEnv := rmsEnvelope(refA, 256, 128)
	candEnv := rmsEnvelope(candA, 256, 128)
	envN := len(refEnv)
	if len(candEnv) < envN {
		envN = len(candEnv)
	}
	if envN > 0 {
		var sum float64
		for i := 0; i < envN; i++ {
			d := linToDB(refEnv[i]) - linToDB(candEnv[i])
			sum += d * d
		}
		m.EnvelopeRMSEDB = math.Sqrt(sum / float64(envN))
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)

	hopSec := 128.0 / float64(sampleRate)
	m.RefAttackMS = attackTimeMS(refEnv, hopSec)
	m.CandAttackMS = attackTimeMS(candEnv, hopSec)
	if isFinite(m.RefAttackMS) && isFinite(m.CandAttackMS) {
		m.AttackDiffMS = math.Abs(m.RefAttackMS - m.CandAttackMS)
	}

	m.RefSustainDB = sustainLevelDB(refEnv)
	m.CandSustainDB = sustainLevelDB(candEnv)
	if isFinite(m.RefSustainDB) && isFinite(m.CandSustainDB) {
		m.SustainDiffDB = math.Abs(m.RefSustainDB - m.CandSustainDB)
	}

	timeNorm := clamp01(m.TimeRMSE / 0.25)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	attackNorm := clamp01(m.AttackDiffMS / 200.0)
	sustainNorm := clamp01(m.SustainDiffDB / 24.0)
	m.Score = clamp01(0.25*timeNorm + 0.25*envNorm + 0.30*specNorm + 0.10*attackNorm + 0.10*sustainNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))

	return m
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	if len(x) == 0 {
		return x
	}
	r := rms(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	step := 2
	if len(ref) > 200000 || len(cand) > 200000 {
		step = 4
	}
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		s := dotAtLag(ref, cand, lag, step)
		if s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int, step int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := len(a) - ai
	if len(b)-bi < n {
		n = len(b) - bi
	}
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i += step {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares the magnitude spectra of one windowed frame
// from each signal, in decibels per bin.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 512 {
		return 0
	}
	if n > spectralFrameSize {
		n = spectralFrameSize
	}
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return 0
	}

	aw := make([]float64, n)
	bw := make([]float64, n)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}
	specA := make([]complex128, n/2+1)
	specB := make([]complex128, n/2+1)
	plan.Forward(specA, aw)
	plan.Forward(specB, bw)

	bins := n / 2
	if bins < 2 {
		return 0
	}
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// attackTimeMS measures how long the envelope takes to first reach 90%
// of its peak level.
func attackTimeMS(env []float64, hopSec float64) float64 {
	if len(env) == 0 || hopSec <= 0 {
		return math.NaN()
	}
	peak := 0.0
	for _, v := range env {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return math.NaN()
	}
	threshold := peak * 0.9
	for i, v := range env {
		if v >= threshold {
			return float64(i) * hopSec * 1000.0
		}
	}
	return math.NaN()
}

// sustainLevelDB measures the mean envelope level across the middle half
// of the signal, where a held tone sits at its sustain plateau.
func sustainLevelDB(env []float64) float64 {
	if len(env) < 8 {
		return math.NaN()
	}
	start := len(env) / 4
	end := start + len(env)/2
	var sum float64
	for i := start; i < end; i++ {
		sum += linToDB(env[i])
	}
	return sum / float64(end-start)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
