package synth

import "math"

// SmoothingStyle selects how a Smoother interpolates toward its target.
type SmoothingStyle int

const (
	SmoothLinear SmoothingStyle = iota
	SmoothLogarithmic
)

// Smoother ramps a parameter toward a target over a fixed time to avoid
// audible steps. One instance smooths the global gain per block; voices
// under polyphonic modulation carry their own copy so each can ramp toward
// a per-voice target independently.
type Smoother struct {
	style     SmoothingStyle
	timeMS    float32
	current   float32
	target    float32
	stepsLeft int
	step      float32 // additive for linear, multiplicative for logarithmic
}

// NewSmoother creates a smoother with the given style and ramp time.
func NewSmoother(style SmoothingStyle, timeMS float32) Smoother {
	return Smoother{style: style, timeMS: timeMS}
}

// Reset snaps the smoother to value with no ramp.
func (s *Smoother) Reset(value float32) {
	s.current = value
	s.target = value
	s.stepsLeft = 0
}

// Target returns the value the smoother is ramping toward.
func (s *Smoother) Target() float32 { return s.target }

// SetTarget starts a ramp from the current value to target over the
// smoother's time at the given sample rate.
func (s *Smoother) SetTarget(sampleRate float32, target float32) {
	s.target = target
	steps := int(s.timeMS / 1000.0 * sampleRate)
	if steps < 1 {
		s.Reset(target)
		return
	}
	s.stepsLeft = steps
	switch s.style {
	case SmoothLinear:
		s.step = (target - s.current) / float32(steps)
	case SmoothLogarithmic:
		// Multiplicative ramps need strictly positive endpoints.
		const floor = 1e-6
		from := s.current
		if from < floor {
			from = floor
			s.current = from
		}
		to := target
		if to < floor {
			to = floor
		}
		s.step = float32(math.Pow(float64(to/from), 1.0/float64(steps)))
	}
}

// Next advances the ramp by one sample and returns the new value.
func (s *Smoother) Next() float32 {
	if s.stepsLeft <= 0 {
		return s.current
	}
	s.stepsLeft--
	if s.stepsLeft == 0 {
		s.current = s.target
		return s.current
	}
	switch s.style {
	case SmoothLinear:
		s.current += s.step
	case SmoothLogarithmic:
		s.current *= s.step
	}
	return s.current
}

// NextBlock fills buf[:n] with the next n smoothed values.
func (s *Smoother) NextBlock(buf []float32, n int) {
	for i := 0; i < n; i++ {
		buf[i] = s.Next()
	}
}
