package synth

import (
	"math"
	"testing"
)

func TestLinearSmootherReachesTarget(t *testing.T) {
	s := NewSmoother(SmoothLinear, 10)
	s.Reset(0)
	s.SetTarget(1000, 1) // 10 steps

	prev := float32(0)
	for i := 0; i < 10; i++ {
		v := s.Next()
		if v < prev {
			t.Fatalf("ramp not monotone at step %d: %f < %f", i, v, prev)
		}
		prev = v
	}
	if prev != 1 {
		t.Errorf("value after ramp = %f, want exactly 1", prev)
	}
	if s.Next() != 1 {
		t.Errorf("value drifted after ramp completed")
	}
}

func TestLogarithmicSmootherStaysPositive(t *testing.T) {
	s := NewSmoother(SmoothLogarithmic, 5)
	s.Reset(1)
	s.SetTarget(48000, 0.01)

	prev := float32(1)
	for i := 0; i < 240; i++ {
		v := s.Next()
		if v <= 0 {
			t.Fatalf("log ramp hit zero at step %d", i)
		}
		if v > prev {
			t.Fatalf("downward ramp rose at step %d: %f > %f", i, v, prev)
		}
		prev = v
	}
	if math.Abs(float64(prev-0.01)) > 1e-4 {
		t.Errorf("value after ramp = %f, want 0.01", prev)
	}
}

func TestSmootherResetSnaps(t *testing.T) {
	s := NewSmoother(SmoothLinear, 100)
	s.Reset(0)
	s.SetTarget(48000, 1)
	s.Next()
	s.Reset(0.5)
	if v := s.Next(); v != 0.5 {
		t.Errorf("value after reset = %f, want 0.5", v)
	}
	if s.Target() != 0.5 {
		t.Errorf("target after reset = %f, want 0.5", s.Target())
	}
}

func TestSmootherZeroTimeJumps(t *testing.T) {
	s := NewSmoother(SmoothLinear, 0)
	s.Reset(0)
	s.SetTarget(48000, 1)
	if v := s.Next(); v != 1 {
		t.Errorf("zero-time smoother = %f, want immediate 1", v)
	}
}

func TestSmootherNextBlock(t *testing.T) {
	s := NewSmoother(SmoothLinear, 10)
	s.Reset(0)
	s.SetTarget(1000, 1)

	buf := make([]float32, 16)
	s.NextBlock(buf, 16)
	if buf[0] <= 0 {
		t.Errorf("first block sample = %f, want ramp start above 0", buf[0])
	}
	for i := 10; i < 16; i++ {
		if buf[i] != 1 {
			t.Errorf("sample %d = %f, want 1 after ramp", i, buf[i])
		}
	}
}
