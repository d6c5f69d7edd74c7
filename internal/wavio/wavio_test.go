package wavio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWriteStereoReadMonoRoundTrip(t *testing.T) {
	const sr = 48000
	const n = 4800
	left := make([]float32, n)
	right := make([]float32, n)
	for i := range left {
		s := float32(math.Sin(2 * math.Pi * 440 * float64(i) / sr))
		left[i] = s * 0.5
		right[i] = s * 0.5
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteStereo(path, left, right, sr); err != nil {
		t.Fatalf("WriteStereo: %v", err)
	}

	mono, gotRate, err := ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if gotRate != sr {
		t.Errorf("sample rate = %d, want %d", gotRate, sr)
	}
	if len(mono) != n {
		t.Fatalf("frames = %d, want %d", len(mono), n)
	}

	// 16-bit PCM decodes to integer sample values.
	var peak float64
	for _, s := range mono {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	wantPeak := 0.5 * 32767
	if math.Abs(peak-wantPeak)/wantPeak > 0.01 {
		t.Errorf("peak = %.1f, want about %.1f", peak, wantPeak)
	}
}

func TestWriteStereoRejectsLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := WriteStereo(path, make([]float32, 10), make([]float32, 9), 48000); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestMixToMono64(t *testing.T) {
	left := []float32{1, 0, -1}
	right := []float32{0, 1, -1}
	mono := MixToMono64(left, right)
	want := []float64{0.5, 0.5, -1}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("mono[%d] = %f, want %f", i, mono[i], want[i])
		}
	}
}

func TestResampleSameRatePassthrough(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Resample(in, 48000, 48000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Errorf("passthrough altered samples: %v", out)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
	if got := RMS([]float32{1, -1, 1, -1}); math.Abs(got-1) > 1e-9 {
		t.Errorf("RMS of unit square = %f, want 1", got)
	}
}
