package limiter

import (
	"math"
	"testing"
)

func TestCurveAccelBoundaryBehavior(t *testing.T) {
	if got := curveAccel(0.0); got != 0.0 {
		t.Errorf("curveAccel(0) = %v, want 0", got)
	}
	if got := curveAccel(1.0); got != 1.0 {
		t.Errorf("curveAccel(1) = %v, want 1", got)
	}
	if got := curveAccel(-1.0); got != 0.0 {
		t.Errorf("curveAccel(-1) = %v, want 0 (clamped)", got)
	}
	if got := curveAccel(2.0); got != 1.0 {
		t.Errorf("curveAccel(2) = %v, want 1 (clamped)", got)
	}
}

func TestLimiterOutputBoundedByThreshold(t *testing.T) {
	cfg := DefaultConfig(48000, 1)
	l := New(cfg)

	frameSize := 2000
	in := make([]float64, frameSize)
	for i := range in {
		in[i] = 2.0 // well above threshold
	}
	out := make([]float64, frameSize)

	n := l.ProcessBlock([][]float64{in}, [][]float64{out}, frameSize)
	if n <= 0 {
		t.Fatalf("ProcessBlock emitted %d samples, want > 0", n)
	}

	threshold := math.Pow(10, DefaultThresholdDB/20)
	const eps = 1e-3
	for i := 0; i < n; i++ {
		if math.Abs(out[i]) > threshold+eps {
			t.Fatalf("out[%d] = %v exceeds threshold %v by more than eps", i, out[i], threshold)
		}
	}
}

func TestLimiterPassesSilenceUnchanged(t *testing.T) {
	cfg := DefaultConfig(48000, 1)
	l := New(cfg)

	frameSize := 1000
	in := make([]float64, frameSize)
	out := make([]float64, frameSize)

	n := l.ProcessBlock([][]float64{in}, [][]float64{out}, frameSize)
	for i := 0; i < n; i++ {
		if out[i] != 0 {
			t.Fatalf("out[%d] = %v, want 0 for pure silence", i, out[i])
		}
	}
}

func TestLimiterDiscardsLookaheadPadding(t *testing.T) {
	cfg := DefaultConfig(48000, 1)
	l := New(cfg)

	if got := l.DelaySamples(); got != 0 {
		t.Errorf("DelaySamples() before warm-up = %d, want 0 (padsize still full)", got)
	}

	frameSize := cfg.Lookahead * 2 / 3
	in := make([]float64, frameSize)
	out := make([]float64, frameSize)

	n := l.ProcessBlock([][]float64{in}, [][]float64{out}, frameSize)
	if n != 0 {
		t.Errorf("ProcessBlock emitted %d samples before padding consumed, want 0", n)
	}

	n = l.ProcessBlock([][]float64{in}, [][]float64{out}, frameSize)
	if n <= 0 {
		t.Errorf("ProcessBlock emitted %d samples after padding consumed, want > 0", n)
	}
	if got := l.DelaySamples(); got != cfg.Lookahead {
		t.Errorf("DelaySamples() after warm-up = %d, want %d", got, cfg.Lookahead)
	}
}
