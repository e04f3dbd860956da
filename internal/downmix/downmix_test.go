package downmix

import "testing"

func makeFrame(frameSize int, val float64) []float64 {
	out := make([]float64, frameSize)
	for i := range out {
		out[i] = val
	}
	return out
}

func TestCrossfadeSplitsAtPreskip(t *testing.T) {
	frameSize := 512
	out := make([]float64, frameSize)
	Crossfade(out, frameSize,
		func(i int) float64 { return 1.0 },
		func(i int) float64 { return 2.0 },
	)
	for i := 0; i < PreskipSize && i < frameSize; i++ {
		if out[i] != 1.0 {
			t.Fatalf("out[%d] = %v, want 1.0 (prev-frame region)", i, out[i])
		}
	}
	for i := PreskipSize; i < frameSize; i++ {
		if out[i] != 2.0 {
			t.Fatalf("out[%d] = %v, want 2.0 (curr-frame region)", i, out[i])
		}
	}
}

func TestCrossfadeHandlesFrameShorterThanPreskip(t *testing.T) {
	frameSize := 100
	out := make([]float64, frameSize)
	Crossfade(out, frameSize,
		func(i int) float64 { return 1.0 },
		func(i int) float64 { return 2.0 },
	)
	for i := 0; i < frameSize; i++ {
		if out[i] != 1.0 {
			t.Fatalf("out[%d] = %v, want 1.0 (entire short frame uses prev params)", i, out[i])
		}
	}
}

func TestFoldStereoFromLayout312IsInverseOfUpmixS2to3(t *testing.T) {
	frameSize := 960
	l3 := makeFrame(frameSize, 0.4)
	r3 := makeFrame(frameSize, 0.3)
	c := makeFrame(frameSize, 0.2)

	d := NewDownmixer()
	p := FrameParams{Matrix: MatrixType1, WeightType: WeightDown}

	l2, r2, err := d.FoldStereoFromLayout312(p, frameSize, l3, r3, c)
	if err != nil {
		t.Fatalf("FoldStereoFromLayout312: %v", err)
	}

	coef, _ := Lookup(MatrixType1)
	// Round trip: upmix_s2to3 computes L3' = L2 - delta*C; since L2 was
	// folded as L3 + delta*C, L3' must reconstruct the original L3.
	for i := PreskipSize; i < frameSize; i++ {
		l3Reconstructed := l2[i] - coef.Delta*c[i]
		if diff := l3Reconstructed - l3[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("round trip mismatch at %d: got %v want %v", i, l3Reconstructed, l3[i])
		}
		r3Reconstructed := r2[i] - coef.Delta*c[i]
		if diff := r3Reconstructed - r3[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("round trip mismatch (R) at %d: got %v want %v", i, r3Reconstructed, r3[i])
		}
	}
}

func TestFoldHeightPairUsesWeightCurve(t *testing.T) {
	frameSize := 960
	hfl := makeFrame(frameSize, 0.1)
	hfr := makeFrame(frameSize, 0.1)
	sl := makeFrame(frameSize, 0.5)
	sr := makeFrame(frameSize, 0.5)

	d := NewDownmixer()
	p := FrameParams{Matrix: MatrixType2, WeightType: WeightUp}

	tl, tr, err := d.FoldHeightPair(p, frameSize, hfl, hfr, sl, sr)
	if err != nil {
		t.Fatalf("FoldHeightPair: %v", err)
	}
	if len(tl) != frameSize || len(tr) != frameSize {
		t.Fatalf("output length mismatch: got %d/%d want %d", len(tl), len(tr), frameSize)
	}
	// tl must differ from hfl once w_z*gamma*sl is nonzero (post-preskip).
	if tl[frameSize-1] == hfl[frameSize-1] {
		t.Error("FoldHeightPair did not apply any height coupling")
	}
}

func TestApplyDmixGainCrossfades(t *testing.T) {
	frameSize := 300
	in := makeFrame(frameSize, 1.0)
	out := make([]float64, frameSize)
	ApplyDmixGain(out, frameSize, in, 0.5, 2.0)
	for i := 0; i < frameSize; i++ {
		if out[i] != 0.5 {
			t.Fatalf("out[%d] = %v, want 0.5 (frame shorter than preskip uses prev gain throughout)", i, out[i])
		}
	}
}

func TestStepCoeffsTracksWxAcrossCalls(t *testing.T) {
	d := NewDownmixer()
	p := FrameParams{Matrix: MatrixType1, WeightType: WeightUp}

	if _, _, _, _, err := d.stepCoeffs(p); err != nil {
		t.Fatalf("stepCoeffs (1st): %v", err)
	}
	wxAfterFirst := d.wx

	if _, _, _, _, err := d.stepCoeffs(p); err != nil {
		t.Fatalf("stepCoeffs (2nd): %v", err)
	}
	if d.wx <= wxAfterFirst {
		t.Errorf("wx did not advance across successive WeightUp steps: %v -> %v", wxAfterFirst, d.wx)
	}
}
