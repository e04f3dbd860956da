package upmix

import (
	"math"
	"testing"

	"github.com/openiamf/iamfenc/internal/downmix"
)

func makeFrame(frameSize int, val float64) []float64 {
	out := make([]float64, frameSize)
	for i := range out {
		out[i] = val
	}
	return out
}

func maxAbsDiff(a, b []float64, from int) float64 {
	var m float64
	for i := from; i < len(a); i++ {
		d := math.Abs(a[i] - b[i])
		if d > m {
			m = d
		}
	}
	return m
}

// TestDownmixUpmixRoundTrip exercises spec invariant 1 (§8.1): down-mixing
// then up-mixing the 3.1.2 -> Stereo step reconstructs the original L3/R3
// to single-ULP tolerance once past PreskipSize.
func TestDownmixUpmixRoundTrip(t *testing.T) {
	frameSize := 960
	l3 := makeFrame(frameSize, 0.37)
	r3 := makeFrame(frameSize, -0.21)
	c := makeFrame(frameSize, 0.55)

	p := downmix.FrameParams{Matrix: downmix.MatrixType2, WeightType: downmix.WeightDown}

	dm := downmix.NewDownmixer()
	l2, r2, err := dm.FoldStereoFromLayout312(p, frameSize, l3, r3, c)
	if err != nil {
		t.Fatalf("FoldStereoFromLayout312: %v", err)
	}

	um := NewReconstructor()
	l3Got, r3Got, err := um.Reconstruct312FromStereo(p, frameSize, l2, r2, c)
	if err != nil {
		t.Fatalf("Reconstruct312FromStereo: %v", err)
	}

	if d := maxAbsDiff(l3Got, l3, PreskipSize); d > 1e-9 {
		t.Errorf("L3 round trip max diff = %v, want ~0", d)
	}
	if d := maxAbsDiff(r3Got, r3, PreskipSize); d > 1e-9 {
		t.Errorf("R3 round trip max diff = %v, want ~0", d)
	}
}

func TestReconstruct510FromLayout312RoundTrip(t *testing.T) {
	frameSize := 960
	l5 := makeFrame(frameSize, 0.1)
	r5 := makeFrame(frameSize, 0.12)
	sl5 := makeFrame(frameSize, 0.4)
	sr5 := makeFrame(frameSize, -0.3)

	p := downmix.FrameParams{Matrix: downmix.MatrixType1, WeightType: downmix.WeightUp}

	dm := downmix.NewDownmixer()
	l3, r3, err := dm.FoldLayout312FromLayout510(p, frameSize, l5, r5, sl5, sr5)
	if err != nil {
		t.Fatalf("FoldLayout312FromLayout510: %v", err)
	}

	um := NewReconstructor()
	sl5Got, sr5Got, err := um.Reconstruct510FromLayout312(p, frameSize, l3, r3, l5, r5)
	if err != nil {
		t.Fatalf("Reconstruct510FromLayout312: %v", err)
	}

	if d := maxAbsDiff(sl5Got, sl5, PreskipSize); d > 1e-9 {
		t.Errorf("SL5 round trip max diff = %v, want ~0", d)
	}
	if d := maxAbsDiff(sr5Got, sr5, PreskipSize); d > 1e-9 {
		t.Errorf("SR5 round trip max diff = %v, want ~0", d)
	}
}

func TestApplyDmixGainRoundTrip(t *testing.T) {
	frameSize := 960
	in := makeFrame(frameSize, 2.0)
	folded := make([]float64, frameSize)
	downmix.ApplyDmixGain(folded, frameSize, in, 0.5, 0.8)

	restored := make([]float64, frameSize)
	ApplyDmixGain(restored, frameSize, folded, 0.5, 0.8)

	if d := maxAbsDiff(restored, in, 0); d > 1e-9 {
		t.Errorf("ApplyDmixGain round trip max diff = %v, want ~0", d)
	}
}

func TestHannWindowsComplementary(t *testing.T) {
	start, stop := HannWindows()
	for i := range start {
		if d := math.Abs(start[i] + stop[i] - 1.0); d > 1e-9 {
			t.Fatalf("start[%d]+stop[%d] = %v, want 1.0", i, i, start[i]+stop[i])
		}
	}
	if start[0] != 0 {
		t.Errorf("start[0] = %v, want 0", start[0])
	}
	if d := math.Abs(start[len(start)-1] - 1.0); d > 1e-9 {
		t.Errorf("start[last] = %v, want 1.0", start[len(start)-1])
	}
}

func TestSmoothingStateBlendsTowardRawScale(t *testing.T) {
	s := NewSmoothingState()
	start, stop := HannWindows()
	chunk := makeFrame(FrameLen, 1.0)

	s.Smooth(0, chunk, 0.5, start, stop)
	for i, v := range chunk {
		if v > 1.0001 {
			t.Fatalf("chunk[%d] = %v, want <= 1.0 after first smoothing pass", i, v)
		}
	}
}

func TestDecodeChunkScaleUnity(t *testing.T) {
	if got := DecodeChunkScale(0xFF); math.Abs(got-1.0) > 1.0/256.0 {
		t.Errorf("DecodeChunkScale(0xFF) = %v, want ~1.0", got)
	}
}

func TestEstimateReconGainIdenticalChannelsIsUnity(t *testing.T) {
	ch := makeFrame(ChunkSize, 0.3)
	if got := EstimateReconGain(ch, ch); got != 0xFF {
		t.Errorf("EstimateReconGain(identical) = %#x, want 0xFF", got)
	}
}

func TestEstimateReconGainCorrectsAmplitudeMismatch(t *testing.T) {
	original := makeFrame(ChunkSize, 0.2)
	reconstructed := makeFrame(ChunkSize, 0.4) // reconstructed runs at 2x amplitude
	got := EstimateReconGain(original, reconstructed)
	want := DecodeChunkScale(got)
	if math.Abs(want-0.5) > 1.0/256.0 {
		t.Errorf("EstimateReconGain gain = %v, want ~0.5", want)
	}
}

func TestEstimateReconGainZeroReconstructionIsUnity(t *testing.T) {
	original := makeFrame(ChunkSize, 0.2)
	reconstructed := make([]float64, ChunkSize)
	if got := EstimateReconGain(original, reconstructed); got != 0xFF {
		t.Errorf("EstimateReconGain(zero recon) = %#x, want 0xFF fallback", got)
	}
}
