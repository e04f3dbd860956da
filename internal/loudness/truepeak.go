package loudness

import "math"

// oversampleFactor is the minimum oversampling ratio spec §4.6 requires
// for true-peak estimation (">= 4x oversampled polyphase FIR").
const oversampleFactor = 4

// firTapsPerPhase controls the windowed-sinc interpolation kernel's
// length; higher values trade CPU for stop-band rejection. 8 taps per
// phase is enough to catch inter-sample overs without materially
// under-estimating them, per the BS.1770 true-peak annex's guidance of a
// short linear-phase interpolation filter.
const firTapsPerPhase = 8

// TruePeakMeter estimates the true (inter-sample) peak of a signal by
// running it through a 4x polyphase FIR interpolator and tracking the
// maximum absolute value of the upsampled signal, per spec §4.6. No
// example repo in the retrieved pack implements true-peak metering
// directly — the CWBudde loudness meter it is otherwise grounded on
// leaves it as a stated gap ("Simple peak for now, True Peak requires
// oversampling") — so this polyphase interpolator is written fresh,
// using the windowed-sinc design approach the design.Highpass/HighShelf
// filters in the same package use for their own coefficient generation.
type TruePeakMeter struct {
	channels int
	history  [][]float64 // per-channel input ring for the FIR kernel's taps
	phases   [][]float64 // precomputed polyphase coefficient sets
}

// NewTruePeakMeter builds a TruePeakMeter for the given channel count and
// oversample factor (must be >= 4 per spec §4.6; values below 4 are
// clamped up).
func NewTruePeakMeter(channels int, oversample int) *TruePeakMeter {
	if oversample < oversampleFactor {
		oversample = oversampleFactor
	}

	m := &TruePeakMeter{channels: channels}
	m.phases = make([][]float64, oversample)
	kernelLen := firTapsPerPhase * oversample
	centre := float64(kernelLen-1) / 2.0

	for taps := 0; taps < kernelLen; taps++ {
		x := float64(taps) - centre
		sinc := sincNormalized(x / float64(oversample))
		window := 0.5 - 0.5*math.Cos(2*math.Pi*float64(taps)/float64(kernelLen-1)) // Hann
		h := sinc * window
		phase := taps % oversample
		m.phases[phase] = append(m.phases[phase], h)
	}

	m.history = make([][]float64, channels)
	for c := range m.history {
		m.history[c] = make([]float64, firTapsPerPhase)
	}
	return m
}

// sincNormalized computes sin(pi*x)/(pi*x), with sinc(0) = 1.
func sincNormalized(x float64) float64 {
	if x == 0 {
		return 1.0
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Next feeds one input sample for channel ch and returns the maximum
// absolute value among the oversampled points generated for it.
func (m *TruePeakMeter) Next(ch int, sample float64) float64 {
	h := m.history[ch]
	copy(h, h[1:])
	h[len(h)-1] = sample

	peak := 0.0
	for _, coeffs := range m.phases {
		var acc float64
		n := len(coeffs)
		if n > len(h) {
			n = len(h)
		}
		for i := 0; i < n; i++ {
			acc += coeffs[i] * h[len(h)-n+i]
		}
		if v := math.Abs(acc); v > peak {
			peak = v
		}
	}
	return peak
}

// Reset clears all per-channel FIR history.
func (m *TruePeakMeter) Reset() {
	for c := range m.history {
		for i := range m.history[c] {
			m.history[c][i] = 0
		}
	}
}
