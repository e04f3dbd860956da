// Package upmix implements the decode-side reconstruction-gain up-mixer:
// rebuilding the channels a scalable layer dropped during down-mix, using
// the algebraic counterparts of the down-mix folding matrices plus the
// recon-gain smoothing filter, per spec §4.4.
package upmix

import (
	"math"

	"github.com/openiamf/iamfenc/internal/downmix"
	"github.com/openiamf/iamfenc/internal/fixedpoint"
)

// ChunkSize is the energy-comparison window used both by recon-gain
// estimation and by the smoothing filter's per-chunk scale factor, per
// spec §4.4 (CHUNK_SIZE=960 in the original up-mixer).
const ChunkSize = 960

// FrameLen is the sub-block length used by the Hann crossfade inside one
// chunk: CHUNK_SIZE/8, per spec §4.4.
const FrameLen = ChunkSize / 8

// PreskipSize re-exports downmix.PreskipSize: up-mix and down-mix share the
// identical seam-masking boundary within a frame.
const PreskipSize = downmix.PreskipSize

// Reconstructor tracks the running weight state (w_x) and the previous
// frame's down-mix parameters, mirroring downmix.Downmixer on the decode
// side. The original source keeps this same pairing (mdhr_c/mdhr_l plus
// last_weight_state_value_x_prev) inside UpMixer; this type is its Go
// counterpart, scoped to one scalable element.
type Reconstructor struct {
	wx       float64
	lastGeom downmix.FrameParams
	haveLast bool
}

// NewReconstructor returns a Reconstructor with w_x initialised to 0.
func NewReconstructor() *Reconstructor { return &Reconstructor{} }

// step resolves the (previous, current) coefficient tuples and w_z values
// for one ladder step, advancing w_x — the decode-side mirror of
// downmix.Downmixer.stepCoeffs.
func (r *Reconstructor) step(p downmix.FrameParams) (prevCoef, curCoef downmix.Coefficients, prevWz, curWz float64, err error) {
	last := r.lastGeom
	if !r.haveLast {
		last = p
	}
	prevCoef, err = downmix.Lookup(last.Matrix)
	if err != nil {
		return
	}
	curCoef, err = downmix.Lookup(p.Matrix)
	if err != nil {
		return
	}
	prevWz, _ = downmix.CalcWV2(last.WeightType, r.wx)
	curWz, r.wx = downmix.CalcWV2(p.WeightType, r.wx)
	r.lastGeom = p
	r.haveLast = true
	return
}

// Reconstruct312FromStereo rebuilds the 3.1.2 layer's L3/R3 channels from a
// decoded Stereo pair plus the recon-gain-corrected centre channel, the
// forward counterpart of upmix_s2to3: L3 = L2 - delta*C, R3 = R2 - delta*C.
func (r *Reconstructor) Reconstruct312FromStereo(p downmix.FrameParams, frameSize int, l2, r2, c []float64) (l3, r3 []float64, err error) {
	prevCoef, curCoef, _, _, err := r.step(p)
	if err != nil {
		return nil, nil, err
	}

	l3 = make([]float64, frameSize)
	r3 = make([]float64, frameSize)

	downmix.Crossfade(l3, frameSize,
		func(i int) float64 { return l2[i] - prevCoef.Delta*c[i] },
		func(i int) float64 { return l2[i] - curCoef.Delta*c[i] },
	)
	downmix.Crossfade(r3, frameSize,
		func(i int) float64 { return r2[i] - prevCoef.Delta*c[i] },
		func(i int) float64 { return r2[i] - curCoef.Delta*c[i] },
	)
	return l3, r3, nil
}

// Reconstruct510FromLayout312 rebuilds 5.1's side pair from the 3.1.2 pair
// and the 5.1 front pair, the forward counterpart of upmix_s3to5:
// SL5 = (L3 - L5) / delta.
func (r *Reconstructor) Reconstruct510FromLayout312(p downmix.FrameParams, frameSize int, l3, r3, l5, r5 []float64) (sl5, sr5 []float64, err error) {
	prevCoef, curCoef, _, _, err := r.step(p)
	if err != nil {
		return nil, nil, err
	}

	sl5 = make([]float64, frameSize)
	sr5 = make([]float64, frameSize)

	downmix.Crossfade(sl5, frameSize,
		func(i int) float64 { return (l3[i] - l5[i]) / prevCoef.Delta },
		func(i int) float64 { return (l3[i] - l5[i]) / curCoef.Delta },
	)
	downmix.Crossfade(sr5, frameSize,
		func(i int) float64 { return (r3[i] - r5[i]) / prevCoef.Delta },
		func(i int) float64 { return (r3[i] - r5[i]) / curCoef.Delta },
	)
	return sl5, sr5, nil
}

// Reconstruct710FromLayout510 rebuilds 7.1's back pair from the 5.1 side
// pair and the 7.1 side pair, the forward counterpart of upmix_s5to7:
// BL7 = (SL5 - SL7*alpha) / beta.
func (r *Reconstructor) Reconstruct710FromLayout510(p downmix.FrameParams, frameSize int, sl5, sr5, sl7, sr7 []float64) (bl7, br7 []float64, err error) {
	prevCoef, curCoef, _, _, err := r.step(p)
	if err != nil {
		return nil, nil, err
	}

	bl7 = make([]float64, frameSize)
	br7 = make([]float64, frameSize)

	downmix.Crossfade(bl7, frameSize,
		func(i int) float64 { return (sl5[i] - sl7[i]*prevCoef.Alpha) / prevCoef.Beta },
		func(i int) float64 { return (sl5[i] - sl7[i]*curCoef.Alpha) / curCoef.Beta },
	)
	downmix.Crossfade(br7, frameSize,
		func(i int) float64 { return (sr5[i] - sr7[i]*prevCoef.Alpha) / prevCoef.Beta },
		func(i int) float64 { return (sr5[i] - sr7[i]*curCoef.Alpha) / curCoef.Beta },
	)
	return bl7, br7, nil
}

// ReconstructHeightFromFront rebuilds a layout's front-height pair (HL/HR)
// from its mixed top pair and the 5.1 side pair, the inverse of
// downmix.FoldHeightPair and counterpart of upmix_hf2to2:
// HL = TL - gamma*w_z*SL5.
func (r *Reconstructor) ReconstructHeightFromFront(p downmix.FrameParams, frameSize int, tl, tr, sl5, sr5 []float64) (hl, hr []float64, err error) {
	prevCoef, curCoef, prevWz, curWz, err := r.step(p)
	if err != nil {
		return nil, nil, err
	}

	hl = make([]float64, frameSize)
	hr = make([]float64, frameSize)

	downmix.Crossfade(hl, frameSize,
		func(i int) float64 { return tl[i] - prevCoef.Gamma*prevWz*sl5[i] },
		func(i int) float64 { return tl[i] - curCoef.Gamma*curWz*sl5[i] },
	)
	downmix.Crossfade(hr, frameSize,
		func(i int) float64 { return tr[i] - prevCoef.Gamma*prevWz*sr5[i] },
		func(i int) float64 { return tr[i] - curCoef.Gamma*curWz*sr5[i] },
	)
	return hl, hr, nil
}

// ReconstructBackHeight rebuilds a layout's back-height pair (HBL/HBR) from
// the front/back height difference, the forward counterpart of
// upmix_h2to4: HBL = (HL - HFL) / gamma.
func (r *Reconstructor) ReconstructBackHeight(p downmix.FrameParams, frameSize int, hl, hr, hfl, hfr []float64) (hbl, hbr []float64, err error) {
	prevCoef, curCoef, _, _, err := r.step(p)
	if err != nil {
		return nil, nil, err
	}

	hbl = make([]float64, frameSize)
	hbr = make([]float64, frameSize)

	downmix.Crossfade(hbl, frameSize,
		func(i int) float64 { return (hl[i] - hfl[i]) / prevCoef.Gamma },
		func(i int) float64 { return (hl[i] - hfl[i]) / curCoef.Gamma },
	)
	downmix.Crossfade(hbr, frameSize,
		func(i int) float64 { return (hr[i] - hfr[i]) / prevCoef.Gamma },
		func(i int) float64 { return (hr[i] - hfr[i]) / curCoef.Gamma },
	)
	return hbl, hbr, nil
}

// ApplyDmixGain divides each sample by the frame's down-mix gain, inverse
// of the encode-side multiplication in package downmix, exactly as
// upmix_gain divides in the original decode-side source.
func ApplyDmixGain(out []float64, frameSize int, in []float64, prevGainLinear, curGainLinear float64) {
	downmix.Crossfade(out, frameSize,
		func(i int) float64 { return in[i] / prevGainLinear },
		func(i int) float64 { return in[i] / curGainLinear },
	)
}

// SmoothingState holds the exponential scale-factor average per recon-gain
// channel slot, grounded on um->last_sfavg in the original source.
type SmoothingState struct {
	sfavg map[int]float64
}

// NewSmoothingState returns an empty SmoothingState.
func NewSmoothingState() *SmoothingState {
	return &SmoothingState{sfavg: make(map[int]float64)}
}

// smoothingN is the exponential-average time constant from upmix_smooth
// (N=7.0 in the original).
const smoothingN = 7.0

// Smooth applies the recon-gain scale factor to one chunk of one channel,
// blending the previous chunk's smoothed factor with the updated smoothed
// factor (the exponential average of the previous one and rawScale) across
// a Hann-windowed crossfade, per upmix_smooth. channelID
// is an opaque per-channel key used only to index the internal state map.
//
// rawScale is the Q0.8-decoded linear scale for this chunk (silence
// correction, spec §4.4); startWin and stopWin are FrameLen-length Hann
// ramp-in/ramp-out windows supplied by the caller (the original source
// precomputes these once at startup).
func (s *SmoothingState) Smooth(channelID int, chunk []float64, rawScale float64, startWin, stopWin []float64) {
	prev, ok := s.sfavg[channelID]
	if !ok {
		prev = 0
	}
	avg := (2.0/(smoothingN+1.0))*rawScale + (1.0-2.0/(smoothingN+1.0))*prev
	s.sfavg[channelID] = avg

	n := len(chunk)
	if n > len(startWin) {
		n = len(startWin)
	}
	for j := 0; j < n; j++ {
		chunk[j] = chunk[j] * (prev*stopWin[j] + avg*startWin[j])
	}
	for j := n; j < len(chunk); j++ {
		chunk[j] = chunk[j] * avg
	}
}

// DecodeChunkScale converts a Q0.8 recon-gain byte (spec §7) into the
// linear scale factor Smooth expects.
func DecodeChunkScale(q0_8 uint8) float64 {
	return fixedpoint.DecodeQ0_8(q0_8)
}

// EstimateReconGain measures, over one CHUNK_SIZE window, how far an
// algebraically reconstructed channel has drifted from the genuine
// original it stands in for, and returns the Q0.8 byte that best corrects
// it (spec §4.4 steps 2-3: "measure residual energy of the original new
// channel against the reconstructed channel over CHUNK_SIZE and emit the
// per-channel gain that minimizes it").
//
// The original source (upmixer.c:384-403) only shows the consuming side
// of this value — um->mdhr_c.chsilence[layout] is read back out as
// scaleindex and turned into a scale factor via qf_to_float(scaledata, 8)
// (the same Q0.8 format as fixedpoint.DecodeQ0_8). The encoder-side
// computation that fills chsilence in the first place lives in the DMPD
// analysis pipeline, which was not part of the retrieved source, so this
// estimator is built from the general residual-minimization description
// in spec §4.4 rather than copied from a specific original_source file:
// it picks the scalar gain g minimizing sum((original[i] - g*recon[i])^2)
// over the window, the closed-form least-squares solution
// g = <original, recon> / <recon, recon>, then quantizes it to Q0.8.
func EstimateReconGain(original, reconstructed []float64) uint8 {
	n := len(original)
	if len(reconstructed) < n {
		n = len(reconstructed)
	}
	if n == 0 {
		return fixedpoint.EncodeQ0_8(1.0)
	}

	var num, den float64
	for i := 0; i < n; i++ {
		num += original[i] * reconstructed[i]
		den += reconstructed[i] * reconstructed[i]
	}
	if den == 0 {
		return fixedpoint.EncodeQ0_8(1.0)
	}

	gain := fixedpoint.Clamp(num/den, 0.0, 1.0)
	return fixedpoint.EncodeQ0_8(gain)
}

// HannWindows builds the ramp-in (start) and ramp-out (stop) windows used
// by Smooth, each of length FrameLen, satisfying start[j]+stop[j] == 1 for
// an amplitude-complementary crossfade.
func HannWindows() (start, stop []float64) {
	start = make([]float64, FrameLen)
	stop = make([]float64, FrameLen)
	for j := 0; j < FrameLen; j++ {
		t := float64(j) / float64(FrameLen-1)
		ramp := 0.5 - 0.5*math.Cos(t*math.Pi)
		start[j] = ramp
		stop[j] = 1 - ramp
	}
	return start, stop
}
