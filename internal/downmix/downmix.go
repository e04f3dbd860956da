package downmix

// PreskipSize is the number of samples, at the start of every frame, that
// must be computed with the *previous* frame's down-mix parameters rather
// than the current frame's — spec §4.2 and §4.4's shared seam-masking rule.
const PreskipSize = 312

// FrameParams is the per-frame, per-layer down-mix parameter set chosen by
// DMPD (spec §3): matrix type, weight type, and the running w_x state.
type FrameParams struct {
	Matrix     MatrixType
	WeightType WeightType
}

// Crossfade evaluates prevFn for samples [0, PreskipSize) and currFn for the
// remainder of a frame of length frameSize, writing into out. Both down-mix
// (§4.2) and up-mix (§4.4) mask parameter-change seams this way, so the
// split is implemented once here instead of duplicated per direction.
func Crossfade(out []float64, frameSize int, prevFn, currFn func(i int) float64) {
	split := PreskipSize
	if split > frameSize {
		split = frameSize
	}
	for i := 0; i < split; i++ {
		out[i] = prevFn(i)
	}
	for i := split; i < frameSize; i++ {
		out[i] = currFn(i)
	}
}

// Downmixer renders each lower layer of a scalable chain from the layer
// above it, tracking the running weight state (w_x) and the previous
// frame's parameters so Crossfade can mask seams on matrix/weight changes.
type Downmixer struct {
	wx       float64
	lastGeom FrameParams
	haveLast bool
}

// NewDownmixer returns a Downmixer with w_x initialised to 0 (the weight
// ladder's resting state).
func NewDownmixer() *Downmixer {
	return &Downmixer{}
}

// stepCoeffs resolves the (previous, current) coefficient tuples and
// (previous, current) w_z for one ladder step, advancing w_x.
func (d *Downmixer) stepCoeffs(p FrameParams) (prevCoef, curCoef Coefficients, prevWz, curWz float64, err error) {
	last := d.lastGeom
	if !d.haveLast {
		last = p
	}

	prevCoef, err = Lookup(last.Matrix)
	if err != nil {
		return
	}
	curCoef, err = Lookup(p.Matrix)
	if err != nil {
		return
	}

	prevWz, _ = CalcWV2(last.WeightType, d.wx)
	curWz, d.wx = CalcWV2(p.WeightType, d.wx)

	d.lastGeom = p
	d.haveLast = true
	return
}

// FoldStereoFromLayout312 descends 3.1.2 -> Stereo: L2 = L3 + delta*C,
// R2 = R3 + delta*C. This is the algebraic inverse of upmix_s2to3 in the
// original up-mixer source (L3 = L2 - delta*C), so the down-mix/up-mix
// round trip in spec §8 invariant 1 holds by construction.
func (d *Downmixer) FoldStereoFromLayout312(p FrameParams, frameSize int, l3, r3, c []float64) (l2, r2 []float64, err error) {
	prevCoef, curCoef, _, _, err := d.stepCoeffs(p)
	if err != nil {
		return nil, nil, err
	}

	l2 = make([]float64, frameSize)
	r2 = make([]float64, frameSize)

	Crossfade(l2, frameSize,
		func(i int) float64 { return l3[i] + prevCoef.Delta*c[i] },
		func(i int) float64 { return l3[i] + curCoef.Delta*c[i] },
	)
	Crossfade(r2, frameSize,
		func(i int) float64 { return r3[i] + prevCoef.Delta*c[i] },
		func(i int) float64 { return r3[i] + curCoef.Delta*c[i] },
	)
	return l2, r2, nil
}

// FoldLayout312FromLayout510 descends 5.1.x -> 3.1.2's spatial channels:
// L3 = L5 + delta*SL5, R3 = R5 + delta*SR5 (inverse of upmix_s3to5's
// SL5 = (L3-L5)/delta).
func (d *Downmixer) FoldLayout312FromLayout510(p FrameParams, frameSize int, l5, r5, sl5, sr5 []float64) (l3, r3 []float64, err error) {
	prevCoef, curCoef, _, _, err := d.stepCoeffs(p)
	if err != nil {
		return nil, nil, err
	}

	l3 = make([]float64, frameSize)
	r3 = make([]float64, frameSize)

	Crossfade(l3, frameSize,
		func(i int) float64 { return l5[i] + prevCoef.Delta*sl5[i] },
		func(i int) float64 { return l5[i] + curCoef.Delta*sl5[i] },
	)
	Crossfade(r3, frameSize,
		func(i int) float64 { return r5[i] + prevCoef.Delta*sr5[i] },
		func(i int) float64 { return r5[i] + curCoef.Delta*sr5[i] },
	)
	return l3, r3, nil
}

// FoldLayout510FromLayout710 descends 7.1.x -> 5.1's side channels:
// SL5 = SL7*alpha + BL7*beta, SR5 = SR7*alpha + BR7*beta (inverse of
// upmix_s5to7's BL7 = (SL5 - SL7*alpha)/beta).
func (d *Downmixer) FoldLayout510FromLayout710(p FrameParams, frameSize int, sl7, sr7, bl7, br7 []float64) (sl5, sr5 []float64, err error) {
	prevCoef, curCoef, _, _, err := d.stepCoeffs(p)
	if err != nil {
		return nil, nil, err
	}

	sl5 = make([]float64, frameSize)
	sr5 = make([]float64, frameSize)

	Crossfade(sl5, frameSize,
		func(i int) float64 { return sl7[i]*prevCoef.Alpha + bl7[i]*prevCoef.Beta },
		func(i int) float64 { return sl7[i]*curCoef.Alpha + bl7[i]*curCoef.Beta },
	)
	Crossfade(sr5, frameSize,
		func(i int) float64 { return sr7[i]*prevCoef.Alpha + br7[i]*prevCoef.Beta },
		func(i int) float64 { return sr7[i]*curCoef.Alpha + br7[i]*curCoef.Beta },
	)
	return sl5, sr5, nil
}

// FoldHeightPair folds the 5.1 side pair into the front-height pair to
// form the mixed top pair, e.g. 5.1.4 -> 5.1.2:
// TL = HFL + gamma*w_z*SL, TR = HFR + gamma*w_z*SR (inverse of
// upmix_hf2to2's mixed_h = TL - gamma*w_z*SL). The back-height pair does
// not enter this fold.
func (d *Downmixer) FoldHeightPair(p FrameParams, frameSize int, hfl, hfr, sl, sr []float64) (tl, tr []float64, err error) {
	prevCoef, curCoef, prevWz, curWz, err := d.stepCoeffs(p)
	if err != nil {
		return nil, nil, err
	}

	tl = make([]float64, frameSize)
	tr = make([]float64, frameSize)

	Crossfade(tl, frameSize,
		func(i int) float64 { return hfl[i] + prevCoef.Gamma*prevWz*sl[i] },
		func(i int) float64 { return hfl[i] + curCoef.Gamma*curWz*sl[i] },
	)
	Crossfade(tr, frameSize,
		func(i int) float64 { return hfr[i] + prevCoef.Gamma*prevWz*sr[i] },
		func(i int) float64 { return hfr[i] + curCoef.Gamma*curWz*sr[i] },
	)
	return tl, tr, nil
}

// FoldHeightBackPair descends a full 4-height layout's back height into the
// shared front-height difference, e.g. 7.1.4's back height relative to its
// front height (inverse of upmix_h2to4's mixed_h_b = (HL-HFL)/gamma).
func (d *Downmixer) FoldHeightBackPair(p FrameParams, frameSize int, hl, hr, hbl, hbr []float64) (hfl, hfr []float64, err error) {
	prevCoef, curCoef, _, _, err := d.stepCoeffs(p)
	if err != nil {
		return nil, nil, err
	}

	hfl = make([]float64, frameSize)
	hfr = make([]float64, frameSize)

	Crossfade(hfl, frameSize,
		func(i int) float64 { return hl[i] - prevCoef.Gamma*hbl[i] },
		func(i int) float64 { return hl[i] - curCoef.Gamma*hbl[i] },
	)
	Crossfade(hfr, frameSize,
		func(i int) float64 { return hr[i] - prevCoef.Gamma*hbr[i] },
		func(i int) float64 { return hr[i] - curCoef.Gamma*hbr[i] },
	)
	return hfl, hfr, nil
}

// FoldMonoFromStereo descends Stereo -> Mono by simple averaging. Mono
// never participates in the matrix-type/weight-type system described by
// upmixer.c (the original has no up-mix counterpart for it at all, since a
// mono signal cannot be reconstructed back into a stereo pair), so unlike
// every other fold step this one is not the algebraic inverse of a
// specific original_source formula — it follows the conventional Lt+Rt
// mono-sum down-mix instead, and is a dead end for reconstruction-gain
// estimation (there is nothing to ascend back from).
func (d *Downmixer) FoldMonoFromStereo(frameSize int, l2, r2 []float64) []float64 {
	mono := make([]float64, frameSize)
	for i := 0; i < frameSize; i++ {
		mono[i] = 0.5 * (l2[i] + r2[i])
	}
	return mono
}

// ApplyDmixGain multiplies each channel by the frame's down-mix gain
// (linear, already-decoded Q7.8 dB converted by the caller), crossfaded at
// PreskipSize between the previous and current frame's gain; the matching
// division on the decode side is upmix.ApplyDmixGain, mirroring upmix_gain
// in the original source.
func ApplyDmixGain(out []float64, frameSize int, in []float64, prevGainLinear, curGainLinear float64) {
	Crossfade(out, frameSize,
		func(i int) float64 { return in[i] * prevGainLinear },
		func(i int) float64 { return in[i] * curGainLinear },
	)
}
