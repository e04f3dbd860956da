package upmix

import (
	"github.com/openiamf/iamfenc/internal/downmix"
	"github.com/openiamf/iamfenc/internal/layout"
)

func sidePairFor(speakers int) (l, r layout.Channel) {
	if speakers == 7 {
		return layout.ChLSS7, layout.ChRSS7
	}
	return layout.ChLS5, layout.ChRS5
}

// AscendReconstructable is the decode-side mirror of
// downmix.Downmixer.DescendLayer: given a lower rung's already-known
// channels plus the upper rung's directly-coded helper channels (the ones
// every fold step takes as an input rather than produces, e.g. the centre
// channel at 3.1.2), it reconstructs the subset of the upper rung's new
// channels that an algebraic fold actually recovers.
//
// Channels with no inverse fold — Mono from Stereo, or a layout's back
// height once FoldHeightPair has already discarded it on the way down —
// are simply absent from the result. Reconstruction-gain estimation does
// not apply to them: a decoder has no way to rebuild them, so they must
// always be transmitted directly in that rung's own codec substream.
func (r *Reconstructor) AscendReconstructable(p downmix.FrameParams, frameSize int, lowerDesc, upperDesc layout.Descriptor, lowerMap, genuineUpper map[layout.Channel][]float64) (map[layout.Channel][]float64, error) {
	out := make(map[layout.Channel][]float64)

	switch {
	case upperDesc.Speakers == 3 && lowerDesc.Speakers == 2:
		l3, r3, err := r.Reconstruct312FromStereo(p, frameSize, lowerMap[layout.ChL2], lowerMap[layout.ChR2], genuineUpper[layout.ChC3])
		if err != nil {
			return nil, err
		}
		out[layout.ChL3], out[layout.ChR3] = l3, r3

	case upperDesc.Speakers == 5 && lowerDesc.Speakers == 3:
		sl5, sr5, err := r.Reconstruct510FromLayout312(p, frameSize, lowerMap[layout.ChL3], lowerMap[layout.ChR3], genuineUpper[layout.ChL5], genuineUpper[layout.ChR5])
		if err != nil {
			return nil, err
		}
		out[layout.ChLS5], out[layout.ChRS5] = sl5, sr5

	case upperDesc.Speakers == 7 && lowerDesc.Speakers == 5:
		bl7, br7, err := r.Reconstruct710FromLayout510(p, frameSize, lowerMap[layout.ChLS5], lowerMap[layout.ChRS5], genuineUpper[layout.ChLSS7], genuineUpper[layout.ChRSS7])
		if err != nil {
			return nil, err
		}
		out[layout.ChLRS7], out[layout.ChRRS7] = bl7, br7

	case upperDesc.Height == 4 && lowerDesc.Height == 2 && upperDesc.Speakers == lowerDesc.Speakers:
		sl, sr := sidePairFor(lowerDesc.Speakers)
		hl, hr, err := r.ReconstructHeightFromFront(p, frameSize, lowerMap[layout.ChTL3], lowerMap[layout.ChTR3], lowerMap[sl], lowerMap[sr])
		if err != nil {
			return nil, err
		}
		out[layout.ChTL7], out[layout.ChTR7] = hl, hr
	}

	return out, nil
}
