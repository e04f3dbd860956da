package downmix

import (
	"fmt"

	"github.com/openiamf/iamfenc/internal/layout"
)

// sidePair returns the channel IDs of the side pair shared across one
// speaker-count family's layouts: 5.1.x layouts (Layout510/512/514) all
// carry the same ChLS5/ChRS5 identity, and 7.1.x layouts (Layout710/712/714)
// all carry the same ChLSS7/ChRSS7 identity, regardless of how much height
// that particular layout adds.
func sidePair(speakers int) (l, r layout.Channel) {
	if speakers == 7 {
		return layout.ChLSS7, layout.ChRSS7
	}
	return layout.ChLS5, layout.ChRS5
}

// DescendLayer derives one lower rung's genuine channel values from the
// rung directly above it in a Chain, dispatching on the two descriptors'
// Speakers/Height geometry rather than on the literal Tag pair: the same
// fold formula serves every branch of the ladder that shares a geometry
// shape (FoldLayout312FromLayout510, for instance, folds a 5.1.0, 5.1.2 or
// 5.1.4 upper rung alike, since all three carry the same
// ChL5/ChR5/ChLS5/ChRS5 channel identities). This is the live table the
// scalable ladder actually walks at encode time.
func (d *Downmixer) DescendLayer(p FrameParams, frameSize int, upperDesc, lowerDesc layout.Descriptor, upper map[layout.Channel][]float64) (map[layout.Channel][]float64, error) {
	lower := make(map[layout.Channel][]float64, len(lowerDesc.Channels))

	switch {
	case upperDesc.Speakers == 2 && lowerDesc.Speakers == 1:
		lower[layout.ChMono] = d.FoldMonoFromStereo(frameSize, upper[layout.ChL2], upper[layout.ChR2])

	case upperDesc.Speakers == 3 && lowerDesc.Speakers == 2:
		l2, r2, err := d.FoldStereoFromLayout312(p, frameSize, upper[layout.ChL3], upper[layout.ChR3], upper[layout.ChC3])
		if err != nil {
			return nil, err
		}
		lower[layout.ChL2], lower[layout.ChR2] = l2, r2

	case upperDesc.Speakers == 5 && lowerDesc.Speakers == 3:
		l3, r3, err := d.FoldLayout312FromLayout510(p, frameSize, upper[layout.ChL5], upper[layout.ChR5], upper[layout.ChLS5], upper[layout.ChRS5])
		if err != nil {
			return nil, err
		}
		lower[layout.ChL3], lower[layout.ChR3] = l3, r3
		lower[layout.ChC3] = upper[layout.ChC5]
		lower[layout.ChLFE3] = upper[layout.ChLFE5]

	case upperDesc.Speakers == 7 && lowerDesc.Speakers == 5:
		sl5, sr5, err := d.FoldLayout510FromLayout710(p, frameSize, upper[layout.ChLSS7], upper[layout.ChRSS7], upper[layout.ChLRS7], upper[layout.ChRRS7])
		if err != nil {
			return nil, err
		}
		lower[layout.ChLS5], lower[layout.ChRS5] = sl5, sr5
		lower[layout.ChL5] = upper[layout.ChL7]
		lower[layout.ChR5] = upper[layout.ChR7]
		lower[layout.ChC5] = upper[layout.ChC7]
		lower[layout.ChLFE5] = upper[layout.ChLFE7]

	case upperDesc.Height == 4 && lowerDesc.Height == 2 && upperDesc.Speakers == lowerDesc.Speakers:
		sl, sr := sidePair(upperDesc.Speakers)
		tl, tr, err := d.FoldHeightPair(p, frameSize, upper[layout.ChTL7], upper[layout.ChTR7], upper[sl], upper[sr])
		if err != nil {
			return nil, err
		}
		lower[layout.ChTL3], lower[layout.ChTR3] = tl, tr

	case upperDesc.Height == 2 && lowerDesc.Height == 0 && upperDesc.Speakers == lowerDesc.Speakers:
		// The merged height pair has no representation at a layout this
		// flat; nothing to fold here, the passthrough loop below simply
		// won't carry ChTL3/ChTR3 forward since lowerDesc.Channels omits
		// them.

	default:
		return nil, fmt.Errorf("downmix: no ladder step known for %v -> %v", upperDesc.Tag, lowerDesc.Tag)
	}

	for _, ch := range lowerDesc.Channels {
		if _, done := lower[ch]; done {
			continue
		}
		v, ok := upper[ch]
		if !ok {
			return nil, fmt.Errorf("downmix: channel %v needed at %v is not available from %v", ch, lowerDesc.Tag, upperDesc.Tag)
		}
		lower[ch] = v
	}
	return lower, nil
}
