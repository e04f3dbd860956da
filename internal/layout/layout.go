// Package layout holds the closed set of IAMF channel layouts, their
// speaker/LFE/height geometry, and the scalable-ladder table that lists the
// "new channels" introduced at each step of a layout chain. Everything here
// is a pre-defined table lookup per spec §4.1 ("no inference").
package layout

import "fmt"

// Tag identifies one of the closed set of channel layouts an Audio Element
// may target.
type Tag int

const (
	Mono Tag = iota
	Stereo
	Layout312 // 3.1.2
	Layout510 // 5.1.0
	Layout512 // 5.1.2
	Layout514 // 5.1.4
	Layout710 // 7.1.0
	Layout712 // 7.1.2
	Layout714 // 7.1.4
	Binaural
)

func (t Tag) String() string {
	switch t {
	case Mono:
		return "Mono"
	case Stereo:
		return "Stereo"
	case Layout312:
		return "3.1.2"
	case Layout510:
		return "5.1.0"
	case Layout512:
		return "5.1.2"
	case Layout514:
		return "5.1.4"
	case Layout710:
		return "7.1.0"
	case Layout712:
		return "7.1.2"
	case Layout714:
		return "7.1.4"
	case Binaural:
		return "Binaural"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// Channel is a symbolic enc-channel identifier: every distinct speaker
// position across all supported layouts, plus the synthetic "mixed"
// intermediate channels used mid-ladder (e.g. MixedS5L, the L component
// that, added to L5, reconstructs L3).
type Channel int

const (
	ChMono Channel = iota
	ChL2
	ChR2
	ChL3
	ChR3
	ChC3
	ChLFE3
	ChTL3
	ChTR3
	ChL5
	ChR5
	ChC5
	ChLFE5
	ChLS5
	ChRS5
	ChL7
	ChR7
	ChC7
	ChLFE7
	ChLSS7
	ChRSS7
	ChLRS7
	ChRRS7
	ChTL7
	ChTR7
	ChTLS7
	ChTRS7

	// Synthetic mixed channels bridging successive layers of the ladder.
	ChMixedS5L
	ChMixedS5R
	ChMixedS7L
	ChMixedS7R
	ChMixedH2L
	ChMixedH2R
	ChMixedH4FL
	ChMixedH4FR
	ChMixedH4BL
	ChMixedH4BR
)

// Descriptor is the static geometry of a channel layout: its ordered list
// of enc-channel identifiers (wire encoding order) plus speaker/LFE/height
// counts used by the scalable-ladder invariant.
type Descriptor struct {
	Tag      Tag
	Channels []Channel
	Speakers int // S(n)
	Sub      int // W(n)
	Height   int // H(n)
}

// descriptors is the single source of truth for every layout's geometry.
// Coupled pairs are listed adjacently (L before R) so §4.1's coupling rule
// ("L/R siblings encode as a two-channel coupled sub-stream") can derive
// pairing purely from adjacency.
var descriptors = map[Tag]Descriptor{
	Mono:      {Tag: Mono, Channels: []Channel{ChMono}, Speakers: 1, Sub: 0, Height: 0},
	Stereo:    {Tag: Stereo, Channels: []Channel{ChL2, ChR2}, Speakers: 2, Sub: 0, Height: 0},
	Layout312: {Tag: Layout312, Channels: []Channel{ChL3, ChR3, ChC3, ChLFE3, ChTL3, ChTR3}, Speakers: 3, Sub: 1, Height: 2},
	Layout510: {Tag: Layout510, Channels: []Channel{ChL5, ChR5, ChC5, ChLFE5, ChLS5, ChRS5}, Speakers: 5, Sub: 1, Height: 0},
	Layout512: {Tag: Layout512, Channels: []Channel{ChL5, ChR5, ChC5, ChLFE5, ChLS5, ChRS5, ChTL3, ChTR3}, Speakers: 5, Sub: 1, Height: 2},
	Layout514: {Tag: Layout514, Channels: []Channel{ChL5, ChR5, ChC5, ChLFE5, ChLS5, ChRS5, ChTL7, ChTR7, ChTLS7, ChTRS7}, Speakers: 5, Sub: 1, Height: 4},
	Layout710: {Tag: Layout710, Channels: []Channel{ChL7, ChR7, ChC7, ChLFE7, ChLSS7, ChRSS7, ChLRS7, ChRRS7}, Speakers: 7, Sub: 1, Height: 0},
	Layout712: {Tag: Layout712, Channels: []Channel{ChL7, ChR7, ChC7, ChLFE7, ChLSS7, ChRSS7, ChLRS7, ChRRS7, ChTL3, ChTR3}, Speakers: 7, Sub: 1, Height: 2},
	Layout714: {Tag: Layout714, Channels: []Channel{ChL7, ChR7, ChC7, ChLFE7, ChLSS7, ChRSS7, ChLRS7, ChRRS7, ChTL7, ChTR7, ChTLS7, ChTRS7}, Speakers: 7, Sub: 1, Height: 4},
	Binaural:  {Tag: Binaural, Channels: []Channel{ChL2, ChR2}, Speakers: 2, Sub: 0, Height: 0},
}

// Lookup returns the static Descriptor for tag.
func Lookup(tag Tag) (Descriptor, error) {
	d, ok := descriptors[tag]
	if !ok {
		return Descriptor{}, fmt.Errorf("layout: unknown tag %v", tag)
	}
	return d, nil
}

// Chain is an ordered, nested sequence of layouts CL_0, ..., CL_k = CL_in as
// described in spec §3 ("Audio Element"). ValidateLadder applies the same
// channel-count rule to every tag, Binaural included.
type Chain []Tag

// ValidateLadder checks the scalable-ladder invariant from spec §3:
// S(n+1) >= S(n) && W(n+1) >= W(n) && H(n+1) >= H(n), and not all equal,
// for every successive pair in the chain.
func ValidateLadder(chain Chain) error {
	for i := 0; i+1 < len(chain); i++ {
		a, err := Lookup(chain[i])
		if err != nil {
			return err
		}
		b, err := Lookup(chain[i+1])
		if err != nil {
			return err
		}
		if b.Speakers < a.Speakers || b.Sub < a.Sub || b.Height < a.Height {
			return fmt.Errorf("layout: chain step %v -> %v violates monotone ladder invariant", chain[i], chain[i+1])
		}
		if b.Speakers == a.Speakers && b.Sub == a.Sub && b.Height == a.Height {
			return fmt.Errorf("layout: chain step %v -> %v introduces no new channels", chain[i], chain[i+1])
		}
	}
	return nil
}

// NewChannels returns the ordered list of channels present in next but not
// in prev, in next's wire encoding order, per spec §4.1's contract.
func NewChannels(prev, next Tag) ([]Channel, error) {
	prevDesc, err := Lookup(prev)
	if err != nil {
		return nil, err
	}
	nextDesc, err := Lookup(next)
	if err != nil {
		return nil, err
	}

	have := make(map[Channel]bool, len(prevDesc.Channels))
	for _, ch := range prevDesc.Channels {
		have[ch] = true
	}

	var fresh []Channel
	for _, ch := range nextDesc.Channels {
		if !have[ch] {
			fresh = append(fresh, ch)
		}
	}
	return fresh, nil
}

// CoupledPairs groups a layout's channel list into coupled (L/R adjacent)
// pairs and leftover mono channels, per spec §4.1's coupling rule. Pairs are
// returned as [2]Channel in encoding order; mono channels follow in order.
func CoupledPairs(tag Tag) (pairs [][2]Channel, mono []Channel, err error) {
	d, err := Lookup(tag)
	if err != nil {
		return nil, nil, err
	}

	isLeft := map[Channel]bool{
		ChL2: true, ChL3: true, ChL5: true, ChL7: true,
		ChTL3: true, ChTL7: true, ChLS5: true, ChLSS7: true, ChLRS7: true, ChTLS7: true,
	}
	rightOf := map[Channel]Channel{
		ChL2: ChR2, ChL3: ChR3, ChL5: ChR5, ChL7: ChR7,
		ChTL3: ChTR3, ChTL7: ChTR7, ChLS5: ChRS5, ChLSS7: ChRSS7, ChLRS7: ChRRS7, ChTLS7: ChTRS7,
	}

	consumed := make(map[Channel]bool, len(d.Channels))
	for i, ch := range d.Channels {
		if consumed[ch] {
			continue
		}
		if isLeft[ch] {
			partner := rightOf[ch]
			// Require the partner to be adjacent, matching the wire order
			// convention documented on Descriptor.
			if i+1 < len(d.Channels) && d.Channels[i+1] == partner {
				pairs = append(pairs, [2]Channel{ch, partner})
				consumed[ch] = true
				consumed[partner] = true
				continue
			}
		}
		if !consumed[ch] {
			mono = append(mono, ch)
			consumed[ch] = true
		}
	}
	return pairs, mono, nil
}
