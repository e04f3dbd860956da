package codec

import (
	"fmt"

	"github.com/thesyncim/gopus/encoder"
)

// opusBackend wraps one gopus encoder.Encoder per substream (coupled or
// mono), grounded on encoder.NewEncoder/(*Encoder).Encode in
// thesyncim/gopus. We deliberately bypass gopus's own multistream package:
// its self-delimiting RFC 6716 Appendix B framing is a different wire
// format from the ULEB128 length-prefix framing spec §4.3 mandates, so
// MultiStream builds the framing itself from one backend per substream.
type opusBackend struct {
	enc      *encoder.Encoder
	channels int
}

const opusDelaySamples = 312 // matches PreskipSize: Opus's standard pre-skip.

func newOpusBackend(sampleRate, channels int) (Backend, error) {
	return &opusBackend{channels: channels}, nil
}

func (b *opusBackend) Open(sampleRate, channels int) error {
	b.channels = channels
	b.enc = encoder.NewEncoder(sampleRate, channels)
	return nil
}

func (b *opusBackend) Encode(pcm []float64, frameSize int) ([]byte, error) {
	if b.enc == nil {
		return nil, fmt.Errorf("%w: opus backend not opened", ErrCodecFailure)
	}
	pkt, err := b.enc.Encode(pcm, frameSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecFailure, err)
	}
	return pkt, nil
}

func (b *opusBackend) Close() error {
	b.enc = nil
	return nil
}

func (b *opusBackend) DelaySamples() int { return opusDelaySamples }
