package codec

import (
	"fmt"

	aac "github.com/llehouerou/go-aac"
)

// aacBackend wraps go-aac's Decoder for its configuration surface only:
// SampleRate/Channels/FrameLength once SetConfiguration has run; its
// FrameLength is what DelaySamples reports. go-aac ships
// no encode path at all upstream (its own source marks most of the
// decoder's internals "//nolint:unused // ... incrementally implemented"),
// so Encode here returns ErrCodecFailure rather than fabricate one; see
// DESIGN.md for the reasoning.
type aacBackend struct {
	dec      *aac.Decoder
	channels int
}

func newAACBackend(sampleRate, channels int) (Backend, error) {
	return &aacBackend{channels: channels}, nil
}

func (b *aacBackend) Open(sampleRate, channels int) error {
	b.channels = channels
	b.dec = aac.NewDecoder()
	cfg := b.dec.Config()
	cfg.DefSampleRate = uint32(sampleRate)
	cfg.DefObjectType = aac.ObjectTypeMain
	b.dec.SetConfiguration(cfg)
	return nil
}

func (b *aacBackend) Encode(pcm []float64, frameSize int) ([]byte, error) {
	return nil, fmt.Errorf("%w: no pure-Go AAC-LC encoder available in this build", ErrCodecFailure)
}

func (b *aacBackend) Close() error {
	if b.dec != nil {
		b.dec.Close()
		b.dec = nil
	}
	return nil
}

func (b *aacBackend) DelaySamples() int {
	if b.dec == nil {
		return 0
	}
	return int(b.dec.FrameLength())
}
