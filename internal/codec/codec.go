// Package codec adapts the two sample-format codecs the format supports
// (Opus and AAC-LC) behind one small contract, and implements the
// multi-stream framing spec §4.3 and §4.7 describe: each coupled or mono
// sub-stream's payload is concatenated, every sub-stream prefixed with its
// ULEB128 length, and the prefixes dropped entirely when
// there is exactly one sub-stream.
package codec

import (
	"errors"
	"fmt"

	"github.com/openiamf/iamfenc/internal/obu"
)

// ID identifies a codec as carried in the codec_config OBU, per spec §6.
type ID int

const (
	IDOpus ID = 1
	IDAAC  ID = 2
)

// Config describes one codec substream group: how many of the element's
// channels are coupled (stereo) streams versus mono streams, per spec
// §4.3 ("streams = coupled_streams + mono_streams").
type Config struct {
	ID             ID
	SampleRate     int
	CoupledStreams int
	MonoStreams    int
	FrameSize      int
}

// Streams returns the total substream count.
func (c Config) Streams() int { return c.CoupledStreams + c.MonoStreams }

var (
	// ErrCodecFailure is returned when a backend cannot encode or decode a
	// frame, per the error taxonomy in spec §7.
	ErrCodecFailure = errors.New("codec: operation failed")
	// ErrUnsupportedCodec is returned for an unrecognised codec ID.
	ErrUnsupportedCodec = errors.New("codec: unsupported codec id")
)

// Backend is the open/encode/close contract every codec adapter
// implements, per spec §4.3 and §6.
type Backend interface {
	// Open prepares the backend for a given sample rate and channel count
	// (1 for mono, 2 for a coupled stereo pair).
	Open(sampleRate, channels int) error
	// Encode compresses one frame of interleaved float64 PCM (len ==
	// frameSize*channels) into a single codec packet.
	Encode(pcm []float64, frameSize int) ([]byte, error)
	// Close releases any backend resources.
	Close() error
	// DelaySamples returns the codec's inherent algorithmic delay, used to
	// compute the descriptor's codec_delay field (spec §3).
	DelaySamples() int
}

// NewBackend constructs the Backend for a codec ID, one fresh instance per
// substream (coupled or mono), per spec §4.3.
func NewBackend(id ID, sampleRate, channels int) (Backend, error) {
	switch id {
	case IDOpus:
		return newOpusBackend(sampleRate, channels)
	case IDAAC:
		return newAACBackend(sampleRate, channels)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCodec, id)
	}
}

// MultiStream encodes one frame's worth of PCM across all of a codec
// config's substreams and assembles the wire framing from spec §4.3: every
// substream is ULEB128-length-prefixed, all are concatenated,
// and the prefixes are dropped entirely when there is only one substream.
type MultiStream struct {
	cfg      Config
	backends []Backend
}

// NewMultiStream opens one Backend per substream: CoupledStreams backends
// with channels=2 followed by MonoStreams backends with channels=1,
// matching the substream ordering spec §4.3 implies (coupled streams
// first, then mono).
func NewMultiStream(cfg Config) (*MultiStream, error) {
	if cfg.Streams() < 1 {
		return nil, fmt.Errorf("%w: codec config has zero substreams", ErrCodecFailure)
	}
	ms := &MultiStream{cfg: cfg}
	for i := 0; i < cfg.CoupledStreams; i++ {
		b, err := NewBackend(cfg.ID, cfg.SampleRate, 2)
		if err != nil {
			ms.Close()
			return nil, err
		}
		if err := b.Open(cfg.SampleRate, 2); err != nil {
			ms.Close()
			return nil, err
		}
		ms.backends = append(ms.backends, b)
	}
	for i := 0; i < cfg.MonoStreams; i++ {
		b, err := NewBackend(cfg.ID, cfg.SampleRate, 1)
		if err != nil {
			ms.Close()
			return nil, err
		}
		if err := b.Open(cfg.SampleRate, 1); err != nil {
			ms.Close()
			return nil, err
		}
		ms.backends = append(ms.backends, b)
	}
	return ms, nil
}

// Encode encodes one frame. substreamPCM must have len(substreamPCM) ==
// Streams(), each entry interleaved PCM for that substream's channel
// count (2 for coupled, 1 for mono), length frameSize*channels.
func (ms *MultiStream) Encode(substreamPCM [][]float64, frameSize int) ([]byte, error) {
	if len(substreamPCM) != len(ms.backends) {
		return nil, fmt.Errorf("%w: got %d substream buffers, want %d", ErrCodecFailure, len(substreamPCM), len(ms.backends))
	}

	packets := make([][]byte, len(ms.backends))
	for i, b := range ms.backends {
		pkt, err := b.Encode(substreamPCM[i], frameSize)
		if err != nil {
			return nil, fmt.Errorf("%w: substream %d: %v", ErrCodecFailure, i, err)
		}
		packets[i] = pkt
	}

	if len(packets) == 1 {
		return packets[0], nil
	}

	var out []byte
	for _, pkt := range packets {
		out = obu.EncodeULEB128(out, uint64(len(pkt)))
		out = append(out, pkt...)
	}
	return out, nil
}

// Close closes every opened backend, returning the first error
// encountered (if any) after attempting to close all of them.
func (ms *MultiStream) Close() error {
	var firstErr error
	for _, b := range ms.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DelaySamples returns the common codec delay across all substreams (the
// backends are symmetric, so any one reports the same delay).
func (ms *MultiStream) DelaySamples() int {
	if len(ms.backends) == 0 {
		return 0
	}
	return ms.backends[0].DelaySamples()
}

// DemuxPacket is the decode-side counterpart of MultiStream.Encode's
// framing: it splits a concatenated multi-stream packet back into its
// per-substream payloads, per spec §4.7.
func DemuxPacket(streams int, data []byte) ([][]byte, error) {
	if streams < 1 {
		return nil, fmt.Errorf("%w: streams must be >= 1", ErrCodecFailure)
	}
	if streams == 1 {
		return [][]byte{data}, nil
	}

	out := make([][]byte, 0, streams)
	rest := data
	for i := 0; i < streams; i++ {
		length, n, err := obu.DecodeULEB128(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: substream %d length prefix: %v", ErrCodecFailure, i, err)
		}
		rest = rest[n:]
		if uint64(len(rest)) < length {
			return nil, fmt.Errorf("%w: substream %d: truncated payload", ErrCodecFailure, i)
		}
		out = append(out, rest[:length])
		rest = rest[length:]
	}
	return out, nil
}
