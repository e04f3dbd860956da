// Package paramblock authors the animated-parameter sub-blocks carried in
// parameter_block OBUs (per-element mix gain, output mix gain, down-mix
// parameters, reconstruction gain), per spec §3 and §4.8.
package paramblock

import (
	"fmt"

	"github.com/openiamf/iamfenc/internal/fixedpoint"
	"github.com/openiamf/iamfenc/internal/obu"
)

// Kind selects one of the three animation shapes a segment can take.
type Kind uint8

const (
	KindStep Kind = iota
	KindLinear
	KindBezier
)

// Segment is one sub-block of an animated parameter block: a Step carries
// v0 only, Linear carries v0/v1, Bezier carries v0/v1/vc (the control
// point), per spec §3.
type Segment struct {
	Kind Kind
	V0   float64
	V1   float64
	VC   float64

	// Interval is this segment's duration in samples; ignored on encode
	// when the owning Block's ConstantSegmentInterval is nonzero.
	Interval uint64
}

// Block is one animated parameter block: a duration split into
// num_segments sub-blocks, sharing either a single constant interval or
// an explicit per-segment interval array, per spec §3.
type Block struct {
	// ConstantSegmentInterval, when nonzero, is the shared interval for
	// every segment; Segment.Interval fields are then not serialized.
	ConstantSegmentInterval uint64
	Segments                []Segment
}

var errEmptyBlock = fmt.Errorf("paramblock: block has no segments")

// Encode serializes a Block's payload per spec §4.8: num_segments,
// constant_segment_interval, an optional explicit interval array, then
// each segment's kind tag and signed Q7.8 value(s).
func Encode(b Block) ([]byte, error) {
	if len(b.Segments) == 0 {
		return nil, errEmptyBlock
	}

	w := obu.NewBitWriter()
	w.WriteULEB128(uint64(len(b.Segments)))
	w.WriteULEB128(b.ConstantSegmentInterval)

	if b.ConstantSegmentInterval == 0 {
		for _, seg := range b.Segments {
			w.WriteULEB128(seg.Interval)
		}
	}

	for _, seg := range b.Segments {
		w.WriteBits(uint64(seg.Kind), 2)
		switch seg.Kind {
		case KindStep:
			writeQ7_8(w, seg.V0)
		case KindLinear:
			writeQ7_8(w, seg.V0)
			writeQ7_8(w, seg.V1)
		case KindBezier:
			writeQ7_8(w, seg.V0)
			writeQ7_8(w, seg.V1)
			writeQ7_8(w, seg.VC)
		default:
			return nil, fmt.Errorf("paramblock: invalid segment kind %d", seg.Kind)
		}
	}

	return w.Bytes(), nil
}

func writeQ7_8(w *obu.BitWriter, v float64) {
	w.WriteBits(uint64(uint16(fixedpoint.EncodeQ7_8(v))), 16)
}

// Decode parses a Block payload previously produced by Encode. reader
// walks the byte stream; since ULEB128 fields are byte-aligned but
// per-segment kind tags are not, Decode works directly off the byte slice
// using a small cursor rather than reusing BitWriter's write-only API.
func Decode(buf []byte) (Block, error) {
	r := &reader{buf: buf}

	numSegments, err := r.uleb()
	if err != nil {
		return Block{}, err
	}
	constInterval, err := r.uleb()
	if err != nil {
		return Block{}, err
	}

	intervals := make([]uint64, numSegments)
	if constInterval == 0 {
		for i := range intervals {
			intervals[i], err = r.uleb()
			if err != nil {
				return Block{}, err
			}
		}
	} else {
		for i := range intervals {
			intervals[i] = constInterval
		}
	}

	segs := make([]Segment, numSegments)
	for i := range segs {
		kindBits, err := r.bits(2)
		if err != nil {
			return Block{}, err
		}
		seg := Segment{Kind: Kind(kindBits), Interval: intervals[i]}
		switch seg.Kind {
		case KindStep:
			seg.V0, err = r.q7_8()
		case KindLinear:
			if seg.V0, err = r.q7_8(); err == nil {
				seg.V1, err = r.q7_8()
			}
		case KindBezier:
			if seg.V0, err = r.q7_8(); err == nil {
				if seg.V1, err = r.q7_8(); err == nil {
					seg.VC, err = r.q7_8()
				}
			}
		default:
			err = fmt.Errorf("paramblock: invalid segment kind %d", seg.Kind)
		}
		if err != nil {
			return Block{}, err
		}
		segs[i] = seg
	}

	return Block{ConstantSegmentInterval: constInterval, Segments: segs}, nil
}

// reader is a minimal bit/byte cursor supporting the mixed byte-aligned
// ULEB128 fields and sub-byte kind tags Decode needs.
type reader struct {
	buf     []byte
	bytePos int
	bitPos  uint // 0 = MSB of buf[bytePos] not yet consumed
}

func (r *reader) uleb() (uint64, error) {
	if r.bitPos != 0 {
		return 0, fmt.Errorf("paramblock: ULEB128 field not byte-aligned")
	}
	v, n, err := obu.DecodeULEB128(r.buf[r.bytePos:])
	if err != nil {
		return 0, err
	}
	r.bytePos += n
	return v, nil
}

func (r *reader) bits(width uint) (uint64, error) {
	var v uint64
	for i := uint(0); i < width; i++ {
		if r.bytePos >= len(r.buf) {
			return 0, fmt.Errorf("paramblock: truncated bitstream")
		}
		bit := (r.buf[r.bytePos] >> (7 - r.bitPos)) & 1
		v = (v << 1) | uint64(bit)
		r.bitPos++
		if r.bitPos == 8 {
			r.bitPos = 0
			r.bytePos++
		}
	}
	return v, nil
}

func (r *reader) q7_8() (float64, error) {
	v, err := r.bits(16)
	if err != nil {
		return 0, err
	}
	return fixedpoint.DecodeQ7_8(int16(uint16(v))), nil
}
