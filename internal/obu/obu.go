package obu

// Type is the IAMF OBU type tag carried in the header byte's top bits.
type Type uint8

const (
	TypeCodecConfig Type = iota + 1
	TypeAudioElement
	TypeMixPresentation
	TypeParameterBlock
	TypeTemporalDelimiter
	TypeAudioFrame
	TypeAudioFrameID0
	TypeSequenceHeader Type = 31
)

// Header is the per-OBU leading byte and its associated flags, per spec
// §3 ("OBU. Tagged byte string with fields {obu_type, redundant_copy_flag,
// trimming_status_flag, extension_flag, payload}, length-prefixed.").
type Header struct {
	Type        Type
	Redundant   bool
	HasTrimming bool
	HasExt      bool
}

// byte packs the header into the single leading byte described in spec
// §4.7: (obu_type<<3) | (redundant<<2) | (trim<<1) | ext.
func (h Header) byte() byte {
	var b byte
	b = byte(h.Type) << 3
	if h.Redundant {
		b |= 1 << 2
	}
	if h.HasTrimming {
		b |= 1 << 1
	}
	if h.HasExt {
		b |= 1
	}
	return b
}

// OBU is a fully assembled Open Bitstream Unit ready for serialization.
type OBU struct {
	Header  Header
	Payload []byte
}

// Encode serializes the OBU as header byte, ULEB128 payload length, then
// payload, appending to dst and returning the extended slice.
func Encode(dst []byte, o OBU) []byte {
	dst = append(dst, o.Header.byte())
	dst = EncodeULEB128(dst, uint64(len(o.Payload)))
	dst = append(dst, o.Payload...)
	return dst
}

// Decode reads one OBU from the front of buf, returning it and the number
// of bytes consumed. The package tests use it for a single-OBU
// encode/decode round trip.
func Decode(buf []byte) (OBU, int, error) {
	if len(buf) < 1 {
		return OBU{}, 0, errTruncated("obu header")
	}
	headerByte := buf[0]
	h := Header{
		Type:        Type(headerByte >> 3),
		Redundant:   headerByte&(1<<2) != 0,
		HasTrimming: headerByte&(1<<1) != 0,
		HasExt:      headerByte&1 != 0,
	}

	length, n, err := DecodeULEB128(buf[1:])
	if err != nil {
		return OBU{}, 0, err
	}
	start := 1 + n
	end := start + int(length)
	if end > len(buf) {
		return OBU{}, 0, errTruncated("obu payload")
	}

	payload := append([]byte(nil), buf[start:end]...)
	return OBU{Header: h, Payload: payload}, end, nil
}

type truncatedError string

func (e truncatedError) Error() string { return "obu: truncated " + string(e) }

func errTruncated(what string) error { return truncatedError(what) }
