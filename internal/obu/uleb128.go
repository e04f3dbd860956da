package obu

import "fmt"

// EncodeULEB128 appends the ULEB128 encoding of v to dst and returns the
// extended slice. ULEB128 groups 7 bits per byte, least-significant group
// first, with the continuation bit (0x80) set on every byte but the last.
func EncodeULEB128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		dst = append(dst, b)
		return dst
	}
}

// DecodeULEB128 reads a ULEB128-encoded value from the front of buf and
// returns it along with the number of bytes consumed.
func DecodeULEB128(buf []byte) (value uint64, n int, err error) {
	var shift uint
	for n = 0; n < len(buf); n++ {
		b := buf[n]
		if shift >= 64 {
			return 0, 0, fmt.Errorf("obu: ULEB128 value overflows 64 bits")
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, n + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("obu: truncated ULEB128 sequence")
}
