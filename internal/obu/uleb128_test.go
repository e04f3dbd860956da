package obu

import "testing"

func TestULEB128RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 32, 1<<32 - 1, 0xFFFFFFFF}
	for _, v := range values {
		enc := EncodeULEB128(nil, v)
		got, n, err := DecodeULEB128(enc)
		if err != nil {
			t.Fatalf("DecodeULEB128(encode(%d)): %v", v, err)
		}
		if n != len(enc) {
			t.Errorf("DecodeULEB128(encode(%d)) consumed %d bytes, want %d", v, n, len(enc))
		}
		if got != v {
			t.Errorf("DecodeULEB128(encode(%d)) = %d, want %d", v, got, v)
		}
	}
}

func TestULEB128FullRangeSample(t *testing.T) {
	// Exhaustive over [0, 2^32-1] is too slow; sample across byte-length
	// boundaries instead, which is where ULEB128 bugs concentrate.
	for shift := 0; shift < 32; shift++ {
		v := uint64(1) << uint(shift)
		enc := EncodeULEB128(nil, v)
		got, _, err := DecodeULEB128(enc)
		if err != nil || got != v {
			t.Errorf("round-trip failed at n=2^%d: got=%d err=%v", shift, got, err)
		}
	}
}

func TestDecodeULEB128Truncated(t *testing.T) {
	if _, _, err := DecodeULEB128([]byte{0x80, 0x80}); err == nil {
		t.Error("DecodeULEB128 on truncated input should return an error")
	}
}
