package obu

// BitWriter accumulates fields of arbitrary bit width MSB-first into a byte
// stream, per spec §4.7 ("Bit-level packer supports arbitrary bit widths
// with MSB-first accumulation into a byte stream, flushing pad zeros on
// completion.")
type BitWriter struct {
	out     []byte
	cur     byte
	curBits uint // number of valid bits already placed in cur, MSB-aligned
	total   uint64
}

// NewBitWriter returns an empty BitWriter.
func NewBitWriter() *BitWriter {
	return &BitWriter{}
}

// WriteBits writes the low `width` bits of v, most-significant bit first.
func (w *BitWriter) WriteBits(v uint64, width uint) {
	for i := int(width) - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		w.cur |= bit << (7 - w.curBits)
		w.curBits++
		if w.curBits == 8 {
			w.out = append(w.out, w.cur)
			w.cur = 0
			w.curBits = 0
		}
	}
	w.total += uint64(width)
}

// WriteULEB128 writes v as a ULEB128 field. Width is reported in TotalBits
// as the number of bytes emitted times 8 — ULEB128 fields are always
// byte-aligned, so this never straddles a partial byte.
func (w *BitWriter) WriteULEB128(v uint64) {
	bytes := EncodeULEB128(nil, v)
	for _, b := range bytes {
		w.WriteBits(uint64(b), 8)
	}
}

// WriteBytes writes raw bytes verbatim (must be called byte-aligned).
func (w *BitWriter) WriteBytes(b []byte) {
	for _, by := range b {
		w.WriteBits(uint64(by), 8)
	}
}

// TotalBits returns the number of bits written so far, before padding.
func (w *BitWriter) TotalBits() uint64 {
	return w.total
}

// Bytes flushes any partial trailing byte with zero padding and returns the
// complete byte stream. Safe to call multiple times; does not mutate state
// destructively (subsequent WriteBits calls continue correctly).
func (w *BitWriter) Bytes() []byte {
	if w.curBits == 0 {
		return append([]byte(nil), w.out...)
	}
	out := append([]byte(nil), w.out...)
	return append(out, w.cur)
}

// PaddedBitLen returns the total emitted length in bits after padding to a
// whole byte, satisfying the invariant in spec §8.2.
func (w *BitWriter) PaddedBitLen() uint64 {
	return uint64(len(w.Bytes())) * 8
}
