package fixedpoint

import "testing"

func TestQ7_8RoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.5, -3.5, 127.99, -128.0}
	for _, v := range cases {
		enc := EncodeQ7_8(v)
		got := DecodeQ7_8(enc)
		if diff := got - v; diff > 1.0/Q7_8Scale || diff < -1.0/Q7_8Scale {
			t.Errorf("EncodeQ7_8(%v) round-trip = %v, want within one LSB", v, got)
		}
	}
}

func TestEncodeQ0_8Saturation(t *testing.T) {
	if got := EncodeQ0_8(1.0); got != 0xFF {
		t.Errorf("EncodeQ0_8(1.0) = %#x, want 0xFF", got)
	}
	if got := EncodeQ0_8(2.0); got != 0xFF {
		t.Errorf("EncodeQ0_8(2.0) = %#x, want 0xFF (saturated)", got)
	}
	if got := EncodeQ0_8(-1.0); got != 0 {
		t.Errorf("EncodeQ0_8(-1.0) = %#x, want 0", got)
	}
}

func TestEncodeQ0_8NaNClampsToUnity(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	if got := EncodeQ0_8(nan); got != 0xFF {
		t.Errorf("EncodeQ0_8(NaN) = %#x, want 0xFF (clamp to unity)", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 2) != 2 {
		t.Errorf("Clamp(5, 0, 2) should saturate to 2")
	}
	if Clamp(-5, 0, 2) != 0 {
		t.Errorf("Clamp(-5, 0, 2) should saturate to 0")
	}
	if Clamp(1, 0, 2) != 1 {
		t.Errorf("Clamp(1, 0, 2) should be unchanged")
	}
}
