package models

import (
	"math/cmplx"
	"testing"
)

func testModel(t *testing.T) Heston {
	t.Helper()
	h, err := NewHeston(100, 0.04, 2.0, 0.04, 0.3, -0.7, 0.0)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestCharacteristicFunction_Normalization(t *testing.T) {
	h := testModel(t)
	for _, tt := range []float64{0, 0.01, 0.25, 1, 5, 30} {
		phi := h.CharacteristicFunction(0, tt)
		if cmplx.Abs(phi-1) > 1e-12 {
			t.Fatalf("phi(0, %v) = %v, want 1", tt, phi)
		}
	}
}

func TestCharacteristicFunction_Modulus(t *testing.T) {
	h := testModel(t)
	for _, u := range []float64{0.5, 1, 5, 20, 100} {
		for _, tt := range []float64{0.1, 1, 10} {
			if m := cmplx.Abs(h.CharacteristicFunction(complex(u, 0), tt)); m > 1+1e-12 {
				t.Fatalf("|phi(%v, %v)| = %v > 1", u, tt, m)
			}
		}
	}
}

// The naive CF parameterization jumps across complex-log branch cuts for
// large t; the stable form must be continuous in t. The grid is fine enough
// that smooth variation stays far below the threshold (at u=25 the CF moves
// at most ~0.007 per step of 0.001 for these parameters), so only an O(1)
// branch jump can trip it.
func TestCharacteristicFunction_ContinuityInT(t *testing.T) {
	h, err := NewHeston(100, 0.09, 0.5, 0.09, 1.0, -0.9, 0.02)
	if err != nil {
		t.Fatal(err)
	}
	const step = 0.001
	for _, u := range []float64{2, 10, 25} {
		prev := h.CharacteristicFunction(complex(u, 0), 0.05)
		for tt := 0.05 + step; tt <= 20; tt += step {
			cur := h.CharacteristicFunction(complex(u, 0), tt)
			if cmplx.Abs(cur-prev) > 0.2 {
				t.Fatalf("phi(%v, t) jumps near t=%v: %v -> %v", u, tt, prev, cur)
			}
			prev = cur
		}
	}
}
