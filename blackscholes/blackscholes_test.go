package blackscholes

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCallPrice_ReferenceCase(t *testing.T) {
	// S=100, K=100, r=0.05, sigma=0.2, T=1.
	got := CallPrice(100, 100, 0.05, 0.2, 1)
	if !almostEqual(got, 10.450583572185565, 1e-9) {
		t.Fatalf("call price mismatch: got=%v", got)
	}
}

func TestCallPrice_Degenerate(t *testing.T) {
	if got := CallPrice(100, 120, 0.05, 0, 1); !almostEqual(got, math.Max(100-120*math.Exp(-0.05), 0), 1e-12) {
		t.Fatalf("sigma=0 call mismatch: got=%v", got)
	}
	if got := CallPrice(90, 100, 0.05, 0.2, 0); got != 0 {
		t.Fatalf("t=0 OTM call must be intrinsic: got=%v", got)
	}
}

func TestCallIV_RoundTrip(t *testing.T) {
	for _, sigma := range []float64{0.05, 0.2, 0.8} {
		price := CallPrice(100, 110, 0.02, sigma, 0.5)
		iv := CallIV(100, 0.02, price, 0.5, 110)
		if !almostEqual(iv, sigma, 1e-8) {
			t.Fatalf("iv round trip: got=%v want=%v", iv, sigma)
		}
	}
}

func TestCallIV_FailureIsNaN(t *testing.T) {
	cases := []struct {
		name  string
		price float64
	}{
		{"below intrinsic", 1.0},
		{"above spot", 101.0},
		{"nan price", math.NaN()},
	}
	for _, c := range cases {
		if iv := CallIV(100, 0, c.price, 1, 80); !math.IsNaN(iv) {
			t.Fatalf("%s: expected NaN, got %v", c.name, iv)
		}
	}
}
