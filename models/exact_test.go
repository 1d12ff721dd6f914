package models

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestBKCF_Normalization(t *testing.T) {
	h := testModel(t)
	cases := []struct{ vprev, vnext, dt float64 }{
		{0.04, 0.05, 0.1},
		{0.01, 0.09, 1.0},
		{0.04, 0, 0.5},
		{0, 0.04, 0.5},
	}
	for _, c := range cases {
		phi := h.bkCF(0, c.vprev, c.vnext, c.dt)
		if cmplx.Abs(phi-1) > 1e-9 {
			t.Fatalf("bkCF(0 | %v, %v, %v) = %v, want 1", c.vprev, c.vnext, c.dt, phi)
		}
	}
}

func TestBKCF_Modulus(t *testing.T) {
	h := testModel(t)
	for _, u := range []float64{0.5, 2, 10, 50} {
		m := cmplx.Abs(h.bkCF(u, 0.04, 0.05, 0.25))
		if m > 1+1e-9 {
			t.Fatalf("|bkCF(%v)| = %v > 1", u, m)
		}
	}
}

func TestBKDist_CDFMonotoneAndBounded(t *testing.T) {
	h := testModel(t)
	vprev, vnext, dt := 0.04, 0.05, 0.25
	opts := ExactOptions{}.withDefaults()
	d := h.newBKDist(vprev, vnext, dt, opts)

	if got := d.cdf(0); got != 0 {
		t.Fatalf("cdf(0)=%v, want 0", got)
	}
	if got := d.cdf(-1); got != 0 {
		t.Fatalf("cdf(-1)=%v, want 0", got)
	}

	// The trigonometric expansion is valid on one period, x in
	// [0, pi/freq]; past it the clamp takes over. The truncated series
	// oscillates by a few multiples of TruncationError near the origin,
	// so monotonicity holds only up to that slack.
	span := math.Pi / d.freq
	slack := 10 * opts.TruncationError
	prev := 0.0
	for x := span / 200; x <= span; x += span / 200 {
		p := d.cdf(x)
		if p < 0 || p > 1 {
			t.Fatalf("cdf(%v)=%v outside [0,1]", x, p)
		}
		if p < prev-slack {
			t.Fatalf("cdf not monotone at x=%v: %v < %v", x, p, prev)
		}
		prev = p
	}

	xmax := 10 * dt * (vprev + vnext)
	if got := d.cdf(xmax); got < 0.999 {
		t.Fatalf("cdf(xmax)=%v, expected mass inside the support bound", got)
	}
}

// The CDF mass should concentrate around the conditional mean estimated from
// the characteristic function: roughly half the mass below it.
func TestBKDist_MedianNearMean(t *testing.T) {
	h := testModel(t)
	vprev, vnext, dt := 0.04, 0.04, 0.25
	cf := func(u float64) complex128 { return h.bkCF(u, vprev, vnext, dt) }
	m := real((cf(cfDiffStep) - cf(-cfDiffStep)) / complex(2*cfDiffStep, 0) / 1i)
	if m <= 0 {
		t.Fatalf("conditional mean estimate not positive: %v", m)
	}
	d := h.newBKDist(vprev, vnext, dt, ExactOptions{}.withDefaults())
	p := d.cdf(m)
	if p < 0.2 || p > 0.8 {
		t.Fatalf("cdf(mean)=%v, want near the bulk", p)
	}
}

func TestSimulateExact_SeriesCapReported(t *testing.T) {
	h := testModel(t)
	ens, err := h.Simulate(SchemeExact, 1, 1, 50, SimOptions{
		Seed: 5,
		Exact: ExactOptions{
			TruncationError: 1e-14,
			MaxSeriesTerms:  2,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ens.SeriesCapHits == 0 {
		t.Fatal("term cap overrides must be reported, not swallowed")
	}
}

func TestSimulateExact_DefaultsDoNotHitCap(t *testing.T) {
	h := testModel(t)
	ens, err := h.Simulate(SchemeExact, 1, 1, 200, SimOptions{Seed: 6})
	if err != nil {
		t.Fatal(err)
	}
	if ens.SeriesCapHits != 0 {
		t.Fatalf("default tolerances hit the series cap %d times", ens.SeriesCapHits)
	}
	if ens.InversionFailures != 0 {
		t.Fatalf("CDF inversion ran out of budget %d times", ens.InversionFailures)
	}
}

// One exact step reproduces the terminal law: the sample mean must match the
// forward price and the second moment must match phi(-2i, t) = E[S_T^2]
// within Monte Carlo error.
func TestSimulateExact_TerminalMoments(t *testing.T) {
	if testing.Short() {
		t.Skip("large path count")
	}
	h := testModel(t)
	paths := 10000
	ens, err := h.Simulate(SchemeExact, 1, 1, paths, SimOptions{Seed: 17})
	if err != nil {
		t.Fatal(err)
	}

	var mean, m2 float64
	for _, s := range ens.Terminal() {
		mean += s
		m2 += s * s
	}
	mean /= float64(paths)
	m2 /= float64(paths)

	forward := h.S * math.Exp(h.R*1)
	if !almostEqual(mean, forward, 1.0) {
		t.Fatalf("terminal mean=%v, want forward %v", mean, forward)
	}

	wantM2 := real(h.CharacteristicFunction(-2i, 1))
	if math.Abs(m2-wantM2) > 0.03*wantM2 {
		t.Fatalf("terminal second moment=%v, want %v (from phi(-2i))", m2, wantM2)
	}
}
