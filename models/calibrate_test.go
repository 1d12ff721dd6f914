package models

import (
	"math"
	"testing"
)

// Round trip: implied vols generated from a known parameter set must be
// recovered by calibration to within a small tolerance, checked in implied
// vol space (parameter space is famously flat in kappa/sigma).
func TestCalibrate_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("optimizer run")
	}
	truth := testModel(t)
	strikes := []float64{85, 90, 95, 100, 105, 110, 115}
	expiries := []float64{1}
	smile, err := truth.ImpliedVols(expiries, strikes)
	if err != nil {
		t.Fatal(err)
	}

	fitted, res, err := Calibrate(expiries, strikes, smile, truth.S, truth.R, CalibrateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil {
		t.Fatal("missing diagnostics")
	}

	refit, err := fitted.ImpliedVols(expiries, strikes)
	if err != nil {
		t.Fatal(err)
	}
	for i := range smile {
		if math.Abs(refit[i]-smile[i]) > 5e-3 {
			t.Fatalf("k=%v: refit iv=%v market iv=%v (objective=%v, status=%q)",
				strikes[i], refit[i], smile[i], res.Objective, res.Status)
		}
	}
}

func TestCalibrate_BoundsRespected(t *testing.T) {
	if testing.Short() {
		t.Skip("optimizer run")
	}
	truth := testModel(t)
	strikes := []float64{90, 100, 110}
	smile, err := truth.ImpliedVols([]float64{0.5}, strikes)
	if err != nil {
		t.Fatal(err)
	}
	fitted, res, err := Calibrate([]float64{0.5}, strikes, smile, truth.S, truth.R, CalibrateOptions{
		Method:        "diffevo",
		MaxIterations: 15,
		Seed:          3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != "diffevo" {
		t.Fatalf("method: %q", res.Method)
	}
	if fitted.V < 0 || fitted.Kappa <= 0 || fitted.Theta <= 0 || fitted.Sigma <= 0 {
		t.Fatalf("positivity bounds violated: %v", fitted)
	}
	if fitted.Rho <= -1 || fitted.Rho >= 1 {
		t.Fatalf("rho bound violated: %v", fitted.Rho)
	}
}

func TestCalibrate_Validation(t *testing.T) {
	if _, _, err := Calibrate([]float64{1}, []float64{90, 100}, []float64{0.2}, 100, 0, CalibrateOptions{}); err == nil {
		t.Fatal("expected error for mismatched vol count")
	}
	if _, _, err := Calibrate([]float64{1}, []float64{90}, []float64{0.2}, -1, 0, CalibrateOptions{}); err == nil {
		t.Fatal("expected error for non-positive spot")
	}
	if _, _, err := Calibrate([]float64{1}, []float64{90}, []float64{0.2}, 100, 0, CalibrateOptions{Method: "annealing"}); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

// Non-convergence is not fatal: a tiny iteration budget must still produce a
// usable model plus honest diagnostics.
func TestCalibrate_BestIterateOnBudget(t *testing.T) {
	truth := testModel(t)
	strikes := []float64{95, 100, 105}
	smile, err := truth.ImpliedVols([]float64{1}, strikes)
	if err != nil {
		t.Fatal(err)
	}
	fitted, res, err := Calibrate([]float64{1}, strikes, smile, truth.S, truth.R, CalibrateOptions{
		MaxIterations: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if fitted.S != truth.S {
		t.Fatalf("spot must carry through: %v", fitted.S)
	}
	if len(res.Parameters) != 5 {
		t.Fatalf("diagnostics parameters: %v", res.Parameters)
	}
	if math.IsNaN(res.Objective) {
		t.Fatal("objective not reported")
	}
}
