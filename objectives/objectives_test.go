package objectives

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/problemtype"
)

func TestGet(t *testing.T) {
	o, err := Get("log loss binary")
	if err != nil {
		t.Fatal(err)
	}
	if o.Name() != "Log Loss Binary" || o.GreaterIsBetter() || !o.ScoreNeedsProba() {
		t.Errorf("unexpected objective %+v", o)
	}
	if _, err := Get("fake objective"); err == nil {
		t.Error("expected error for unknown objective")
	}
	if _, err := ForProblemType("R2", problemtype.Binary); err == nil {
		t.Error("R2 should not be valid for binary problems")
	}
}

func TestDefaultPrimary(t *testing.T) {
	tests := []struct {
		pt   problemtype.ProblemType
		want string
	}{
		{problemtype.Binary, "Log Loss Binary"},
		{problemtype.TimeSeriesMulticlass, "Log Loss Multiclass"},
		{problemtype.Regression, "R2"},
	}
	for _, tt := range tests {
		if got := DefaultPrimary(tt.pt).Name(); got != tt.want {
			t.Errorf("DefaultPrimary(%v) = %s, want %s", tt.pt, got, tt.want)
		}
	}
	for _, pt := range problemtype.All() {
		for _, o := range Core(pt) {
			if !problemtype.Contains(o.ProblemTypes(), pt) {
				t.Errorf("core objective %s does not support %v", o.Name(), pt)
			}
		}
	}
}

func TestScoreBinaryObjectives(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	proba := mat.NewDense(4, 2, []float64{0.9, 0.1, 0.6, 0.4, 0.35, 0.65, 0.2, 0.8})
	yPred := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	auc, _ := Get("AUC")
	got, err := auc.Score(yTrue, yPred, proba)
	if err != nil || got != 1 {
		t.Errorf("AUC = %v, %v", got, err)
	}

	acc, _ := Get("Accuracy Binary")
	if got, _ := acc.Score(yTrue, yPred, nil); got != 1 {
		t.Errorf("accuracy = %v", got)
	}

	ll, _ := Get("Log Loss Binary")
	if _, err := ll.Score(yTrue, yPred, nil); err == nil {
		t.Error("log loss without probabilities should fail")
	}
}

func TestScoreToMinimizeAndPercentBetter(t *testing.T) {
	r2, _ := Get("R2")
	mse, _ := Get("MSE")
	if ScoreToMinimize(r2, 0.8) != -0.8 || ScoreToMinimize(mse, 3) != 3 {
		t.Error("ScoreToMinimize should negate greater-is-better objectives")
	}
	if got := PercentBetter(r2, 0.6, 0.5); math.Abs(got-20) > 1e-9 {
		t.Errorf("PercentBetter(R2) = %v, want 20", got)
	}
	if got := PercentBetter(mse, 5, 10); math.Abs(got-50) > 1e-9 {
		t.Errorf("PercentBetter(MSE) = %v, want 50", got)
	}
	if !math.IsInf(PercentBetter(r2, 0.5, 0), 1) {
		t.Error("zero baseline should give +Inf")
	}
}

func TestOptimizeThreshold(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	proba := mat.NewVecDense(6, []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3})

	f1, _ := Get("F1")
	threshold, err := OptimizeThreshold(f1, yTrue, proba)
	if err != nil {
		t.Fatal(err)
	}
	if threshold < 0.15 || threshold >= 0.2 {
		t.Errorf("threshold = %v, want within [0.15, 0.2)", threshold)
	}

	auc, _ := Get("AUC")
	if _, err := OptimizeThreshold(auc, yTrue, proba); err == nil {
		t.Error("AUC does not support threshold optimization")
	}
}
