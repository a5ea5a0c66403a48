package linear

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

func linearData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(6, 2, []float64{
		0, 1,
		1, 0,
		2, 3,
		3, 1,
		4, 4,
		5, 2,
	})
	y := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		y.SetVec(i, 1+2*X.At(i, 0)+3*X.At(i, 1))
	}
	return X, y
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := linearData()
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	w := lr.GetWeights()
	if math.Abs(w[0]-2) > 1e-8 || math.Abs(w[1]-3) > 1e-8 {
		t.Errorf("weights = %v, want [2 3]", w)
	}
	if math.Abs(lr.GetIntercept()-1) > 1e-8 {
		t.Errorf("intercept = %v, want 1", lr.GetIntercept())
	}

	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(pred, y, 1e-8) {
		t.Errorf("predictions do not match training targets")
	}
}

func TestLinearRegressionOptions(t *testing.T) {
	X, y := linearData()

	noIntercept := NewLinearRegression(WithFitIntercept(false))
	if err := noIntercept.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if noIntercept.GetIntercept() != 0 {
		t.Errorf("intercept should be 0 without fit_intercept")
	}

	ols := NewLinearRegression()
	ridge := NewLinearRegression(WithAlpha(10))
	if err := ols.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := ridge.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if mat.Norm(ridge.Weights, 2) >= mat.Norm(ols.Weights, 2) {
		t.Errorf("ridge weights should shrink: ridge=%v ols=%v", ridge.GetWeights(), ols.GetWeights())
	}

	if err := NewLinearRegression(WithAlpha(-1)).Fit(X, y); err == nil {
		t.Error("negative alpha should fail")
	}
}

func TestLinearRegressionCollinear(t *testing.T) {
	// 2列目は1列目の定数倍
	X := mat.NewDense(4, 2, []float64{1, 2, 2, 4, 3, 6, 4, 8})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("collinear features should still fit: %v", err)
	}
	pred, _ := lr.Predict(X)
	if !mat.EqualApprox(pred, y, 1e-4) {
		t.Errorf("predictions %v do not match %v", mat.Formatted(pred.T()), mat.Formatted(y.T()))
	}
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	X, y := linearData()
	if err := lr.Fit(X, mat.NewVecDense(3, nil)); err == nil {
		t.Error("mismatched y should fail")
	}
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	_, err = lr.Predict(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}
