package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(
		WithLRMaxIter(1000),
		WithLRTol(1e-4),
	)
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 6; i++ {
		if predictions.AtVec(i) != y.AtVec(i) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.AtVec(i), predictions.AtVec(i))
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0, // Should be class 0
		3.0, 3.0, // Should be class 1
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.AtVec(0) != 0 || testPreds.AtVec(1) != 1 {
		t.Errorf("unexpected test predictions %v", mat.Formatted(testPreds.T()))
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		2, 2,
		2, 3,
	})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		if sum := probas.At(i, 0) + probas.At(i, 1); math.Abs(sum-1) > 1e-10 {
			t.Errorf("row %d probabilities sum to %v", i, sum)
		}
	}
	if probas.At(0, 1) >= probas.At(3, 1) {
		t.Errorf("P(class 1) should increase along the diagonal")
	}
}

// TestLogisticRegression_Regularization tests that smaller C shrinks weights
func TestLogisticRegression_Regularization(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{-3, -2, -1, 1, 2, 3})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	strong := NewLogisticRegression(WithLRC(0.01), WithLRMaxIter(1000))
	weak := NewLogisticRegression(WithLRC(100.0), WithLRMaxIter(1000))
	if err := strong.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := weak.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if math.Abs(strong.coef_[0][0]) >= math.Abs(weak.coef_[0][0]) {
		t.Errorf("strong regularization should give smaller weights: %v vs %v", strong.coef_[0][0], weak.coef_[0][0])
	}
}

// TestLogisticRegression_Multiclass tests one-vs-rest multiclass classification
func TestLogisticRegression_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0.5, 0, 0, 0.5,
		5, 0, 5.5, 0, 5, 0.5,
		0, 5, 0.5, 5, 0, 5.5,
	})
	y := mat.NewVecDense(9, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRC(10.0), WithLRNJobs(-1))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if score < 8.0/9 {
		t.Errorf("training accuracy too low: %v", score)
	}
	probas, _ := lr.PredictProba(X)
	if _, c := probas.Dims(); c != 3 {
		t.Errorf("expected 3 probability columns, got %d", c)
	}
}

func TestLogisticRegression_SetNumClasses(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression()
	lr.SetNumClasses(3)
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	probas, _ := lr.PredictProba(X)
	if _, c := probas.Dims(); c != 3 {
		t.Errorf("expected 3 columns for a class unseen during training, got %d", c)
	}
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	if err := NewLogisticRegression(WithLRMaxIter(2), WithLRTol(1e-12)).Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var cw *errors.ConvergenceWarning
	if len(warnings) != 1 || !errors.As(warnings[0], &cw) {
		t.Errorf("expected one ConvergenceWarning, got %v", warnings)
	}
}

// TestLogisticRegression_NotFitted tests error on unfitted model
func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	if err := lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewVecDense(2, []float64{0, 0.5})); err == nil {
		t.Error("non-integer labels should fail")
	}
	if err := NewLogisticRegression(WithLRPenalty("l1")).Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewVecDense(2, []float64{0, 1})); err == nil {
		t.Error("unsupported penalty should fail")
	}
}
