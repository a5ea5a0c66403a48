package neighbors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

func TestKNeighborsClassifier(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		5, 5,
		5, 6,
		6, 5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	tests := []struct {
		name string
		opts []Option
	}{
		{"uniform euclidean", []Option{WithNNeighbors(3)}},
		{"distance manhattan", []Option{WithNNeighbors(3), WithWeights("distance"), WithP(1)}},
		{"parallel", []Option{WithNNeighbors(3), WithNJobs(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			knn := NewKNeighborsClassifier(tt.opts...)
			if err := knn.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			pred, err := knn.Predict(mat.NewDense(2, 2, []float64{0.2, 0.2, 5.5, 5.5}))
			if err != nil {
				t.Fatal(err)
			}
			if pred.AtVec(0) != 0 || pred.AtVec(1) != 1 {
				t.Errorf("unexpected predictions %v", mat.Formatted(pred.T()))
			}
			probas, _ := knn.PredictProba(X)
			for i := 0; i < 6; i++ {
				if s := probas.At(i, 0) + probas.At(i, 1); math.Abs(s-1) > 1e-12 {
					t.Errorf("row %d sums to %v", i, s)
				}
			}
		})
	}
}

func TestKNeighborsClassifierDistanceWeightsExactMatch(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewVecDense(3, []float64{0, 1, 1})
	knn := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights("distance"))
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	probas, err := knn.PredictProba(mat.NewDense(1, 1, []float64{0}))
	if err != nil {
		t.Fatal(err)
	}
	if probas.At(0, 0) != 1 {
		t.Errorf("an exact match should take all the weight, got %v", probas.At(0, 0))
	}
}

func TestKNeighborsRegressor(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(4, []float64{0, 10, 20, 30})

	knn := NewKNeighborsRegressor(WithNNeighbors(2))
	if err := knn.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := knn.Predict(mat.NewDense(1, 1, []float64{0.4}))
	if err != nil {
		t.Fatal(err)
	}
	if pred.AtVec(0) != 5 {
		t.Errorf("prediction = %v, want 5", pred.AtVec(0))
	}

	if _, err := knn.Predict(mat.NewDense(1, 2, nil)); err == nil {
		t.Error("wrong feature count should fail")
	}
}

func TestKNeighborsValidation(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewVecDense(2, []float64{0, 1})

	var vErr *errors.ValidationError
	if err := NewKNeighborsClassifier(WithP(3)).Fit(X, y); !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError for p=3, got %v", err)
	}
	if err := NewKNeighborsRegressor(WithWeights("gaussian")).Fit(X, y); !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError for unknown weights, got %v", err)
	}

	_, err := NewKNeighborsClassifier().Predict(X)
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}
