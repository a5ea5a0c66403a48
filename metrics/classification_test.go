package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense {
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yScore  *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"separable", vec(0, 0, 0, 1, 1, 1), vec(0.1, 0.2, 0.3, 0.7, 0.8, 0.9), 1, false},
		{"inverted", vec(0, 0, 0, 1, 1, 1), vec(0.9, 0.8, 0.7, 0.3, 0.2, 0.1), 0, false},
		{"all ties", vec(0, 1, 0, 1), vec(0.5, 0.5, 0.5, 0.5), 0.5, false},
		{"one swapped pair", vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8), 0.75, false},
		{"single class", vec(1, 1, 1), vec(0.1, 0.4, 0.8), 0.5, false},
		{"non binary labels", vec(0, 0.5, 1), vec(0.1, 0.5, 0.9), 0, true},
		{"length mismatch", vec(0, 1), vec(0.5), 0, true},
		{"nil", nil, nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.yScore)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AUC() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yProb   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"uniform", vec(0, 1), vec(0.5, 0.5), math.Log(2), false},
		{"confident and right", vec(1, 0), vec(1, 0), 0, false},
		{"clipped when wrong", vec(1), vec(0), -math.Log(logLossEpsilon), false},
		{"mixed", vec(1, 0), vec(0.8, 0.4), -(math.Log(0.8) + math.Log(0.6)) / 2, false},
		{"labels outside 0/1", vec(2), vec(0.5), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(tt.yTrue, tt.yProb)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BinaryLogLoss() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("BinaryLogLoss() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	yTrue := vec(0, 1, 2, 2, 1)
	yPred := vec(0, 2, 2, 2, 0)

	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 0.6 {
		t.Errorf("Accuracy() = %v, want 0.6", acc)
	}
	miss, err := ClassificationError(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(miss-0.4) > 1e-12 {
		t.Errorf("ClassificationError() = %v, want 0.4", miss)
	}
	// クラス 0: 1/1, クラス 1: 0/2, クラス 2: 2/2
	bal, err := BalancedAccuracy(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(bal-2.0/3.0) > 1e-12 {
		t.Errorf("BalancedAccuracy() = %v, want 2/3", bal)
	}
	if _, err := Accuracy(vec(1, 2), vec(1)); err == nil {
		t.Error("expected dimension error")
	}
}

func BenchmarkAUC(b *testing.B) {
	n := 10000
	yTrue := mat.NewVecDense(n, nil)
	yScore := mat.NewVecDense(n, nil)
	for i := range n {
		yTrue.SetVec(i, float64(i%2))
		yScore.SetVec(i, float64((i*7919)%n)/float64(n))
	}
	b.ResetTimer()
	for b.Loop() {
		_, _ = AUC(yTrue, yScore)
	}
}

func TestThresholdMetrics(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{1, 1, 1, 0, 0, 0})
	yPred := mat.NewVecDense(6, []float64{1, 1, 0, 1, 0, 0})

	tests := []struct {
		name string
		fn   func(a, b *mat.VecDense) (float64, error)
		want float64
	}{
		{"precision", Precision, 2.0 / 3.0},
		{"recall", Recall, 2.0 / 3.0},
		{"f1", F1, 2.0 / 3.0},
		{"balanced accuracy", BalancedAccuracy, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(yTrue, yPred)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	noPositives := mat.NewVecDense(2, []float64{0, 0})
	if p, err := Precision(mat.NewVecDense(2, []float64{1, 0}), noPositives); err != nil || p != 0 {
		t.Errorf("precision without positive predictions = %v, %v", p, err)
	}
}

func TestMultiLogLoss(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{0, 1, 2})
	perfect := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	got, err := MultiLogLoss(yTrue, perfect)
	if err != nil {
		t.Fatal(err)
	}
	if got > 1e-6 {
		t.Errorf("perfect predictions should give ~0, got %v", got)
	}

	uniform := mat.NewDense(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	got, err = MultiLogLoss(yTrue, uniform)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-math.Log(3)) > 1e-9 {
		t.Errorf("uniform predictions = %v, want log(3)", got)
	}

	if _, err := MultiLogLoss(mat.NewVecDense(1, []float64{3}), mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected error for out-of-range label")
	}
}
