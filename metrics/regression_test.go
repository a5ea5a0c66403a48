package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRegressionMetrics(t *testing.T) {
	yTrue := vec(10, 20, 30)
	yPred := vec(12, 18, 33)

	tests := []struct {
		name string
		fn   func(a, b *mat.VecDense) (float64, error)
		want float64
	}{
		{"mse", MSE, 17.0 / 3.0},
		{"rmse", RMSE, math.Sqrt(17.0 / 3.0)},
		{"mae", MAE, 7.0 / 3.0},
		// tss = 200, rss = 17
		{"r2", R2Score, 1 - 17.0/200.0},
		{"mape", MAPE, (0.2 + 0.1 + 0.1) / 3 * 100},
		// 残差 (-2, 2, -3) の偏差平方和 14 / yTrue の偏差平方和 200
		{"explained variance", ExplainedVarianceScore, 1 - 14.0/200.0},
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

	perfect := vec(1, 2, 3, 4)
	if got, _ := MSE(perfect, perfect); got != 0 {
		t.Errorf("MSE of identical vectors = %v", got)
	}
	if got, _ := R2Score(perfect, perfect); got != 1 {
		t.Errorf("R2Score of identical vectors = %v", got)
	}
}

func TestRegressionMetricErrors(t *testing.T) {
	fns := map[string]func(a, b *mat.VecDense) (float64, error){
		"mse":                MSE,
		"rmse":               RMSE,
		"mae":                MAE,
		"r2":                 R2Score,
		"mape":               MAPE,
		"explained variance": ExplainedVarianceScore,
	}
	inputs := []struct {
		name         string
		yTrue, yPred *mat.VecDense
	}{
		{"length mismatch", vec(1, 2, 3), vec(1, 2)},
		{"empty", &mat.VecDense{}, &mat.VecDense{}},
		{"nil", nil, vec(1)},
	}
	for name, fn := range fns {
		for _, in := range inputs {
			t.Run(name+"/"+in.name, func(t *testing.T) {
				if _, err := fn(in.yTrue, in.yPred); err == nil {
					t.Error("expected error")
				}
			})
		}
	}

	constant := vec(5, 5, 5)
	if _, err := R2Score(constant, vec(4, 5, 6)); err == nil {
		t.Error("R2Score with constant yTrue should fail")
	}
	if _, err := MAPE(vec(0, 0), vec(1, 1)); err == nil {
		t.Error("MAPE with zero yTrue should fail")
	}
}

func BenchmarkMSE(b *testing.B) {
	n := 10000
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := range n {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.5)
	}
	b.ResetTimer()
	for b.Loop() {
		_, _ = MSE(yTrue, yPred)
	}
}
