package linear

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// noisyPlane は y = 1 + Σ (j+1)/2 * x_j + ノイズ のデータを作る
func noisyPlane(rows, cols int) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(7, 7))
	X := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	for i := range rows {
		target := 1.0 + 0.05*rng.NormFloat64()
		for j := range cols {
			v := rng.Float64()*2 - 1
			X.Set(i, j, v)
			target += float64(j+1) / 2 * v
		}
		y.SetVec(i, target)
	}
	return X, y
}

func BenchmarkLinearRegressionFit(b *testing.B) {
	shapes := [][2]int{{200, 8}, {2000, 8}, {10000, 32}}
	for _, shape := range shapes {
		X, y := noisyPlane(shape[0], shape[1])
		for _, nJobs := range []int{1, -1} {
			for _, alpha := range []float64{0, 0.5} {
				name := fmt.Sprintf("%dx%d/jobs=%d/alpha=%g", shape[0], shape[1], nJobs, alpha)
				b.Run(name, func(b *testing.B) {
					for b.Loop() {
						lr := NewLinearRegression(WithNJobs(nJobs), WithAlpha(alpha))
						if err := lr.Fit(X, y); err != nil {
							b.Fatal(err)
						}
					}
				})
			}
		}
	}
}

func BenchmarkLinearRegressionPredict(b *testing.B) {
	X, y := noisyPlane(5000, 16)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		if _, err := lr.Predict(X); err != nil {
			b.Fatal(err)
		}
	}
}
