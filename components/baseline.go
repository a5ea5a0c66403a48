package components

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// baselineClassifier は特徴量を使わずにクラスの頻度だけで予測します。
//   - "mode": 最頻クラスを確率1で予測
//   - "random_weighted": 学習データのクラス比率を確率とし、予測はその比率で抽選
type baselineClassifier struct {
	strategy string
	seed     int64
	nClasses int
	freq     []float64
	mode     int
}

func (b *baselineClassifier) SetNumClasses(n int) { b.nClasses = n }

func (b *baselineClassifier) Fit(_ mat.Matrix, y *mat.VecDense) error {
	counts := make(map[int]int)
	k := b.nClasses
	for i := 0; i < y.Len(); i++ {
		c := int(y.AtVec(i))
		counts[c]++
		k = max(k, c+1)
	}
	b.nClasses = k
	b.freq = make([]float64, k)
	b.mode = 0
	for c := 0; c < k; c++ {
		b.freq[c] = float64(counts[c]) / float64(y.Len())
		if counts[c] > counts[b.mode] {
			b.mode = c
		}
	}
	return nil
}

func (b *baselineClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, b.nClasses, nil)
	for i := 0; i < r; i++ {
		if b.strategy == "mode" {
			out.Set(i, b.mode, 1)
			continue
		}
		out.SetRow(i, b.freq)
	}
	return out, nil
}

func (b *baselineClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	if b.strategy == "mode" {
		for i := 0; i < r; i++ {
			out.SetVec(i, float64(b.mode))
		}
		return out, nil
	}
	rng := rand.New(rand.NewPCG(uint64(b.seed), uint64(b.seed)))
	for i := 0; i < r; i++ {
		u, acc := rng.Float64(), 0.0
		class := len(b.freq) - 1
		for c, p := range b.freq {
			acc += p
			if u < acc {
				class = c
				break
			}
		}
		out.SetVec(i, float64(class))
	}
	return out, nil
}

func baselineClassifierSpec() Spec {
	const name = "Baseline Classifier"
	return Spec{
		Name:              name,
		ModelFamily:       modelfamily.Baseline,
		ProblemTypes:      classificationTypes,
		IsEstimator:       true,
		DefaultParameters: model.Params{"strategy": "mode"},
		New: func(params model.Params, seed int64) (model.Component, error) {
			strategy, err := params.String("strategy", "mode")
			if err != nil {
				return nil, err
			}
			if strategy != "mode" && strategy != "random_weighted" {
				return nil, errors.NewValidationError("strategy", "must be one of [mode random_weighted]", strategy)
			}
			impl := &baselineClassifier{strategy: strategy, seed: seed}
			return newClassifier(name, modelfamily.Baseline, params, seed, impl), nil
		},
	}
}

// baselineRegressor は学習データの目的変数の平均または中央値を定数として予測します。
type baselineRegressor struct {
	strategy string
	value    float64
}

func (b *baselineRegressor) Fit(_ mat.Matrix, y *mat.VecDense) error {
	n := y.Len()
	values := make([]float64, n)
	for i := range values {
		values[i] = y.AtVec(i)
	}
	if b.strategy == "median" {
		sort.Float64s(values)
		if n%2 == 0 {
			b.value = (values[n/2-1] + values[n/2]) / 2
		} else {
			b.value = values[n/2]
		}
		return nil
	}
	b.value = mat.Sum(y) / float64(n)
	return nil
}

func (b *baselineRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, b.value)
	}
	return out, nil
}

func baselineRegressorSpec() Spec {
	const name = "Baseline Regressor"
	return Spec{
		Name:              name,
		ModelFamily:       modelfamily.Baseline,
		ProblemTypes:      regressionTypes,
		IsEstimator:       true,
		DefaultParameters: model.Params{"strategy": "mean"},
		New: func(params model.Params, seed int64) (model.Component, error) {
			strategy, err := params.String("strategy", "mean")
			if err != nil {
				return nil, err
			}
			if strategy != "mean" && strategy != "median" {
				return nil, errors.NewValidationError("strategy", "must be one of [mean median]", strategy)
			}
			return newRegressor(name, modelfamily.Baseline, params, seed, &baselineRegressor{strategy: strategy}), nil
		},
	}
}
