package components

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/preprocessing"
)

// Imputer は数値列の欠損値（NaN）を列ごとの統計量で埋めます。
// 学習データで全て欠損していた列は 0 で埋めます。
type Imputer struct {
	ComponentBase
	strategy string
	fill     []float64
}

func imputerSpec() Spec {
	return Spec{
		Name:              "Imputer",
		DefaultParameters: model.Params{"numeric_impute_strategy": "mean"},
		New: func(params model.Params, seed int64) (model.Component, error) {
			strategy, err := params.String("numeric_impute_strategy", "mean")
			if err != nil {
				return nil, err
			}
			switch strategy {
			case "mean", "median", "most_frequent":
			default:
				return nil, errors.NewValidationError("numeric_impute_strategy", "must be one of [mean median most_frequent]", strategy)
			}
			return &Imputer{ComponentBase: NewComponentBase("Imputer", params, seed), strategy: strategy}, nil
		},
	}
}

func (im *Imputer) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := checkFitInput(im.name, X, y, false); err != nil {
		return err
	}
	r, c := X.Dims()
	im.fill = make([]float64, c)
	for j := 0; j < c; j++ {
		values := make([]float64, 0, r)
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		im.fill[j] = columnStatistic(values, im.strategy)
	}
	im.markFitted(X)
	return nil
}

func columnStatistic(values []float64, strategy string) float64 {
	if len(values) == 0 {
		return 0
	}
	switch strategy {
	case "median":
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	case "most_frequent":
		counts := make(map[float64]int)
		for _, v := range values {
			counts[v]++
		}
		best, bestCount := 0.0, -1
		for v, n := range counts {
			// 同数なら小さい値
			if n > bestCount || (n == bestCount && v < best) {
				best, bestCount = v, n
			}
		}
		return best
	default:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
}

func (im *Imputer) Transform(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error) {
	if err := im.requireFitted("Transform", X); err != nil {
		return nil, nil, err
	}
	out := mat.DenseCopyOf(X)
	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, im.fill[j])
			}
		}
	}
	return out, y, nil
}

// StandardScaler は preprocessing.StandardScaler をグラフのノードとして使うためのラッパーです。
type StandardScaler struct {
	ComponentBase
	scaler *preprocessing.StandardScaler
}

func standardScalerSpec() Spec {
	return Spec{
		Name:              "Standard Scaler",
		DefaultParameters: model.Params{},
		New: func(params model.Params, seed int64) (model.Component, error) {
			return &StandardScaler{
				ComponentBase: NewComponentBase("Standard Scaler", params, seed),
				scaler:        preprocessing.NewStandardScalerDefault(),
			}, nil
		},
	}
}

func (s *StandardScaler) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := checkFitInput(s.name, X, y, false); err != nil {
		return err
	}
	if err := s.scaler.Fit(X); err != nil {
		return err
	}
	s.markFitted(X)
	return nil
}

func (s *StandardScaler) Transform(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error) {
	if err := s.requireFitted("Transform", X); err != nil {
		return nil, nil, err
	}
	out, err := s.scaler.Transform(X)
	if err != nil {
		return nil, nil, err
	}
	return out, y, nil
}

// DelayedFeatureTransformer は時系列の各特徴量（と必要なら目的変数）について
// 1..max_delay 行前の値を列として追加します。先頭の行の遅延値は NaN になります。
type DelayedFeatureTransformer struct {
	ComponentBase
	maxDelay      int
	delayFeatures bool
	delayTarget   bool
}

func delayedFeatureTransformerSpec() Spec {
	return Spec{
		Name: "Delayed Feature Transformer",
		DefaultParameters: model.Params{
			"delay_features":   true,
			"delay_target":     false,
			"gap":              0,
			"max_delay":        0,
			"forecast_horizon": 1,
		},
		PipelineParameters: []string{"gap", "max_delay", "forecast_horizon"},
		New: func(params model.Params, seed int64) (model.Component, error) {
			d := &DelayedFeatureTransformer{ComponentBase: NewComponentBase("Delayed Feature Transformer", params, seed)}
			var err error
			if d.maxDelay, err = params.Int("max_delay", 0); err != nil {
				return nil, err
			}
			if d.maxDelay < 0 {
				return nil, errors.NewValidationError("max_delay", "must be non-negative", d.maxDelay)
			}
			if d.delayFeatures, err = params.Bool("delay_features", true); err != nil {
				return nil, err
			}
			if d.delayTarget, err = params.Bool("delay_target", false); err != nil {
				return nil, err
			}
			return d, nil
		},
	}
}

func (d *DelayedFeatureTransformer) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := checkFitInput(d.name, X, y, false); err != nil {
		return err
	}
	d.markFitted(X)
	return nil
}

// Transform は遅延列を追加します。予測時に y がない場合、目的変数の遅延列は NaN です。
func (d *DelayedFeatureTransformer) Transform(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error) {
	if err := d.requireFitted("Transform", X); err != nil {
		return nil, nil, err
	}
	r, c := X.Dims()
	extra := 0
	if d.delayFeatures {
		extra += c * d.maxDelay
	}
	if d.delayTarget {
		extra += d.maxDelay
	}
	out := mat.NewDense(r, c+extra, nil)
	out.Slice(0, r, 0, c).(*mat.Dense).Copy(X)

	col := c
	lag := func(get func(i int) float64) {
		for k := 1; k <= d.maxDelay; k++ {
			for i := 0; i < r; i++ {
				v := math.NaN()
				if i-k >= 0 {
					v = get(i - k)
				}
				out.Set(i, col, v)
			}
			col++
		}
	}
	if d.delayFeatures {
		for j := 0; j < c; j++ {
			lag(func(i int) float64 { return X.At(i, j) })
		}
	}
	if d.delayTarget {
		lag(func(i int) float64 {
			if y == nil {
				return math.NaN()
			}
			return y.AtVec(i)
		})
	}
	return out, y, nil
}
