// Package objectives はパイプラインの評価指標（目的関数）を定義します。
package objectives

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/metrics"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

// Objective はパイプラインの予測を評価する指標です。
// 分類では yTrue と yPred はエンコード済みのクラス番号、yProba は n×k の確率行列です。
type Objective interface {
	Name() string
	GreaterIsBetter() bool
	ScoreNeedsProba() bool
	ProblemTypes() []problemtype.ProblemType
	Score(yTrue, yPred *mat.VecDense, yProba mat.Matrix) (float64, error)
}

// ThresholdObjective は二値分類の判定閾値を最適化できる指標です。
type ThresholdObjective interface {
	Objective
	CanOptimizeThreshold() bool
}

type objective struct {
	name    string
	greater bool
	proba   bool
	types   []problemtype.ProblemType
	score   func(yTrue, yPred *mat.VecDense, yProba mat.Matrix) (float64, error)
}

func (o *objective) Name() string                            { return o.name }
func (o *objective) GreaterIsBetter() bool                   { return o.greater }
func (o *objective) ScoreNeedsProba() bool                   { return o.proba }
func (o *objective) ProblemTypes() []problemtype.ProblemType { return o.types }

func (o *objective) Score(yTrue, yPred *mat.VecDense, yProba mat.Matrix) (float64, error) {
	if o.proba && yProba == nil {
		return 0, errors.NewValueErrorf(o.name, "objective requires predicted probabilities")
	}
	if !o.proba && yPred == nil {
		return 0, errors.NewValueErrorf(o.name, "objective requires predictions")
	}
	return o.score(yTrue, yPred, yProba)
}

type thresholdObjective struct {
	objective
}

func (o *thresholdObjective) CanOptimizeThreshold() bool { return true }

var (
	binaryTypes     = []problemtype.ProblemType{problemtype.Binary, problemtype.TimeSeriesBinary}
	multiclassTypes = []problemtype.ProblemType{problemtype.Multiclass, problemtype.TimeSeriesMulticlass}
	regressionTypes = []problemtype.ProblemType{problemtype.Regression, problemtype.TimeSeriesRegression}
)

func positiveColumn(yProba mat.Matrix) *mat.VecDense {
	r, c := yProba.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, yProba.At(i, c-1))
	}
	return out
}

func predictionMetric(fn func(a, b *mat.VecDense) (float64, error)) func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
	return func(yTrue, yPred *mat.VecDense, _ mat.Matrix) (float64, error) {
		return fn(yTrue, yPred)
	}
}

var registry = []Objective{
	&objective{
		name: "Log Loss Binary", proba: true, types: binaryTypes,
		score: func(yTrue, _ *mat.VecDense, yProba mat.Matrix) (float64, error) {
			return metrics.BinaryLogLoss(yTrue, positiveColumn(yProba))
		},
	},
	&objective{
		name: "Log Loss Multiclass", proba: true, types: multiclassTypes,
		score: func(yTrue, _ *mat.VecDense, yProba mat.Matrix) (float64, error) {
			return metrics.MultiLogLoss(yTrue, yProba)
		},
	},
	&objective{
		name: "AUC", greater: true, proba: true, types: binaryTypes,
		score: func(yTrue, _ *mat.VecDense, yProba mat.Matrix) (float64, error) {
			return metrics.AUC(yTrue, positiveColumn(yProba))
		},
	},
	&objective{name: "Accuracy Binary", greater: true, types: binaryTypes, score: predictionMetric(metrics.Accuracy)},
	&objective{name: "Accuracy Multiclass", greater: true, types: multiclassTypes, score: predictionMetric(metrics.Accuracy)},
	&objective{name: "Balanced Accuracy Binary", greater: true, types: binaryTypes, score: predictionMetric(metrics.BalancedAccuracy)},
	&objective{name: "Balanced Accuracy Multiclass", greater: true, types: multiclassTypes, score: predictionMetric(metrics.BalancedAccuracy)},
	&thresholdObjective{objective{name: "F1", greater: true, types: binaryTypes, score: predictionMetric(metrics.F1)}},
	&thresholdObjective{objective{name: "Precision", greater: true, types: binaryTypes, score: predictionMetric(metrics.Precision)}},
	&thresholdObjective{objective{name: "Recall", greater: true, types: binaryTypes, score: predictionMetric(metrics.Recall)}},
	&objective{name: "R2", greater: true, types: regressionTypes, score: predictionMetric(metrics.R2Score)},
	&objective{name: "MSE", types: regressionTypes, score: predictionMetric(metrics.MSE)},
	&objective{name: "MAE", types: regressionTypes, score: predictionMetric(metrics.MAE)},
	&objective{name: "Root Mean Squared Error", types: regressionTypes, score: predictionMetric(metrics.RMSE)},
	&objective{name: "ExpVariance", greater: true, types: regressionTypes, score: predictionMetric(metrics.ExplainedVarianceScore)},
	&objective{
		name: "Mean Absolute Percentage Error", types: []problemtype.ProblemType{problemtype.TimeSeriesRegression},
		score: predictionMetric(metrics.MAPE),
	},
}

// All は組み込みの指標をすべて返します。
func All() []Objective {
	return append([]Objective(nil), registry...)
}

// Names はソート済みの指標名を返します。
func Names() []string {
	out := make([]string, len(registry))
	for i, o := range registry {
		out[i] = o.Name()
	}
	sort.Strings(out)
	return out
}

// Get は名前（大文字小文字は区別しない）から指標を返します。
func Get(name string) (Objective, error) {
	for _, o := range registry {
		if strings.EqualFold(o.Name(), strings.TrimSpace(name)) {
			return o, nil
		}
	}
	return nil, errors.NewValueErrorf("objectives.Get", "%s is not a valid objective name; valid names are %v", name, Names())
}

// ForProblemType は name の指標が problemType に使えることを確認して返します。
func ForProblemType(name string, pt problemtype.ProblemType) (Objective, error) {
	o, err := Get(name)
	if err != nil {
		return nil, err
	}
	if !problemtype.Contains(o.ProblemTypes(), pt) {
		return nil, errors.NewValueErrorf("objectives.ForProblemType", "%s is not compatible with a %s problem", o.Name(), pt)
	}
	return o, nil
}

// DefaultPrimary は problemType の既定の主指標を返します。
func DefaultPrimary(pt problemtype.ProblemType) Objective {
	var name string
	switch {
	case pt.IsBinary():
		name = "Log Loss Binary"
	case pt.IsMulticlass():
		name = "Log Loss Multiclass"
	default:
		name = "R2"
	}
	o, _ := Get(name)
	return o
}

// Core は problemType で既定で計算する指標を返します。
func Core(pt problemtype.ProblemType) []Objective {
	var names []string
	switch {
	case pt.IsBinary():
		names = []string{"Log Loss Binary", "AUC", "F1", "Precision", "Accuracy Binary", "Balanced Accuracy Binary"}
	case pt.IsMulticlass():
		names = []string{"Log Loss Multiclass", "Accuracy Multiclass", "Balanced Accuracy Multiclass"}
	default:
		names = []string{"R2", "MAE", "MSE", "Root Mean Squared Error", "ExpVariance"}
		if pt.IsTimeSeries() {
			names = append(names, "Mean Absolute Percentage Error")
		}
	}
	out := make([]Objective, 0, len(names))
	for _, n := range names {
		o, _ := Get(n)
		out = append(out, o)
	}
	return out
}

// CanOptimizeThreshold は o が閾値最適化に対応しているかを返します。
func CanOptimizeThreshold(o Objective) bool {
	t, ok := o.(ThresholdObjective)
	return ok && t.CanOptimizeThreshold()
}

// ScoreToMinimize は小さいほど良い値に変換したスコアを返します。
func ScoreToMinimize(o Objective, score float64) float64 {
	if o.GreaterIsBetter() {
		return -score
	}
	return score
}

// PercentBetter は baseline に対する score の改善率（%）を返します。
func PercentBetter(o Objective, score, baseline float64) float64 {
	if math.IsNaN(score) || math.IsNaN(baseline) {
		return math.NaN()
	}
	if math.Abs(baseline-score) < 1e-10 {
		return 0
	}
	if baseline == 0 {
		return math.Inf(1)
	}
	change := (score - baseline) / math.Abs(baseline) * 100
	if !o.GreaterIsBetter() {
		change = -change
	}
	return change
}

// Threshold は正例の確率を閾値で二値化します（p > threshold で正例）。
func Threshold(probaPositive *mat.VecDense, threshold float64) *mat.VecDense {
	n := probaPositive.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if probaPositive.AtVec(i) > threshold {
			out.SetVec(i, 1)
		}
	}
	return out
}

// OptimizeThreshold は 0 から 1 を 0.01 刻みで走査し、o が最良となる閾値を返します。
func OptimizeThreshold(o Objective, yTrue, probaPositive *mat.VecDense) (float64, error) {
	if !CanOptimizeThreshold(o) {
		return 0, errors.NewValueErrorf("OptimizeThreshold", "%s does not support threshold optimization", o.Name())
	}
	best, bestScore := 0.5, math.Inf(1)
	for i := 0; i <= 100; i++ {
		threshold := float64(i) / 100
		score, err := o.Score(yTrue, Threshold(probaPositive, threshold), nil)
		if err != nil {
			return 0, err
		}
		if s := ScoreToMinimize(o, score); s < bestScore {
			best, bestScore = threshold, s
		}
	}
	return best, nil
}
