package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// MSE は平均二乗誤差です。
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	_, res, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Dot(res, res) / float64(len(res)), nil
}

// RMSE は MSE の平方根です。
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差です。
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	_, res, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Norm(res, 1) / float64(len(res)), nil
}

// R2Score は決定係数です。yTrue が定数の場合はエラーを返します。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	yt, res, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(yt, nil)
	var tss float64
	for _, v := range yt {
		tss += (v - mean) * (v - mean)
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - floats.Dot(res, res)/tss, nil
}

// MAPE は平均絶対パーセント誤差（%）です。yTrue が 0 の行は除きます。
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	yt, res, err := residuals("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	valid := 0
	for i, v := range yt {
		if v == 0 {
			continue
		}
		sum += math.Abs(res[i] / v)
		valid++
	}
	if valid == 0 {
		return 0, errors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

// ExplainedVarianceScore は 1 - Var(yTrue - yPred) / Var(yTrue) です。
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	yt, res, err := residuals("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if len(yt) < 2 {
		return 0, errors.NewValueError("ExplainedVarianceScore", "at least 2 samples are required")
	}
	varTrue := stat.Variance(yt, nil)
	if varTrue == 0 {
		return 0, errors.NewValueError("ExplainedVarianceScore", "no variance in yTrue")
	}
	return 1 - stat.Variance(res, nil)/varTrue, nil
}

// residuals は yTrue の値と yTrue - yPred を返します。
func residuals(op string, yTrue, yPred *mat.VecDense) (yt, res []float64, err error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	yt = make([]float64, n)
	res = make([]float64, n)
	for i := range n {
		yt[i] = yTrue.AtVec(i)
		res[i] = yt[i] - yPred.AtVec(i)
	}
	return yt, res, nil
}

// checkPair は2つのベクトルが nil でも空でもなく、同じ長さであることを確認します。
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	if yTrue.IsEmpty() || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.IsEmpty() || yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}
