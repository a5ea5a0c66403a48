// Package linear は正規方程式による線形回帰（L2 正則化付き）を提供します。
package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/core/parallel"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool
	alpha        float64
	nJobs        int

	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
		nJobs:        1,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// IsFitted は学習済みかどうかを返す
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Fit はモデルを訓練データで学習させる。
// 切片を推定する場合は X と y を中心化してから
// (X^T X + alpha I) w = X^T y を Cholesky 分解で解く。
func (lr *LinearRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return errors.NewValueError("LinearRegression.Fit", "y must not be nil")
	}
	if y.Len() != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, y.Len(), 0)
	}
	if lr.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", lr.alpha)
	}

	xMean := make([]float64, c)
	var yMean float64
	if lr.fitIntercept {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				xMean[j] += X.At(i, j)
			}
		}
		for j := range xMean {
			xMean[j] /= float64(r)
		}
		yMean = mat.Sum(y) / float64(r)
	}

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeN(r, parallel.Workers(lr.workers(r)), func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.AtVec(i)-yMean)
		}
	})

	var XTX mat.SymDense
	XTX.SymOuterK(1, Xc.T())
	var XTy mat.VecDense
	XTy.MulVec(Xc.T(), yc)

	weights, err := solveRidge(&XTX, &XTy, lr.alpha)
	if err != nil {
		return err
	}

	lr.Weights = weights
	lr.Intercept = 0
	if lr.fitIntercept {
		lr.Intercept = yMean - mat.Dot(weights, mat.NewVecDense(c, xMean))
	}
	lr.state.SetFitted(c, r)
	return nil
}

func (lr *LinearRegression) workers(rows int) int {
	if rows <= parallelThreshold {
		return 1
	}
	return lr.nJobs
}

// solveRidge は正則化項を加えた正規方程式を解く。
// 特異な場合は対角に微小なジッターを加えて再試行する。
func solveRidge(XTX *mat.SymDense, XTy *mat.VecDense, alpha float64) (*mat.VecDense, error) {
	n := XTX.SymmetricDim()
	jitter := 0.0
	for attempt := 0; attempt < 6; attempt++ {
		A := mat.NewSymDense(n, nil)
		A.CopySym(XTX)
		for i := 0; i < n; i++ {
			A.SetSym(i, i, A.At(i, i)+alpha+jitter)
		}
		var chol mat.Cholesky
		if chol.Factorize(A) {
			w := mat.NewVecDense(n, nil)
			if err := chol.SolveVecTo(w, XTy); err == nil {
				return w, nil
			}
		}
		if jitter == 0 {
			jitter = 1e-10 * math.Max(1, mat.Trace(XTX)/float64(n))
		} else {
			jitter *= 100
		}
	}
	return nil, errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	_, c := X.Dims()
	if err := lr.state.RequireFeatures("LinearRegression", "Predict", c); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	predictions := mat.NewVecDense(r, nil)
	predictions.MulVec(X, lr.Weights)
	for i := 0; i < r; i++ {
		predictions.SetVec(i, predictions.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	weights := make([]float64, lr.Weights.Len())
	for i := range weights {
		weights[i] = lr.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

func (lr *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, alpha=%g)", lr.fitIntercept, lr.alpha)
}
