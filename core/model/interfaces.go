package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/modelfamily"
)

// Component はコンポーネントグラフの1ノードとして実行される処理単位です。
// y は分類ではエンコード済みのクラス番号、回帰では目的変数そのものです。
type Component interface {
	Name() string
	Parameters() Params
	RandomSeed() int64
	IsFitted() bool
	Fit(X mat.Matrix, y *mat.VecDense) error
}

// Transformer は特徴量（と必要に応じて目的変数）を変換するコンポーネントです。
type Transformer interface {
	Component
	Transform(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error)
}

// Estimator は予測を行うコンポーネントです。
type Estimator interface {
	Component
	ModelFamily() modelfamily.ModelFamily
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// ProbabilisticEstimator はクラス確率を出力できる推定器です。
type ProbabilisticEstimator interface {
	Estimator
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// Classifier は学習前にクラス数を受け取る推定器です。
// 交差検証の分割にすべてのクラスが現れない場合でも確率行列の列数を揃えます。
type Classifier interface {
	ProbabilisticEstimator
	SetNumClasses(n int)
}
