// Package neighbors は k 近傍法による分類器と回帰器を提供します。
package neighbors

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/core/parallel"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Option は k 近傍法のハイパーパラメータを設定します。
type Option func(*base)

// WithNNeighbors は近傍数を設定する
func WithNNeighbors(k int) Option {
	return func(b *base) { b.nNeighbors = k }
}

// WithWeights は近傍の重み付けを設定する（"uniform" または "distance"）
func WithWeights(weights string) Option {
	return func(b *base) { b.weights = weights }
}

// WithP は Minkowski 距離の次数を設定する（1: マンハッタン, 2: ユークリッド）
func WithP(p int) Option {
	return func(b *base) { b.p = p }
}

// WithNJobs は予測時の並列数を設定する（-1 で全CPU）
func WithNJobs(n int) Option {
	return func(b *base) { b.nJobs = n }
}

type base struct {
	state *model.StateManager

	nNeighbors int
	weights    string
	p          int
	nJobs      int

	X *mat.Dense
	y []float64
}

func newBase(opts []Option) base {
	b := base{
		state:      model.NewStateManager(),
		nNeighbors: 5,
		weights:    "uniform",
		p:          2,
		nJobs:      1,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// IsFitted は学習済みかどうかを返す
func (b *base) IsFitted() bool { return b.state.IsFitted() }

func (b *base) fit(op string, X mat.Matrix, y *mat.VecDense) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return errors.NewValueError(op, "y must not be nil")
	}
	if y.Len() != r {
		return errors.NewDimensionError(op, r, y.Len(), 0)
	}
	if b.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be positive", b.nNeighbors)
	}
	if b.weights != "uniform" && b.weights != "distance" {
		return errors.NewValidationError("weights", "must be one of [uniform distance]", b.weights)
	}
	if b.p != 1 && b.p != 2 {
		return errors.NewValidationError("p", "must be 1 or 2", b.p)
	}

	b.X = mat.DenseCopyOf(X)
	b.y = make([]float64, r)
	for i := range b.y {
		b.y[i] = y.AtVec(i)
	}
	b.state.SetFitted(c, r)
	return nil
}

type neighbor struct {
	index    int
	distance float64
}

func (b *base) distance(X mat.Matrix, i, j int) float64 {
	_, c := X.Dims()
	d := 0.0
	for f := 0; f < c; f++ {
		diff := math.Abs(X.At(i, f) - b.X.At(j, f))
		if b.p == 1 {
			d += diff
		} else {
			d += diff * diff
		}
	}
	if b.p == 2 {
		d = math.Sqrt(d)
	}
	return d
}

// kneighbors は X の i 行目に近い学習サンプルを距離の昇順で返す。
// 同じ距離では学習データでの順序が先のものを優先する。
func (b *base) kneighbors(X mat.Matrix, i int) []neighbor {
	n := len(b.y)
	all := make([]neighbor, n)
	for j := 0; j < n; j++ {
		all[j] = neighbor{index: j, distance: b.distance(X, i, j)}
	}
	sort.SliceStable(all, func(a, c int) bool { return all[a].distance < all[c].distance })
	return all[:min(b.nNeighbors, n)]
}

// weightsFor は近傍の重みを返す。距離 0 の近傍があればそれらだけを等しく重み付けする。
func (b *base) weightsFor(nbrs []neighbor) []float64 {
	w := make([]float64, len(nbrs))
	if b.weights == "uniform" {
		for k := range w {
			w[k] = 1
		}
		return w
	}
	exact := false
	for _, nb := range nbrs {
		exact = exact || nb.distance == 0
	}
	for k, nb := range nbrs {
		switch {
		case exact && nb.distance == 0:
			w[k] = 1
		case !exact:
			w[k] = 1 / nb.distance
		}
	}
	return w
}

func (b *base) forEachRow(op string, X mat.Matrix, fn func(i int, nbrs []neighbor)) error {
	r, c := X.Dims()
	if err := b.state.RequireFeatures(op, "Predict", c); err != nil {
		return err
	}
	parallel.ParallelizeN(r, parallel.Workers(b.nJobs), func(start, end int) {
		for i := start; i < end; i++ {
			fn(i, b.kneighbors(X, i))
		}
	})
	return nil
}

func (b *base) getParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": b.nNeighbors,
		"weights":     b.weights,
		"p":           b.p,
		"n_jobs":      b.nJobs,
	}
}

// KNeighborsClassifier は近傍のクラスの多数決で分類します。ラベルはクラス番号 0..k-1 です。
type KNeighborsClassifier struct {
	base
	nClasses int
}

// NewKNeighborsClassifier は k 近傍分類器を作成する
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	return &KNeighborsClassifier{base: newBase(opts)}
}

// SetNumClasses は学習前にクラス数を固定する
func (k *KNeighborsClassifier) SetNumClasses(n int) { k.nClasses = n }

// Fit は学習データを記憶する
func (k *KNeighborsClassifier) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := k.fit("KNeighborsClassifier.Fit", X, y); err != nil {
		return err
	}
	for _, label := range k.y {
		if label < 0 || label != math.Trunc(label) {
			k.state.Reset()
			return errors.NewValueErrorf("KNeighborsClassifier.Fit", "labels must be encoded class indices, got %v", label)
		}
		k.nClasses = max(k.nClasses, int(label)+1)
	}
	return nil
}

// PredictProba は近傍の重み付きクラス比率を返す
func (k *KNeighborsClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, _ := X.Dims()
	probas := mat.NewDense(max(r, 1), max(k.nClasses, 1), nil)
	err := k.forEachRow("KNeighborsClassifier", X, func(i int, nbrs []neighbor) {
		w := k.weightsFor(nbrs)
		total := 0.0
		for n, nb := range nbrs {
			class := int(k.y[nb.index])
			probas.Set(i, class, probas.At(i, class)+w[n])
			total += w[n]
		}
		for c := 0; c < k.nClasses; c++ {
			probas.Set(i, c, probas.At(i, c)/total)
		}
	})
	if err != nil {
		return nil, err
	}
	return probas, nil
}

// Predict は最も確率の高いクラス番号を返す
func (k *KNeighborsClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	probas, err := k.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, c := probas.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if probas.At(i, j) > probas.At(i, best) {
				best = j
			}
		}
		out.SetVec(i, float64(best))
	}
	return out, nil
}

// GetParams はハイパーパラメータを返す
func (k *KNeighborsClassifier) GetParams() map[string]interface{} { return k.getParams() }

// KNeighborsRegressor は近傍の目的変数の重み付き平均で予測します。
type KNeighborsRegressor struct {
	base
}

// NewKNeighborsRegressor は k 近傍回帰器を作成する
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	return &KNeighborsRegressor{base: newBase(opts)}
}

// Fit は学習データを記憶する
func (k *KNeighborsRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	return k.fit("KNeighborsRegressor.Fit", X, y)
}

// Predict は近傍の重み付き平均を返す
func (k *KNeighborsRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(max(r, 1), nil)
	err := k.forEachRow("KNeighborsRegressor", X, func(i int, nbrs []neighbor) {
		w := k.weightsFor(nbrs)
		sum, total := 0.0, 0.0
		for n, nb := range nbrs {
			sum += w[n] * k.y[nb.index]
			total += w[n]
		}
		out.SetVec(i, sum/total)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetParams はハイパーパラメータを返す
func (k *KNeighborsRegressor) GetParams() map[string]interface{} { return k.getParams() }
