package tuners

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/core/parallel"
)

// SMBOTuner は逐次モデルベース最適化を行うチューナーです。
//
// 観測数が nInitial に達するまではランダムに提案し、その後は正規化した探索空間上で
// RBF カーネルのガウス過程を当てはめ、期待改善量 (Expected Improvement) が
// 最大となる候補点を提案します。候補点はシード付きの乱数で生成されるため、
// 同じシードと観測履歴からは同じ提案が得られます。
type SMBOTuner struct {
	space *SearchSpace
	rng   *rand.Rand

	nInitial    int
	nCandidates int
	xi          float64
	lengthScale float64
	noise       float64

	history observations
}

// SMBOOption は SMBOTuner の設定を変更します。
type SMBOOption func(*SMBOTuner)

// WithInitialPoints はガウス過程を使い始めるまでの観測数を設定します。
func WithInitialPoints(n int) SMBOOption {
	return func(t *SMBOTuner) { t.nInitial = n }
}

// WithCandidates は獲得関数を評価する候補点の数を設定します。
func WithCandidates(n int) SMBOOption {
	return func(t *SMBOTuner) { t.nCandidates = n }
}

// WithExploration は期待改善量の探索パラメータ xi を設定します。
func WithExploration(xi float64) SMBOOption {
	return func(t *SMBOTuner) { t.xi = xi }
}

// WithLengthScale は RBF カーネルの長さスケールを設定します。
func WithLengthScale(l float64) SMBOOption {
	return func(t *SMBOTuner) { t.lengthScale = l }
}

// NewSMBOTuner は SMBOTuner を作成します。
func NewSMBOTuner(space *SearchSpace, randomSeed int64, opts ...SMBOOption) *SMBOTuner {
	t := &SMBOTuner{
		space:       space,
		rng:         NewSeededRand(randomSeed),
		nInitial:    5,
		nCandidates: 256,
		xi:          0.01,
		lengthScale: 0.3,
		noise:       1e-6,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SMBOTuner) Add(parameters model.PipelineParameters, score float64) error {
	x, err := t.space.Encode(parameters)
	if err != nil {
		return err
	}
	t.history.add(x, score)
	return nil
}

func (t *SMBOTuner) Propose() (model.PipelineParameters, error) {
	if t.space.Len() == 0 {
		return model.PipelineParameters{}, nil
	}
	if t.history.len() < t.nInitial {
		return t.space.Sample(t.rng), nil
	}

	candidates := make([]model.PipelineParameters, t.nCandidates)
	encoded := make([][]float64, t.nCandidates)
	for i := range candidates {
		candidates[i] = t.space.Sample(t.rng)
		x, err := t.space.Encode(candidates[i])
		if err != nil {
			return nil, err
		}
		encoded[i] = x
	}

	gp, ok := t.fitSurrogate()
	if !ok {
		return candidates[0], nil
	}

	ei := make([]float64, len(candidates))
	parallel.ParallelizeWithThreshold(len(candidates), 64, func(start, end int) {
		for i := start; i < end; i++ {
			ei[i] = gp.expectedImprovement(encoded[i], t.xi)
		}
	})

	best := 0
	for i := 1; i < len(ei); i++ {
		if ei[i] > ei[best] {
			best = i
		}
	}
	return candidates[best], nil
}

// surrogate は標準化したスコアに当てはめたガウス過程です。
type surrogate struct {
	X           [][]float64
	chol        mat.Cholesky
	alpha       *mat.VecDense
	best        float64
	lengthScale float64
}

func (t *SMBOTuner) fitSurrogate() (*surrogate, bool) {
	n := t.history.len()
	y := cleanScores(t.history.Scores)
	mean, std := stat.MeanStdDev(y, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	for i := range y {
		y[i] = (y[i] - mean) / std
	}

	s := &surrogate{X: t.history.X, lengthScale: t.lengthScale, best: math.Inf(1)}
	for _, v := range y {
		s.best = math.Min(s.best, v)
	}

	noise := t.noise
	for attempt := 0; attempt < 5; attempt++ {
		K := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				k := s.kernel(s.X[i], s.X[j])
				if i == j {
					k += noise
				}
				K.SetSym(i, j, k)
			}
		}
		if s.chol.Factorize(K) {
			s.alpha = mat.NewVecDense(n, nil)
			if err := s.chol.SolveVecTo(s.alpha, mat.NewVecDense(n, y)); err == nil {
				return s, true
			}
		}
		noise *= 100
	}
	return nil, false
}

func (s *surrogate) kernel(a, b []float64) float64 {
	var d2 float64
	for i := range a {
		d := a[i] - b[i]
		d2 += d * d
	}
	return math.Exp(-d2 / (2 * s.lengthScale * s.lengthScale))
}

// expectedImprovement は最小化問題における期待改善量を返します。
func (s *surrogate) expectedImprovement(x []float64, xi float64) float64 {
	n := len(s.X)
	kStar := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		kStar.SetVec(i, s.kernel(x, s.X[i]))
	}
	mu := mat.Dot(kStar, s.alpha)

	var w mat.VecDense
	if err := s.chol.SolveVecTo(&w, kStar); err != nil {
		return 0
	}
	variance := 1 - mat.Dot(kStar, &w)
	if variance < 1e-12 {
		return 0
	}
	sigma := math.Sqrt(variance)

	improvement := s.best - mu - xi
	z := improvement / sigma
	return improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
}

// cleanScores は NaN や Inf を最も悪い有限のスコアに置き換えたコピーを返します。
func cleanScores(scores []float64) []float64 {
	worst := math.Inf(-1)
	for _, v := range scores {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > worst {
			worst = v
		}
	}
	if math.IsInf(worst, -1) {
		worst = 0
	}
	out := make([]float64, len(scores))
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = worst
		} else {
			out[i] = v
		}
	}
	return out
}
