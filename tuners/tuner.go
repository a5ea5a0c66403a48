package tuners

import (
	"strings"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Tuner は観測済みのスコアをもとに次に試すパラメータを提案します。
// スコアは小さいほど良いものとして扱います。
// 同じシードと同じ観測履歴からは常に同じ提案を返します。
type Tuner interface {
	// Propose は探索空間内のパラメータを返します。空の探索空間では空のパラメータを返します。
	Propose() (model.PipelineParameters, error)
	// Add は観測結果を記録します。parameters が探索空間外の場合は ValueError を返します。
	Add(parameters model.PipelineParameters, score float64) error
}

// Factory は探索空間とシードから Tuner を作成します。
type Factory func(space *SearchSpace, randomSeed int64) Tuner

// DefaultFactory は SMBOTuner を既定の設定で作成します。
func DefaultFactory() Factory {
	return SMBOFactory()
}

// SMBOFactory は opts を適用した SMBOTuner を作る Factory を返します。
func SMBOFactory(opts ...SMBOOption) Factory {
	return func(space *SearchSpace, seed int64) Tuner {
		return NewSMBOTuner(space, seed, opts...)
	}
}

// RandomSearchFactory は RandomSearchTuner を作る Factory を返します。
func RandomSearchFactory(withReplacement bool) Factory {
	return func(space *SearchSpace, seed int64) Tuner {
		return NewRandomSearchTuner(space, seed, withReplacement)
	}
}

// GridSearchFactory は実数次元を nPoints 点に分割する GridSearchTuner の Factory を返します。
func GridSearchFactory(nPoints int) Factory {
	return func(space *SearchSpace, _ int64) Tuner {
		return NewGridSearchTuner(space, nPoints)
	}
}

// FactoryByName は "smbo" / "random" / "grid" から Factory を返します。
func FactoryByName(name string) (Factory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "smbo", "bayesian":
		return SMBOFactory(), nil
	case "random":
		return RandomSearchFactory(false), nil
	case "grid":
		return GridSearchFactory(10), nil
	}
	return nil, errors.NewValueErrorf("FactoryByName", "unknown tuner %q", name)
}

// observations は各チューナー共通の観測履歴です。
type observations struct {
	X      [][]float64
	Scores []float64
	seen   map[string]bool
}

func (o *observations) add(x []float64, score float64) {
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	o.X = append(o.X, x)
	o.Scores = append(o.Scores, score)
	o.seen[key(x)] = true
}

func (o *observations) len() int { return len(o.X) }
