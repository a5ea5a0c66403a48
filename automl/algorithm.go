// Package automl はパイプラインのバッチを提案し、評価結果から探索を進める
// AutoMLアルゴリズムと、それを駆動する探索ループを提供します。
//
// 基本的な使い方:
//
//	search, err := automl.NewAutoMLSearch(X, y, problemtype.Binary,
//	    automl.WithMaxBatches(3),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := search.Search(ctx); err != nil {
//	    return err
//	}
//	best, err := search.BestPipeline()
//
// アルゴリズムだけを使う場合は NextBatch と AddResult を交互に呼び出します。
// 前のバッチのすべてのパイプラインの結果を報告するまで次のバッチは作れません。
package automl

import (
	"math"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/objectives"
	"github.com/YuminosukeSato/goautoml/pipelines"
)

// AutoMLAlgorithm はパイプラインのバッチを提案し、その評価結果を受け取ります。
type AutoMLAlgorithm interface {
	// NextBatch は次に評価するパイプラインを返します。
	NextBatch() ([]*pipelines.Pipeline, error)
	// AddResult は NextBatch が返したパイプラインのスコアを記録します。
	AddResult(score float64, p *pipelines.Pipeline, meta Metadata) error
	// PipelineNumber はこれまでに提案したパイプラインの数です。
	PipelineNumber() int
	// BatchNumber はこれまでに提案したバッチの数です。
	BatchNumber() int
	// AllowedPipelines は探索対象のテンプレートです。
	AllowedPipelines() []*pipelines.Pipeline
	// BestPipelineInfo はモデルファミリーごとの最良の結果です。
	BestPipelineInfo() map[modelfamily.ModelFamily]BestPipeline
}

// Metadata は AddResult に渡す評価結果の付加情報です。
type Metadata struct {
	// ID は探索結果の中でのパイプラインID
	ID int
}

// BestPipeline はあるモデルファミリーで最良だったパイプラインの記録です。
type BestPipeline struct {
	Score      float64
	ID         int
	Parameters model.PipelineParameters
	Pipeline   *pipelines.Pipeline
}

// Direction はスコアの良し悪しの向きです。
type Direction int

const (
	// Minimize は小さいスコアほど良い
	Minimize Direction = iota
	// Maximize は大きいスコアほど良い
	Maximize
)

// DirectionOf は指標 o の向きを返します。
func DirectionOf(o objectives.Objective) Direction {
	if o.GreaterIsBetter() {
		return Maximize
	}
	return Minimize
}

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Improves は candidate が incumbent より厳密に良い場合に true を返します。
// NaN はどの値も改善しません。
func (d Direction) Improves(candidate, incumbent float64) bool {
	if math.IsNaN(candidate) {
		return false
	}
	if math.IsNaN(incumbent) {
		return true
	}
	if d == Maximize {
		return candidate > incumbent
	}
	return candidate < incumbent
}

// Worst はこの向きで最も悪い値です。
func (d Direction) Worst() float64 {
	if d == Maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// ToMinimize は小さいほど良い値に変換したスコアを返します。
func (d Direction) ToMinimize(score float64) float64 {
	if d == Maximize {
		return -score
	}
	return score
}

// less はスコアの並べ替え用の比較です。NaN は常に最後になります。
func (d Direction) less(a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	return d.Improves(a, b)
}
