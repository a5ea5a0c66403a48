package tuners

import (
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// GridSearchTuner は探索空間の格子点を順番に提案するチューナーです。
// 最後の格子点を提案した後は NoParamsError を返します。
type GridSearchTuner struct {
	space   *SearchSpace
	grids   [][]any
	counter []int
	done    bool
	history observations
}

// NewGridSearchTuner は実数・整数の次元を最大 nPoints 点に分割した GridSearchTuner を作成します。
func NewGridSearchTuner(space *SearchSpace, nPoints int) *GridSearchTuner {
	params := space.Parameters()
	grids := make([][]any, len(params))
	for i, p := range params {
		grids[i] = p.Dim.Grid(nPoints)
	}
	return &GridSearchTuner{space: space, grids: grids, counter: make([]int, len(params))}
}

func (t *GridSearchTuner) Propose() (model.PipelineParameters, error) {
	if t.space.Len() == 0 {
		return model.PipelineParameters{}, nil
	}
	if t.done {
		return nil, errors.NewNoParamsError("GridSearchTuner")
	}
	out := model.PipelineParameters{}
	for i, p := range t.space.Parameters() {
		if out[p.Component] == nil {
			out[p.Component] = model.Params{}
		}
		out[p.Component][p.Name] = t.grids[i][t.counter[i]]
	}
	t.advance()
	return out, nil
}

// advance は最後の次元から順に繰り上げる。
func (t *GridSearchTuner) advance() {
	for i := len(t.counter) - 1; i >= 0; i-- {
		t.counter[i]++
		if t.counter[i] < len(t.grids[i]) {
			return
		}
		t.counter[i] = 0
	}
	t.done = true
}

func (t *GridSearchTuner) Add(parameters model.PipelineParameters, score float64) error {
	x, err := t.space.Encode(parameters)
	if err != nil {
		return err
	}
	t.history.add(x, score)
	return nil
}
