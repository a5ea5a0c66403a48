package components

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// ComponentBase はコンポーネントに共通する名前・パラメータ・シード・学習状態を保持します。
type ComponentBase struct {
	name   string
	params model.Params
	seed   int64
	state  *model.StateManager
}

// NewComponentBase は ComponentBase を作成します。
func NewComponentBase(name string, params model.Params, randomSeed int64) ComponentBase {
	return ComponentBase{
		name:   name,
		params: params.Clone(),
		seed:   randomSeed,
		state:  model.NewStateManager(),
	}
}

func (b *ComponentBase) Name() string { return b.name }

// Parameters は既定値を含むすべてのパラメータのコピーを返します。
func (b *ComponentBase) Parameters() model.Params { return b.params.Clone() }

func (b *ComponentBase) RandomSeed() int64 { return b.seed }

func (b *ComponentBase) IsFitted() bool { return b.state.IsFitted() }

func (b *ComponentBase) markFitted(X mat.Matrix) {
	r, c := X.Dims()
	b.state.SetFitted(c, r)
}

func (b *ComponentBase) requireFitted(method string, X mat.Matrix) error {
	_, c := X.Dims()
	return b.state.RequireFeatures(b.name, method, c)
}

func checkFitInput(name string, X mat.Matrix, y *mat.VecDense, needY bool) error {
	if X == nil {
		return errors.NewModelError(name+".Fit", "empty data", errors.ErrEmptyData)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(name+".Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		if needY {
			return errors.NewValueErrorf(name+".Fit", "y is required")
		}
		return nil
	}
	if y.Len() != r {
		return errors.NewDimensionError(name+".Fit", r, y.Len(), 0)
	}
	return nil
}
