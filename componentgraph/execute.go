package componentgraph

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// outputs はノードごとの出力です。
type outputs struct {
	x map[string]*mat.Dense
	y map[string]*mat.VecDense
}

func (g *ComponentGraph) gather(n Node, X mat.Matrix, y *mat.VecDense, out outputs) (mat.Matrix, *mat.VecDense) {
	var xs []mat.Matrix
	var yIn *mat.VecDense
	for _, ref := range n.Inputs {
		up, kind, _ := parseInput(ref)
		switch {
		case up == "" && kind == "x":
			xs = append(xs, X)
		case up == "" && kind == "y":
			yIn = y
		case kind == "x":
			xs = append(xs, out.x[up])
		default:
			yIn = out.y[up]
		}
	}
	if len(xs) == 1 {
		return xs[0], yIn
	}
	return data.HStack(xs...), yIn
}

// estimatorFeatures は推定器の出力を下流ノードの特徴量にします。
// 2値分類は正例の確率、多値分類は全クラスの確率、回帰は予測値です。
func estimatorFeatures(est model.Estimator, X mat.Matrix) (*mat.Dense, error) {
	if pe, ok := est.(model.ProbabilisticEstimator); ok {
		proba, err := pe.PredictProba(X)
		if err != nil {
			return nil, err
		}
		r, k := proba.Dims()
		if k == 2 {
			return mat.DenseCopyOf(proba.Slice(0, r, 1, 2)), nil
		}
		return proba, nil
	}
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}
	return data.ColumnVec(pred), nil
}

// run は最終ノードを除くノードを実行し、最終ノードへの入力を返します。
// fit が true の場合は各ノードを学習してから変換します。
func (g *ComponentGraph) run(X mat.Matrix, y *mat.VecDense, fit bool) (mat.Matrix, *mat.VecDense, error) {
	out := outputs{
		x: make(map[string]*mat.Dense, len(g.nodes)),
		y: make(map[string]*mat.VecDense, len(g.nodes)),
	}
	for _, name := range g.order {
		n := g.nodes[g.index[name]]
		xIn, yIn := g.gather(n, X, y, out)
		if name == g.terminal {
			return xIn, yIn, nil
		}
		c := g.instances[name]
		if fit {
			if err := c.Fit(xIn, yIn); err != nil {
				return nil, nil, errors.Wrapf(err, "fitting %s", name)
			}
		}
		switch comp := c.(type) {
		case model.Transformer:
			xt, yt, err := comp.Transform(xIn, yIn)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "transforming with %s", name)
			}
			out.x[name], out.y[name] = xt, yt
		case model.Estimator:
			features, err := estimatorFeatures(comp, xIn)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "computing features from %s", name)
			}
			out.x[name], out.y[name] = features, yIn
		default:
			return nil, nil, errors.NewValueErrorf("ComponentGraph", "node %s is neither a transformer nor an estimator", name)
		}
	}
	return nil, nil, errors.NewGraphValidationError("final node was not reached", g.terminal)
}

// Fit は実行順に各ノードを学習します。
func (g *ComponentGraph) Fit(X mat.Matrix, y *mat.VecDense) error {
	g.fitted = false
	xIn, yIn, err := g.run(X, y, true)
	if err != nil {
		return err
	}
	if err := g.FinalComponent().Fit(xIn, yIn); err != nil {
		return errors.Wrapf(err, "fitting %s", g.terminal)
	}
	g.fitted = true
	return nil
}

func (g *ComponentGraph) requireFitted(method string) error {
	if !g.fitted {
		return errors.NewNotFittedError("ComponentGraph", method)
	}
	return nil
}

// TransformAllButFinal は最終ノードへ渡される特徴量と目的変数を返します。
func (g *ComponentGraph) TransformAllButFinal(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error) {
	if err := g.requireFitted("TransformAllButFinal"); err != nil {
		return nil, nil, err
	}
	xIn, yIn, err := g.run(X, y, false)
	if err != nil {
		return nil, nil, err
	}
	return mat.DenseCopyOf(xIn), yIn, nil
}

// Transform は最終ノードまで変換を適用します。最終ノードが変換器でない場合はエラーです。
func (g *ComponentGraph) Transform(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error) {
	t, ok := g.FinalComponent().(model.Transformer)
	if !ok {
		return nil, nil, errors.NewValueErrorf("ComponentGraph.Transform",
			"final component %s is not a transformer", g.terminal)
	}
	if err := g.requireFitted("Transform"); err != nil {
		return nil, nil, err
	}
	xIn, yIn, err := g.run(X, y, false)
	if err != nil {
		return nil, nil, err
	}
	return t.Transform(xIn, yIn)
}

// Predict は最終ノードの推定器で予測します。
func (g *ComponentGraph) Predict(X mat.Matrix) (*mat.VecDense, error) {
	est, ok := g.FinalComponent().(model.Estimator)
	if !ok {
		return nil, errors.NewValueErrorf("ComponentGraph.Predict",
			"final component %s is not an estimator", g.terminal)
	}
	if err := g.requireFitted("Predict"); err != nil {
		return nil, err
	}
	xIn, _, err := g.run(X, nil, false)
	if err != nil {
		return nil, err
	}
	return est.Predict(xIn)
}

// PredictProba は最終ノードのクラス確率を返します。
func (g *ComponentGraph) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	est, ok := g.FinalComponent().(model.ProbabilisticEstimator)
	if !ok {
		return nil, errors.NewValueErrorf("ComponentGraph.PredictProba",
			"final component %s does not predict probabilities", g.terminal)
	}
	if err := g.requireFitted("PredictProba"); err != nil {
		return nil, err
	}
	xIn, _, err := g.run(X, nil, false)
	if err != nil {
		return nil, err
	}
	return est.PredictProba(xIn)
}
