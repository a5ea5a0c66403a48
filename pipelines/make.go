package pipelines

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/componentgraph"
	"github.com/YuminosukeSato/goautoml/components"
	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

func resolve(opts []Option) options {
	o := options{registry: components.DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PreprocessingFor は estimator の前に置く前処理コンポーネントを返します。
//   - 時系列: Delayed Feature Transformer
//   - X に NaN がある、または時系列: Imputer
//   - 線形モデルと k近傍法: Standard Scaler
func PreprocessingFor(X mat.Matrix, spec *components.Spec, pt problemtype.ProblemType) []string {
	var out []string
	if pt.IsTimeSeries() {
		out = append(out, "Delayed Feature Transformer")
	}
	if pt.IsTimeSeries() || (X != nil && data.HasNaN(X)) {
		out = append(out, "Imputer")
	}
	if spec.ModelFamily == modelfamily.LinearModel || spec.ModelFamily == modelfamily.KNeighbors {
		out = append(out, "Standard Scaler")
	}
	return out
}

// MakePipeline は estimator に既定の前処理を付けた直列のパイプラインを作ります。
func MakePipeline(X mat.Matrix, estimator string, pt problemtype.ProblemType, opts ...Option) (*Pipeline, error) {
	o := resolve(opts)
	spec, err := o.registry.Lookup(estimator)
	if err != nil {
		return nil, err
	}
	if !spec.Supports(pt) {
		return nil, errors.NewValueErrorf("MakePipeline", "%s is not a valid estimator for problem type %s", estimator, pt)
	}
	names := append(PreprocessingFor(X, spec, pt), estimator)
	return New(componentgraph.Linear(names...), pt, opts...)
}

// StackedEnsembleName はスタックアンサンブルの推定器コンポーネント名です。
func StackedEnsembleName(pt problemtype.ProblemType) string {
	if pt.IsClassification() {
		return "Stacked Ensemble Classifier"
	}
	return "Stacked Ensemble Regressor"
}

// MakeStackedEnsemblePipeline は inputs の各パイプラインのノードを
// "<モデルファミリー> Pipeline - <ノード名>" という名前で1つのグラフにまとめ、
// 各パイプラインの最終ノードの出力をスタックアンサンブルに入力するパイプラインを作ります。
// すべてのコンポーネントは randomSeed を使います。
func MakeStackedEnsemblePipeline(inputs []*Pipeline, pt problemtype.ProblemType, randomSeed int64, opts ...Option) (*Pipeline, error) {
	if len(inputs) == 0 {
		return nil, errors.NewValueError("MakeStackedEnsemblePipeline", "at least one input pipeline is required")
	}
	o := resolve(opts)

	var nodes []componentgraph.Node
	params := model.PipelineParameters{}
	finalInputs := make([]string, 0, len(inputs)+1)
	for _, in := range inputs {
		if in.problemType != pt {
			return nil, errors.NewValueErrorf("MakeStackedEnsemblePipeline",
				"input pipeline %s has problem type %s, want %s", in.Name(), in.problemType, pt)
		}
		prefix := fmt.Sprintf("%s Pipeline - ", in.ModelFamily().DisplayName())
		inParams := in.Parameters()
		for _, n := range in.nodes {
			inputsOf := make([]string, len(n.Inputs))
			for i, ref := range n.Inputs {
				if ref == "X" || ref == "y" {
					inputsOf[i] = ref
				} else {
					inputsOf[i] = prefix + ref
				}
			}
			nodes = append(nodes, componentgraph.Node{Name: prefix + n.Name, Component: n.Component, Inputs: inputsOf})
			params[prefix+n.Name] = inParams[n.Name]
		}
		if pl, ok := inParams[model.PipelineKey]; ok {
			if _, set := params[model.PipelineKey]; !set {
				params[model.PipelineKey] = pl
			}
		}
		finalInputs = append(finalInputs, prefix+in.graph.FinalName()+".x")
	}
	ensemble := StackedEnsembleName(pt)
	nodes = append(nodes, componentgraph.Node{Name: ensemble, Component: ensemble, Inputs: append(finalInputs, "y")})

	for node, p := range o.parameters {
		params[node] = params[node].Merge(p)
	}
	name := o.customName
	if name == "" {
		name = "Stacked Ensemble Classification Pipeline"
		if !pt.IsClassification() {
			name = "Stacked Ensemble Regression Pipeline"
		}
	}
	return New(nodes, pt,
		WithParameters(params),
		WithRandomSeed(randomSeed),
		WithCustomName(name),
		WithRegistry(o.registry),
	)
}
