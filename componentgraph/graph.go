// Package componentgraph は名前付きコンポーネントの有向非巡回グラフを表現し、
// 構造の検証、実行順序の決定、ノードごとのパラメータ管理、学習と予測の実行を行います。
//
// ノードの入力は "X" / "y"（パイプラインへの入力）または "<ノード名>.x" / "<ノード名>.y"
// （上流ノードの出力）で指定します。
package componentgraph

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/YuminosukeSato/goautoml/components"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Node はグラフの1ノードです。Component はレジストリに登録されたコンポーネント名です。
type Node struct {
	Name      string
	Component string
	Inputs    []string
}

// Linear はコンポーネント名の列から直列のグラフを作ります。
// 同じコンポーネントが複数回現れる場合、2つ目以降のノード名には "_<位置>" を付けます。
func Linear(componentNames ...string) []Node {
	nodes := make([]Node, 0, len(componentNames))
	seen := make(map[string]bool, len(componentNames))
	for i, c := range componentNames {
		name := c
		if seen[name] {
			name = fmt.Sprintf("%s_%d", c, i)
		}
		seen[name] = true
		inputs := []string{"X", "y"}
		if i > 0 {
			inputs = []string{nodes[i-1].Name + ".x", "y"}
		}
		nodes = append(nodes, Node{Name: name, Component: c, Inputs: inputs})
	}
	return nodes
}

type options struct {
	registry   *components.Registry
	randomSeed int64
}

// Option は New の設定です。
type Option func(*options)

// WithRegistry はコンポーネント名の解決に使うレジストリを指定します。
func WithRegistry(r *components.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithRandomSeed はコンポーネントに渡す乱数シードを指定します。
func WithRandomSeed(seed int64) Option {
	return func(o *options) { o.randomSeed = seed }
}

// ComponentGraph は検証済みのグラフと、インスタンス化されたコンポーネントを保持します。
// 構造は作成後に変更されません。別のパラメータで使う場合は Instantiate で新しいグラフを作ります。
type ComponentGraph struct {
	registry *components.Registry
	nodes    []Node
	index    map[string]int
	specs    map[string]*components.Spec
	order    []string
	terminal string

	seed      int64
	instances map[string]model.Component
	fitted    bool
}

// New はグラフの構造を検証し、既定のパラメータでコンポーネントを作成します。
func New(nodes []Node, opts ...Option) (*ComponentGraph, error) {
	o := options{registry: components.DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	g := &ComponentGraph{
		registry: o.registry,
		nodes:    cloneNodes(nodes),
		index:    make(map[string]int, len(nodes)),
		specs:    make(map[string]*components.Spec, len(nodes)),
		seed:     o.randomSeed,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	if err := g.instantiate(nil); err != nil {
		return nil, err
	}
	return g, nil
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Node{Name: n.Name, Component: n.Component, Inputs: slices.Clone(n.Inputs)}
	}
	return out
}

// parseInput は入力参照を (上流ノード名, 種類) に分解します。上流ノード名が空なら X / y です。
func parseInput(ref string) (node string, kind string, ok bool) {
	switch ref {
	case "X":
		return "", "x", true
	case "y":
		return "", "y", true
	}
	i := strings.LastIndex(ref, ".")
	if i <= 0 {
		return "", "", false
	}
	switch ref[i+1:] {
	case "x", "y":
		return ref[:i], ref[i+1:], true
	}
	return "", "", false
}

func (g *ComponentGraph) validate() error {
	if len(g.nodes) == 0 {
		return errors.NewGraphValidationError("graph has no nodes")
	}
	for i, n := range g.nodes {
		if n.Name == "" {
			return errors.NewGraphValidationError("node name must not be empty")
		}
		if n.Name == "X" || n.Name == "y" || n.Name == model.PipelineKey {
			return errors.NewGraphValidationError("node name is reserved", n.Name)
		}
		if _, dup := g.index[n.Name]; dup {
			return errors.NewGraphValidationError("duplicate node name", n.Name)
		}
		g.index[n.Name] = i
		spec, err := g.registry.Lookup(n.Component)
		if err != nil {
			return err
		}
		g.specs[n.Name] = spec
	}

	consumed := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		xInputs, yInputs := 0, 0
		for _, ref := range n.Inputs {
			up, kind, ok := parseInput(ref)
			if !ok {
				return errors.NewGraphValidationError(
					fmt.Sprintf("input %q must be X, y, <node>.x or <node>.y", ref), n.Name)
			}
			if kind == "x" {
				xInputs++
			} else {
				yInputs++
			}
			if up == "" {
				continue
			}
			if _, exists := g.index[up]; !exists {
				return errors.NewGraphValidationError(
					fmt.Sprintf("input %q refers to a node that does not exist", ref), n.Name)
			}
			if up == n.Name {
				return errors.NewGraphValidationError("node cannot consume its own output", n.Name)
			}
			if kind == "y" && g.specs[up].IsEstimator {
				return errors.NewGraphValidationError(
					fmt.Sprintf("estimator %q has no target output", up), n.Name)
			}
			consumed[up] = true
		}
		if xInputs == 0 {
			return errors.NewGraphValidationError("node must have at least one feature input (X or <node>.x)", n.Name)
		}
		if yInputs != 1 {
			return errors.NewGraphValidationError("node must have exactly one target input (y or <node>.y)", n.Name)
		}
	}

	var terminals []string
	for _, n := range g.nodes {
		if !consumed[n.Name] {
			terminals = append(terminals, n.Name)
		}
	}

	order, err := g.computeOrder()
	if err != nil {
		return err
	}
	if len(terminals) != 1 {
		return errors.NewGraphValidationError("graph must have exactly one final node", terminals...)
	}
	g.order = order
	g.terminal = terminals[0]
	return nil
}

// computeOrder は Kahn 法で実行順序を決めます。実行可能なノードが複数ある場合は宣言順です。
func (g *ComponentGraph) computeOrder() ([]string, error) {
	indegree := make([]int, len(g.nodes))
	children := make([][]int, len(g.nodes))
	for i, n := range g.nodes {
		parents := make(map[int]bool)
		for _, ref := range n.Inputs {
			if up, _, _ := parseInput(ref); up != "" {
				parents[g.index[up]] = true
			}
		}
		for p := range parents {
			indegree[i]++
			children[p] = append(children[p], i)
		}
	}

	done := make([]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for i := range g.nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var cycle []string
			for i, n := range g.nodes {
				if !done[i] {
					cycle = append(cycle, n.Name)
				}
			}
			return nil, errors.NewGraphValidationError("cycle detected", cycle...)
		}
		done[next] = true
		order = append(order, g.nodes[next].Name)
		for _, c := range children[next] {
			indegree[c]--
		}
	}
	return order, nil
}

// instantiate は params でコンポーネントを作り直します。
func (g *ComponentGraph) instantiate(params model.PipelineParameters) error {
	pipelineLevel := params[model.PipelineKey]
	instances := make(map[string]model.Component, len(g.nodes))
	for _, n := range g.nodes {
		spec := g.specs[n.Name]
		nodeParams := model.Params{}
		for key, v := range pipelineLevel {
			if spec.ConsumesPipelineParameter(key) {
				nodeParams[key] = v
			}
		}
		nodeParams = nodeParams.Merge(params[n.Name])
		c, err := spec.Instantiate(nodeParams, g.seed)
		if err != nil {
			return errors.Wrapf(err, "node %s", n.Name)
		}
		instances[n.Name] = c
	}
	g.instances = instances
	g.fitted = false
	return nil
}

// Instantiate は同じ構造で params を適用した未学習のグラフを返します。
// どのノードにも対応しないキー（"pipeline" を除く）はソートして unused に返します。
func (g *ComponentGraph) Instantiate(params model.PipelineParameters, randomSeed int64) (*ComponentGraph, []string, error) {
	var unused []string
	for _, key := range params.Nodes() {
		if key == model.PipelineKey {
			continue
		}
		if _, ok := g.index[key]; !ok {
			unused = append(unused, key)
		}
	}
	out := &ComponentGraph{
		registry: g.registry,
		nodes:    g.nodes,
		index:    g.index,
		specs:    g.specs,
		order:    g.order,
		terminal: g.terminal,
		seed:     randomSeed,
	}
	if err := out.instantiate(params); err != nil {
		return nil, nil, err
	}
	return out, unused, nil
}

// Nodes は宣言順のノードのコピーを返します。
func (g *ComponentGraph) Nodes() []Node { return cloneNodes(g.nodes) }

// ComputeOrder は実行順のノード名を返します。
func (g *ComponentGraph) ComputeOrder() []string { return slices.Clone(g.order) }

func (g *ComponentGraph) RandomSeed() int64 { return g.seed }

func (g *ComponentGraph) IsFitted() bool { return g.fitted }

// Spec はノードのコンポーネントの Spec を返します。
func (g *ComponentGraph) Spec(name string) (*components.Spec, error) {
	spec, ok := g.specs[name]
	if !ok {
		return nil, errors.NewValueErrorf("ComponentGraph.Spec", "graph has no node %q", name)
	}
	return spec, nil
}

// DefaultParameters はノードごとのコンポーネントの既定パラメータです。
func (g *ComponentGraph) DefaultParameters() model.PipelineParameters {
	out := make(model.PipelineParameters, len(g.nodes))
	for _, n := range g.nodes {
		out[n.Name] = g.specs[n.Name].DefaultParameters.Clone()
	}
	return out
}

// Parameters は各ノードに実際に設定されたパラメータです。
func (g *ComponentGraph) Parameters() model.PipelineParameters {
	out := make(model.PipelineParameters, len(g.nodes))
	for name, c := range g.instances {
		out[name] = c.Parameters()
	}
	return out
}

// GetParameters は name のノードのパラメータを返します。
func (g *ComponentGraph) GetParameters(name string) (model.Params, error) {
	c, ok := g.instances[name]
	if !ok {
		return nil, errors.NewValueErrorf("ComponentGraph.GetParameters", "graph has no node %q", name)
	}
	return c.Parameters(), nil
}

// Components は実行順に (ノード名, コンポーネント) を返すイテレータです。何度でも使えます。
func (g *ComponentGraph) Components() iter.Seq2[string, model.Component] {
	return func(yield func(string, model.Component) bool) {
		for _, name := range g.order {
			if !yield(name, g.instances[name]) {
				return
			}
		}
	}
}

// Get は name のノードのコンポーネントを返します。
func (g *ComponentGraph) Get(name string) (model.Component, bool) {
	c, ok := g.instances[name]
	return c, ok
}

// Estimators は実行順の推定器ノードです。
func (g *ComponentGraph) Estimators() []model.Estimator {
	var out []model.Estimator
	for _, c := range g.Components() {
		if est, ok := c.(model.Estimator); ok {
			out = append(out, est)
		}
	}
	return out
}

// FinalName は最終ノードの名前です。
func (g *ComponentGraph) FinalName() string { return g.terminal }

// FinalComponent は最終ノードのコンポーネントです。
func (g *ComponentGraph) FinalComponent() model.Component { return g.instances[g.terminal] }

// SetNumClasses はすべての分類器にクラス数を設定します。
func (g *ComponentGraph) SetNumClasses(n int) {
	for _, c := range g.instances {
		if clf, ok := c.(model.Classifier); ok {
			clf.SetNumClasses(n)
		}
	}
}

// Describe はノードの説明を宣言順に返します。
func (g *ComponentGraph) Describe() []model.NodeDescription {
	out := make([]model.NodeDescription, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = model.NodeDescription{
			Name:      n.Name,
			Component: n.Component,
			Inputs:    slices.Clone(n.Inputs),
			Params:    g.instances[n.Name].Parameters(),
		}
	}
	return out
}

func (g *ComponentGraph) String() string {
	return fmt.Sprintf("ComponentGraph(%s)", strings.Join(g.order, " -> "))
}
