package automl

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/componentgraph"
	"github.com/YuminosukeSato/goautoml/components"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pipelines"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/pkg/log"
	"github.com/YuminosukeSato/goautoml/problemtype"
	"github.com/YuminosukeSato/goautoml/tuners"
)

// ensembleIndex は pending 中のスタックアンサンブルを表すテンプレート番号です。
const ensembleIndex = -1

// ComponentGraphTemplate は探索対象として明示するコンポーネントグラフです。
type ComponentGraphTemplate struct {
	Name  string
	Nodes []componentgraph.Node
}

type iterativeOptions struct {
	graphs            []ComponentGraphTemplate
	graphsSet         bool
	families          []modelfamily.ModelFamily
	familyOrder       []modelfamily.ModelFamily
	pipelinesPerBatch int
	randomSeed        int64
	nJobs             int
	ensembling        bool
	pipelineParams    model.PipelineParameters
	customHyper       model.PipelineParameters
	tunerFactory      tuners.Factory
	direction         Direction
	registry          *components.Registry
	logger            log.Logger
}

// Option は IterativeAlgorithm の設定を変更します。
type Option func(*iterativeOptions)

// WithAllowedComponentGraphs は探索するグラフを明示します。
// 指定しない場合は問題の種類に対応するすべての推定器から既定のパイプラインを作ります。
// 空で指定すると NewIterativeAlgorithm は ValueError を返します。
func WithAllowedComponentGraphs(graphs ...ComponentGraphTemplate) Option {
	return func(o *iterativeOptions) {
		o.graphs = append(o.graphs, graphs...)
		o.graphsSet = true
	}
}

// WithAllowedModelFamilies は既定のパイプラインを作る推定器のモデルファミリーを絞ります。
func WithAllowedModelFamilies(families ...modelfamily.ModelFamily) Option {
	return func(o *iterativeOptions) { o.families = append(o.families, families...) }
}

// WithEstimatorFamilyOrder は最初のバッチでのモデルファミリーの優先順位です。
func WithEstimatorFamilyOrder(order ...modelfamily.ModelFamily) Option {
	return func(o *iterativeOptions) { o.familyOrder = order }
}

// WithPipelinesPerBatch は2バッチ目以降のバッチあたりのパイプライン数です（既定 5）。
func WithPipelinesPerBatch(n int) Option {
	return func(o *iterativeOptions) { o.pipelinesPerBatch = n }
}

// WithRandomSeed はすべてのパイプラインとチューナーに渡すシードです。
func WithRandomSeed(seed int64) Option {
	return func(o *iterativeOptions) { o.randomSeed = seed }
}

// WithNJobs は n_jobs を持つコンポーネントに渡す並列数です（既定 -1）。
func WithNJobs(n int) Option {
	return func(o *iterativeOptions) { o.nJobs = n }
}

// WithEnsembling はスタックアンサンブルのバッチを有効にします。
// 探索対象が2つ以上ある場合だけ有効です。
func WithEnsembling(enabled bool) Option {
	return func(o *iterativeOptions) { o.ensembling = enabled }
}

// WithPipelineParams はすべてのパイプラインに固定で渡すパラメータです。
// "pipeline" キーはパイプライン全体の設定（時系列の gap など）です。
func WithPipelineParams(params model.PipelineParameters) Option {
	return func(o *iterativeOptions) { o.pipelineParams = params.Clone() }
}

// WithCustomHyperparameters はコンポーネントの既定の探索範囲を上書きします。
// 値は tuners.Categorical / Integer / Real でなければなりません。
func WithCustomHyperparameters(ranges model.PipelineParameters) Option {
	return func(o *iterativeOptions) { o.customHyper = ranges.Clone() }
}

// WithTunerFactory はテンプレートごとのチューナーを作る関数です（既定 SMBO）。
func WithTunerFactory(f tuners.Factory) Option {
	return func(o *iterativeOptions) { o.tunerFactory = f }
}

// WithDirection はスコアの向きです（既定 Minimize）。
func WithDirection(d Direction) Option {
	return func(o *iterativeOptions) { o.direction = d }
}

// WithRegistry はコンポーネントの解決に使うレジストリです。
func WithRegistry(r *components.Registry) Option {
	return func(o *iterativeOptions) { o.registry = r }
}

// WithLogger はアルゴリズムのログ出力先です。
func WithLogger(l log.Logger) Option {
	return func(o *iterativeOptions) { o.logger = l }
}

type firstBatchResult struct {
	score float64
	index int
}

type pendingEntry struct {
	index int
	batch int
}

// IterativeAlgorithm はバッチ単位で探索を進めるアルゴリズムです。
//
// 最初のバッチは探索対象のテンプレートを既定のパラメータで1つずつ評価します。
// 以降のバッチは最初のバッチの成績が良い順にテンプレートを巡回し、
// そのテンプレートのチューナーが提案したパイプラインを pipelinesPerBatch 個ずつ返します。
// アンサンブルが有効な場合は1巡ごとにスタックアンサンブルのバッチを挟みます。
type IterativeAlgorithm struct {
	problemType    problemtype.ProblemType
	registry       *components.Registry
	allowed        []*pipelines.Pipeline
	perBatch       int
	randomSeed     int64
	nJobs          int
	ensembling     bool
	pipelineParams model.PipelineParameters
	customHyper    map[string]map[string]tuners.Dimension
	tunerFactory   tuners.Factory
	direction      Direction
	logger         log.Logger

	tuners  []tuners.Tuner
	spaces  []*tuners.SearchSpace
	first   []firstBatchResult
	best    map[modelfamily.ModelFamily]BestPipeline
	pending map[*pipelines.Pipeline]pendingEntry

	pipelineNumber int
	batchNumber    int
}

var _ AutoMLAlgorithm = (*IterativeAlgorithm)(nil)

// NewIterativeAlgorithm は X と problemType から探索対象を決めてアルゴリズムを作成します。
// X は既定のパイプラインの前処理の選択にだけ使います。
func NewIterativeAlgorithm(X mat.Matrix, pt problemtype.ProblemType, opts ...Option) (*IterativeAlgorithm, error) {
	o := iterativeOptions{
		pipelinesPerBatch: 5,
		nJobs:             -1,
		tunerFactory:      tuners.DefaultFactory(),
		direction:         Minimize,
		registry:          components.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLogger()
	}
	if o.pipelinesPerBatch < 1 {
		return nil, errors.NewValueErrorf("NewIterativeAlgorithm", "pipelines per batch must be positive, got %d", o.pipelinesPerBatch)
	}
	if len(o.familyOrder) == 0 {
		o.familyOrder = modelfamily.DefaultOrder()
	}

	for node, params := range o.pipelineParams {
		for k, v := range params {
			if tuners.IsDimension(v) {
				return nil, errors.NewValueErrorf("NewIterativeAlgorithm",
					"Pipeline parameters should not contain search space dimensions, got %v for %s.%s", v, node, k)
			}
		}
	}
	custom := make(map[string]map[string]tuners.Dimension, len(o.customHyper))
	for node, params := range o.customHyper {
		for k, v := range params {
			dim, ok := v.(tuners.Dimension)
			if !ok {
				return nil, errors.NewValueErrorf("NewIterativeAlgorithm",
					"Custom hyperparameters should only contain Categorical, Integer, and Real dimensions, got %v for %s.%s", v, node, k)
			}
			if err := tuners.Validate(dim); err != nil {
				return nil, err
			}
			if custom[node] == nil {
				custom[node] = map[string]tuners.Dimension{}
			}
			custom[node][k] = dim
		}
	}

	a := &IterativeAlgorithm{
		problemType:    pt,
		registry:       o.registry,
		perBatch:       o.pipelinesPerBatch,
		randomSeed:     o.randomSeed,
		nJobs:          o.nJobs,
		ensembling:     o.ensembling,
		pipelineParams: o.pipelineParams,
		customHyper:    custom,
		tunerFactory:   o.tunerFactory,
		direction:      o.direction,
		logger:         o.logger,
		best:           map[modelfamily.ModelFamily]BestPipeline{},
		pending:        map[*pipelines.Pipeline]pendingEntry{},
	}

	allowed, err := a.makeTemplates(X, o)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return nil, errors.NewValueErrorf("NewIterativeAlgorithm",
			"No allowed pipelines to search for problem type %s", pt)
	}
	if unused := unusedParameterNodes(o.pipelineParams, allowed); len(unused) > 0 {
		errors.Warn(errors.NewParameterNotUsedWarning(unused))
	}
	sort.SliceStable(allowed, func(i, j int) bool {
		return modelfamily.Rank(o.familyOrder, allowed[i].ModelFamily()) < modelfamily.Rank(o.familyOrder, allowed[j].ModelFamily())
	})
	if err := a.SetAllowedPipelines(allowed); err != nil {
		return nil, err
	}
	return a, nil
}

// unusedParameterNodes は params のうち、どのテンプレートにも存在しないノード名を返します。
func unusedParameterNodes(params model.PipelineParameters, allowed []*pipelines.Pipeline) []string {
	var unused []string
	for name := range params {
		if name == model.PipelineKey {
			continue
		}
		found := false
		for _, p := range allowed {
			if _, err := p.ComponentGraph().Spec(name); err == nil {
				found = true
				break
			}
		}
		if !found {
			unused = append(unused, name)
		}
	}
	return unused
}

// makeTemplates は探索対象のパイプラインを作ります。"pipeline" キーの設定はテンプレートにも渡します。
func (a *IterativeAlgorithm) makeTemplates(X mat.Matrix, o iterativeOptions) ([]*pipelines.Pipeline, error) {
	base := model.PipelineParameters{}
	if pl, ok := a.pipelineParams[model.PipelineKey]; ok {
		base[model.PipelineKey] = pl.Clone()
	}
	var out []*pipelines.Pipeline
	if o.graphsSet {
		for _, g := range o.graphs {
			p, err := pipelines.New(g.Nodes, a.problemType,
				pipelines.WithCustomName(g.Name),
				pipelines.WithParameters(base),
				pipelines.WithRandomSeed(a.randomSeed),
				pipelines.WithRegistry(a.registry),
			)
			if err != nil {
				return nil, errors.Wrapf(err, "allowed component graph %q", g.Name)
			}
			out = append(out, p)
		}
		return out, nil
	}
	for _, spec := range a.registry.Estimators(a.problemType, o.families...) {
		p, err := pipelines.MakePipeline(X, spec.Name, a.problemType,
			pipelines.WithParameters(base),
			pipelines.WithRandomSeed(a.randomSeed),
			pipelines.WithRegistry(a.registry),
		)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SetAllowedPipelines は探索対象を差し替え、テンプレートごとのチューナーを作り直します。
// 最初のバッチを提案した後には呼べません。
// 空にすると最初のバッチは空になり、次の NextBatch は ErrNoResultsReported を返します。
func (a *IterativeAlgorithm) SetAllowedPipelines(allowed []*pipelines.Pipeline) error {
	if a.batchNumber > 0 {
		return errors.NewAutoMLAlgorithmError("SetAllowedPipelines", "allowed pipelines cannot change after the first batch")
	}
	spaces := make([]*tuners.SearchSpace, len(allowed))
	ts := make([]tuners.Tuner, len(allowed))
	for i, p := range allowed {
		space, err := tuners.NewSearchSpace(a.rangesFor(p))
		if err != nil {
			return errors.Wrapf(err, "search space for %s", p.Name())
		}
		spaces[i] = space
		ts[i] = a.tunerFactory(space, a.randomSeed)
	}
	a.allowed = append([]*pipelines.Pipeline(nil), allowed...)
	a.spaces = spaces
	a.tuners = ts
	return nil
}

// rangesFor はテンプレートの探索範囲です。固定パラメータは custom で範囲を与えた場合を除き探索しません。
func (a *IterativeAlgorithm) rangesFor(p *pipelines.Pipeline) tuners.Ranges {
	graph := p.ComponentGraph()
	ranges := tuners.Ranges{}
	for _, n := range graph.Nodes() {
		spec, err := graph.Spec(n.Name)
		if err != nil {
			continue
		}
		dims := make(map[string]tuners.Dimension, len(spec.HyperparameterRanges))
		for k, d := range spec.HyperparameterRanges {
			dims[k] = d
		}
		for k, d := range a.customHyper[n.Name] {
			dims[k] = d
		}
		for k := range a.pipelineParams[n.Name] {
			if _, ok := a.customHyper[n.Name][k]; !ok {
				delete(dims, k)
			}
		}
		if len(dims) > 0 {
			ranges[n.Name] = dims
		}
	}
	return ranges
}

// PipelineNumber はこれまでに提案したパイプラインの数です。
func (a *IterativeAlgorithm) PipelineNumber() int { return a.pipelineNumber }

// BatchNumber はこれまでに提案したバッチの数です。
func (a *IterativeAlgorithm) BatchNumber() int { return a.batchNumber }

// AllowedPipelines は探索対象のテンプレートを優先順位の順に返します。
func (a *IterativeAlgorithm) AllowedPipelines() []*pipelines.Pipeline {
	return append([]*pipelines.Pipeline(nil), a.allowed...)
}

// BestPipelineInfo はモデルファミリーごとの最良の結果のコピーを返します。
func (a *IterativeAlgorithm) BestPipelineInfo() map[modelfamily.ModelFamily]BestPipeline {
	out := make(map[modelfamily.ModelFamily]BestPipeline, len(a.best))
	for f, b := range a.best {
		b.Parameters = b.Parameters.Clone()
		out[f] = b
	}
	return out
}

func (a *IterativeAlgorithm) ensemblingEnabled() bool {
	return a.ensembling && len(a.allowed) > 1
}

// NextBatch は次のバッチを返します。
//
// 最初のバッチの結果が一件もないまま2つ目のバッチを要求した場合と、
// 前のバッチに結果が報告されていないパイプラインが残っている場合は AutoMLAlgorithmError です。
func (a *IterativeAlgorithm) NextBatch() ([]*pipelines.Pipeline, error) {
	if a.batchNumber == 1 && len(a.first) == 0 {
		return nil, errors.Mark(
			errors.NewAutoMLAlgorithmError("NextBatch", "No results were reported from the first batch"),
			errors.ErrNoResultsReported)
	}
	if len(a.pending) > 0 {
		return nil, errors.Mark(
			errors.NewAutoMLAlgorithmError("NextBatch", "all pipelines of the previous batch must be reported before the next batch"),
			errors.ErrPendingResults)
	}
	if a.batchNumber == 1 {
		sort.SliceStable(a.first, func(i, j int) bool {
			return a.direction.less(a.first[i].score, a.first[j].score)
		})
	}

	var batch []*pipelines.Pipeline
	indexes := []int{}
	switch {
	case a.batchNumber == 0:
		for i := range a.allowed {
			p, err := a.instantiate(i, nil)
			if err != nil {
				return nil, err
			}
			batch = append(batch, p)
			indexes = append(indexes, i)
		}
	case a.ensemblingEnabled() && a.batchNumber%(len(a.first)+1) == 0:
		p, err := a.makeEnsemble()
		if err != nil {
			return nil, err
		}
		batch = append(batch, p)
		indexes = append(indexes, ensembleIndex)
	default:
		slots := len(a.first)
		if a.ensemblingEnabled() {
			slots++
		}
		idx := a.first[(a.batchNumber-1)%slots].index
		for i := 0; i < a.perBatch; i++ {
			proposed, err := a.tuners[idx].Propose()
			if err != nil {
				return nil, errors.Wrapf(err, "proposing parameters for %s", a.allowed[idx].Name())
			}
			p, err := a.instantiate(idx, proposed)
			if err != nil {
				return nil, err
			}
			batch = append(batch, p)
			indexes = append(indexes, idx)
		}
	}

	a.batchNumber++
	a.pipelineNumber += len(batch)
	for i, p := range batch {
		a.pending[p] = pendingEntry{index: indexes[i], batch: a.batchNumber}
	}
	a.logger.Debug("next batch",
		log.BatchKey, a.batchNumber,
		log.PipelineNumberKey, a.pipelineNumber,
		"automl.batch_size", len(batch),
	)
	return batch, nil
}

// instantiate はテンプレート idx に proposed を適用したパイプラインを作ります。
// n_jobs を持つコンポーネントにはアルゴリズムの nJobs を、固定パラメータは
// custom で範囲を与えていない限りすべてのバッチで、与えている場合は最初のバッチだけで上書きします。
func (a *IterativeAlgorithm) instantiate(idx int, proposed model.PipelineParameters) (*pipelines.Pipeline, error) {
	tmpl := a.allowed[idx]
	graph := tmpl.ComponentGraph()
	params := model.PipelineParameters{}
	if pl, ok := tmpl.Parameters()[model.PipelineKey]; ok {
		params[model.PipelineKey] = pl.Clone()
	}
	for _, n := range graph.Nodes() {
		spec, err := graph.Spec(n.Name)
		if err != nil {
			return nil, err
		}
		np := proposed[n.Name].Clone()
		if np == nil {
			np = model.Params{}
		}
		if _, ok := spec.DefaultParameters["n_jobs"]; ok {
			np["n_jobs"] = a.nJobs
		}
		for k, v := range a.pipelineParams[n.Name] {
			if _, tuned := a.customHyper[n.Name][k]; tuned && a.batchNumber > 0 {
				continue
			}
			np[k] = v
		}
		params[n.Name] = np
	}
	return tmpl.NewWithParameters(params, a.randomSeed)
}

// makeEnsemble はモデルファミリーごとの最良のパイプラインを入力とするスタックアンサンブルを作ります。
func (a *IterativeAlgorithm) makeEnsemble() (*pipelines.Pipeline, error) {
	var inputs []*pipelines.Pipeline
	seen := map[modelfamily.ModelFamily]bool{}
	for _, tmpl := range a.allowed {
		f := tmpl.ModelFamily()
		b, ok := a.best[f]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		p, err := b.Pipeline.NewWithParameters(b.Parameters, a.randomSeed)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, p)
	}
	if len(inputs) == 0 {
		return nil, errors.NewAutoMLAlgorithmError("NextBatch", "no model family has a finite score to build an ensemble from")
	}
	name := pipelines.StackedEnsembleName(a.problemType)
	return pipelines.MakeStackedEnsemblePipeline(inputs, a.problemType, a.randomSeed,
		pipelines.WithParameters(model.PipelineParameters{name: {"n_jobs": a.nJobs}}),
		pipelines.WithRegistry(a.registry),
	)
}

// AddResult は p の評価スコアを記録します。
//
// p はこのアルゴリズムが直前のバッチで返したパイプラインでなければなりません。
// スコアはテンプレートのチューナーに渡され、モデルファミリーの最良記録を更新します。
// NaN のスコアも記録しますが最良記録にはなりません。
func (a *IterativeAlgorithm) AddResult(score float64, p *pipelines.Pipeline, meta Metadata) error {
	entry, ok := a.pending[p]
	if !ok {
		return errors.Mark(
			errors.NewAutoMLAlgorithmError("AddResult", "pipeline "+p.Name()+" was not proposed in the current batch or was already reported"),
			errors.ErrUnknownPipeline)
	}
	if entry.index != ensembleIndex {
		observed := a.spaces[entry.index].Extract(p.Parameters())
		if err := a.tuners[entry.index].Add(observed, a.direction.ToMinimize(score)); err != nil {
			return errors.NewValueErrorf("AddResult",
				"Default parameters for components in pipeline %s not in the hyperparameter ranges: %v", p.Name(), err)
		}
		if entry.batch == 1 {
			a.first = append(a.first, firstBatchResult{score: score, index: entry.index})
		}
	}
	delete(a.pending, p)

	f := p.ModelFamily()
	if f != modelfamily.Ensemble {
		incumbent := a.direction.Worst()
		if cur, ok := a.best[f]; ok {
			incumbent = cur.Score
		}
		if a.direction.Improves(score, incumbent) {
			a.best[f] = BestPipeline{Score: score, ID: meta.ID, Parameters: p.Parameters(), Pipeline: p}
		}
	}
	if !math.IsNaN(score) {
		a.logger.Debug("result added",
			log.PipelineIDKey, meta.ID,
			log.PipelineNameKey, p.Name(),
			log.ModelFamilyKey, f.String(),
			log.ScoreKey, score,
		)
	}
	return nil
}
