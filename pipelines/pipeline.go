// Package pipelines はコンポーネントグラフに問題タイプ（2値・多値分類、回帰、時系列）の
// 契約を結びつけ、学習・予測・評価を行う Pipeline を提供します。
//
// 問題タイプごとの違いは型の継承ではなく、Pipeline が持つ2つの性質で表します。
//   - threshold: 2値分類のみ。予測時の判定閾値
//   - timeSeries: 時系列のみ。"pipeline" キーの gap / max_delay / forecast_horizon
package pipelines

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/componentgraph"
	"github.com/YuminosukeSato/goautoml/components"
	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/objectives"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

// TimeSeriesSettings は時系列パイプライン全体の設定です。
type TimeSeriesSettings struct {
	Gap             int
	MaxDelay        int
	ForecastHorizon int
}

type thresholdTrait struct {
	threshold *float64
}

type options struct {
	parameters model.PipelineParameters
	randomSeed int64
	customName string
	registry   *components.Registry
}

// Option は New の設定です。
type Option func(*options)

// WithParameters はノードごとのパラメータを指定します。
func WithParameters(params model.PipelineParameters) Option {
	return func(o *options) { o.parameters = params.Clone() }
}

// WithRandomSeed は乱数シードを指定します。
func WithRandomSeed(seed int64) Option {
	return func(o *options) { o.randomSeed = seed }
}

// WithCustomName はパイプラインの表示名を指定します。
func WithCustomName(name string) Option {
	return func(o *options) { o.customName = name }
}

// WithRegistry はコンポーネントの解決に使うレジストリを指定します。
func WithRegistry(r *components.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Pipeline はコンポーネントグラフと問題タイプの組です。
type Pipeline struct {
	nodes       []componentgraph.Node
	registry    *components.Registry
	problemType problemtype.ProblemType
	parameters  model.PipelineParameters
	customName  string
	seed        int64

	graph *componentgraph.ComponentGraph

	threshold  *thresholdTrait
	timeSeries *TimeSeriesSettings

	classes *data.Series
	fitted  bool
}

// New はグラフを検証してパイプラインを作成します。
// 最終ノードが推定器でない場合や、推定器が problemType に対応していない場合は ValueError です。
// どのノードにも使われないパラメータがあると ParameterNotUsedWarning を出します。
func New(nodes []componentgraph.Node, pt problemtype.ProblemType, opts ...Option) (*Pipeline, error) {
	o := options{registry: components.DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parameters == nil {
		o.parameters = model.PipelineParameters{}
	}
	template, err := componentgraph.New(nodes, componentgraph.WithRegistry(o.registry))
	if err != nil {
		return nil, err
	}
	if _, ok := template.FinalComponent().(model.Estimator); !ok {
		return nil, errors.NewValueErrorf("pipelines.New",
			"final component %s must be an estimator", template.FinalName())
	}
	for name := range template.Components() {
		spec, _ := template.Spec(name)
		if spec.IsEstimator && !spec.Supports(pt) {
			return nil, errors.NewValueErrorf("pipelines.New",
				"%s is not valid for problem type %s", spec.Name, pt)
		}
	}

	p := &Pipeline{
		nodes:       template.Nodes(),
		registry:    o.registry,
		problemType: pt,
		parameters:  o.parameters,
		customName:  o.customName,
		seed:        o.randomSeed,
	}
	if pt.IsBinary() {
		p.threshold = &thresholdTrait{}
	}
	if pt.IsTimeSeries() {
		ts, err := timeSeriesSettings(o.parameters[model.PipelineKey])
		if err != nil {
			return nil, err
		}
		p.timeSeries = ts
	}

	graph, unused, err := template.Instantiate(p.parameters, p.seed)
	if err != nil {
		return nil, err
	}
	if len(unused) > 0 {
		errors.Warn(errors.NewParameterNotUsedWarning(unused))
	}
	p.graph = graph
	return p, nil
}

func timeSeriesSettings(params model.Params) (*TimeSeriesSettings, error) {
	for _, key := range []string{"gap", "max_delay", "forecast_horizon"} {
		if _, ok := params[key]; !ok {
			return nil, errors.NewValueError("pipelines.New",
				"gap, max_delay and forecast_horizon parameters cannot be omitted from the parameters. "+
					"Please specify them under the \"pipeline\" key.")
		}
	}
	ts := &TimeSeriesSettings{}
	var err error
	if ts.Gap, err = params.Int("gap", 0); err != nil {
		return nil, err
	}
	if ts.MaxDelay, err = params.Int("max_delay", 0); err != nil {
		return nil, err
	}
	if ts.ForecastHorizon, err = params.Int("forecast_horizon", 1); err != nil {
		return nil, err
	}
	if ts.Gap < 0 || ts.MaxDelay < 0 || ts.ForecastHorizon < 1 {
		return nil, errors.NewValueErrorf("pipelines.New",
			"invalid time series settings gap=%d max_delay=%d forecast_horizon=%d", ts.Gap, ts.MaxDelay, ts.ForecastHorizon)
	}
	return ts, nil
}

// NewWithParameters は同じグラフ構造で params と randomSeed を使った未学習のパイプラインを返します。
func (p *Pipeline) NewWithParameters(params model.PipelineParameters, randomSeed int64) (*Pipeline, error) {
	return New(p.nodes, p.problemType,
		WithParameters(params),
		WithRandomSeed(randomSeed),
		WithCustomName(p.customName),
		WithRegistry(p.registry),
	)
}

// Clone は同じパラメータとシードを持つ未学習のパイプラインを返します。閾値は引き継ぎません。
func (p *Pipeline) Clone() (*Pipeline, error) {
	graph, _, err := p.graph.Instantiate(p.parameters, p.seed)
	if err != nil {
		return nil, errors.Wrapf(err, "cloning %s", p.Name())
	}
	c := *p
	c.nodes = append([]componentgraph.Node(nil), p.nodes...)
	c.parameters = p.parameters.Clone()
	c.graph = graph
	c.classes = nil
	c.fitted = false
	if p.threshold != nil {
		c.threshold = &thresholdTrait{}
	}
	if p.timeSeries != nil {
		ts := *p.timeSeries
		c.timeSeries = &ts
	}
	return &c, nil
}

// Name は CustomName があればそれを、なければ Summary を返します。
func (p *Pipeline) Name() string {
	if p.customName != "" {
		return p.customName
	}
	return p.Summary()
}

func (p *Pipeline) CustomName() string { return p.customName }

// Summary は "<推定器> w/ <前処理> + <前処理>" 形式の説明です。
func (p *Pipeline) Summary() string {
	final := p.graph.FinalName()
	spec, _ := p.graph.Spec(final)
	var others []string
	for name := range p.graph.Components() {
		if name == final {
			continue
		}
		s, _ := p.graph.Spec(name)
		others = append(others, s.Name)
	}
	if len(others) == 0 {
		return spec.Name
	}
	return fmt.Sprintf("%s w/ %s", spec.Name, strings.Join(others, " + "))
}

// Parameters は各ノードに設定されたパラメータです。"pipeline" キーがあれば含みます。
func (p *Pipeline) Parameters() model.PipelineParameters {
	out := p.graph.Parameters()
	if pl, ok := p.parameters[model.PipelineKey]; ok {
		out[model.PipelineKey] = pl.Clone()
	}
	return out
}

func (p *Pipeline) ProblemType() problemtype.ProblemType { return p.problemType }

func (p *Pipeline) RandomSeed() int64 { return p.seed }

// ModelFamily は最終ノードの推定器のモデルファミリーです。
func (p *Pipeline) ModelFamily() modelfamily.ModelFamily {
	return p.Estimator().ModelFamily()
}

// Estimator は最終ノードの推定器です。
func (p *Pipeline) Estimator() model.Estimator {
	return p.graph.FinalComponent().(model.Estimator)
}

// ComponentGraph はインスタンス化済みのグラフです。
func (p *Pipeline) ComponentGraph() *componentgraph.ComponentGraph { return p.graph }

func (p *Pipeline) IsFitted() bool { return p.fitted }

// Classes は学習時に見たクラスラベル（ソート済み、元の型のまま）です。未学習または回帰では nil です。
func (p *Pipeline) Classes() *data.Series { return p.classes }

// SupportsThreshold は判定閾値を持てる（2値分類）かどうかです。
func (p *Pipeline) SupportsThreshold() bool { return p.threshold != nil }

// Threshold は設定された判定閾値です。未設定なら false を返します。
func (p *Pipeline) Threshold() (float64, bool) {
	if p.threshold == nil || p.threshold.threshold == nil {
		return 0, false
	}
	return *p.threshold.threshold, true
}

// SetThreshold は判定閾値を設定します。2値分類以外では ValueError です。
func (p *Pipeline) SetThreshold(t float64) error {
	if p.threshold == nil {
		return errors.NewValueErrorf("Pipeline.SetThreshold", "threshold is only supported for binary classification, got %s", p.problemType)
	}
	if t < 0 || t > 1 {
		return errors.NewValidationError("threshold", "must be in [0, 1]", t)
	}
	p.threshold.threshold = &t
	return nil
}

// ClearThreshold は判定閾値を未設定に戻します。
func (p *Pipeline) ClearThreshold() {
	if p.threshold != nil {
		p.threshold.threshold = nil
	}
}

// SupportsTimeSeries は時系列パイプラインかどうかです。
func (p *Pipeline) SupportsTimeSeries() bool { return p.timeSeries != nil }

// TimeSeries は時系列の設定を返します。
func (p *Pipeline) TimeSeries() (TimeSeriesSettings, bool) {
	if p.timeSeries == nil {
		return TimeSeriesSettings{}, false
	}
	return *p.timeSeries, true
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s, problem_type=%s, random_seed=%d)", p.Name(), p.problemType, p.seed)
}

// encode はラベルを学習時のクラス番号に変換します。
func (p *Pipeline) encode(y *data.Series) (*mat.VecDense, error) {
	index := make(map[string]int, p.classes.Len())
	for i, s := range p.classes.Strings() {
		index[s] = i
	}
	out := mat.NewVecDense(y.Len(), nil)
	for i, s := range y.Strings() {
		c, ok := index[s]
		if !ok {
			return nil, errors.NewValueError("Pipeline", "y contains previously unseen labels")
		}
		out.SetVec(i, float64(c))
	}
	return out, nil
}

func (p *Pipeline) decode(idx *mat.VecDense) *data.Series {
	positions := make([]int, idx.Len())
	for i := range positions {
		positions[i] = int(idx.AtVec(i))
	}
	return p.classes.Take(positions)
}

func (p *Pipeline) target(y *data.Series) (*mat.VecDense, error) {
	if p.problemType.IsClassification() {
		return p.encode(y)
	}
	v, err := y.Vec()
	if err != nil {
		return nil, errors.Wrap(err, "regression target must be numeric")
	}
	return v, nil
}

// Fit はグラフを学習します。分類では y のユニークな値をクラスとして記録します。
// 再学習するとクラスや学習状態はすべて作り直されます。
func (p *Pipeline) Fit(X mat.Matrix, y *data.Series) error {
	if X == nil || y == nil {
		return errors.NewModelError("Pipeline.Fit", "empty data", errors.ErrEmptyData)
	}
	r, _ := X.Dims()
	if r != y.Len() {
		return errors.NewDimensionError("Pipeline.Fit", r, y.Len(), 0)
	}

	graph, _, err := p.graph.Instantiate(p.parameters, p.seed)
	if err != nil {
		return err
	}
	p.graph = graph
	p.fitted = false
	p.classes = nil

	if p.problemType.IsClassification() {
		p.classes = y.Unique()
		if p.classes.Len() < 2 {
			return errors.NewValueErrorf("Pipeline.Fit", "classification requires at least 2 classes, got %d", p.classes.Len())
		}
		p.graph.SetNumClasses(p.classes.Len())
	}
	yEnc, err := p.target(y)
	if err != nil {
		p.classes = nil
		return err
	}
	if err := p.graph.Fit(X, yEnc); err != nil {
		p.classes = nil
		return err
	}
	p.fitted = true
	return nil
}

func (p *Pipeline) requireFitted(method string) error {
	if !p.fitted {
		return errors.NewPipelineNotYetFittedError(p.Name(), method)
	}
	return nil
}

// predictEncoded は分類ではクラス番号、回帰では予測値を返します。
// 2値分類で閾値が設定されていれば正例の確率を閾値で判定します。
func (p *Pipeline) predictEncoded(X mat.Matrix) (*mat.VecDense, error) {
	if t, ok := p.Threshold(); ok {
		proba, err := p.graph.PredictProba(X)
		if err != nil {
			return nil, err
		}
		_, k := proba.Dims()
		return objectives.Threshold(mat.VecDenseCopyOf(proba.ColView(k-1)), t), nil
	}
	return p.graph.Predict(X)
}

// Predict は予測値を返します。分類では学習時のラベルの型で返します。
func (p *Pipeline) Predict(X mat.Matrix) (*data.Series, error) {
	if err := p.requireFitted("predict"); err != nil {
		return nil, err
	}
	pred, err := p.predictEncoded(X)
	if err != nil {
		return nil, err
	}
	if p.problemType.IsClassification() {
		return p.decode(pred), nil
	}
	return data.FromVec(pred), nil
}

// PredictProba はクラス確率を返します。列の順序は Classes と同じです。
func (p *Pipeline) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !p.problemType.IsClassification() {
		return nil, errors.NewValueErrorf("Pipeline.PredictProba", "predict_proba is not supported for %s", p.problemType)
	}
	if err := p.requireFitted("predict_proba"); err != nil {
		return nil, err
	}
	return p.graph.PredictProba(X)
}

// Score は objs の各指標でスコアを計算し、指標名をキーにして返します。
func (p *Pipeline) Score(X mat.Matrix, y *data.Series, objs []objectives.Objective) (map[string]float64, error) {
	if err := p.requireFitted("score"); err != nil {
		return nil, err
	}
	yTrue, err := p.target(y)
	if err != nil {
		return nil, err
	}

	needProba, needPred := false, false
	for _, o := range objs {
		if o.ScoreNeedsProba() {
			needProba = true
		} else {
			needPred = true
		}
	}
	var proba *mat.Dense
	if needProba {
		if proba, err = p.PredictProba(X); err != nil {
			return nil, err
		}
	}
	var pred *mat.VecDense
	if needPred {
		if pred, err = p.predictEncoded(X); err != nil {
			return nil, err
		}
	}

	scores := make(map[string]float64, len(objs))
	for _, o := range objs {
		var s float64
		if proba != nil {
			s, err = o.Score(yTrue, pred, proba)
		} else {
			s, err = o.Score(yTrue, pred, nil)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "scoring %s", o.Name())
		}
		scores[o.Name()] = s
	}
	return scores, nil
}

// Describe はパイプラインの JSON 化できる説明を返します。
func (p *Pipeline) Describe() *model.PipelineDescription {
	d := &model.PipelineDescription{
		Name:        p.Name(),
		ProblemType: p.problemType.String(),
		ModelFamily: p.ModelFamily().String(),
		Nodes:       p.graph.Describe(),
		Parameters:  p.Parameters(),
		RandomSeed:  p.seed,
		IsFitted:    p.fitted,
	}
	if t, ok := p.Threshold(); ok {
		d.Threshold = &t
	}
	return d
}
