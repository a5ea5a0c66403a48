package automl

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/goautoml/componentgraph"
	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/objectives"
	"github.com/YuminosukeSato/goautoml/pipelines"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/pkg/log"
	"github.com/YuminosukeSato/goautoml/preprocessing"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

// StartIterationCallback は各パイプラインの評価を始める前に呼ばれます。
type StartIterationCallback func(p *pipelines.Pipeline, s *AutoMLSearch)

// AddResultCallback は各パイプラインの結果を記録した後に呼ばれます。
type AddResultCallback func(result PipelineResult, p *pipelines.Pipeline, s *AutoMLSearch)

type searchSettings struct {
	objective          string
	additional         []string
	maxIterations      int
	maxBatches         int
	maxTime            time.Duration
	patience           int
	tolerance          float64
	randomSeed         int64
	nJobs              int
	cvFolds            int
	optimizeThresholds bool
	pipelineParams     model.PipelineParameters
	workers            int
	engine             Engine
	splitter           preprocessing.DataSplitter
	algorithm          AutoMLAlgorithm
	algorithmOptions   []Option
	logger             log.Logger
	onStart            StartIterationCallback
	onResult           AddResultCallback
}

// SearchOption は AutoMLSearch の設定を変更します。
type SearchOption func(*searchSettings)

// WithObjective は主指標の名前です。"auto" または空の場合は問題の種類の既定です。
func WithObjective(name string) SearchOption {
	return func(s *searchSettings) { s.objective = name }
}

// WithAdditionalObjectives は主指標と一緒に計算する指標です。
// 指定しない場合は問題の種類の標準の指標を計算します。
func WithAdditionalObjectives(names ...string) SearchOption {
	return func(s *searchSettings) { s.additional = names }
}

// WithMaxIterations は評価するパイプラインの最大数（ベースラインを含む）です。
func WithMaxIterations(n int) SearchOption {
	return func(s *searchSettings) { s.maxIterations = n }
}

// WithMaxBatches はベースラインを除くバッチの最大数です。
// 回数も時間も指定しない場合は 1 です。
func WithMaxBatches(n int) SearchOption {
	return func(s *searchSettings) { s.maxBatches = n }
}

// WithMaxTime は探索時間の上限です。評価中のバッチは最後まで実行されます。
func WithMaxTime(d time.Duration) SearchOption {
	return func(s *searchSettings) { s.maxTime = d }
}

// WithPatience は改善のないパイプラインが patience 個続いたら探索を止めます。
// 相対変化が tolerance 以下の改善は改善とみなしません。
func WithPatience(patience int, tolerance float64) SearchOption {
	return func(s *searchSettings) {
		s.patience = patience
		s.tolerance = tolerance
	}
}

// WithSearchRandomSeed は分割・パイプライン・チューナーのシードです。
func WithSearchRandomSeed(seed int64) SearchOption {
	return func(s *searchSettings) { s.randomSeed = seed }
}

// WithSearchNJobs は n_jobs を持つコンポーネントに渡す並列数です。
func WithSearchNJobs(n int) SearchOption {
	return func(s *searchSettings) { s.nJobs = n }
}

// WithCVFolds は交差検証の分割数です（既定 3）。
func WithCVFolds(n int) SearchOption {
	return func(s *searchSettings) { s.cvFolds = n }
}

// WithOptimizeThresholds は2値分類の閾値を最適化します。
func WithOptimizeThresholds(enabled bool) SearchOption {
	return func(s *searchSettings) { s.optimizeThresholds = enabled }
}

// WithSearchPipelineParams はベースラインを含むすべてのパイプラインに渡す固定パラメータです。
func WithSearchPipelineParams(params model.PipelineParameters) SearchOption {
	return func(s *searchSettings) { s.pipelineParams = params.Clone() }
}

// WithParallelEvaluation はバッチ内のパイプラインを最大 workers 並列で評価します。
func WithParallelEvaluation(workers int) SearchOption {
	return func(s *searchSettings) { s.workers = workers }
}

// WithEngine は評価を行う Engine を差し替えます。
func WithEngine(e Engine) SearchOption {
	return func(s *searchSettings) { s.engine = e }
}

// WithDataSplitter は交差検証の分割方法を差し替えます。
func WithDataSplitter(d preprocessing.DataSplitter) SearchOption {
	return func(s *searchSettings) { s.splitter = d }
}

// WithAlgorithm は探索アルゴリズムを差し替えます。指定した場合 WithAlgorithmOptions は使われません。
func WithAlgorithm(a AutoMLAlgorithm) SearchOption {
	return func(s *searchSettings) { s.algorithm = a }
}

// WithAlgorithmOptions は既定の IterativeAlgorithm に渡す追加の設定です。
func WithAlgorithmOptions(opts ...Option) SearchOption {
	return func(s *searchSettings) { s.algorithmOptions = append(s.algorithmOptions, opts...) }
}

// WithSearchLogger はログの出力先です。
func WithSearchLogger(l log.Logger) SearchOption {
	return func(s *searchSettings) { s.logger = l }
}

// WithStartIterationCallback は評価開始時のコールバックです。
func WithStartIterationCallback(cb StartIterationCallback) SearchOption {
	return func(s *searchSettings) { s.onStart = cb }
}

// WithAddResultCallback は結果記録時のコールバックです。
func WithAddResultCallback(cb AddResultCallback) SearchOption {
	return func(s *searchSettings) { s.onResult = cb }
}

// AutoMLSearch はベースラインと AutoMLAlgorithm の提案するパイプラインを評価し、
// 結果を順位付けします。
type AutoMLSearch struct {
	id          string
	X           mat.Matrix
	y           *data.Series
	problemType problemtype.ProblemType
	objective   objectives.Objective
	additional  []objectives.Objective
	direction   Direction
	settings    searchSettings
	algorithm   AutoMLAlgorithm
	engine      Engine
	logger      log.Logger

	mu        sync.Mutex
	results   []PipelineResult
	pipelines map[int]*pipelines.Pipeline
	batches   int
	searched  bool
	started   time.Time
	elapsed   time.Duration
	best      *pipelines.Pipeline
}

// NewAutoMLSearch は X と y を検証し、探索を準備します。
func NewAutoMLSearch(X mat.Matrix, y *data.Series, pt problemtype.ProblemType, opts ...SearchOption) (*AutoMLSearch, error) {
	s := searchSettings{nJobs: -1, cvFolds: 3, objective: "auto"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	if err := validateData(X, y, pt); err != nil {
		return nil, err
	}
	if s.maxIterations < 0 || s.maxBatches < 0 || s.maxTime < 0 || s.patience < 0 {
		return nil, errors.NewValueError("NewAutoMLSearch", "stopping criteria must not be negative")
	}
	if s.tolerance < 0 {
		return nil, errors.NewValidationError("tolerance", "must not be negative", s.tolerance)
	}
	if s.maxIterations == 0 && s.maxTime == 0 && s.maxBatches == 0 {
		s.maxBatches = 1
	}

	search := &AutoMLSearch{
		id:          uuid.NewString(),
		X:           X,
		y:           y,
		problemType: pt,
		settings:    s,
		pipelines:   map[int]*pipelines.Pipeline{},
	}
	search.logger = s.logger.With(log.SearchIDKey, search.id, log.ProblemTypeKey, pt.String())

	var err error
	if search.objective, err = resolveObjective(s.objective, pt); err != nil {
		return nil, err
	}
	search.direction = DirectionOf(search.objective)
	if s.additional == nil {
		search.additional = objectives.Core(pt)
	} else {
		for _, name := range s.additional {
			o, err := objectives.ForProblemType(name, pt)
			if err != nil {
				return nil, err
			}
			search.additional = append(search.additional, o)
		}
	}

	splitter := s.splitter
	if splitter == nil {
		rows, _ := X.Dims()
		splitOpts := preprocessing.SplitterOptions{NSplits: s.cvFolds, RandomSeed: s.randomSeed, Shuffle: true}
		if pl := s.pipelineParams[model.PipelineKey]; pl != nil {
			splitOpts.Gap, _ = pl.Int("gap", 0)
			splitOpts.MaxDelay, _ = pl.Int("max_delay", 0)
			splitOpts.ForecastHorizon, _ = pl.Int("forecast_horizon", 1)
		}
		splitter = preprocessing.MakeDataSplitter(rows, pt, splitOpts)
	}

	search.engine = s.engine
	if search.engine == nil {
		cfg := EvaluationConfig{
			Splitter:             splitter,
			Objective:            search.objective,
			AdditionalObjectives: search.additional,
			OptimizeThresholds:   s.optimizeThresholds,
			RandomSeed:           s.randomSeed,
			Logger:               search.logger,
		}
		if s.workers != 0 {
			search.engine = &ParallelEngine{Config: cfg, Workers: s.workers}
		} else {
			search.engine = &SequentialEngine{Config: cfg}
		}
	}

	search.algorithm = s.algorithm
	if search.algorithm == nil {
		algoOpts := []Option{
			WithRandomSeed(s.randomSeed),
			WithNJobs(s.nJobs),
			WithDirection(search.direction),
			WithLogger(search.logger),
		}
		if s.pipelineParams != nil {
			algoOpts = append(algoOpts, WithPipelineParams(s.pipelineParams))
		}
		algo, err := NewIterativeAlgorithm(X, pt, append(algoOpts, s.algorithmOptions...)...)
		if err != nil {
			return nil, err
		}
		search.algorithm = algo
	}
	return search, nil
}

func resolveObjective(name string, pt problemtype.ProblemType) (objectives.Objective, error) {
	if name == "" || name == "auto" {
		return objectives.DefaultPrimary(pt), nil
	}
	return objectives.ForProblemType(name, pt)
}

func validateData(X mat.Matrix, y *data.Series, pt problemtype.ProblemType) error {
	if X == nil || y == nil {
		return errors.NewModelError("NewAutoMLSearch", "empty data", errors.ErrEmptyData)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("NewAutoMLSearch", "empty data", errors.ErrEmptyData)
	}
	if rows != y.Len() {
		return errors.NewDimensionError("NewAutoMLSearch", rows, y.Len(), 0)
	}
	switch {
	case pt.IsBinary():
		if n := y.Unique().Len(); n != 2 {
			return errors.NewValueErrorf("NewAutoMLSearch", "binary classification requires exactly 2 classes, got %d", n)
		}
	case pt.IsMulticlass():
		if n := y.Unique().Len(); n < 3 {
			return errors.NewValueErrorf("NewAutoMLSearch", "multiclass classification requires at least 3 classes, got %d", n)
		}
	default:
		if _, err := y.Floats(); err != nil {
			return errors.NewValueErrorf("NewAutoMLSearch", "regression target must be numeric: %v", err)
		}
	}
	return nil
}

// ID は探索セッションの識別子です。
func (s *AutoMLSearch) ID() string { return s.id }

// Objective は主指標です。
func (s *AutoMLSearch) Objective() objectives.Objective { return s.objective }

// Algorithm は探索アルゴリズムです。
func (s *AutoMLSearch) Algorithm() AutoMLAlgorithm { return s.algorithm }

// Elapsed は Search にかかった時間です。
func (s *AutoMLSearch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// BaselinePipeline は問題の種類に応じた比較用のパイプラインを作ります。
func (s *AutoMLSearch) BaselinePipeline() (*pipelines.Pipeline, error) {
	params := model.PipelineParameters{}
	var est, name string
	switch {
	case s.problemType.IsClassification():
		est = "Baseline Classifier"
		name = "Mode Baseline Binary Classification Pipeline"
		if s.problemType.IsMulticlass() {
			name = "Mode Baseline Multiclass Classification Pipeline"
		}
		params[est] = model.Params{"strategy": "mode"}
	default:
		est = "Baseline Regressor"
		name = "Mean Baseline Regression Pipeline"
		params[est] = model.Params{"strategy": "mean"}
	}
	if s.problemType.IsTimeSeries() {
		name = "Time Series " + name
		if pl := s.settings.pipelineParams[model.PipelineKey]; pl != nil {
			params[model.PipelineKey] = pl.Clone()
		}
	}
	return pipelines.New(componentgraph.Linear(est), s.problemType,
		pipelines.WithParameters(params),
		pipelines.WithCustomName(name),
		pipelines.WithRandomSeed(s.settings.randomSeed),
	)
}

// Search はベースラインを評価した後、停止条件を満たすまでバッチを評価します。
// ctx がキャンセルされた場合は評価済みの結果を残して終了します。
func (s *AutoMLSearch) Search(ctx context.Context) error {
	s.mu.Lock()
	if s.searched {
		s.mu.Unlock()
		return errors.NewValueError("AutoMLSearch.Search", "search has already been run")
	}
	s.searched = true
	s.started = time.Now()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.elapsed = time.Since(s.started)
		s.mu.Unlock()
	}()

	s.logger.Info("search started",
		log.ObjectiveKey, s.objective.Name(),
		"automl.max_iterations", s.settings.maxIterations,
		"automl.max_batches", s.settings.maxBatches,
		"automl.max_time", s.settings.maxTime.String(),
	)

	baseline, err := s.BaselinePipeline()
	if err != nil {
		return err
	}
	if err := s.evaluate(ctx, []*pipelines.Pipeline{baseline}, true); err != nil {
		if ctx.Err() != nil {
			s.logger.Warn("search cancelled", ctx.Err())
			return nil
		}
		return err
	}

	for s.shouldContinue(ctx) {
		batch, err := s.algorithm.NextBatch()
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			s.logger.Info("no more pipelines to search")
			break
		}
		if s.settings.maxIterations > 0 {
			if remaining := s.settings.maxIterations - len(s.results); len(batch) > remaining {
				batch = batch[:remaining]
			}
		}
		s.batches++
		s.logger.Info("batch started", log.BatchKey, s.batches, "automl.batch_size", len(batch))
		if err := s.evaluate(ctx, batch, false); err != nil {
			if ctx.Err() != nil {
				s.logger.Warn("search cancelled", ctx.Err())
				break
			}
			return err
		}
	}

	if best, ok := s.bestResult(); ok {
		s.logger.Info("search finished",
			log.PipelineIDKey, best.ID,
			log.PipelineNameKey, best.PipelineName,
			log.ScoreKey, best.MeanCVScore,
		)
	} else {
		s.logger.Warn("search finished without a pipeline with a finite score")
	}
	return nil
}

func (s *AutoMLSearch) shouldContinue(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.settings.maxIterations > 0 && len(s.results) >= s.settings.maxIterations {
		return false
	}
	if s.settings.maxBatches > 0 && s.batches >= s.settings.maxBatches {
		return false
	}
	if s.settings.maxTime > 0 && time.Since(s.started) >= s.settings.maxTime {
		return false
	}
	if s.settings.patience > 0 && s.stagnated() {
		s.logger.Info("search stopped early", "automl.patience", s.settings.patience)
		return false
	}
	return true
}

// stagnated はベースライン以外の直近 patience 個の結果に有意な改善がないかを返します。
func (s *AutoMLSearch) stagnated() bool {
	best := math.NaN()
	started := false
	without := 0
	for _, r := range s.results {
		if r.IsBaseline {
			continue
		}
		if !started {
			best, started = r.MeanCVScore, true
			continue
		}
		significant := math.IsNaN(best) || best == 0 ||
			math.Abs((r.MeanCVScore-best)/best) > s.settings.tolerance
		if s.direction.Improves(r.MeanCVScore, best) && significant {
			best = r.MeanCVScore
			without = 0
			continue
		}
		without++
	}
	return without >= s.settings.patience
}

func (s *AutoMLSearch) evaluate(ctx context.Context, batch []*pipelines.Pipeline, baseline bool) error {
	if s.settings.onStart != nil {
		for _, p := range batch {
			s.settings.onStart(p, s)
		}
	}
	results, err := s.engine.Evaluate(ctx, batch, s.X, s.y)
	if err != nil {
		return err
	}
	if len(results) != len(batch) {
		return errors.NewValueErrorf("AutoMLSearch", "engine returned %d results for %d pipelines", len(results), len(batch))
	}
	for i, r := range results {
		p := batch[i]
		pr := s.record(p, r, baseline)
		if !baseline {
			if err := s.algorithm.AddResult(r.MeanScore, p, Metadata{ID: pr.ID}); err != nil {
				return err
			}
		}
		if s.settings.onResult != nil {
			s.settings.onResult(pr, p, s)
		}
	}
	return nil
}

func (s *AutoMLSearch) record(p *pipelines.Pipeline, r EvaluationResult, baseline bool) PipelineResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := len(s.results)
	cv := make([]float64, 0, len(r.Folds))
	for _, f := range r.Folds {
		cv = append(cv, f.Scores[s.objective.Name()])
	}
	std := 0.0
	if len(cv) > 1 {
		std = stat.StdDev(cv, nil)
	}
	pr := PipelineResult{
		ID:           id,
		PipelineName: p.Name(),
		Summary:      p.Summary(),
		ModelFamily:  p.ModelFamily(),
		Parameters:   p.Parameters(),
		MeanCVScore:  r.MeanScore,
		StdCVScore:   std,
		CVScores:     cv,
		Scores:       r.Scores,
		Threshold:    r.Threshold,
		IsBaseline:   baseline,
		BatchNumber:  s.batches,
		TrainingTime: r.Duration,
	}
	if r.Err != nil {
		pr.Error = r.Err.Error()
	}
	pr.PercentBetterThanBaseline = 0
	if !baseline && len(s.results) > 0 && s.results[0].IsBaseline {
		pr.PercentBetterThanBaseline = objectives.PercentBetter(s.objective, r.MeanScore, s.results[0].MeanCVScore)
	}
	s.results = append(s.results, pr)
	s.pipelines[id] = p
	s.best = nil

	s.logger.Info("pipeline evaluated",
		log.PipelineIDKey, id,
		log.PipelineNameKey, pr.PipelineName,
		log.ModelFamilyKey, pr.ModelFamily.String(),
		log.ScoreKey, pr.MeanCVScore,
	)
	return pr
}

// Results は評価した順の結果のコピーを返します。
func (s *AutoMLSearch) Results() []PipelineResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PipelineResult, len(s.results))
	for i, r := range s.results {
		out[i] = r.clone()
	}
	return out
}

// FullRankings はすべての結果を主指標の良い順に返します。NaN は最後です。
func (s *AutoMLSearch) FullRankings() []PipelineResult {
	out := s.Results()
	sort.SliceStable(out, func(i, j int) bool {
		return s.direction.less(out[i].MeanCVScore, out[j].MeanCVScore)
	})
	return out
}

// Rankings はパイプライン名ごとに最良の結果だけを良い順に返します。
func (s *AutoMLSearch) Rankings() []PipelineResult {
	seen := map[string]bool{}
	var out []PipelineResult
	for _, r := range s.FullRankings() {
		if seen[r.PipelineName] {
			continue
		}
		seen[r.PipelineName] = true
		out = append(out, r)
	}
	return out
}

func (s *AutoMLSearch) bestResult() (PipelineResult, bool) {
	ranked := s.FullRankings()
	if len(ranked) == 0 || math.IsNaN(ranked[0].MeanCVScore) {
		return PipelineResult{}, false
	}
	return ranked[0], true
}

// GetPipeline は id の結果のパイプラインを未学習の状態で返します。
func (s *AutoMLSearch) GetPipeline(id int) (*pipelines.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, errors.NewPipelineNotFoundError(id)
	}
	return p.Clone()
}

// DescribePipeline は id の結果のパイプラインの説明を返します。
func (s *AutoMLSearch) DescribePipeline(id int) (*model.PipelineDescription, error) {
	p, err := s.GetPipeline(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	threshold := s.results[id].Threshold
	s.mu.Unlock()
	if threshold != nil && p.SupportsThreshold() {
		if err := p.SetThreshold(*threshold); err != nil {
			return nil, err
		}
	}
	return p.Describe(), nil
}

// BestPipeline は最良の結果のパイプラインを全データで学習して返します。
// 交差検証で閾値を最適化した場合はその閾値を設定します。
func (s *AutoMLSearch) BestPipeline() (*pipelines.Pipeline, error) {
	s.mu.Lock()
	if s.best != nil {
		best := s.best
		s.mu.Unlock()
		return best, nil
	}
	s.mu.Unlock()

	r, ok := s.bestResult()
	if !ok {
		return nil, errors.NewValueError("AutoMLSearch.BestPipeline", "no pipeline has a finite score; run Search first")
	}
	p, err := s.GetPipeline(r.ID)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(s.X, s.y); err != nil {
		return nil, errors.Wrapf(err, "refitting %s", p.Name())
	}
	if r.Threshold != nil && p.SupportsThreshold() {
		if err := p.SetThreshold(*r.Threshold); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.best = p
	s.mu.Unlock()
	return p, nil
}
