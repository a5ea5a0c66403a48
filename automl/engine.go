package automl

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/core/parallel"
	"github.com/YuminosukeSato/goautoml/objectives"
	"github.com/YuminosukeSato/goautoml/pipelines"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/pkg/log"
	"github.com/YuminosukeSato/goautoml/preprocessing"
)

// thresholdTuningSize は閾値の最適化に使う学習フォールドの割合です。
const thresholdTuningSize = 0.2

// EvaluationConfig はパイプラインの評価方法です。
type EvaluationConfig struct {
	Splitter             preprocessing.DataSplitter
	Objective            objectives.Objective
	AdditionalObjectives []objectives.Objective
	// OptimizeThresholds が true で2値分類かつ主指標が対応していれば、
	// 学習フォールドの一部を使って分類の閾値を最適化します。
	OptimizeThresholds bool
	RandomSeed         int64
	Logger             log.Logger
}

func (c EvaluationConfig) objectives() []objectives.Objective {
	out := []objectives.Objective{c.Objective}
	for _, o := range c.AdditionalObjectives {
		if o.Name() != c.Objective.Name() {
			out = append(out, o)
		}
	}
	return out
}

func (c EvaluationConfig) logger() log.Logger {
	if c.Logger == nil {
		return log.GetLogger()
	}
	return c.Logger
}

// FoldResult は1フォールド分の評価です。
type FoldResult struct {
	Scores    map[string]float64
	Threshold *float64
	Err       error
}

// EvaluationResult は1つのパイプラインの交差検証の結果です。
// 学習に失敗したフォールドのスコアは NaN です。
type EvaluationResult struct {
	// MeanScore は主指標のフォールド平均
	MeanScore float64
	// Scores は指標ごとのフォールド平均
	Scores    map[string]float64
	Folds     []FoldResult
	Threshold *float64
	Duration  time.Duration
	Err       error
}

// Engine はバッチ内のパイプラインを評価します。
// 結果は batch と同じ順序で返します。
type Engine interface {
	Evaluate(ctx context.Context, batch []*pipelines.Pipeline, X mat.Matrix, y *data.Series) ([]EvaluationResult, error)
}

// SequentialEngine はパイプラインを1つずつ評価します。
type SequentialEngine struct {
	Config EvaluationConfig
}

// Evaluate は ctx がキャンセルされるまで順に評価します。
func (e *SequentialEngine) Evaluate(ctx context.Context, batch []*pipelines.Pipeline, X mat.Matrix, y *data.Series) ([]EvaluationResult, error) {
	results := make([]EvaluationResult, len(batch))
	for i, p := range batch {
		if err := ctx.Err(); err != nil {
			return results[:i], err
		}
		results[i] = TrainAndScorePipeline(ctx, p, X, y, e.Config)
	}
	return results, nil
}

// ParallelEngine はパイプラインを最大 Workers 並列で評価します。
// Workers が 0 以下の場合は parallel.Workers の規則で決めます。
type ParallelEngine struct {
	Config  EvaluationConfig
	Workers int
}

// Evaluate はバッチを並列に評価します。キャンセルされた場合は結果を返しません。
func (e *ParallelEngine) Evaluate(ctx context.Context, batch []*pipelines.Pipeline, X mat.Matrix, y *data.Series) ([]EvaluationResult, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = parallel.Workers(workers)
	}
	results := make([]EvaluationResult, len(batch))
	err := parallel.ForEach(ctx, len(batch), workers, func(ctx context.Context, i int) error {
		results[i] = TrainAndScorePipeline(ctx, batch[i], X, y, e.Config)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TrainAndScorePipeline は p の複製を各フォールドで学習し、検証データで評価します。
// 学習や評価の失敗（panic を含む）は探索を止めず、そのフォールドのスコアを NaN にします。
func TrainAndScorePipeline(ctx context.Context, p *pipelines.Pipeline, X mat.Matrix, y *data.Series, cfg EvaluationConfig) EvaluationResult {
	start := time.Now()
	logger := cfg.logger().With(log.PipelineNameKey, p.Name())
	objs := cfg.objectives()

	res := EvaluationResult{Scores: map[string]float64{}}
	splits, err := cfg.Splitter.Split(X, y)
	if err != nil {
		res.Err = err
		res.MeanScore = math.NaN()
		for _, o := range objs {
			res.Scores[o.Name()] = math.NaN()
		}
		res.Duration = time.Since(start)
		return res
	}

	var thresholds []float64
	for fold, s := range splits {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}
		fr := scoreFold(p, X, y, s, objs, cfg)
		if fr.Err != nil {
			logger.Error("pipeline evaluation failed", fr.Err, log.FoldKey, fold)
			if res.Err == nil {
				res.Err = fr.Err
			}
		}
		if fr.Threshold != nil {
			thresholds = append(thresholds, *fr.Threshold)
		}
		res.Folds = append(res.Folds, fr)
	}

	for _, o := range objs {
		vals := make([]float64, 0, len(res.Folds))
		for _, f := range res.Folds {
			vals = append(vals, f.Scores[o.Name()])
		}
		if len(vals) == 0 {
			res.Scores[o.Name()] = math.NaN()
			continue
		}
		res.Scores[o.Name()] = stat.Mean(vals, nil)
	}
	res.MeanScore = res.Scores[cfg.Objective.Name()]
	if res.Err == nil {
		if err := errors.CheckScalar("TrainAndScorePipeline", res.MeanScore); err != nil {
			logger.Warn("non-finite score", log.ObjectiveKey, cfg.Objective.Name(), log.ScoreKey, res.MeanScore)
			res.Err = err
		}
	}
	if len(thresholds) > 0 {
		t := stat.Mean(thresholds, nil)
		res.Threshold = &t
	}
	res.Duration = time.Since(start)
	logger.Debug("pipeline evaluated",
		log.ObjectiveKey, cfg.Objective.Name(),
		log.ScoreKey, res.MeanScore,
		log.DurationMsKey, res.Duration.Milliseconds(),
	)
	return res
}

func nanScores(objs []objectives.Objective) map[string]float64 {
	out := make(map[string]float64, len(objs))
	for _, o := range objs {
		out[o.Name()] = math.NaN()
	}
	return out
}

func scoreFold(p *pipelines.Pipeline, X mat.Matrix, y *data.Series, s preprocessing.Split, objs []objectives.Objective, cfg EvaluationConfig) FoldResult {
	var fr FoldResult
	err := errors.SafeExecute("TrainAndScorePipeline", func() error {
		XTrain, yTrain := data.TakeRows(X, s.Train), y.Take(s.Train)
		XVal, yVal := data.TakeRows(X, s.Validation), y.Take(s.Validation)

		clone, err := p.Clone()
		if err != nil {
			return err
		}
		tune := cfg.OptimizeThresholds && clone.SupportsThreshold() && objectives.CanOptimizeThreshold(cfg.Objective)
		if tune {
			XFit, XThr, yFit, yThr, err := preprocessing.SplitData(XTrain, yTrain, clone.ProblemType(), thresholdTuningSize, cfg.RandomSeed)
			if err != nil {
				return err
			}
			if err := clone.Fit(XFit, yFit); err != nil {
				return err
			}
			t, err := tuneThreshold(clone, XThr, yThr, cfg.Objective)
			if err != nil {
				return err
			}
			if err := clone.SetThreshold(t); err != nil {
				return err
			}
			fr.Threshold = &t
		} else if err := clone.Fit(XTrain, yTrain); err != nil {
			return err
		}

		scores, err := clone.Score(XVal, yVal, objs)
		if err != nil {
			return err
		}
		fr.Scores = scores
		return nil
	})
	if err != nil {
		fr.Err = err
		fr.Scores = nanScores(objs)
		fr.Threshold = nil
	}
	return fr
}

// tuneThreshold は学習済みの p の正例の確率から最良の閾値を求めます。
// 正例は学習時のクラスの2番目です。
func tuneThreshold(p *pipelines.Pipeline, X mat.Matrix, y *data.Series, o objectives.Objective) (float64, error) {
	proba, err := p.PredictProba(X)
	if err != nil {
		return 0, err
	}
	classes := p.Classes()
	yTrue := mat.NewVecDense(y.Len(), nil)
	for i := 0; i < y.Len(); i++ {
		if data.FormatValue(y.Value(i)) == data.FormatValue(classes.Value(1)) {
			yTrue.SetVec(i, 1)
		}
	}
	_, k := proba.Dims()
	return objectives.OptimizeThreshold(o, yTrue, mat.VecDenseCopyOf(proba.ColView(k-1)))
}
