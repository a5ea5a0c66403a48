package automl

import (
	"encoding/json"
	"io"
	"maps"
	"math"
	"time"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

// PipelineResult は1つのパイプラインの評価結果です。
type PipelineResult struct {
	ID           int
	PipelineName string
	Summary      string
	ModelFamily  modelfamily.ModelFamily
	Parameters   model.PipelineParameters
	// MeanCVScore は主指標のフォールド平均で、失敗した場合は NaN です。
	MeanCVScore float64
	StdCVScore  float64
	CVScores    []float64
	// Scores は指標名ごとのフォールド平均です。
	Scores                    map[string]float64
	PercentBetterThanBaseline float64
	Threshold                 *float64
	IsBaseline                bool
	BatchNumber               int
	TrainingTime              time.Duration
	Error                     string
}

func (r PipelineResult) clone() PipelineResult {
	r.Parameters = r.Parameters.Clone()
	r.CVScores = append([]float64(nil), r.CVScores...)
	r.Scores = maps.Clone(r.Scores)
	if r.Threshold != nil {
		t := *r.Threshold
		r.Threshold = &t
	}
	return r
}

// optionalFloat は NaN と無限大を null として JSON に書きます。
type optionalFloat = *float64

func toOptional(v float64) optionalFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromOptional(v optionalFloat) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

type pipelineResultJSON struct {
	ID                        int                      `json:"id"`
	PipelineName              string                   `json:"pipeline_name"`
	Summary                   string                   `json:"pipeline_summary"`
	ModelFamily               modelfamily.ModelFamily  `json:"model_family"`
	Parameters                model.PipelineParameters `json:"parameters"`
	MeanCVScore               optionalFloat            `json:"mean_cv_score"`
	StdCVScore                optionalFloat            `json:"standard_deviation_cv_score"`
	CVScores                  []optionalFloat          `json:"cv_scores"`
	Scores                    map[string]optionalFloat `json:"scores"`
	PercentBetterThanBaseline optionalFloat            `json:"percent_better_than_baseline"`
	Threshold                 *float64                 `json:"binary_classification_threshold,omitempty"`
	IsBaseline                bool                     `json:"is_baseline"`
	BatchNumber               int                      `json:"batch_number"`
	TrainingTimeSeconds       float64                  `json:"training_time_seconds"`
	Error                     string                   `json:"error,omitempty"`
}

// MarshalJSON は NaN のスコアを null として書き出します。
func (r PipelineResult) MarshalJSON() ([]byte, error) {
	out := pipelineResultJSON{
		ID:                        r.ID,
		PipelineName:              r.PipelineName,
		Summary:                   r.Summary,
		ModelFamily:               r.ModelFamily,
		Parameters:                r.Parameters,
		MeanCVScore:               toOptional(r.MeanCVScore),
		StdCVScore:                toOptional(r.StdCVScore),
		PercentBetterThanBaseline: toOptional(r.PercentBetterThanBaseline),
		Threshold:                 r.Threshold,
		IsBaseline:                r.IsBaseline,
		BatchNumber:               r.BatchNumber,
		TrainingTimeSeconds:       r.TrainingTime.Seconds(),
		Error:                     r.Error,
	}
	for _, v := range r.CVScores {
		out.CVScores = append(out.CVScores, toOptional(v))
	}
	out.Scores = make(map[string]optionalFloat, len(r.Scores))
	for k, v := range r.Scores {
		out.Scores[k] = toOptional(v)
	}
	return json.Marshal(out)
}

// UnmarshalJSON は null のスコアを NaN として読み込みます。
func (r *PipelineResult) UnmarshalJSON(b []byte) error {
	var in pipelineResultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = PipelineResult{
		ID:                        in.ID,
		PipelineName:              in.PipelineName,
		Summary:                   in.Summary,
		ModelFamily:               in.ModelFamily,
		Parameters:                in.Parameters,
		MeanCVScore:               fromOptional(in.MeanCVScore),
		StdCVScore:                fromOptional(in.StdCVScore),
		PercentBetterThanBaseline: fromOptional(in.PercentBetterThanBaseline),
		Threshold:                 in.Threshold,
		IsBaseline:                in.IsBaseline,
		BatchNumber:               in.BatchNumber,
		TrainingTime:              time.Duration(in.TrainingTimeSeconds * float64(time.Second)),
		Error:                     in.Error,
	}
	for _, v := range in.CVScores {
		r.CVScores = append(r.CVScores, fromOptional(v))
	}
	r.Scores = make(map[string]float64, len(in.Scores))
	for k, v := range in.Scores {
		r.Scores[k] = fromOptional(v)
	}
	return nil
}

// SearchResults は保存された探索結果です。
type SearchResults struct {
	SearchID       string                  `json:"search_id"`
	ProblemType    problemtype.ProblemType `json:"problem_type"`
	Objective      string                  `json:"objective"`
	ElapsedSeconds float64                 `json:"elapsed_seconds"`
	Results        []PipelineResult        `json:"pipeline_results"`
}

// Best は NaN を除いた主指標の最良の結果を返します。
func (r *SearchResults) Best(d Direction) (PipelineResult, bool) {
	var best PipelineResult
	found := false
	for _, pr := range r.Results {
		if !found && !math.IsNaN(pr.MeanCVScore) || found && d.Improves(pr.MeanCVScore, best.MeanCVScore) {
			best, found = pr, true
		}
	}
	return best, found
}

func (s *AutoMLSearch) snapshot() SearchResults {
	return SearchResults{
		SearchID:       s.id,
		ProblemType:    s.problemType,
		Objective:      s.objective.Name(),
		ElapsedSeconds: s.Elapsed().Seconds(),
		Results:        s.Results(),
	}
}

// SaveResults は探索結果を JSON として w に書き込みます。
func (s *AutoMLSearch) SaveResults(w io.Writer) error {
	if err := model.SaveJSONToWriter(s.snapshot(), w); err != nil {
		return errors.Wrap(err, "saving search results")
	}
	return nil
}

// SaveResultsFile は探索結果を path に保存します。
func (s *AutoMLSearch) SaveResultsFile(path string) error {
	if err := model.SaveJSON(s.snapshot(), path); err != nil {
		return errors.Wrapf(err, "saving search results to %s", path)
	}
	return nil
}

// LoadResults は SaveResults が書き込んだ結果を読み込みます。
func LoadResults(r io.Reader) (*SearchResults, error) {
	var res SearchResults
	if err := model.LoadJSONFromReader(&res, r); err != nil {
		return nil, errors.Wrap(err, "loading search results")
	}
	return &res, nil
}

// LoadResultsFile は SaveResultsFile が保存した結果を読み込みます。
func LoadResultsFile(path string) (*SearchResults, error) {
	var res SearchResults
	if err := model.LoadJSON(&res, path); err != nil {
		return nil, errors.Wrapf(err, "loading search results from %s", path)
	}
	return &res, nil
}
