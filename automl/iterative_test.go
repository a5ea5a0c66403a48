package automl

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/componentgraph"
	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pipelines"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
	"github.com/YuminosukeSato/goautoml/tuners"
)

// binaryData は2特徴量のほぼ線形分離可能な2値分類データです。
func binaryData(n int) (*mat.Dense, *data.Series) {
	xs := make([]float64, 0, n*2)
	ys := make([]int, n)
	for i := 0; i < n; i++ {
		a := float64(i%10) - 4.5
		b := float64((i*7)%5) - 2
		xs = append(xs, a, b)
		if a+0.3*b > 0 {
			ys[i] = 1
		}
	}
	return mat.NewDense(n, 2, xs), data.NewIntSeries(ys)
}

func threeTemplates() []ComponentGraphTemplate {
	return []ComponentGraphTemplate{
		{Name: "A", Nodes: componentgraph.Linear("Standard Scaler", "Logistic Regression Classifier")},
		{Name: "B", Nodes: componentgraph.Linear("Decision Tree Classifier")},
		{Name: "C", Nodes: componentgraph.Linear("KNN Classifier")},
	}
}

func families(batch []*pipelines.Pipeline) []modelfamily.ModelFamily {
	out := make([]modelfamily.ModelFamily, len(batch))
	for i, p := range batch {
		out[i] = p.ModelFamily()
	}
	return out
}

func reportAll(t *testing.T, a *IterativeAlgorithm, batch []*pipelines.Pipeline, scores []float64) {
	t.Helper()
	for i, p := range batch {
		if err := a.AddResult(scores[i%len(scores)], p, Metadata{ID: a.PipelineNumber()*100 + i}); err != nil {
			t.Fatalf("AddResult(%s): %v", p.Name(), err)
		}
	}
}

func TestIterativeAlgorithmFirstBatch(t *testing.T) {
	X, _ := binaryData(40)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary, WithRandomSeed(7), WithNJobs(2))
	if err != nil {
		t.Fatal(err)
	}
	batch, err := algo.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	want := []modelfamily.ModelFamily{modelfamily.LinearModel, modelfamily.DecisionTree, modelfamily.KNeighbors}
	if diff := cmp.Diff(want, families(batch)); diff != "" {
		t.Errorf("first batch families (-want +got):\n%s", diff)
	}
	for _, p := range batch {
		if p.RandomSeed() != 7 {
			t.Errorf("%s: RandomSeed() = %d", p.Name(), p.RandomSeed())
		}
	}
	lr := batch[0].Parameters()["Logistic Regression Classifier"]
	if v, _ := lr.Int("n_jobs", 0); v != 2 {
		t.Errorf("n_jobs not injected: %v", lr)
	}
	if _, ok := batch[1].Parameters()["Decision Tree Classifier"]["n_jobs"]; ok {
		t.Error("n_jobs must only be set on components that declare it")
	}
	if algo.BatchNumber() != 1 || algo.PipelineNumber() != 3 {
		t.Errorf("counters = (%d, %d), want (1, 3)", algo.BatchNumber(), algo.PipelineNumber())
	}
}

func TestIterativeAlgorithmRoundRobin(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		dir    Direction
		want   []modelfamily.ModelFamily
	}{
		{
			name:   "best first",
			scores: []float64{0, 1, 2},
			want:   []modelfamily.ModelFamily{modelfamily.LinearModel, modelfamily.DecisionTree, modelfamily.KNeighbors, modelfamily.LinearModel},
		},
		{
			name:   "reversed scores",
			scores: []float64{2, 1, 0},
			want:   []modelfamily.ModelFamily{modelfamily.KNeighbors, modelfamily.DecisionTree, modelfamily.LinearModel, modelfamily.KNeighbors},
		},
		{
			name:   "maximize",
			scores: []float64{0, 1, 2},
			dir:    Maximize,
			want:   []modelfamily.ModelFamily{modelfamily.KNeighbors, modelfamily.DecisionTree, modelfamily.LinearModel, modelfamily.KNeighbors},
		},
		{
			name:   "ties keep allowed order",
			scores: []float64{1, 1, 0},
			want:   []modelfamily.ModelFamily{modelfamily.KNeighbors, modelfamily.LinearModel, modelfamily.DecisionTree, modelfamily.KNeighbors},
		},
		{
			name:   "NaN ranks last",
			scores: []float64{math.NaN(), 1, 0},
			want:   []modelfamily.ModelFamily{modelfamily.KNeighbors, modelfamily.DecisionTree, modelfamily.LinearModel, modelfamily.KNeighbors},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, _ := binaryData(40)
			algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
				WithAllowedComponentGraphs(threeTemplates()...),
				WithPipelinesPerBatch(4),
				WithDirection(tt.dir),
				WithTunerFactory(tuners.RandomSearchFactory(true)),
			)
			if err != nil {
				t.Fatal(err)
			}
			first, err := algo.NextBatch()
			if err != nil {
				t.Fatal(err)
			}
			if len(first) != 3 {
				t.Fatalf("first batch has %d pipelines", len(first))
			}
			for i, name := range []string{"A", "B", "C"} {
				if first[i].Name() != name {
					t.Errorf("first[%d] = %s, want %s", i, first[i].Name(), name)
				}
			}
			reportAll(t, algo, first, tt.scores)

			var got []modelfamily.ModelFamily
			for b := 0; b < 4; b++ {
				batch, err := algo.NextBatch()
				if err != nil {
					t.Fatal(err)
				}
				if len(batch) != 4 {
					t.Fatalf("batch %d has %d pipelines, want 4", b+2, len(batch))
				}
				fams := families(batch)
				for _, f := range fams[1:] {
					if f != fams[0] {
						t.Fatalf("batch %d mixes families: %v", b+2, fams)
					}
				}
				got = append(got, fams[0])
				reportAll(t, algo, batch, []float64{0.5})
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("family order (-want +got):\n%s", diff)
			}
			if algo.BatchNumber() != 5 || algo.PipelineNumber() != 19 {
				t.Errorf("counters = (%d, %d), want (5, 19)", algo.BatchNumber(), algo.PipelineNumber())
			}
		})
	}
}

func TestIterativeAlgorithmEmptyAllowed(t *testing.T) {
	X, _ := binaryData(10)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary, WithAllowedComponentGraphs(threeTemplates()...))
	if err != nil {
		t.Fatal(err)
	}
	if err := algo.SetAllowedPipelines(nil); err != nil {
		t.Fatal(err)
	}
	batch, err := algo.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 0 {
		t.Errorf("expected an empty batch, got %d", len(batch))
	}
	if algo.BatchNumber() != 1 {
		t.Errorf("BatchNumber() = %d, want 1", algo.BatchNumber())
	}
	_, err = algo.NextBatch()
	var algErr *errors.AutoMLAlgorithmError
	if !errors.As(err, &algErr) {
		t.Fatalf("expected AutoMLAlgorithmError, got %v", err)
	}
	if !errors.Is(err, errors.ErrNoResultsReported) {
		t.Errorf("expected ErrNoResultsReported, got %v", err)
	}
}

func TestIterativeAlgorithmBarrier(t *testing.T) {
	X, _ := binaryData(40)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary, WithAllowedComponentGraphs(threeTemplates()...))
	if err != nil {
		t.Fatal(err)
	}
	batch, err := algo.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	reportAll(t, algo, batch[:2], []float64{0.1, 0.2})

	if _, err := algo.NextBatch(); !errors.Is(err, errors.ErrPendingResults) {
		t.Errorf("expected ErrPendingResults, got %v", err)
	}
	if err := algo.AddResult(0.3, batch[0], Metadata{ID: 1}); !errors.Is(err, errors.ErrUnknownPipeline) {
		t.Errorf("reporting twice should fail, got %v", err)
	}
	stranger, _ := batch[2].NewWithParameters(batch[2].Parameters(), 0)
	if err := algo.AddResult(0.3, stranger, Metadata{ID: 9}); !errors.Is(err, errors.ErrUnknownPipeline) {
		t.Errorf("unknown pipeline should fail, got %v", err)
	}

	if err := algo.AddResult(0.3, batch[2], Metadata{ID: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := algo.NextBatch(); err != nil {
		t.Errorf("all results reported, NextBatch failed: %v", err)
	}
}

func TestIterativeAlgorithmBestPipelineInfo(t *testing.T) {
	X, _ := binaryData(40)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
		WithAllowedComponentGraphs(threeTemplates()...),
		WithPipelinesPerBatch(2),
		WithTunerFactory(tuners.RandomSearchFactory(true)),
	)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := algo.NextBatch()
	for i, s := range []float64{0.4, math.NaN(), 0.2} {
		if err := algo.AddResult(s, first[i], Metadata{ID: i + 1}); err != nil {
			t.Fatal(err)
		}
	}
	info := algo.BestPipelineInfo()
	if _, ok := info[modelfamily.DecisionTree]; ok {
		t.Error("NaN score must not become the best")
	}
	if got := info[modelfamily.LinearModel]; got.Score != 0.4 || got.ID != 1 {
		t.Errorf("linear best = %+v", got)
	}

	// 2バッチ目は最良の KNN
	batch, _ := algo.NextBatch()
	if batch[0].ModelFamily() != modelfamily.KNeighbors {
		t.Fatalf("second batch family = %v", batch[0].ModelFamily())
	}
	if err := algo.AddResult(0.1, batch[0], Metadata{ID: 10}); err != nil {
		t.Fatal(err)
	}
	if err := algo.AddResult(0.3, batch[1], Metadata{ID: 11}); err != nil {
		t.Fatal(err)
	}
	best := algo.BestPipelineInfo()[modelfamily.KNeighbors]
	if best.ID != 10 || best.Score != 0.1 {
		t.Errorf("knn best = %+v", best)
	}
	if !best.Parameters.Equal(batch[0].Parameters()) {
		t.Errorf("best parameters %v, want %v", best.Parameters, batch[0].Parameters())
	}
}

func TestIterativeAlgorithmEnsembling(t *testing.T) {
	X, _ := binaryData(40)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
		WithAllowedComponentGraphs(threeTemplates()...),
		WithPipelinesPerBatch(2),
		WithEnsembling(true),
		WithNJobs(3),
		WithRandomSeed(11),
		WithTunerFactory(tuners.RandomSearchFactory(true)),
	)
	if err != nil {
		t.Fatal(err)
	}
	first, _ := algo.NextBatch()
	reportAll(t, algo, first, []float64{0, 1, 2})

	var got []modelfamily.ModelFamily
	var ensemble *pipelines.Pipeline
	for b := 0; b < 8; b++ {
		batch, err := algo.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, batch[0].ModelFamily())
		if batch[0].ModelFamily() == modelfamily.Ensemble {
			if len(batch) != 1 {
				t.Errorf("ensemble batch has %d pipelines", len(batch))
			}
			ensemble = batch[0]
		}
		reportAll(t, algo, batch, []float64{0.5})
	}
	want := []modelfamily.ModelFamily{
		modelfamily.LinearModel, modelfamily.DecisionTree, modelfamily.KNeighbors, modelfamily.Ensemble,
		modelfamily.LinearModel, modelfamily.DecisionTree, modelfamily.KNeighbors, modelfamily.Ensemble,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("batch families (-want +got):\n%s", diff)
	}

	if ensemble.RandomSeed() != 11 {
		t.Errorf("ensemble seed = %d", ensemble.RandomSeed())
	}
	params := ensemble.Parameters()[pipelines.StackedEnsembleName(problemtype.Binary)]
	if v, _ := params.Int("n_jobs", 0); v != 3 {
		t.Errorf("ensemble n_jobs = %v", params)
	}
	if _, ok := ensemble.Parameters()["Decision Tree Pipeline - Decision Tree Classifier"]; !ok {
		t.Errorf("ensemble is missing the decision tree input: %v", ensemble.Parameters().Nodes())
	}
	if _, ok := algo.BestPipelineInfo()[modelfamily.Ensemble]; ok {
		t.Error("ensemble results must not be tracked per family")
	}
}

func TestIterativeAlgorithmEnsemblingNeedsTwoTemplates(t *testing.T) {
	X, _ := binaryData(40)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
		WithAllowedComponentGraphs(threeTemplates()[1]),
		WithPipelinesPerBatch(1),
		WithEnsembling(true),
		WithTunerFactory(tuners.RandomSearchFactory(true)),
	)
	if err != nil {
		t.Fatal(err)
	}
	for b := 0; b < 4; b++ {
		batch, err := algo.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		if batch[0].ModelFamily() != modelfamily.DecisionTree {
			t.Errorf("batch %d family = %v", b+1, batch[0].ModelFamily())
		}
		reportAll(t, algo, batch, []float64{0.5})
	}
}

func TestIterativeAlgorithmFamilyOrder(t *testing.T) {
	X, _ := binaryData(40)
	templates := threeTemplates()
	reversed := []ComponentGraphTemplate{templates[2], templates[1], templates[0]}

	algo, err := NewIterativeAlgorithm(X, problemtype.Binary, WithAllowedComponentGraphs(reversed...))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range algo.AllowedPipelines() {
		names = append(names, p.Name())
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, names); diff != "" {
		t.Errorf("default family order (-want +got):\n%s", diff)
	}

	algo, err = NewIterativeAlgorithm(X, problemtype.Binary,
		WithAllowedComponentGraphs(templates...),
		WithEstimatorFamilyOrder(modelfamily.KNeighbors, modelfamily.LinearModel),
	)
	if err != nil {
		t.Fatal(err)
	}
	names = names[:0]
	for _, p := range algo.AllowedPipelines() {
		names = append(names, p.Name())
	}
	if diff := cmp.Diff([]string{"C", "A", "B"}, names); diff != "" {
		t.Errorf("custom family order (-want +got):\n%s", diff)
	}
}

func TestIterativeAlgorithmPipelineParams(t *testing.T) {
	X, _ := binaryData(40)
	tree := []ComponentGraphTemplate{{Name: "Tree", Nodes: componentgraph.Linear("Decision Tree Classifier")}}

	t.Run("fixed values win over the tuner", func(t *testing.T) {
		algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
			WithAllowedComponentGraphs(tree...),
			WithPipelinesPerBatch(5),
			WithPipelineParams(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": 3}}),
			WithTunerFactory(tuners.RandomSearchFactory(true)),
		)
		if err != nil {
			t.Fatal(err)
		}
		for b := 0; b < 3; b++ {
			batch, err := algo.NextBatch()
			if err != nil {
				t.Fatal(err)
			}
			for _, p := range batch {
				if v, _ := p.Parameters()["Decision Tree Classifier"].Int("max_depth", 0); v != 3 {
					t.Errorf("batch %d: max_depth = %d, want 3", b+1, v)
				}
			}
			reportAll(t, algo, batch, []float64{0.5})
		}
	})

	t.Run("custom range tunes the fixed key after the first batch", func(t *testing.T) {
		algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
			WithAllowedComponentGraphs(tree...),
			WithPipelinesPerBatch(10),
			WithPipelineParams(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": 3}}),
			WithCustomHyperparameters(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": tuners.NewInteger(1, 3)}}),
			WithTunerFactory(tuners.RandomSearchFactory(true)),
		)
		if err != nil {
			t.Fatal(err)
		}
		first, _ := algo.NextBatch()
		if v, _ := first[0].Parameters()["Decision Tree Classifier"].Int("max_depth", 0); v != 3 {
			t.Errorf("first batch max_depth = %d, want 3", v)
		}
		reportAll(t, algo, first, []float64{0.5})

		batch, err := algo.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		seen := map[int]bool{}
		for _, p := range batch {
			v, _ := p.Parameters()["Decision Tree Classifier"].Int("max_depth", 0)
			if v < 1 || v > 3 {
				t.Errorf("max_depth %d outside the custom range", v)
			}
			seen[v] = true
		}
		if len(seen) < 2 {
			t.Errorf("expected tuned max_depth values, got %v", seen)
		}
	})

	t.Run("fixed value outside the custom range", func(t *testing.T) {
		algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
			WithAllowedComponentGraphs(tree...),
			WithPipelineParams(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": 9}}),
			WithCustomHyperparameters(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": tuners.NewInteger(1, 3)}}),
		)
		if err != nil {
			t.Fatal(err)
		}
		first, _ := algo.NextBatch()
		err = algo.AddResult(0.5, first[0], Metadata{ID: 1})
		var vErr *errors.ValueError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValueError, got %v", err)
		}
		if !strings.Contains(err.Error(), "Default parameters for components in pipeline Tree not in the hyperparameter ranges") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})
}

func TestIterativeAlgorithmUnusedPipelineParams(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X, _ := binaryData(40)
	algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
		WithAllowedComponentGraphs(threeTemplates()...),
		WithPipelineParams(model.PipelineParameters{
			"Random Forest Classifier": {"n_estimators": 10},
			"Decision Tree Classifier": {"max_depth": 3},
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	var w *errors.ParameterNotUsedWarning
	if !errors.As(warnings[0], &w) {
		t.Fatalf("expected ParameterNotUsedWarning, got %v", warnings[0])
	}
	if diff := cmp.Diff([]string{"Random Forest Classifier"}, w.Components); diff != "" {
		t.Errorf("unused components (-want +got):\n%s", diff)
	}

	// テンプレート単位では使われないノードがあっても警告は最初の1回だけ
	batch, err := algo.NextBatch()
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 3 || len(warnings) != 1 {
		t.Errorf("batch = %d pipelines, warnings = %v", len(batch), warnings)
	}
}

func TestIterativeAlgorithmValidation(t *testing.T) {
	X, _ := binaryData(20)
	tests := []struct {
		name string
		opts []Option
		msg  string
	}{
		{
			name: "dimension in pipeline params",
			opts: []Option{WithPipelineParams(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": tuners.NewInteger(1, 3)}})},
			msg:  "Pipeline parameters should not contain",
		},
		{
			name: "plain value in custom hyperparameters",
			opts: []Option{WithCustomHyperparameters(model.PipelineParameters{"Decision Tree Classifier": {"max_depth": 3}})},
			msg:  "Custom hyperparameters should only contain Categorical, Integer, and Real",
		},
		{
			name: "no estimator in the allowed families",
			opts: []Option{WithAllowedModelFamilies(modelfamily.XGBoost)},
			msg:  "No allowed pipelines to search",
		},
		{
			name: "empty allowed component graphs",
			opts: []Option{WithAllowedComponentGraphs()},
			msg:  "No allowed pipelines to search",
		},
		{
			name: "non-positive batch size",
			opts: []Option{WithPipelinesPerBatch(0)},
			msg:  "pipelines per batch must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIterativeAlgorithm(X, problemtype.Binary, tt.opts...)
			var vErr *errors.ValueError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValueError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestIterativeAlgorithmDeterministic(t *testing.T) {
	X, _ := binaryData(40)
	run := func() []model.PipelineParameters {
		algo, err := NewIterativeAlgorithm(X, problemtype.Binary,
			WithAllowedComponentGraphs(threeTemplates()...),
			WithPipelinesPerBatch(3),
			WithRandomSeed(5),
		)
		if err != nil {
			t.Fatal(err)
		}
		var out []model.PipelineParameters
		for b := 0; b < 4; b++ {
			batch, err := algo.NextBatch()
			if err != nil {
				t.Fatal(err)
			}
			for i, p := range batch {
				out = append(out, p.Parameters())
				if err := algo.AddResult(float64(i)/10, p, Metadata{ID: len(out)}); err != nil {
					t.Fatal(err)
				}
			}
		}
		return out
	}
	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("proposal %d differs:\n%v\n%v", i, first[i], second[i])
		}
	}
}

func TestIterativeAlgorithmTimeSeriesParameters(t *testing.T) {
	X, _ := binaryData(30)
	pl := model.Params{"gap": 1, "max_delay": 2, "forecast_horizon": 1}
	algo, err := NewIterativeAlgorithm(X, problemtype.TimeSeriesRegression,
		WithAllowedModelFamilies(modelfamily.LinearModel),
		WithPipelineParams(model.PipelineParameters{model.PipelineKey: pl}),
		WithPipelinesPerBatch(2),
		WithTunerFactory(tuners.RandomSearchFactory(true)),
	)
	if err != nil {
		t.Fatal(err)
	}
	for b := 0; b < 2; b++ {
		batch, err := algo.NextBatch()
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range batch {
			ts, ok := p.TimeSeries()
			if !ok || ts.MaxDelay != 2 || ts.Gap != 1 {
				t.Errorf("time series settings not carried: %+v", ts)
			}
			dft := p.Parameters()["Delayed Feature Transformer"]
			if v, _ := dft.Int("max_delay", 0); v != 2 {
				t.Errorf("max_delay not propagated to the delayed feature transformer: %v", dft)
			}
		}
		reportAll(t, algo, batch, []float64{0.5})
	}
}

func TestDirection(t *testing.T) {
	nan := math.NaN()
	if !Minimize.Improves(1, 2) || Minimize.Improves(2, 1) || Minimize.Improves(1, 1) {
		t.Error("Minimize.Improves is wrong")
	}
	if !Maximize.Improves(2, 1) || Maximize.Improves(1, 2) {
		t.Error("Maximize.Improves is wrong")
	}
	if Minimize.Improves(nan, 1) || !Minimize.Improves(1, nan) {
		t.Error("NaN must never improve and always be improved on")
	}
	if Minimize.Improves(math.Inf(1), Minimize.Worst()) {
		t.Error("nothing improves on the worst value by being equal to it")
	}
	if Maximize.ToMinimize(0.8) != -0.8 || Minimize.ToMinimize(0.8) != 0.8 {
		t.Error("ToMinimize is wrong")
	}
}
