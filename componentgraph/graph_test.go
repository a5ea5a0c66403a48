package componentgraph

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

func TestLinear(t *testing.T) {
	got := Linear("Imputer", "Standard Scaler", "Imputer", "Logistic Regression Classifier")
	want := []Node{
		{Name: "Imputer", Component: "Imputer", Inputs: []string{"X", "y"}},
		{Name: "Standard Scaler", Component: "Standard Scaler", Inputs: []string{"Imputer.x", "y"}},
		{Name: "Imputer_2", Component: "Imputer", Inputs: []string{"Standard Scaler.x", "y"}},
		{Name: "Logistic Regression Classifier", Component: "Logistic Regression Classifier", Inputs: []string{"Imputer_2.x", "y"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Linear() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []Node
		missing bool
	}{
		{name: "empty", nodes: nil},
		{name: "reserved name", nodes: []Node{{Name: "pipeline", Component: "Imputer", Inputs: []string{"X", "y"}}}},
		{name: "duplicate", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"X", "y"}},
			{Name: "a", Component: "Imputer", Inputs: []string{"X", "y"}},
		}},
		{name: "missing upstream", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"b.x", "y"}},
		}},
		{name: "malformed input", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"features", "y"}},
		}},
		{name: "no feature input", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"y"}},
		}},
		{name: "two target inputs", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"X", "y"}},
			{Name: "b", Component: "Imputer", Inputs: []string{"a.x", "a.y", "y"}},
		}},
		{name: "target from estimator", nodes: []Node{
			{Name: "a", Component: "Linear Regressor", Inputs: []string{"X", "y"}},
			{Name: "b", Component: "Linear Regressor", Inputs: []string{"a.x", "a.y"}},
		}},
		{name: "cycle", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"X", "c.x", "y"}},
			{Name: "b", Component: "Imputer", Inputs: []string{"a.x", "y"}},
			{Name: "c", Component: "Imputer", Inputs: []string{"b.x", "y"}},
			{Name: "d", Component: "Linear Regressor", Inputs: []string{"c.x", "y"}},
		}},
		{name: "two final nodes", nodes: []Node{
			{Name: "a", Component: "Imputer", Inputs: []string{"X", "y"}},
			{Name: "b", Component: "Linear Regressor", Inputs: []string{"a.x", "y"}},
			{Name: "c", Component: "Decision Tree Regressor", Inputs: []string{"a.x", "y"}},
		}},
		{name: "unknown component", missing: true, nodes: []Node{
			{Name: "a", Component: "Fake Component", Inputs: []string{"X", "y"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nodes)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.missing {
				var missing *errors.MissingComponentError
				if !errors.As(err, &missing) {
					t.Errorf("expected MissingComponentError, got %v", err)
				}
				return
			}
			var gErr *errors.GraphValidationError
			if !errors.As(err, &gErr) {
				t.Errorf("expected GraphValidationError, got %v", err)
			}
		})
	}
}

func diamond() []Node {
	return []Node{
		{Name: "Linear", Component: "Linear Regressor", Inputs: []string{"Scaler.x", "y"}},
		{Name: "Imputer", Component: "Imputer", Inputs: []string{"X", "y"}},
		{Name: "Tree", Component: "Decision Tree Regressor", Inputs: []string{"Imputer.x", "y"}},
		{Name: "Scaler", Component: "Standard Scaler", Inputs: []string{"Imputer.x", "y"}},
		{Name: "Final", Component: "Stacked Ensemble Regressor", Inputs: []string{"Linear.x", "Tree.x", "y"}},
	}
}

func TestComputeOrder(t *testing.T) {
	g, err := New(diamond())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Imputer", "Tree", "Scaler", "Linear", "Final"}
	if diff := cmp.Diff(want, g.ComputeOrder()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	// 同じ入力からは常に同じ順序
	for i := 0; i < 5; i++ {
		again, _ := New(diamond())
		if diff := cmp.Diff(want, again.ComputeOrder()); diff != "" {
			t.Fatalf("order is not deterministic:\n%s", diff)
		}
	}

	var visited []string
	for name := range g.Components() {
		visited = append(visited, name)
	}
	var second []string
	for name := range g.Components() {
		second = append(second, name)
	}
	if diff := cmp.Diff(visited, second); diff != "" || len(visited) != 5 {
		t.Errorf("Components() should be restartable:\n%s", diff)
	}

	if g.FinalName() != "Final" {
		t.Errorf("FinalName() = %q", g.FinalName())
	}
	if got := len(g.Estimators()); got != 3 {
		t.Errorf("expected 3 estimators, got %d", got)
	}
}

func TestParameters(t *testing.T) {
	nodes := Linear("Delayed Feature Transformer", "Imputer", "Linear Regressor")
	g, err := New(nodes)
	if err != nil {
		t.Fatal(err)
	}
	defaults := g.DefaultParameters()
	if !defaults["Imputer"].Equal(model.Params{"numeric_impute_strategy": "mean"}) {
		t.Errorf("unexpected Imputer defaults %v", defaults["Imputer"])
	}
	if _, err := g.GetParameters("Fake"); err == nil {
		t.Error("GetParameters on a missing node should fail")
	}

	inst, unused, err := g.Instantiate(model.PipelineParameters{
		"Imputer":          {"numeric_impute_strategy": "median"},
		"Other Node":       {"a": 1},
		"pipeline":         {"gap": 1, "max_delay": 3, "forecast_horizon": 2},
		"Linear Regressor": {"alpha": 0.5},
	}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Other Node"}, unused); diff != "" {
		t.Errorf("unused keys (-want +got):\n%s", diff)
	}
	dft, _ := inst.GetParameters("Delayed Feature Transformer")
	if v, _ := dft.Int("max_delay", 0); v != 3 {
		t.Errorf("pipeline-level max_delay not propagated: %v", dft)
	}
	lr, _ := inst.GetParameters("Linear Regressor")
	if _, ok := lr["gap"]; ok {
		t.Error("pipeline-level keys must only reach consuming nodes")
	}
	if inst.RandomSeed() != 7 {
		t.Errorf("RandomSeed() = %d", inst.RandomSeed())
	}
	// 元のグラフは変わらない
	orig, _ := g.GetParameters("Imputer")
	if s, _ := orig.String("numeric_impute_strategy", ""); s != "mean" {
		t.Errorf("original graph was modified: %v", orig)
	}

	if _, _, err := g.Instantiate(model.PipelineParameters{"Imputer": {"bogus": 1}}, 0); err == nil {
		t.Error("unknown component parameter should fail")
	}
}

func TestFitPredict(t *testing.T) {
	n := 20
	xs := make([]float64, n*2)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[2*i] = float64(i)
		xs[2*i+1] = float64(i % 3)
		ys[i] = 3*float64(i) + 1
	}
	xs[4] = math.NaN()
	X := mat.NewDense(n, 2, xs)
	y := mat.NewVecDense(n, ys)

	g, err := New(diamond())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Predict(X); err == nil {
		t.Error("Predict before Fit should fail")
	}
	if err := g.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if !g.IsFitted() {
		t.Error("graph should be fitted")
	}
	features, _, err := g.TransformAllButFinal(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if _, c := features.Dims(); c != 2 {
		t.Errorf("final node should receive 2 columns, got %d", c)
	}
	pred, err := g.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 5; i < n; i++ {
		if math.Abs(pred.AtVec(i)-ys[i]) > 1.0 {
			t.Errorf("row %d: prediction %v, want about %v", i, pred.AtVec(i), ys[i])
		}
	}
	if _, err := g.PredictProba(X); err == nil {
		t.Error("PredictProba on a regressor should fail")
	}
}

func TestEstimatorFeaturesForClassification(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{-4, -3, -2, -1, 1, 2, 3, 4})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	nodes := []Node{
		{Name: "Tree", Component: "Decision Tree Classifier", Inputs: []string{"X", "y"}},
		{Name: "KNN", Component: "KNN Classifier", Inputs: []string{"X", "y"}},
		{Name: "Final", Component: "Stacked Ensemble Classifier", Inputs: []string{"Tree.x", "KNN.x", "y"}},
	}
	g, err := New(nodes)
	if err != nil {
		t.Fatal(err)
	}
	g.SetNumClasses(2)
	if err := g.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	features, _, err := g.TransformAllButFinal(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if _, c := features.Dims(); c != 2 {
		t.Errorf("binary estimators should contribute one column each, got %d", c)
	}
	pred, err := g.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(pred, y) {
		t.Errorf("predictions %v", mat.Formatted(pred.T()))
	}

	g3, _, _ := g.Instantiate(nil, 0)
	g3.SetNumClasses(3)
	if err := g3.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	features, _, _ = g3.TransformAllButFinal(X, y)
	if _, c := features.Dims(); c != 6 {
		t.Errorf("multiclass estimators should contribute all class columns, got %d", c)
	}
}
