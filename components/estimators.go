package components

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/linear"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/sklearn/linear_model"
	"github.com/YuminosukeSato/goautoml/sklearn/neighbors"
	"github.com/YuminosukeSato/goautoml/sklearn/tree"
	"github.com/YuminosukeSato/goautoml/tuners"
)

type fitPredictor interface {
	Fit(X mat.Matrix, y *mat.VecDense) error
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

type probaPredictor interface {
	fitPredictor
	PredictProba(X mat.Matrix) (*mat.Dense, error)
	SetNumClasses(n int)
}

// Regressor は回帰の推定器コンポーネントです。
type Regressor struct {
	ComponentBase
	family modelfamily.ModelFamily
	impl   fitPredictor
}

func (e *Regressor) ModelFamily() modelfamily.ModelFamily { return e.family }

func (e *Regressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := checkFitInput(e.name, X, y, true); err != nil {
		return err
	}
	if err := e.impl.Fit(X, y); err != nil {
		return err
	}
	e.markFitted(X)
	return nil
}

func (e *Regressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := e.requireFitted("Predict", X); err != nil {
		return nil, err
	}
	return e.impl.Predict(X)
}

// Classifier は分類の推定器コンポーネントです。y はクラス番号 0..k-1 です。
type Classifier struct {
	ComponentBase
	family modelfamily.ModelFamily
	impl   probaPredictor
}

func (e *Classifier) ModelFamily() modelfamily.ModelFamily { return e.family }

func (e *Classifier) SetNumClasses(n int) { e.impl.SetNumClasses(n) }

func (e *Classifier) Fit(X mat.Matrix, y *mat.VecDense) error {
	if err := checkFitInput(e.name, X, y, true); err != nil {
		return err
	}
	if err := e.impl.Fit(X, y); err != nil {
		return err
	}
	e.markFitted(X)
	return nil
}

func (e *Classifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := e.requireFitted("Predict", X); err != nil {
		return nil, err
	}
	return e.impl.Predict(X)
}

func (e *Classifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := e.requireFitted("PredictProba", X); err != nil {
		return nil, err
	}
	return e.impl.PredictProba(X)
}

func newClassifier(name string, family modelfamily.ModelFamily, params model.Params, seed int64, impl probaPredictor) *Classifier {
	return &Classifier{ComponentBase: NewComponentBase(name, params, seed), family: family, impl: impl}
}

func newRegressor(name string, family modelfamily.ModelFamily, params model.Params, seed int64, impl fitPredictor) *Regressor {
	return &Regressor{ComponentBase: NewComponentBase(name, params, seed), family: family, impl: impl}
}

func newLogisticRegression(params model.Params, seed int64) (*linear_model.LogisticRegression, error) {
	penalty, err := params.String("penalty", "l2")
	if err != nil {
		return nil, err
	}
	c, err := params.Float("C", 1.0)
	if err != nil {
		return nil, err
	}
	maxIter, err := params.Int("max_iter", 200)
	if err != nil {
		return nil, err
	}
	nJobs, err := params.Int("n_jobs", -1)
	if err != nil {
		return nil, err
	}
	return linear_model.NewLogisticRegression(
		linear_model.WithLRPenalty(penalty),
		linear_model.WithLRC(c),
		linear_model.WithLRMaxIter(maxIter),
		linear_model.WithLRNJobs(nJobs),
		linear_model.WithLRRandomState(seed),
	), nil
}

func logisticRegressionSpec() Spec {
	const name = "Logistic Regression Classifier"
	return Spec{
		Name:         name,
		ModelFamily:  modelfamily.LinearModel,
		ProblemTypes: classificationTypes,
		IsEstimator:  true,
		DefaultParameters: model.Params{
			"penalty":  "l2",
			"C":        1.0,
			"max_iter": 200,
			"n_jobs":   -1,
		},
		HyperparameterRanges: map[string]tuners.Dimension{
			"penalty": tuners.NewCategorical("l2", "none"),
			"C":       tuners.NewReal(0.01, 10),
		},
		New: func(params model.Params, seed int64) (model.Component, error) {
			lr, err := newLogisticRegression(params, seed)
			if err != nil {
				return nil, err
			}
			return newClassifier(name, modelfamily.LinearModel, params, seed, lr), nil
		},
	}
}

func newLinearRegression(params model.Params) (*linear.LinearRegression, error) {
	fitIntercept, err := params.Bool("fit_intercept", true)
	if err != nil {
		return nil, err
	}
	alpha, err := params.Float("alpha", 0)
	if err != nil {
		return nil, err
	}
	nJobs, err := params.Int("n_jobs", -1)
	if err != nil {
		return nil, err
	}
	return linear.NewLinearRegression(
		linear.WithFitIntercept(fitIntercept),
		linear.WithAlpha(alpha),
		linear.WithNJobs(nJobs),
	), nil
}

func linearRegressorSpec() Spec {
	const name = "Linear Regressor"
	return Spec{
		Name:         name,
		ModelFamily:  modelfamily.LinearModel,
		ProblemTypes: regressionTypes,
		IsEstimator:  true,
		DefaultParameters: model.Params{
			"fit_intercept": true,
			"alpha":         0.0,
			"n_jobs":        -1,
		},
		HyperparameterRanges: map[string]tuners.Dimension{
			"fit_intercept": tuners.NewCategorical(true, false),
			"alpha":         tuners.NewReal(0, 1),
		},
		New: func(params model.Params, seed int64) (model.Component, error) {
			lr, err := newLinearRegression(params)
			if err != nil {
				return nil, err
			}
			return newRegressor(name, modelfamily.LinearModel, params, seed, lr), nil
		},
	}
}

func treeOptions(params model.Params, seed int64, defaultCriterion string) ([]tree.Option, error) {
	criterion, err := params.String("criterion", defaultCriterion)
	if err != nil {
		return nil, err
	}
	maxDepth, err := params.Int("max_depth", 6)
	if err != nil {
		return nil, err
	}
	minSplit, err := params.Int("min_samples_split", 2)
	if err != nil {
		return nil, err
	}
	return []tree.Option{
		tree.WithCriterion(criterion),
		tree.WithMaxDepth(maxDepth),
		tree.WithMinSamplesSplit(minSplit),
		tree.WithRandomState(seed),
	}, nil
}

func decisionTreeClassifierSpec() Spec {
	const name = "Decision Tree Classifier"
	return Spec{
		Name:         name,
		ModelFamily:  modelfamily.DecisionTree,
		ProblemTypes: classificationTypes,
		IsEstimator:  true,
		DefaultParameters: model.Params{
			"criterion":         "gini",
			"max_depth":         6,
			"min_samples_split": 2,
		},
		HyperparameterRanges: map[string]tuners.Dimension{
			"criterion":         tuners.NewCategorical("gini", "entropy"),
			"max_depth":         tuners.NewInteger(4, 10),
			"min_samples_split": tuners.NewInteger(2, 10),
		},
		New: func(params model.Params, seed int64) (model.Component, error) {
			opts, err := treeOptions(params, seed, "gini")
			if err != nil {
				return nil, err
			}
			return newClassifier(name, modelfamily.DecisionTree, params, seed, tree.NewDecisionTreeClassifier(opts...)), nil
		},
	}
}

func decisionTreeRegressorSpec() Spec {
	const name = "Decision Tree Regressor"
	return Spec{
		Name:         name,
		ModelFamily:  modelfamily.DecisionTree,
		ProblemTypes: regressionTypes,
		IsEstimator:  true,
		DefaultParameters: model.Params{
			"criterion":         "squared_error",
			"max_depth":         6,
			"min_samples_split": 2,
		},
		HyperparameterRanges: map[string]tuners.Dimension{
			"criterion":         tuners.NewCategorical("squared_error", "friedman_mse"),
			"max_depth":         tuners.NewInteger(4, 10),
			"min_samples_split": tuners.NewInteger(2, 10),
		},
		New: func(params model.Params, seed int64) (model.Component, error) {
			opts, err := treeOptions(params, seed, "squared_error")
			if err != nil {
				return nil, err
			}
			return newRegressor(name, modelfamily.DecisionTree, params, seed, tree.NewDecisionTreeRegressor(opts...)), nil
		},
	}
}

func knnOptions(params model.Params) ([]neighbors.Option, error) {
	k, err := params.Int("n_neighbors", 5)
	if err != nil {
		return nil, err
	}
	weights, err := params.String("weights", "uniform")
	if err != nil {
		return nil, err
	}
	p, err := params.Int("p", 2)
	if err != nil {
		return nil, err
	}
	nJobs, err := params.Int("n_jobs", -1)
	if err != nil {
		return nil, err
	}
	return []neighbors.Option{
		neighbors.WithNNeighbors(k),
		neighbors.WithWeights(weights),
		neighbors.WithP(p),
		neighbors.WithNJobs(nJobs),
	}, nil
}

func knnDefaults() model.Params {
	return model.Params{"n_neighbors": 5, "weights": "uniform", "p": 2, "n_jobs": -1}
}

func knnRanges() map[string]tuners.Dimension {
	return map[string]tuners.Dimension{
		"n_neighbors": tuners.NewInteger(2, 12),
		"weights":     tuners.NewCategorical("uniform", "distance"),
		"p":           tuners.NewCategorical(1, 2),
	}
}

func knnClassifierSpec() Spec {
	const name = "KNN Classifier"
	return Spec{
		Name:                 name,
		ModelFamily:          modelfamily.KNeighbors,
		ProblemTypes:         classificationTypes,
		IsEstimator:          true,
		DefaultParameters:    knnDefaults(),
		HyperparameterRanges: knnRanges(),
		New: func(params model.Params, seed int64) (model.Component, error) {
			opts, err := knnOptions(params)
			if err != nil {
				return nil, err
			}
			return newClassifier(name, modelfamily.KNeighbors, params, seed, neighbors.NewKNeighborsClassifier(opts...)), nil
		},
	}
}

func knnRegressorSpec() Spec {
	const name = "KNN Regressor"
	return Spec{
		Name:                 name,
		ModelFamily:          modelfamily.KNeighbors,
		ProblemTypes:         regressionTypes,
		IsEstimator:          true,
		DefaultParameters:    knnDefaults(),
		HyperparameterRanges: knnRanges(),
		New: func(params model.Params, seed int64) (model.Component, error) {
			opts, err := knnOptions(params)
			if err != nil {
				return nil, err
			}
			return newRegressor(name, modelfamily.KNeighbors, params, seed, neighbors.NewKNeighborsRegressor(opts...)), nil
		},
	}
}

// スタックアンサンブルは上流の推定器の出力を特徴量としてメタ学習器を学習します。
// 分類のメタ学習器はロジスティック回帰、回帰は線形回帰です。

func stackedEnsembleClassifierSpec() Spec {
	const name = "Stacked Ensemble Classifier"
	return Spec{
		Name:              name,
		ModelFamily:       modelfamily.Ensemble,
		ProblemTypes:      classificationTypes,
		IsEstimator:       true,
		DefaultParameters: model.Params{"n_jobs": -1},
		New: func(params model.Params, seed int64) (model.Component, error) {
			meta, err := newLogisticRegression(params, seed)
			if err != nil {
				return nil, err
			}
			return newClassifier(name, modelfamily.Ensemble, params, seed, meta), nil
		},
	}
}

func stackedEnsembleRegressorSpec() Spec {
	const name = "Stacked Ensemble Regressor"
	return Spec{
		Name:              name,
		ModelFamily:       modelfamily.Ensemble,
		ProblemTypes:      regressionTypes,
		IsEstimator:       true,
		DefaultParameters: model.Params{"n_jobs": -1},
		New: func(params model.Params, seed int64) (model.Component, error) {
			meta, err := newLinearRegression(params)
			if err != nil {
				return nil, err
			}
			return newRegressor(name, modelfamily.Ensemble, params, seed, meta), nil
		},
	}
}
