// Package linear_model provides the logistic regression classifier used by
// the linear model family.
package linear_model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/core/parallel"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// LogisticRegression implements logistic regression for classification.
// Labels must be encoded class indices 0..k-1.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  int64   // Random seed
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance for stopping
	nJobs        int     // Workers for one-vs-rest fitting

	// Model parameters
	coef_      [][]float64 // Coefficients (n_classes x n_features or 1 x n_features for binary)
	intercept_ []float64   // Intercept terms
	nClasses_  int         // Number of classes
	nIter_     []int       // Actual iterations per class
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
		nJobs:        1,
	}

	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRNJobs sets the number of workers used for one-vs-rest fitting
func WithLRNJobs(n int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.nJobs = n
	}
}

// SetNumClasses fixes the number of classes before Fit, so that folds missing
// a class still produce probability matrices of the full width.
func (lr *LogisticRegression) SetNumClasses(n int) {
	lr.nClasses_ = n
}

// NumClasses returns the number of classes the model predicts.
func (lr *LogisticRegression) NumClasses() int {
	return lr.nClasses_
}

// IsFitted reports whether Fit has completed.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// NIter returns the iterations run for each set of coefficients.
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return errors.NewValueError("LogisticRegression.Fit", "y must not be nil")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, y.Len(), 0)
	}
	if lr.penalty != "l2" && lr.penalty != "none" {
		return errors.NewValidationError("penalty", "must be one of [l2 none]", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}

	nClasses := lr.nClasses_
	for i := 0; i < nSamples; i++ {
		label := y.AtVec(i)
		if label < 0 || label != math.Trunc(label) {
			return errors.NewValueErrorf("LogisticRegression.Fit", "labels must be encoded class indices, got %v", label)
		}
		nClasses = max(nClasses, int(label)+1)
	}
	lr.nClasses_ = max(nClasses, 2)
	lr.initializeWeights(nFeatures)

	if lr.nClasses_ == 2 {
		lr.fitBinaryForClass(X, y, 0, 1)
	} else {
		parallel.ParallelizeN(lr.nClasses_, parallel.Workers(lr.nJobs), func(start, end int) {
			for class := start; class < end; class++ {
				lr.fitBinaryForClass(X, y, class, float64(class))
			}
		})
	}

	for _, n := range lr.nIter_ {
		if n >= lr.maxIter {
			errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
			break
		}
	}

	lr.state.SetFitted(nFeatures, nSamples)
	return nil
}

// initializeWeights initializes model weights with small random values
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	sets := lr.nClasses_
	if sets == 2 {
		sets = 1
	}
	rng := rand.New(rand.NewPCG(uint64(lr.randomState), uint64(lr.randomState)))
	lr.coef_ = make([][]float64, sets)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
		for j := range lr.coef_[i] {
			lr.coef_[i][j] = rng.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, sets)
	lr.nIter_ = make([]int, sets)
}

// fitBinaryForClass fits coefficient set idx by gradient descent, treating
// samples labelled positive as 1 and everything else as 0.
func (lr *LogisticRegression) fitBinaryForClass(X mat.Matrix, y *mat.VecDense, idx int, positive float64) {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[idx]
	intercept := &lr.intercept_[idx]

	baseLearningRate := 1.0
	gradWeights := make([]float64, nFeatures)

	for iter := 0; iter < lr.maxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			target := 0.0
			if y.AtVec(i) == positive {
				target = 1.0
			}
			residual := sigmoid(z) - target
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		if lr.penalty == "l2" {
			lambda := 1.0 / (lr.C * float64(nSamples))
			for j := range weights {
				gradWeights[j] += lambda * weights[j]
			}
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}

		lr.nIter_[idx] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			break
		}
	}
}

func (lr *LogisticRegression) decision(X mat.Matrix, i, idx int) float64 {
	z := lr.intercept_[idx]
	for j, w := range lr.coef_[idx] {
		z += X.At(i, j) * w
	}
	return z
}

// PredictProba returns probability estimates for each class.
// Multiclass scores are normalised with softmax.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression", "PredictProba", nFeatures); err != nil {
		return nil, err
	}

	probas := mat.NewDense(nSamples, lr.nClasses_, nil)
	if lr.nClasses_ == 2 {
		for i := 0; i < nSamples; i++ {
			prob1 := sigmoid(lr.decision(X, i, 0))
			probas.Set(i, 0, 1.0-prob1)
			probas.Set(i, 1, prob1)
		}
		return probas, nil
	}

	scores := make([]float64, lr.nClasses_)
	for i := 0; i < nSamples; i++ {
		maxScore := math.Inf(-1)
		for c := range scores {
			scores[c] = lr.decision(X, i, c)
			maxScore = math.Max(maxScore, scores[c])
		}
		sum := 0.0
		for c := range scores {
			scores[c] = math.Exp(scores[c] - maxScore)
			sum += scores[c]
		}
		for c := range scores {
			probas.Set(i, c, scores[c]/sum)
		}
	}
	return probas, nil
}

// Predict returns the most probable class index for each sample
func (lr *LogisticRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgMax(probas), nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < y.Len(); i++ {
		if predictions.AtVec(i) == y.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(y.Len()), nil
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
		"n_jobs":        lr.nJobs,
	}
}

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(penalty=%s, C=%g, max_iter=%d)", lr.penalty, lr.C, lr.maxIter)
}

// ArgMax returns the column index of the largest value in each row.
// Ties resolve to the lowest index.
func ArgMax(probas mat.Matrix) *mat.VecDense {
	r, c := probas.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if probas.At(i, j) > probas.At(i, best) {
				best = j
			}
		}
		out.SetVec(i, float64(best))
	}
	return out
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}
