// Package tree provides CART decision tree classifiers and regressors.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// gainEpsilon is the tolerance used when comparing split gains
const gainEpsilon = 1e-12

// Option configures decision tree hyperparameters.
type Option func(*config)

type config struct {
	criterion       string
	maxDepth        int // -1 で無制限
	minSamplesSplit int
	minSamplesLeaf  int
	randomState     int64
}

// WithCriterion sets the split quality measure.
// Classification: "gini", "entropy". Regression: "squared_error", "friedman_mse".
func WithCriterion(criterion string) Option {
	return func(c *config) { c.criterion = criterion }
}

// WithMaxDepth sets the maximum depth of the tree (-1 for unlimited)
func WithMaxDepth(depth int) Option {
	return func(c *config) { c.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) Option {
	return func(c *config) { c.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf
func WithMinSamplesLeaf(n int) Option {
	return func(c *config) { c.minSamplesLeaf = n }
}

// WithRandomState sets the seed that shuffles the feature scan order
func WithRandomState(seed int64) Option {
	return func(c *config) { c.randomState = seed }
}

func (c *config) getParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         c.criterion,
		"max_depth":         c.maxDepth,
		"min_samples_split": c.minSamplesSplit,
		"min_samples_leaf":  c.minSamplesLeaf,
		"random_state":      c.randomState,
	}
}

func (c *config) setParams(params map[string]interface{}) error {
	p := model.Params(params)
	for key := range params {
		var err error
		switch key {
		case "criterion":
			c.criterion, err = p.String(key, c.criterion)
		case "max_depth":
			c.maxDepth, err = p.Int(key, c.maxDepth)
		case "min_samples_split":
			c.minSamplesSplit, err = p.Int(key, c.minSamplesSplit)
		case "min_samples_leaf":
			c.minSamplesLeaf, err = p.Int(key, c.minSamplesLeaf)
		case "random_state":
			var seed int
			seed, err = p.Int(key, int(c.randomState))
			c.randomState = int64(seed)
		default:
			err = errors.NewValidationError(key, "unknown parameter", params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *config) validate(criteria ...string) error {
	valid := false
	for _, name := range criteria {
		valid = valid || c.criterion == name
	}
	if !valid {
		return errors.NewValidationError("criterion", fmt.Sprintf("must be one of %v", criteria), c.criterion)
	}
	if c.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", c.minSamplesSplit)
	}
	if c.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", c.minSamplesLeaf)
	}
	if c.maxDepth == 0 || c.maxDepth < -1 {
		return errors.NewValidationError("max_depth", "must be positive or -1", c.maxDepth)
	}
	return nil
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     []float64
}

func (n *node) isLeaf() bool { return n.left == nil }

func (n *node) depth() int {
	if n.isLeaf() {
		return 0
	}
	return 1 + max(n.left.depth(), n.right.depth())
}

func (n *node) leaves() int {
	if n.isLeaf() {
		return 1
	}
	return n.left.leaves() + n.right.leaves()
}

func (n *node) find(X mat.Matrix, i int) *node {
	for !n.isLeaf() {
		if X.At(i, n.feature) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// builder grows a tree from per-sample contribution vectors summed per node.
// Classification contributes one-hot class counts, regression contributes [y, y^2].
type builder struct {
	cfg     *config
	X       mat.Matrix
	width   int
	contrib func(i int, acc []float64, sign float64)
	imp     func(acc []float64, n float64) float64
	gain    func(parent, left, right []float64, n, nl, nr float64) float64
	leaf    func(acc []float64, n float64) []float64

	features    []int
	importances []float64
}

func (b *builder) accumulate(idx []int) []float64 {
	acc := make([]float64, b.width)
	for _, i := range idx {
		b.contrib(i, acc, 1)
	}
	return acc
}

type split struct {
	ok        bool
	feature   int
	threshold float64
	gain      float64
	nLeft     int
}

func (b *builder) build(idx []int, depth int) *node {
	n := float64(len(idx))
	acc := b.accumulate(idx)
	nd := &node{value: b.leaf(acc, n)}

	impurity := b.imp(acc, n)
	if (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) ||
		len(idx) < b.cfg.minSamplesSplit ||
		len(idx) < 2*b.cfg.minSamplesLeaf ||
		impurity <= gainEpsilon {
		return nd
	}

	best := b.findSplit(idx, acc)
	if !best.ok {
		return nd
	}

	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(a, c int) bool {
		return b.X.At(sorted[a], best.feature) < b.X.At(sorted[c], best.feature)
	})
	left, right := sorted[:best.nLeft], sorted[best.nLeft:]

	leftAcc := b.accumulate(left)
	rightAcc := b.accumulate(right)
	nl, nr := float64(len(left)), float64(len(right))
	decrease := n*impurity - nl*b.imp(leftAcc, nl) - nr*b.imp(rightAcc, nr)
	b.importances[best.feature] += math.Max(decrease, 0)

	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = b.build(left, depth+1)
	nd.right = b.build(right, depth+1)
	return nd
}

func (b *builder) findSplit(idx []int, acc []float64) split {
	best := split{gain: math.Inf(-1)}
	n := float64(len(idx))
	sorted := append([]int(nil), idx...)
	left := make([]float64, b.width)
	right := make([]float64, b.width)

	for _, f := range b.features {
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X.At(sorted[a], f) < b.X.At(sorted[c], f)
		})
		for k := range left {
			left[k] = 0
		}
		for p := 0; p < len(sorted)-1; p++ {
			b.contrib(sorted[p], left, 1)
			v, next := b.X.At(sorted[p], f), b.X.At(sorted[p+1], f)
			if v == next {
				continue
			}
			nLeft := p + 1
			nRight := len(sorted) - nLeft
			if nLeft < b.cfg.minSamplesLeaf || nRight < b.cfg.minSamplesLeaf {
				continue
			}
			for k := range right {
				right[k] = acc[k] - left[k]
			}
			g := b.gain(acc, left, right, n, float64(nLeft), float64(nRight))
			if g > best.gain+gainEpsilon {
				best = split{ok: true, feature: f, threshold: (v + next) / 2, gain: g, nLeft: nLeft}
			}
		}
	}
	return best
}

// weightedDecrease uses the weighted impurity decrease from the parent as the gain.
func (b *builder) weightedDecrease(parent, left, right []float64, n, nl, nr float64) float64 {
	return b.imp(parent, n) - nl/n*b.imp(left, nl) - nr/n*b.imp(right, nr)
}

func (b *builder) run(nSamples, nFeatures int) *node {
	b.features = make([]int, nFeatures)
	for j := range b.features {
		b.features[j] = j
	}
	rng := rand.New(rand.NewPCG(uint64(b.cfg.randomState), uint64(b.cfg.randomState)))
	rng.Shuffle(nFeatures, func(i, j int) { b.features[i], b.features[j] = b.features[j], b.features[i] })
	b.importances = make([]float64, nFeatures)

	idx := make([]int, nSamples)
	for i := range idx {
		idx[i] = i
	}
	return b.build(idx, 0)
}

func normalize(importances []float64) []float64 {
	out := append([]float64(nil), importances...)
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func validateXY(op string, X mat.Matrix, y *mat.VecDense) (int, int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return 0, 0, errors.NewValueError(op, "y must not be nil")
	}
	if y.Len() != r {
		return 0, 0, errors.NewDimensionError(op, r, y.Len(), 0)
	}
	return r, c, nil
}

// DecisionTreeClassifier is a CART classification tree.
// Labels must be encoded class indices 0..k-1.
type DecisionTreeClassifier struct {
	config
	state *model.StateManager

	root         *node
	nClasses_    int
	importances_ []float64
}

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		config: config{criterion: "gini", maxDepth: -1, minSamplesSplit: 2, minSamplesLeaf: 1},
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&dt.config)
	}
	return dt
}

// SetNumClasses fixes the number of classes before Fit
func (dt *DecisionTreeClassifier) SetNumClasses(n int) { dt.nClasses_ = n }

// IsFitted reports whether Fit has completed
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// Fit builds the classification tree
func (dt *DecisionTreeClassifier) Fit(X mat.Matrix, y *mat.VecDense) error {
	r, c, err := validateXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := dt.validate("gini", "entropy"); err != nil {
		return err
	}

	k := dt.nClasses_
	for i := 0; i < r; i++ {
		label := y.AtVec(i)
		if label < 0 || label != math.Trunc(label) {
			return errors.NewValueErrorf("DecisionTreeClassifier.Fit", "labels must be encoded class indices, got %v", label)
		}
		k = max(k, int(label)+1)
	}
	dt.nClasses_ = k

	b := &builder{
		cfg:   &dt.config,
		X:     X,
		width: k,
		contrib: func(i int, acc []float64, sign float64) {
			acc[int(y.AtVec(i))] += sign
		},
		imp: classImpurity(dt.criterion),
		leaf: func(acc []float64, n float64) []float64 {
			out := make([]float64, len(acc))
			for j, v := range acc {
				out[j] = v / n
			}
			return out
		},
	}
	b.gain = b.weightedDecrease
	dt.root = b.run(r, c)
	dt.importances_ = normalize(b.importances)
	dt.state.SetFitted(c, r)
	return nil
}

func classImpurity(criterion string) func(acc []float64, n float64) float64 {
	if criterion == "entropy" {
		return func(acc []float64, n float64) float64 {
			h := 0.0
			for _, v := range acc {
				if v > 0 {
					p := v / n
					h -= p * math.Log2(p)
				}
			}
			return h
		}
	}
	return func(acc []float64, n float64) float64 {
		g := 1.0
		for _, v := range acc {
			p := v / n
			g -= p * p
		}
		return g
	}
}

// PredictProba returns the class proportions of the training samples in each leaf
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	probas := mat.NewDense(r, dt.nClasses_, nil)
	for i := 0; i < r; i++ {
		probas.SetRow(i, dt.root.find(X, i).value)
	}
	return probas, nil
}

// Predict returns the most probable class index for each sample
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	probas, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, k := probas.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if probas.At(i, j) > probas.At(i, best) {
				best = j
			}
		}
		out.SetVec(i, float64(best))
	}
	return out, nil
}

// Score returns the mean accuracy, or 0 when prediction fails
func (dt *DecisionTreeClassifier) Score(X mat.Matrix, y *mat.VecDense) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	correct := 0
	for i := 0; i < y.Len(); i++ {
		if pred.AtVec(i) == y.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(y.Len())
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.root == nil {
		return 0
	}
	return dt.root.depth()
}

// GetNLeaves returns the number of leaves
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.root == nil {
		return 0
	}
	return dt.root.leaves()
}

// GetFeatureImportances returns impurity decreases normalized to sum to 1
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} { return dt.getParams() }

// SetParams updates the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	return dt.setParams(params)
}

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	config
	state *model.StateManager

	root         *node
	importances_ []float64
}

// NewDecisionTreeRegressor creates a new DecisionTreeRegressor
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		config: config{criterion: "squared_error", maxDepth: -1, minSamplesSplit: 2, minSamplesLeaf: 1},
		state:  model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&dt.config)
	}
	return dt
}

// IsFitted reports whether Fit has completed
func (dt *DecisionTreeRegressor) IsFitted() bool { return dt.state.IsFitted() }

func variance(acc []float64, n float64) float64 {
	mean := acc[0] / n
	return math.Max(acc[1]/n-mean*mean, 0)
}

// Fit builds the regression tree
func (dt *DecisionTreeRegressor) Fit(X mat.Matrix, y *mat.VecDense) error {
	r, c, err := validateXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := dt.validate("squared_error", "friedman_mse"); err != nil {
		return err
	}

	b := &builder{
		cfg:   &dt.config,
		X:     X,
		width: 2,
		contrib: func(i int, acc []float64, sign float64) {
			v := y.AtVec(i)
			acc[0] += sign * v
			acc[1] += sign * v * v
		},
		imp: variance,
		leaf: func(acc []float64, n float64) []float64 {
			return []float64{acc[0] / n}
		},
	}
	b.gain = b.weightedDecrease
	if dt.criterion == "friedman_mse" {
		b.gain = func(_, left, right []float64, n, nl, nr float64) float64 {
			diff := left[0]/nl - right[0]/nr
			return nl * nr / (n * n) * diff * diff
		}
	}
	dt.root = b.run(r, c)
	dt.importances_ = normalize(b.importances)
	dt.state.SetFitted(c, r)
	return nil
}

// Predict returns the mean target of the training samples in each leaf
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, c := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeRegressor", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, dt.root.find(X, i).value[0])
	}
	return out, nil
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.root == nil {
		return 0
	}
	return dt.root.depth()
}

// GetFeatureImportances returns impurity decreases normalized to sum to 1
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} { return dt.getParams() }

// SetParams updates the model hyperparameters
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	return dt.setParams(params)
}
