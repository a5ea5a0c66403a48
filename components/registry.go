// Package components はコンポーネントグラフのノードとして使える変換器と推定器、
// およびそれらを名前で引くためのレジストリを提供します。
package components

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
	"github.com/YuminosukeSato/goautoml/tuners"
)

// 予約済みのノード名
var reservedNames = []string{"X", "y", model.PipelineKey}

// Factory は結合済みのパラメータと乱数シードからコンポーネントを作成します。
type Factory func(params model.Params, randomSeed int64) (model.Component, error)

// Spec はコンポーネントの種類ごとのメタデータです。
type Spec struct {
	Name         string
	ModelFamily  modelfamily.ModelFamily
	ProblemTypes []problemtype.ProblemType
	IsEstimator  bool

	// DefaultParameters は受け付けるすべてのパラメータとその既定値です。
	DefaultParameters model.Params
	// HyperparameterRanges はチューニング対象のパラメータの探索範囲です。
	HyperparameterRanges map[string]tuners.Dimension
	// PipelineParameters はパイプライン全体の設定から受け取るキーです。
	PipelineParameters []string

	New Factory
}

// Supports は problemType に対応する推定器かどうかを返します。
func (s *Spec) Supports(pt problemtype.ProblemType) bool {
	return s.IsEstimator && problemtype.Contains(s.ProblemTypes, pt)
}

// ConsumesPipelineParameter はパイプライン全体の設定 key を受け取るかを返します。
func (s *Spec) ConsumesPipelineParameter(key string) bool {
	return slices.Contains(s.PipelineParameters, key)
}

// Instantiate は既定値に params を上書きしてコンポーネントを作成します。
// 宣言されていないパラメータは ValidationError になります。
func (s *Spec) Instantiate(params model.Params, randomSeed int64) (model.Component, error) {
	for _, key := range params.Keys() {
		if _, ok := s.DefaultParameters[key]; !ok {
			return nil, errors.NewValidationError(key, fmt.Sprintf("is not a parameter of %s", s.Name), params[key])
		}
	}
	c, err := s.New(s.DefaultParameters.Merge(params), randomSeed)
	if err != nil {
		return nil, errors.Wrapf(err, "instantiating %s", s.Name)
	}
	return c, nil
}

// Registry はコンポーネント名から Spec を引くための登録簿です。
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

// NewRegistry は空のレジストリを作成します。
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Register は spec を検証して登録します。
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return errors.NewValueError("Registry.Register", "component name must not be empty")
	}
	if slices.Contains(reservedNames, spec.Name) {
		return errors.NewValueErrorf("Registry.Register", "%q is a reserved name", spec.Name)
	}
	if spec.New == nil {
		return errors.NewValueErrorf("Registry.Register", "component %s has no factory", spec.Name)
	}
	if spec.IsEstimator && len(spec.ProblemTypes) == 0 {
		return errors.NewValueErrorf("Registry.Register", "estimator %s supports no problem types", spec.Name)
	}
	for key, dim := range spec.HyperparameterRanges {
		if err := tuners.Validate(dim); err != nil {
			return errors.Wrapf(err, "component %s parameter %s", spec.Name, key)
		}
		def, ok := spec.DefaultParameters[key]
		if !ok || !dim.Contains(def) {
			return errors.NewValueErrorf("Registry.Register",
				"default value %v of %s.%s is not in the hyperparameter range %s", def, spec.Name, key, dim)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.specs[spec.Name]; dup {
		return errors.NewValueErrorf("Registry.Register", "component %s is already registered", spec.Name)
	}
	s := spec
	s.DefaultParameters = spec.DefaultParameters.Clone()
	r.specs[spec.Name] = &s
	return nil
}

// MustRegister は Register に失敗した場合に panic します。
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Lookup は名前から Spec を返します。
func (r *Registry) Lookup(name string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	if !ok {
		return nil, errors.NewMissingComponentError(name)
	}
	return s, nil
}

// Names はソート済みのコンポーネント名を返します。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Estimators は problemType に対応する探索対象の推定器を返します。
// Baseline と Ensemble は含みません。families を指定した場合はそのモデルファミリーに絞り、
// 並び順は DefaultOrder のファミリー順、同じファミリー内では名前順です。
func (r *Registry) Estimators(pt problemtype.ProblemType, families ...modelfamily.ModelFamily) []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order := modelfamily.DefaultOrder()
	var out []*Spec
	for _, s := range r.specs {
		if !s.Supports(pt) || s.ModelFamily == modelfamily.Baseline || s.ModelFamily == modelfamily.Ensemble {
			continue
		}
		if len(families) > 0 && !slices.Contains(families, s.ModelFamily) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := modelfamily.Rank(order, out[i].ModelFamily), modelfamily.Rank(order, out[j].ModelFamily)
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry は組み込みコンポーネントを登録したレジストリを返します。
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, spec := range builtinSpecs() {
			r.MustRegister(spec)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func builtinSpecs() []Spec {
	return []Spec{
		imputerSpec(),
		standardScalerSpec(),
		delayedFeatureTransformerSpec(),
		logisticRegressionSpec(),
		linearRegressorSpec(),
		decisionTreeClassifierSpec(),
		decisionTreeRegressorSpec(),
		knnClassifierSpec(),
		knnRegressorSpec(),
		baselineClassifierSpec(),
		baselineRegressorSpec(),
		stackedEnsembleClassifierSpec(),
		stackedEnsembleRegressorSpec(),
	}
}

var (
	classificationTypes = []problemtype.ProblemType{
		problemtype.Binary, problemtype.Multiclass,
		problemtype.TimeSeriesBinary, problemtype.TimeSeriesMulticlass,
	}
	regressionTypes = []problemtype.ProblemType{problemtype.Regression, problemtype.TimeSeriesRegression}
)
