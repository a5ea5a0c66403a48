// Package config は探索の設定を YAML/JSON ファイルと環境変数から読み込みます。
//
// 設定ファイルの値は GOAUTOML_ で始まる環境変数で上書きできます。
//
//	cfg, err := config.Load(config.WithConfigFile("search.yml"))
//	if err != nil {
//	    return err
//	}
//	opts, err := cfg.SearchOptions()
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/goautoml/automl"
	"github.com/YuminosukeSato/goautoml/components"
	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/modelfamily"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
	"github.com/YuminosukeSato/goautoml/tuners"
)

// EnvPrefix は設定を上書きする環境変数の接頭辞です。
const EnvPrefix = "GOAUTOML"

// ComponentParameters は1つのコンポーネントに渡す固定パラメータです。
// viper はキーを小文字にするため、コンポーネント名は値として持ちます。
type ComponentParameters struct {
	Component  string         `mapstructure:"component" json:"component" validate:"required"`
	Parameters map[string]any `mapstructure:"parameters" json:"parameters"`
}

// HyperparameterRange はチューニング範囲の上書きです。
type HyperparameterRange struct {
	Component string  `mapstructure:"component" json:"component" validate:"required"`
	Parameter string  `mapstructure:"parameter" json:"parameter" validate:"required"`
	Kind      string  `mapstructure:"kind" json:"kind" validate:"required,oneof=categorical integer real log_real"`
	Values    []any   `mapstructure:"values" json:"values" validate:"required_if=Kind categorical"`
	Low       float64 `mapstructure:"low" json:"low"`
	High      float64 `mapstructure:"high" json:"high" validate:"gtefield=Low"`
}

// Dimension は範囲を tuners.Dimension に変換します。
func (h HyperparameterRange) Dimension() (tuners.Dimension, error) {
	var d tuners.Dimension
	switch h.Kind {
	case "categorical":
		d = tuners.NewCategorical(h.Values...)
	case "integer":
		d = tuners.NewInteger(int(h.Low), int(h.High))
	case "real":
		d = tuners.NewReal(h.Low, h.High)
	case "log_real":
		d = tuners.NewLogReal(h.Low, h.High)
	default:
		return nil, errors.NewValidationError("kind", "must be one of: categorical integer real log_real", h.Kind)
	}
	if err := tuners.Validate(d); err != nil {
		return nil, errors.Wrapf(err, "%s.%s", h.Component, h.Parameter)
	}
	return d, nil
}

// SearchConfig は AutoMLSearch の設定です。
type SearchConfig struct {
	ProblemType          string   `mapstructure:"problem_type" json:"problem_type" validate:"required,problem_type"`
	Objective            string   `mapstructure:"objective" json:"objective" validate:"required"`
	AdditionalObjectives []string `mapstructure:"additional_objectives" json:"additional_objectives"`

	MaxIterations int           `mapstructure:"max_iterations" json:"max_iterations" validate:"gte=0"`
	MaxBatches    int           `mapstructure:"max_batches" json:"max_batches" validate:"gte=0"`
	MaxTime       time.Duration `mapstructure:"max_time" json:"max_time" validate:"gte=0"`
	Patience      int           `mapstructure:"patience" json:"patience" validate:"gte=0"`
	Tolerance     float64       `mapstructure:"tolerance" json:"tolerance" validate:"gte=0"`

	RandomSeed         int64 `mapstructure:"random_seed" json:"random_seed"`
	NJobs              int   `mapstructure:"n_jobs" json:"n_jobs"`
	CVFolds            int   `mapstructure:"cv_folds" json:"cv_folds" validate:"gte=2"`
	OptimizeThresholds bool  `mapstructure:"optimize_thresholds" json:"optimize_thresholds"`
	// Workers が 0 より大きい場合はバッチを並列に評価します。
	Workers int `mapstructure:"workers" json:"workers" validate:"gte=0"`

	PipelinesPerBatch    int      `mapstructure:"pipelines_per_batch" json:"pipelines_per_batch" validate:"gte=1"`
	Ensembling           bool     `mapstructure:"ensembling" json:"ensembling"`
	AllowedModelFamilies []string `mapstructure:"allowed_model_families" json:"allowed_model_families" validate:"dive,model_family"`
	Tuner                string   `mapstructure:"tuner" json:"tuner" validate:"oneof=smbo bayesian random grid"`

	PipelineParameters    []ComponentParameters `mapstructure:"pipeline_parameters" json:"pipeline_parameters" validate:"dive"`
	CustomHyperparameters []HyperparameterRange `mapstructure:"custom_hyperparameters" json:"custom_hyperparameters" validate:"dive"`
}

// Default は既定値の SearchConfig を返します。
func Default() SearchConfig {
	return SearchConfig{
		Objective:         "auto",
		NJobs:             -1,
		CVFolds:           3,
		PipelinesPerBatch: 5,
		Tuner:             "smbo",
	}
}

var defaultKeys = map[string]any{
	"problem_type":           "",
	"objective":              "auto",
	"additional_objectives":  []string{},
	"max_iterations":         0,
	"max_batches":            0,
	"max_time":               time.Duration(0),
	"patience":               0,
	"tolerance":              0.0,
	"random_seed":            int64(0),
	"n_jobs":                 -1,
	"cv_folds":               3,
	"optimize_thresholds":    false,
	"workers":                0,
	"pipelines_per_batch":    5,
	"ensembling":             false,
	"allowed_model_families": []string{},
	"tuner":                  "smbo",
}

// ApplyDefaults は v に既定値を登録します。
// 登録したキーは AutomaticEnv で環境変数から上書きできます。
func ApplyDefaults(v *viper.Viper) {
	for k, val := range defaultKeys {
		v.SetDefault(k, val)
	}
}

type loaderConfig struct {
	configFile string
	envFile    string
	overrides  map[string]any
}

// LoaderOption は Load の設定を変更します。
type LoaderOption func(*loaderConfig)

// WithConfigFile は読み込む設定ファイルです。拡張子で形式を判定します。
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile は環境変数を読み込む .env ファイルです。存在しない場合は無視します。
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithOverride はファイルと環境変数より優先する値を設定します。
func WithOverride(key string, value any) LoaderOption {
	return func(lc *loaderConfig) {
		if lc.overrides == nil {
			lc.overrides = map[string]any{}
		}
		lc.overrides[key] = value
	}
}

// Load は既定値、設定ファイル、環境変数、上書きの順に設定を読み込み、検証します。
func Load(opts ...LoaderOption) (*SearchConfig, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if err := LoadDotEnv(lc.envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	ApplyDefaults(v)
	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", lc.configFile)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range lc.overrides {
		v.Set(k, val)
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding search config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv は path の .env を環境変数に読み込みます。
// path が空か存在しない場合は何もしません。既存の環境変数は上書きしません。
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	return nil
}

// ProblemTypeValue は ProblemType を解釈します。
func (c *SearchConfig) ProblemTypeValue() (problemtype.ProblemType, error) {
	return problemtype.Parse(c.ProblemType)
}

// Parameters は PipelineParameters を model.PipelineParameters に変換します。
// 同じコンポーネントが複数回現れた場合は後の値で上書きします。
func (c *SearchConfig) Parameters() model.PipelineParameters {
	if len(c.PipelineParameters) == 0 {
		return nil
	}
	out := model.PipelineParameters{}
	for _, cp := range c.PipelineParameters {
		out[cp.Component] = out[cp.Component].Merge(canonicalParams(cp.Component, cp.Parameters))
	}
	return out
}

// canonicalParams は小文字になったキーを登録済みの既定パラメータの表記に戻します。
func canonicalParams(component string, params map[string]any) model.Params {
	out := make(model.Params, len(params))
	spec, err := components.DefaultRegistry().Lookup(component)
	for k, v := range params {
		if err == nil {
			for name := range spec.DefaultParameters {
				if strings.EqualFold(name, k) {
					k = name
					break
				}
			}
		}
		out[k] = v
	}
	return out
}

// Hyperparameters は CustomHyperparameters を探索範囲に変換します。
func (c *SearchConfig) Hyperparameters() (model.PipelineParameters, error) {
	if len(c.CustomHyperparameters) == 0 {
		return nil, nil
	}
	out := model.PipelineParameters{}
	for _, h := range c.CustomHyperparameters {
		d, err := h.Dimension()
		if err != nil {
			return nil, err
		}
		if out[h.Component] == nil {
			out[h.Component] = model.Params{}
		}
		out[h.Component][h.Parameter] = d
	}
	return out, nil
}

// SearchOptions は設定を automl.NewAutoMLSearch のオプションに変換します。
func (c *SearchConfig) SearchOptions() ([]automl.SearchOption, error) {
	opts := []automl.SearchOption{
		automl.WithObjective(c.Objective),
		automl.WithMaxIterations(c.MaxIterations),
		automl.WithMaxBatches(c.MaxBatches),
		automl.WithMaxTime(c.MaxTime),
		automl.WithPatience(c.Patience, c.Tolerance),
		automl.WithSearchRandomSeed(c.RandomSeed),
		automl.WithSearchNJobs(c.NJobs),
		automl.WithCVFolds(c.CVFolds),
		automl.WithOptimizeThresholds(c.OptimizeThresholds),
	}
	if len(c.AdditionalObjectives) > 0 {
		opts = append(opts, automl.WithAdditionalObjectives(c.AdditionalObjectives...))
	}
	if c.Workers > 0 {
		opts = append(opts, automl.WithParallelEvaluation(c.Workers))
	}
	if pp := c.Parameters(); pp != nil {
		opts = append(opts, automl.WithSearchPipelineParams(pp))
	}

	factory, err := tuners.FactoryByName(c.Tuner)
	if err != nil {
		return nil, err
	}
	algo := []automl.Option{
		automl.WithPipelinesPerBatch(c.PipelinesPerBatch),
		automl.WithEnsembling(c.Ensembling),
		automl.WithTunerFactory(factory),
	}
	if len(c.AllowedModelFamilies) > 0 {
		families := make([]modelfamily.ModelFamily, 0, len(c.AllowedModelFamilies))
		for _, name := range c.AllowedModelFamilies {
			f, err := modelfamily.Parse(name)
			if err != nil {
				return nil, err
			}
			families = append(families, f)
		}
		algo = append(algo, automl.WithAllowedModelFamilies(families...))
	}
	custom, err := c.Hyperparameters()
	if err != nil {
		return nil, err
	}
	if custom != nil {
		algo = append(algo, automl.WithCustomHyperparameters(custom))
	}
	return append(opts, automl.WithAlgorithmOptions(algo...)), nil
}
