// Package modelfamily は推定器をまとめる系統（モデルファミリー）を定義します。
package modelfamily

import (
	"strings"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// ModelFamily は推定器の系統です。探索は系統ごとにチューナーを持ちます。
type ModelFamily int

const (
	None ModelFamily = iota
	LinearModel
	DecisionTree
	KNeighbors
	RandomForest
	ExtraTrees
	XGBoost
	LightGBM
	CatBoost
	SVM
	Baseline
	Ensemble
)

var names = [...]string{
	None:         "none",
	LinearModel:  "linear_model",
	DecisionTree: "decision_tree",
	KNeighbors:   "k_neighbors",
	RandomForest: "random_forest",
	ExtraTrees:   "extra_trees",
	XGBoost:      "xgboost",
	LightGBM:     "lightgbm",
	CatBoost:     "catboost",
	SVM:          "svm",
	Baseline:     "baseline",
	Ensemble:     "ensemble",
}

var displayNames = [...]string{
	None:         "None",
	LinearModel:  "Linear Model",
	DecisionTree: "Decision Tree",
	KNeighbors:   "K Nearest Neighbors",
	RandomForest: "Random Forest",
	ExtraTrees:   "Extra Trees",
	XGBoost:      "XGBoost",
	LightGBM:     "LightGBM",
	CatBoost:     "CatBoost",
	SVM:          "SVM",
	Baseline:     "Baseline",
	Ensemble:     "Ensemble",
}

// DisplayName はパイプライン名などに使う表示用の名前です。
func (f ModelFamily) DisplayName() string {
	if f < 0 || int(f) >= len(displayNames) {
		return "Unknown"
	}
	return displayNames[f]
}

func (f ModelFamily) String() string {
	if f < 0 || int(f) >= len(names) {
		return "unknown"
	}
	return names[f]
}

// Parse は "linear_model" のような名前から ModelFamily を返します。
func Parse(s string) (ModelFamily, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	for i, name := range names {
		if name == key {
			return ModelFamily(i), nil
		}
	}
	return None, errors.NewValueErrorf("modelfamily.Parse", "unknown model family %q", s)
}

// MarshalText は encoding.TextMarshaler を実装します。
func (f ModelFamily) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText は encoding.TextUnmarshaler を実装します。
func (f *ModelFamily) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// DefaultOrder は最初のバッチで推定器を並べる既定の優先順位です。
func DefaultOrder() []ModelFamily {
	return []ModelFamily{LinearModel, DecisionTree, ExtraTrees, RandomForest, KNeighbors, XGBoost, LightGBM, CatBoost}
}

// Rank は order 中の f の位置を返します。含まれない場合は len(order) です。
func Rank(order []ModelFamily, f ModelFamily) int {
	for i, o := range order {
		if o == f {
			return i
		}
	}
	return len(order)
}
