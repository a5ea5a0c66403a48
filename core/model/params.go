// Package model はコンポーネントのインターフェースと、パラメータ・学習状態・
// 永続化のための共通型を提供します。
package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// PipelineKey はパイプライン全体の設定を格納する予約キーです。
const PipelineKey = "pipeline"

// Params はコンポーネント1つ分のパラメータです。
type Params map[string]any

// Clone は Params のコピーを返します。nil の場合は空の Params を返します。
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge は p に other を上書きした新しい Params を返します。
func (p Params) Merge(other Params) Params {
	out := p.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys はソート済みのキーを返します。
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal は数値の型の違い（1 と 1.0）を無視して比較します。
func (p Params) Equal(other Params) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		o, ok := other[k]
		if !ok || !ValuesEqual(v, o) {
			return false
		}
	}
	return true
}

// Float は key の値を float64 として返します。存在しない場合は def を返します。
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := ToFloat(v)
	if !ok {
		return 0, errors.NewValidationError(key, "must be numeric", v)
	}
	return f, nil
}

// Int は key の値を int として返します。整数値の float も受け付けます。
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, errors.NewValidationError(key, "must be an integer", v)
	}
	return int(f), nil
}

// String は key の値を文字列として返します。
func (p Params) String(key string, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(key, "must be a string", v)
	}
	return s, nil
}

// Bool は key の値を bool として返します。
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(key, "must be a boolean", v)
	}
	return b, nil
}

// PipelineParameters はノード名ごとのパラメータです。
// 予約キー "pipeline" はパイプライン全体の設定（gap, max_delay, forecast_horizon など）です。
type PipelineParameters map[string]Params

// Clone は各ノードの Params までコピーします。
func (pp PipelineParameters) Clone() PipelineParameters {
	out := make(PipelineParameters, len(pp))
	for k, v := range pp {
		out[k] = v.Clone()
	}
	return out
}

// Equal はすべてのノードのパラメータが等しいかを返します。
func (pp PipelineParameters) Equal(other PipelineParameters) bool {
	if len(pp) != len(other) {
		return false
	}
	for k, v := range pp {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Nodes はソート済みのノード名を返します。
func (pp PipelineParameters) Nodes() []string {
	keys := make([]string, 0, len(pp))
	for k := range pp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (pp PipelineParameters) String() string {
	return fmt.Sprintf("%v", map[string]Params(pp))
}

// ToFloat は数値型の値を float64 に変換します。
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// ValuesEqual は数値を float64 に揃えた上で値を比較します。
func ValuesEqual(a, b any) bool {
	fa, okA := ToFloat(a)
	fb, okB := ToFloat(b)
	if okA && okB {
		return fa == fb
	}
	if okA != okB {
		return false
	}
	defer func() { _ = recover() }()
	return a == b
}
