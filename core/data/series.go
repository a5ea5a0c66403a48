// Package data は目的変数の列と特徴量行列を扱うための補助型を提供します。
package data

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Kind は Series が保持する値の型です。
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Series は型を保持した1次元の列です。
// 分類のラベルは元の型のまま扱われ、予測結果も同じ型で返されます。
type Series struct {
	kind    Kind
	floats  []float64
	ints    []int
	strings []string
}

// NewFloatSeries は値をコピーして float の Series を作成します。
func NewFloatSeries(values []float64) *Series {
	return &Series{kind: KindFloat, floats: append([]float64(nil), values...)}
}

// NewIntSeries は値をコピーして int の Series を作成します。
func NewIntSeries(values []int) *Series {
	return &Series{kind: KindInt, ints: append([]int(nil), values...)}
}

// NewStringSeries は値をコピーして string の Series を作成します。
func NewStringSeries(values []string) *Series {
	return &Series{kind: KindString, strings: append([]string(nil), values...)}
}

// FromVec は VecDense を float の Series に変換します。
func FromVec(v mat.Vector) *Series {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return &Series{kind: KindFloat, floats: out}
}

// Kind は値の型を返します。
func (s *Series) Kind() Kind {
	return s.kind
}

// Len は要素数を返します。
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	switch s.kind {
	case KindInt:
		return len(s.ints)
	case KindString:
		return len(s.strings)
	default:
		return len(s.floats)
	}
}

// Value は i 番目の値を元の型のまま返します。
func (s *Series) Value(i int) any {
	switch s.kind {
	case KindInt:
		return s.ints[i]
	case KindString:
		return s.strings[i]
	default:
		return s.floats[i]
	}
}

// Values はすべての値を元の型で返します。
func (s *Series) Values() []any {
	out := make([]any, s.Len())
	for i := range out {
		out[i] = s.Value(i)
	}
	return out
}

// Floats は数値の Series を []float64 として返します。文字列の場合はエラーです。
func (s *Series) Floats() ([]float64, error) {
	switch s.kind {
	case KindFloat:
		return append([]float64(nil), s.floats...), nil
	case KindInt:
		out := make([]float64, len(s.ints))
		for i, v := range s.ints {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, errors.NewValueError("Series.Floats", "string series cannot be converted to float")
}

// Vec は数値の Series を VecDense として返します。
func (s *Series) Vec() (*mat.VecDense, error) {
	values, err := s.Floats()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.ErrEmptyData
	}
	return mat.NewVecDense(len(values), values), nil
}

// Strings は各値の文字列表現を返します。
func (s *Series) Strings() []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = FormatValue(s.Value(i))
	}
	return out
}

// Take は idx の位置の値からなる新しい Series を返します。
func (s *Series) Take(idx []int) *Series {
	out := &Series{kind: s.kind}
	switch s.kind {
	case KindInt:
		out.ints = make([]int, len(idx))
		for i, j := range idx {
			out.ints[i] = s.ints[j]
		}
	case KindString:
		out.strings = make([]string, len(idx))
		for i, j := range idx {
			out.strings[i] = s.strings[j]
		}
	default:
		out.floats = make([]float64, len(idx))
		for i, j := range idx {
			out.floats[i] = s.floats[j]
		}
	}
	return out
}

// Unique は重複を除いてソートした値を同じ型の Series で返します。
// float の NaN は除外されます。
func (s *Series) Unique() *Series {
	switch s.kind {
	case KindInt:
		seen := make(map[int]struct{}, len(s.ints))
		var out []int
		for _, v := range s.ints {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		sort.Ints(out)
		return &Series{kind: KindInt, ints: out}
	case KindString:
		seen := make(map[string]struct{}, len(s.strings))
		var out []string
		for _, v := range s.strings {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return &Series{kind: KindString, strings: out}
	default:
		seen := make(map[float64]struct{}, len(s.floats))
		var out []float64
		for _, v := range s.floats {
			if math.IsNaN(v) {
				continue
			}
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		sort.Float64s(out)
		return &Series{kind: KindFloat, floats: out}
	}
}

// Equal は2つの Series の型と値が等しいかを返します。
func (s *Series) Equal(other *Series) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.kind != other.kind || s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.Value(i) != other.Value(i) {
			return false
		}
	}
	return true
}

func (s *Series) String() string {
	return fmt.Sprintf("Series[%s](%v)", s.kind, s.Values())
}

// FormatValue はラベル値を文字列に変換します。
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// ParseSeries は文字列の列から、すべて整数なら int、すべて数値なら float、
// それ以外は string の Series を推定して作成します。
func ParseSeries(values []string) *Series {
	ints := make([]int, len(values))
	isInt := true
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			isInt = false
			break
		}
		ints[i] = n
	}
	if isInt {
		return NewIntSeries(ints)
	}
	floats := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return NewStringSeries(values)
		}
		floats[i] = f
	}
	return NewFloatSeries(floats)
}
