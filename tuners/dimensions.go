// Package tuners はハイパーパラメータの探索空間と、それを探索するチューナーを提供します。
package tuners

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Dimension は1つのハイパーパラメータの取りうる範囲です。
type Dimension interface {
	// Contains は v が範囲内かを返します。
	Contains(v any) bool
	// Sample は範囲から一様に値を取り出します。
	Sample(rng *rand.Rand) any
	// Encode は v を [0, 1] の特徴量に変換します（Categorical は one-hot）。
	Encode(v any) ([]float64, error)
	// Width は Encode が返す特徴量の数です。
	Width() int
	// Grid は最大 n 個の代表点を返します。
	Grid(n int) []any
	String() string
}

// NewSeededRand は seed から決定的な乱数生成器を作成します。
func NewSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// IsDimension は v が探索空間の次元かを返します。
func IsDimension(v any) bool {
	_, ok := v.(Dimension)
	return ok
}

// Categorical は有限個の候補から選ぶ次元です。
type Categorical struct {
	Categories []any
}

// NewCategorical は候補を指定して Categorical を作成します。
func NewCategorical(categories ...any) Categorical {
	return Categorical{Categories: categories}
}

func (c Categorical) index(v any) int {
	for i, cat := range c.Categories {
		if model.ValuesEqual(cat, v) {
			return i
		}
	}
	return -1
}

func (c Categorical) Contains(v any) bool { return c.index(v) >= 0 }

func (c Categorical) Sample(rng *rand.Rand) any {
	return c.Categories[rng.IntN(len(c.Categories))]
}

func (c Categorical) Encode(v any) ([]float64, error) {
	i := c.index(v)
	if i < 0 {
		return nil, errors.NewValueErrorf("Categorical.Encode", "%v not in %s", v, c)
	}
	out := make([]float64, len(c.Categories))
	out[i] = 1
	return out, nil
}

func (c Categorical) Width() int { return len(c.Categories) }

func (c Categorical) Grid(int) []any {
	return append([]any(nil), c.Categories...)
}

func (c Categorical) String() string {
	return fmt.Sprintf("Categorical(%v)", c.Categories)
}

// Integer は [Low, High] の整数をとる次元です。
type Integer struct {
	Low, High int
}

// NewInteger は両端を含む整数の範囲を作成します。
func NewInteger(low, high int) Integer {
	return Integer{Low: low, High: high}
}

func (d Integer) Contains(v any) bool {
	f, ok := model.ToFloat(v)
	return ok && f == math.Trunc(f) && f >= float64(d.Low) && f <= float64(d.High)
}

func (d Integer) Sample(rng *rand.Rand) any {
	return d.Low + rng.IntN(d.High-d.Low+1)
}

func (d Integer) Encode(v any) ([]float64, error) {
	if !d.Contains(v) {
		return nil, errors.NewValueErrorf("Integer.Encode", "%v not in %s", v, d)
	}
	if d.High == d.Low {
		return []float64{0}, nil
	}
	f, _ := model.ToFloat(v)
	return []float64{(f - float64(d.Low)) / float64(d.High-d.Low)}, nil
}

func (d Integer) Width() int { return 1 }

func (d Integer) Grid(n int) []any {
	span := d.High - d.Low + 1
	if n <= 0 || span <= n {
		out := make([]any, 0, span)
		for v := d.Low; v <= d.High; v++ {
			out = append(out, v)
		}
		return out
	}
	out := make([]any, 0, n)
	last := math.MinInt
	for i := 0; i < n; i++ {
		v := d.Low + int(math.Round(float64(i)*float64(d.High-d.Low)/float64(n-1)))
		if v != last {
			out = append(out, v)
			last = v
		}
	}
	return out
}

func (d Integer) String() string {
	return fmt.Sprintf("Integer(low=%d, high=%d)", d.Low, d.High)
}

// Real は [Low, High] の実数をとる次元です。LogUniform の場合は対数スケールで扱います。
type Real struct {
	Low, High  float64
	LogUniform bool
}

// NewReal は一様な実数の範囲を作成します。
func NewReal(low, high float64) Real {
	return Real{Low: low, High: high}
}

// NewLogReal は対数一様な実数の範囲を作成します。low は正である必要があります。
func NewLogReal(low, high float64) Real {
	return Real{Low: low, High: high, LogUniform: true}
}

func (d Real) Contains(v any) bool {
	f, ok := model.ToFloat(v)
	return ok && f >= d.Low && f <= d.High
}

func (d Real) Sample(rng *rand.Rand) any {
	if d.LogUniform {
		lo, hi := math.Log(d.Low), math.Log(d.High)
		return math.Exp(lo + rng.Float64()*(hi-lo))
	}
	return d.Low + rng.Float64()*(d.High-d.Low)
}

func (d Real) Encode(v any) ([]float64, error) {
	if !d.Contains(v) {
		return nil, errors.NewValueErrorf("Real.Encode", "%v not in %s", v, d)
	}
	if d.High == d.Low {
		return []float64{0}, nil
	}
	f, _ := model.ToFloat(v)
	if d.LogUniform {
		lo, hi := math.Log(d.Low), math.Log(d.High)
		return []float64{(math.Log(f) - lo) / (hi - lo)}, nil
	}
	return []float64{(f - d.Low) / (d.High - d.Low)}, nil
}

func (d Real) Width() int { return 1 }

func (d Real) Grid(n int) []any {
	if n <= 1 || d.High == d.Low {
		return []any{d.Low}
	}
	out := make([]any, n)
	for i := range out {
		u := float64(i) / float64(n-1)
		if d.LogUniform {
			lo, hi := math.Log(d.Low), math.Log(d.High)
			out[i] = math.Exp(lo + u*(hi-lo))
		} else {
			out[i] = d.Low + u*(d.High-d.Low)
		}
	}
	return out
}

func (d Real) String() string {
	if d.LogUniform {
		return fmt.Sprintf("Real(low=%g, high=%g, prior=log-uniform)", d.Low, d.High)
	}
	return fmt.Sprintf("Real(low=%g, high=%g)", d.Low, d.High)
}

// Validate は次元の定義が正しいかを確認します。
func Validate(d Dimension) error {
	switch x := d.(type) {
	case Categorical:
		if len(x.Categories) == 0 {
			return errors.NewValueError("tuners.Validate", "Categorical needs at least one category")
		}
	case Integer:
		if x.High < x.Low {
			return errors.NewValueErrorf("tuners.Validate", "%s: high < low", x)
		}
	case Real:
		if x.High < x.Low || math.IsNaN(x.Low) || math.IsNaN(x.High) {
			return errors.NewValueErrorf("tuners.Validate", "%s: invalid bounds", x)
		}
		if x.LogUniform && x.Low <= 0 {
			return errors.NewValueErrorf("tuners.Validate", "%s: log-uniform bounds must be positive", x)
		}
	}
	return nil
}
