// Package problemtype はサポートする機械学習の問題の種類を定義します。
package problemtype

import (
	"strings"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// ProblemType は教師あり学習の問題の種類です。
type ProblemType int

const (
	Binary ProblemType = iota + 1
	Multiclass
	Regression
	TimeSeriesBinary
	TimeSeriesMulticlass
	TimeSeriesRegression
)

var names = map[ProblemType]string{
	Binary:               "binary",
	Multiclass:           "multiclass",
	Regression:           "regression",
	TimeSeriesBinary:     "time series binary",
	TimeSeriesMulticlass: "time series multiclass",
	TimeSeriesRegression: "time series regression",
}

// All はすべての問題の種類を定義順に返します。
func All() []ProblemType {
	return []ProblemType{Binary, Multiclass, Regression, TimeSeriesBinary, TimeSeriesMulticlass, TimeSeriesRegression}
}

func (p ProblemType) String() string {
	if s, ok := names[p]; ok {
		return s
	}
	return "unknown"
}

// Parse は文字列表現から ProblemType を返します。
// 大文字小文字と '_' / ' ' の違いは無視します。
func Parse(s string) (ProblemType, error) {
	key := strings.Join(strings.Fields(strings.ReplaceAll(strings.ToLower(s), "_", " ")), " ")
	switch key {
	case "multi":
		return Multiclass, nil
	case "time series multi":
		return TimeSeriesMulticlass, nil
	}
	for p, name := range names {
		if name == key {
			return p, nil
		}
	}
	return 0, errors.NewValueErrorf("problemtype.Parse", "unknown problem type %q", s)
}

// MarshalText は encoding.TextMarshaler を実装します。
func (p ProblemType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText は encoding.TextUnmarshaler を実装します。
func (p *ProblemType) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p ProblemType) IsBinary() bool {
	return p == Binary || p == TimeSeriesBinary
}

func (p ProblemType) IsMulticlass() bool {
	return p == Multiclass || p == TimeSeriesMulticlass
}

func (p ProblemType) IsClassification() bool {
	return p.IsBinary() || p.IsMulticlass()
}

func (p ProblemType) IsRegression() bool {
	return p == Regression || p == TimeSeriesRegression
}

func (p ProblemType) IsTimeSeries() bool {
	return p == TimeSeriesBinary || p == TimeSeriesMulticlass || p == TimeSeriesRegression
}

// NonTimeSeries は時系列の問題を対応する通常の問題に変換します。
func (p ProblemType) NonTimeSeries() ProblemType {
	switch p {
	case TimeSeriesBinary:
		return Binary
	case TimeSeriesMulticlass:
		return Multiclass
	case TimeSeriesRegression:
		return Regression
	}
	return p
}

// Contains は types に p が含まれるかを返します。
func Contains(types []ProblemType, p ProblemType) bool {
	for _, t := range types {
		if t == p {
			return true
		}
	}
	return false
}
