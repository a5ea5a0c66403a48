package tuners

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/YuminosukeSato/goautoml/core/model"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Parameter は探索空間の1次元をノード名・パラメータ名と組にしたものです。
type Parameter struct {
	Component string
	Name      string
	Dim       Dimension
}

// SearchSpace はパイプライン全体の探索空間です。
// 次元はノード名、パラメータ名の順にソートされ、順序は常に決定的です。
type SearchSpace struct {
	params []Parameter
}

// Ranges はノード名ごとのハイパーパラメータ範囲です。
type Ranges map[string]map[string]Dimension

// NewSearchSpace は ranges から探索空間を作成します。
func NewSearchSpace(ranges Ranges) (*SearchSpace, error) {
	var params []Parameter
	for component, dims := range ranges {
		for name, dim := range dims {
			if dim == nil {
				return nil, errors.NewValueErrorf("NewSearchSpace", "%s.%s has no range", component, name)
			}
			if err := Validate(dim); err != nil {
				return nil, err
			}
			params = append(params, Parameter{Component: component, Name: name, Dim: dim})
		}
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i].Component != params[j].Component {
			return params[i].Component < params[j].Component
		}
		return params[i].Name < params[j].Name
	})
	return &SearchSpace{params: params}, nil
}

// Parameters は次元を決定的な順序で返します。
func (s *SearchSpace) Parameters() []Parameter {
	return append([]Parameter(nil), s.params...)
}

// Len は次元数を返します。
func (s *SearchSpace) Len() int {
	return len(s.params)
}

// Sample は各次元から値を取り出したパラメータを返します。
func (s *SearchSpace) Sample(rng *rand.Rand) model.PipelineParameters {
	out := model.PipelineParameters{}
	for _, p := range s.params {
		if out[p.Component] == nil {
			out[p.Component] = model.Params{}
		}
		out[p.Component][p.Name] = p.Dim.Sample(rng)
	}
	return out
}

// Encode は pp を探索空間上の特徴ベクトルに変換します。
// 値が存在しないか範囲外の場合は ValueError を返します。
func (s *SearchSpace) Encode(pp model.PipelineParameters) ([]float64, error) {
	var out []float64
	var outside []string
	for _, p := range s.params {
		v, ok := pp[p.Component][p.Name]
		if !ok {
			outside = append(outside, p.Component+"."+p.Name+" (missing)")
			continue
		}
		enc, err := p.Dim.Encode(v)
		if err != nil {
			outside = append(outside, p.Component+"."+p.Name)
			continue
		}
		out = append(out, enc...)
	}
	if len(outside) > 0 {
		return nil, errors.NewValueErrorf("SearchSpace.Encode",
			"parameters are not within the bounds of the search space: %s", strings.Join(outside, ", "))
	}
	return out, nil
}

// Extract は pp のうち探索空間に含まれる値だけを取り出します。
func (s *SearchSpace) Extract(pp model.PipelineParameters) model.PipelineParameters {
	out := model.PipelineParameters{}
	for _, p := range s.params {
		v, ok := pp[p.Component][p.Name]
		if !ok {
			continue
		}
		if out[p.Component] == nil {
			out[p.Component] = model.Params{}
		}
		out[p.Component][p.Name] = v
	}
	return out
}

// key は特徴ベクトルを重複判定用の文字列にします。
func key(x []float64) string {
	var b strings.Builder
	for _, v := range x {
		fmt.Fprintf(&b, "%.12g|", v)
	}
	return b.String()
}
