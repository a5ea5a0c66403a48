package data

import (
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// Frame はヘッダ付き CSV から読み込んだ特徴量と目的変数です。
type Frame struct {
	X        *mat.Dense
	Y        *Series
	Features []string
	Target   string
}

// ReadCSV はヘッダ行を持つ CSV を読み込み、target 列を目的変数として分離します。
// 特徴量は数値である必要があり、空のセルと "NA" は NaN として読み込みます。
// 目的変数の型は ParseSeries で推定します。
func ReadCSV(r io.Reader, target string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	if len(records) < 2 {
		return nil, errors.NewModelError("ReadCSV", "empty data", errors.ErrEmptyData)
	}

	header := records[0]
	targetCol := slices.Index(header, target)
	if targetCol < 0 {
		return nil, errors.NewValueErrorf("ReadCSV", "target column %q not found in %v", target, header)
	}

	rows := records[1:]
	features := make([]string, 0, len(header)-1)
	for j, name := range header {
		if j != targetCol {
			features = append(features, name)
		}
	}
	if len(features) == 0 {
		return nil, errors.NewValueError("ReadCSV", "no feature columns")
	}

	X := mat.NewDense(len(rows), len(features), nil)
	labels := make([]string, len(rows))
	for i, rec := range rows {
		col := 0
		for j, cell := range rec {
			if j == targetCol {
				labels[i] = cell
				continue
			}
			v, err := parseFeature(cell)
			if err != nil {
				return nil, errors.NewValueErrorf("ReadCSV", "row %d column %q: %q is not numeric", i+2, header[j], cell)
			}
			X.Set(i, col, v)
			col++
		}
	}
	return &Frame{X: X, Y: ParseSeries(labels), Features: features, Target: target}, nil
}

func parseFeature(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
