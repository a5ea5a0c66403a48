package preprocessing

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/core/data"
	"github.com/YuminosukeSato/goautoml/pkg/errors"
	"github.com/YuminosukeSato/goautoml/problemtype"
)

// LargeDataThreshold を超える行数では交差検証の代わりにホールドアウト分割を使います。
const LargeDataThreshold = 100000

// Split は1回分の学習用・検証用の行インデックスです。
type Split struct {
	Train      []int
	Validation []int
}

// DataSplitter はデータを学習用と検証用の組に分割します。
type DataSplitter interface {
	Split(X mat.Matrix, y *data.Series) ([]Split, error)
	NumSplits() int
	IsCV() bool
}

// SplitterOptions は MakeDataSplitter の設定です。
type SplitterOptions struct {
	NSplits    int
	RandomSeed int64
	Shuffle    bool

	// 時系列のみ
	Gap             int
	MaxDelay        int
	ForecastHorizon int
}

// MakeDataSplitter は問題の種類とデータ量から分割方法を選びます。
// 時系列は TimeSeriesSplit、大規模データは TrainingValidationSplit、
// 分類は StratifiedKFold、回帰は KFold です。
func MakeDataSplitter(nRows int, pt problemtype.ProblemType, opts SplitterOptions) DataSplitter {
	if opts.NSplits <= 0 {
		opts.NSplits = 3
	}
	if pt.IsTimeSeries() {
		return &TimeSeriesSplit{
			NSplits:         opts.NSplits,
			Gap:             opts.Gap,
			MaxDelay:        opts.MaxDelay,
			ForecastHorizon: opts.ForecastHorizon,
		}
	}
	if nRows > LargeDataThreshold {
		return &TrainingValidationSplit{
			TestSize:   0.25,
			Shuffle:    true,
			Stratify:   pt.IsClassification(),
			RandomSeed: opts.RandomSeed,
		}
	}
	if pt.IsClassification() {
		return &StratifiedKFold{NSplits: opts.NSplits, Shuffle: opts.Shuffle, RandomSeed: opts.RandomSeed}
	}
	return &KFold{NSplits: opts.NSplits, Shuffle: opts.Shuffle, RandomSeed: opts.RandomSeed}
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func rowsOf(X mat.Matrix, y *data.Series) (int, error) {
	if X == nil {
		return 0, errors.NewModelError("Split", "empty data", errors.ErrEmptyData)
	}
	n, _ := X.Dims()
	if n == 0 {
		return 0, errors.NewModelError("Split", "empty data", errors.ErrEmptyData)
	}
	if y != nil && y.Len() != n {
		return 0, errors.NewDimensionError("Split", n, y.Len(), 0)
	}
	return n, nil
}

// complement は [0, n) のうち val に含まれないインデックスを昇順で返します。
func complement(n int, val []int) []int {
	in := make([]bool, n)
	for _, i := range val {
		in[i] = true
	}
	out := make([]int, 0, n-len(val))
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}

// KFold は行を NSplits 個の連続したフォールドに分けます。
// 先頭の n % NSplits 個のフォールドが1行ずつ多くなります。
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

func (k *KFold) NumSplits() int { return k.NSplits }
func (k *KFold) IsCV() bool     { return true }

func (k *KFold) Split(X mat.Matrix, y *data.Series) ([]Split, error) {
	n, err := rowsOf(X, y)
	if err != nil {
		return nil, err
	}
	if k.NSplits < 2 || k.NSplits > n {
		return nil, errors.NewValueErrorf("KFold.Split", "cannot have number of splits %d greater than the number of samples %d or less than 2", k.NSplits, n)
	}
	idx := indices(n)
	if k.Shuffle {
		newRand(k.RandomSeed).Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	splits := make([]Split, 0, k.NSplits)
	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := n / k.NSplits
		if f < n%k.NSplits {
			size++
		}
		val := append([]int(nil), idx[start:start+size]...)
		sort.Ints(val)
		splits = append(splits, Split{Train: complement(n, val), Validation: val})
		start += size
	}
	return splits, nil
}

// StratifiedKFold はクラスの比率を保つように KFold を行います。
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

func (k *StratifiedKFold) NumSplits() int { return k.NSplits }
func (k *StratifiedKFold) IsCV() bool     { return true }

func (k *StratifiedKFold) Split(X mat.Matrix, y *data.Series) ([]Split, error) {
	n, err := rowsOf(X, y)
	if err != nil {
		return nil, err
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required for stratified splits")
	}
	if k.NSplits < 2 || k.NSplits > n {
		return nil, errors.NewValueErrorf("StratifiedKFold.Split", "cannot have number of splits %d greater than the number of samples %d or less than 2", k.NSplits, n)
	}

	groups := groupByLabel(y)
	var rng *rand.Rand
	if k.Shuffle {
		rng = newRand(k.RandomSeed)
	}
	folds := make([][]int, k.NSplits)
	next := 0
	for _, g := range groups {
		if rng != nil {
			rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
		}
		for _, i := range g {
			folds[next] = append(folds[next], i)
			next = (next + 1) % k.NSplits
		}
	}

	splits := make([]Split, 0, k.NSplits)
	for _, val := range folds {
		sort.Ints(val)
		splits = append(splits, Split{Train: complement(n, val), Validation: val})
	}
	return splits, nil
}

// groupByLabel はラベルごとの行インデックスを、ラベルの昇順で返します。
func groupByLabel(y *data.Series) [][]int {
	byLabel := make(map[string][]int)
	for i := 0; i < y.Len(); i++ {
		key := data.FormatValue(y.Value(i))
		byLabel[key] = append(byLabel[key], i)
	}
	keys := make([]string, 0, len(byLabel))
	for key := range byLabel {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([][]int, len(keys))
	for i, key := range keys {
		out[i] = byLabel[key]
	}
	return out
}

// TimeSeriesSplit は行の順序を保ったまま、学習区間を伸ばしながら後続の区間で検証します。
// 検証区間は学習区間の終端から Gap 行空けて始まります。
type TimeSeriesSplit struct {
	NSplits         int
	Gap             int
	MaxDelay        int
	ForecastHorizon int
}

func (t *TimeSeriesSplit) NumSplits() int { return t.NSplits }
func (t *TimeSeriesSplit) IsCV() bool     { return true }

func (t *TimeSeriesSplit) Split(X mat.Matrix, y *data.Series) ([]Split, error) {
	n, err := rowsOf(X, y)
	if err != nil {
		return nil, err
	}
	if t.NSplits < 1 {
		return nil, errors.NewValueErrorf("TimeSeriesSplit.Split", "number of splits must be positive, got %d", t.NSplits)
	}
	testSize := (n - t.Gap) / (t.NSplits + 1)
	firstTrain := n - t.Gap - t.NSplits*testSize
	if testSize < max(1, t.ForecastHorizon) || firstTrain <= t.MaxDelay {
		return nil, errors.NewValueErrorf("TimeSeriesSplit.Split",
			"Please use a smaller number of splits or collect more data: %d rows cannot be split into %d folds with gap=%d, max_delay=%d, forecast_horizon=%d",
			n, t.NSplits, t.Gap, t.MaxDelay, t.ForecastHorizon)
	}

	splits := make([]Split, 0, t.NSplits)
	for f := 0; f < t.NSplits; f++ {
		trainEnd := firstTrain + f*testSize
		valStart := trainEnd + t.Gap
		splits = append(splits, Split{
			Train:      indices(trainEnd),
			Validation: rangeInts(valStart, valStart+testSize),
		})
	}
	return splits, nil
}

func rangeInts(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

// TrainingValidationSplit は1回だけのホールドアウト分割です。
type TrainingValidationSplit struct {
	TestSize   float64
	Shuffle    bool
	Stratify   bool
	RandomSeed int64
}

func (t *TrainingValidationSplit) NumSplits() int { return 1 }
func (t *TrainingValidationSplit) IsCV() bool     { return false }

func (t *TrainingValidationSplit) Split(X mat.Matrix, y *data.Series) ([]Split, error) {
	n, err := rowsOf(X, y)
	if err != nil {
		return nil, err
	}
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return nil, errors.NewValueErrorf("TrainingValidationSplit.Split", "test size must be in (0, 1), got %v", t.TestSize)
	}
	nTest := int(math.Ceil(t.TestSize * float64(n)))
	if nTest >= n {
		return nil, errors.NewValueErrorf("TrainingValidationSplit.Split", "test size %v leaves no training rows for %d samples", t.TestSize, n)
	}

	var val []int
	switch {
	case t.Stratify && y != nil:
		rng := newRand(t.RandomSeed)
		for _, g := range groupByLabel(y) {
			if t.Shuffle {
				rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
			}
			take := int(math.Round(t.TestSize * float64(len(g))))
			val = append(val, g[:take]...)
		}
	case t.Shuffle:
		idx := indices(n)
		newRand(t.RandomSeed).Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		val = idx[:nTest]
	default:
		val = rangeInts(n-nTest, n)
	}
	val = append([]int(nil), val...)
	sort.Ints(val)
	return []Split{{Train: complement(n, val), Validation: val}}, nil
}

// SplitData は X と y を学習用とホールドアウト用に分割します。
// 時系列では末尾の行をホールドアウトにし、分類では層化します。
func SplitData(X mat.Matrix, y *data.Series, pt problemtype.ProblemType, testSize float64, randomSeed int64) (XTrain, XTest *mat.Dense, yTrain, yTest *data.Series, err error) {
	splitter := &TrainingValidationSplit{
		TestSize:   testSize,
		Shuffle:    !pt.IsTimeSeries(),
		Stratify:   pt.IsClassification() && !pt.IsTimeSeries(),
		RandomSeed: randomSeed,
	}
	splits, err := splitter.Split(X, y)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	s := splits[0]
	return data.TakeRows(X, s.Train), data.TakeRows(X, s.Validation), y.Take(s.Train), y.Take(s.Validation), nil
}
