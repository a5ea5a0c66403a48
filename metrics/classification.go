package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

// logLossEpsilon は log(0) を避けるための確率のクリップ幅です。
const logLossEpsilon = 1e-15

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// BalancedAccuracy はクラスごとの再現率の平均を計算する
func BalancedAccuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BalancedAccuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	support := make(map[float64]int)
	hits := make(map[float64]int)
	for i := 0; i < n; i++ {
		c := yTrue.AtVec(i)
		support[c]++
		if yPred.AtVec(i) == c {
			hits[c]++
		}
	}
	var sum float64
	for c, s := range support {
		sum += float64(hits[c]) / float64(s)
	}
	return sum / float64(len(support)), nil
}

// AUC は二値分類の ROC 曲線下面積を順位統計量（Mann-Whitney U）から計算する。
// 同順位は平均順位で扱う。正例または負例のみの場合は定義できないため 0.5 を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := requireBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b])
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg, rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// BinaryLogLoss は二値分類の対数損失を計算する。yProb は正例の確率。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := requireBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yProb.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}

// MultiLogLoss は多クラス分類の対数損失を計算する。
// yTrue はクラス番号（0..k-1）、yProba は n×k の確率行列。各行は和が1になるよう正規化される。
func MultiLogLoss(yTrue *mat.VecDense, yProba mat.Matrix) (float64, error) {
	if yTrue == nil || yProba == nil {
		return 0, errors.NewValueError("MultiLogLoss", "nil input")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MultiLogLoss", "empty vector")
	}
	rows, k := yProba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("MultiLogLoss", n, rows, 0)
	}
	var sum float64
	for i := 0; i < n; i++ {
		c := int(yTrue.AtVec(i))
		if c < 0 || c >= k || float64(c) != yTrue.AtVec(i) {
			return 0, errors.NewValueErrorf("MultiLogLoss", "label %v outside of [0, %d)", yTrue.AtVec(i), k)
		}
		var total float64
		for j := 0; j < k; j++ {
			total += errors.ClipValue(yProba.At(i, j), logLossEpsilon, 1-logLossEpsilon)
		}
		p := errors.ClipValue(yProba.At(i, c), logLossEpsilon, 1-logLossEpsilon) / total
		sum -= errors.StabilizeLog(p)
	}
	return sum / float64(n), nil
}

// ConfusionCounts は正例を 1 とした二値の混同行列の各要素を返す
func ConfusionCounts(yTrue, yPred *mat.VecDense) (tp, fp, tn, fn int, err error) {
	n, err := checkPair("ConfusionCounts", yTrue, yPred)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	for i := 0; i < n; i++ {
		actual, predicted := yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1
		switch {
		case actual && predicted:
			tp++
		case !actual && predicted:
			fp++
		case !actual && !predicted:
			tn++
		default:
			fn++
		}
	}
	return tp, fp, tn, fn, nil
}

// Precision は適合率を計算する。陽性の予測がない場合は 0 を返し UndefinedMetric として扱う。
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	tp, fp, _, _, err := ConfusionCounts(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return errors.SafeDivide(float64(tp), float64(tp+fp)), nil
}

// Recall は再現率を計算する
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	tp, _, _, fn, err := ConfusionCounts(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return errors.SafeDivide(float64(tp), float64(tp+fn)), nil
}

// F1 は適合率と再現率の調和平均を計算する
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	tp, fp, _, fn, err := ConfusionCounts(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return errors.SafeDivide(2*float64(tp), float64(2*tp+fp+fn)), nil
}

func requireBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueErrorf(op, "labels must be 0 or 1, got %v", v)
		}
	}
	return nil
}
