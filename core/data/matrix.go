package data

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// TakeRows は X の idx 行目からなる新しい行列を返します。
func TakeRows(X mat.Matrix, idx []int) *mat.Dense {
	_, cols := X.Dims()
	if len(idx) == 0 || cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		for j := 0; j < cols; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// TakeVec は v の idx 番目の要素からなる新しいベクトルを返します。
func TakeVec(v mat.Vector, idx []int) *mat.VecDense {
	if len(idx) == 0 {
		return &mat.VecDense{}
	}
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v.AtVec(r)
	}
	return mat.NewVecDense(len(out), out)
}

// HasNaN は X に NaN が含まれるかを返します。
func HasNaN(X mat.Matrix) bool {
	rows, cols := X.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(X.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// HStack は同じ行数の行列を列方向に連結します。
func HStack(ms ...mat.Matrix) *mat.Dense {
	if len(ms) == 0 {
		return &mat.Dense{}
	}
	rows, _ := ms[0].Dims()
	total := 0
	for _, m := range ms {
		_, c := m.Dims()
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, m := range ms {
		_, c := m.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, m.At(i, j))
			}
		}
		offset += c
	}
	return out
}

// ColumnVec は v を1列の行列として返します。
func ColumnVec(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
}
