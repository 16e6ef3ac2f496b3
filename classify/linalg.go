package classify

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NewMatrix copies rows into a dense n x d matrix.
// Empty input and rows of differing length are rejected with ErrInputShape.
func NewMatrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInputShape)
	}
	d := len(rows[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: rows have no columns", ErrInputShape)
	}

	data := make([]float64, 0, len(rows)*d)
	for i, row := range rows {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInputShape, i, len(row), d)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), d, data), nil
}

// dims returns the shape of x, rejecting nil and empty matrices
func dims(x *mat.Dense) (int, int, error) {
	if x == nil || x.IsEmpty() {
		return 0, 0, fmt.Errorf("%w: empty matrix", ErrInputShape)
	}
	n, d := x.Dims()
	return n, d, nil
}

// RowNorms returns the L2 norm of every row, or the squared norm when squared is set
func RowNorms(x mat.RawMatrixer, squared bool) []float64 {
	raw := x.RawMatrix()
	norms := make([]float64, raw.Rows)
	for i := range norms {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		norms[i] = floats.Dot(row, row)
		if !squared {
			norms[i] = math.Sqrt(norms[i])
		}
	}
	return norms
}

// EuclideanDistances computes the distance between every row of x and every row of y
// using ||x||^2 + ||y||^2 - 2 x.y. Precomputed squared row norms may be passed as
// xSq and ySq; nil means compute them. Negative values produced by cancellation
// are clamped to zero.
func EuclideanDistances(x, y *mat.Dense, xSq, ySq []float64, squared bool) (*mat.Dense, error) {
	n, dx, err := dims(x)
	if err != nil {
		return nil, err
	}
	m, dy, err := dims(y)
	if err != nil {
		return nil, err
	}
	if dx != dy {
		return nil, fmt.Errorf("%w: %d columns against %d columns", ErrInputShape, dx, dy)
	}
	if xSq == nil {
		xSq = RowNorms(x, true)
	}
	if ySq == nil {
		ySq = RowNorms(y, true)
	}
	if len(xSq) != n || len(ySq) != m {
		return nil, fmt.Errorf("%w: %d and %d squared norms for %d and %d rows", ErrInputShape, len(xSq), len(ySq), n, m)
	}

	out := mat.NewDense(n, m, nil)
	out.Mul(x, y.T())
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		for j := range row {
			v := -2*row[j] + xSq[i] + ySq[j]
			if v < 0 {
				v = 0
			}
			if !squared {
				v = math.Sqrt(v)
			}
			row[j] = v
		}
	}

	// a point is always at distance zero from itself
	if x == y {
		for i := 0; i < n; i++ {
			out.Set(i, i, 0)
		}
	}
	return out, nil
}

// PairwiseDistances returns the symmetric n x n Euclidean distance matrix of the rows of x
func PairwiseDistances(x *mat.Dense) (*mat.Dense, error) {
	return EuclideanDistances(x, x, nil, nil, false)
}

// KthByColumn returns, for every column of x, its k-th smallest value (k is 1-based)
func KthByColumn(x *mat.Dense, k int) ([]float64, error) {
	n, d, err := dims(x)
	if err != nil {
		return nil, err
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d outside [1, %d]", ErrInputShape, k, n)
	}

	out := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		sort.Float64s(col)
		out[j] = col[k-1]
	}
	return out, nil
}

// columnMeans returns the mean of every column of x
func columnMeans(x *mat.Dense) []float64 {
	n, d := x.Dims()
	means := make([]float64, d)
	for i := 0; i < n; i++ {
		floats.Add(means, x.RawRowView(i))
	}
	floats.Scale(1/float64(n), means)
	return means
}

// sqDist is the squared Euclidean distance between two equal length vectors
func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		diff := a[i] - b[i]
		s += diff * diff
	}
	return s
}
