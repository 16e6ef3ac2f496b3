package classify

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// KDistances returns an n x k matrix whose row i holds the distances from point i
// to its k nearest neighbours in ascending order. The point itself is excluded,
// so k must be below n.
func KDistances(x *mat.Dense, k int) (*mat.Dense, error) {
	n, _, err := dims(x)
	if err != nil {
		return nil, err
	}
	if k < 1 || k >= n {
		return nil, fmt.Errorf("%w: k=%d neighbours requested for %d samples", ErrInputShape, k, n)
	}

	dist, err := neighbourDistances(x)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		row := dist.RawRowView(i)
		sort.Float64s(row)
		out.SetRow(i, row[:k])
	}
	return out, nil
}

// neighbourDistances is the pairwise distance matrix with +Inf on the diagonal
func neighbourDistances(x *mat.Dense) (*mat.Dense, error) {
	dist, err := PairwiseDistances(x)
	if err != nil {
		return nil, err
	}
	n, _ := dist.Dims()
	for i := 0; i < n; i++ {
		dist.Set(i, i, math.Inf(1))
	}
	return dist, nil
}
