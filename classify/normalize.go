package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// normEpsilon is the smallest denominator used when normalizing a row
const normEpsilon = 1e-12

// Normalize returns a copy of x whose rows have unit L2 norm.
// All-zero rows stay zero.
func Normalize(x *mat.Dense) (*mat.Dense, error) {
	if _, _, err := dims(x); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(x)
	n, _ := out.Dims()
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		norm := math.Max(floats.Norm(row, 2), normEpsilon)
		floats.Scale(1/norm, row)
	}
	return out, nil
}
