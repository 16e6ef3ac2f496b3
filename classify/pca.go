package classify

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PCA centers every feature column of x and projects it onto its leading
// components principal axes, returning an n x components matrix.
func PCA(x *mat.Dense, components int) (*mat.Dense, error) {
	n, d, err := dims(x)
	if err != nil {
		return nil, err
	}
	if components < 1 || components > min(n, d) {
		return nil, fmt.Errorf("%w: %d components requested for a %dx%d matrix", ErrInputShape, components, n, d)
	}
	for i := 0; i < n; i++ {
		if floats.HasNaN(x.RawRowView(i)) || hasInf(x.RawRowView(i)) {
			return nil, fmt.Errorf("%w: row %d is not finite", ErrNumerical, i)
		}
	}

	means := columnMeans(x)
	centered := mat.NewDense(n, d, nil)
	centered.Apply(func(_, j int, v float64) float64 {
		return v - means[j]
	}, x)

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD did not converge", ErrNumerical)
	}

	var v mat.Dense
	svd.VTo(&v)

	projected := mat.NewDense(n, components, nil)
	projected.Mul(centered, v.Slice(0, d, 0, components))

	if e := log.Debug(); e.Enabled() {
		values := svd.Values(nil)
		total := floats.Dot(values, values)
		kept := floats.Dot(values[:components], values[:components])
		ratio := 1.0
		if total > 0 {
			ratio = kept / total
		}
		e.Int("components", components).Float64("explained_variance", ratio).Msg("PCA projection")
	}

	return projected, nil
}

func hasInf(v []float64) bool {
	for _, x := range v {
		if math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
