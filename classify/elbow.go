package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// MinEps is the smallest radius SelectEps returns
const MinEps = 1e-6

// KneeIndex returns the index of the point of values farthest from the chord
// joining the first and last points. Ties resolve to the lowest index.
func KneeIndex(values []float64) int {
	n := len(values)
	if n < 3 {
		return 0
	}

	dx := float64(n - 1)
	dy := values[n-1] - values[0]
	chord := math.Hypot(dx, dy)

	knee := 0
	maxDist := -1.0
	for i, v := range values {
		dist := math.Abs(dy*float64(i)-dx*(v-values[0])) / chord
		if dist > maxDist {
			maxDist = dist
			knee = i
		}
	}
	return knee
}

// ElbowKneedle picks the value just past the knee of an ascending curve, which
// is the first value after the largest bend. Unlike a plain kneedle it does not
// return the knee value itself, so [1,1,1,1,10,11,12] gives 10 rather than 1.
func ElbowKneedle(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no values to select an elbow from", ErrInputShape)
	}
	knee := KneeIndex(values)
	return values[min(knee+1, len(values)-1)], nil
}

// SelectEps chooses a DBSCAN radius from the sorted distances of every point to
// its k-th nearest neighbour.
func SelectEps(x *mat.Dense, k int) (float64, error) {
	n, _, err := dims(x)
	if err != nil {
		return 0, err
	}
	if k < 1 || k >= n {
		return 0, fmt.Errorf("%w: k=%d neighbours requested for %d samples", ErrInputShape, k, n)
	}

	// the distance matrix is symmetric, so the k-th smallest of column i is
	// the distance from point i to its k-th neighbour
	dist, err := neighbourDistances(x)
	if err != nil {
		return 0, err
	}
	kth, err := KthByColumn(dist, k)
	if err != nil {
		return 0, err
	}
	sort.Float64s(kth)

	eps, err := ElbowKneedle(kth)
	if err != nil {
		return 0, err
	}
	eps = math.Max(eps, MinEps)
	log.Debug().Int("k", k).Float64("eps", eps).Msg("selected clustering radius")
	return eps, nil
}
