package classify

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Clusterer assigns every row of a reduced embedding matrix to a cluster or to Noise
type Clusterer interface {
	Cluster(x *mat.Dense) (Assignment, error)
}

// Defaults for DensityClusterer and AutoClusterer
const (
	DefaultKNeighbors  = 25
	DefaultMinSize     = 5
	DefaultMinCoverage = 0.6
)

// DensityClusterer picks eps with SelectEps and then runs DBSCAN
type DensityClusterer struct {
	KNeighbors int
	MinSize    int
}

// Cluster implements Clusterer. KNeighbors is clamped to n-1 for small inputs.
func (c DensityClusterer) Cluster(x *mat.Dense) (Assignment, error) {
	n, _, err := dims(x)
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: density clustering needs at least 2 samples, got %d", ErrInputShape, n)
	}

	k := c.KNeighbors
	if k <= 0 {
		k = DefaultKNeighbors
	}
	k = min(k, n-1)
	minSize := c.MinSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}

	eps, err := SelectEps(x, k)
	if err != nil {
		return nil, fmt.Errorf("failed to select eps: %w", err)
	}
	return DBSCAN(x, eps, minSize)
}

// KMeansClusterer fits k-means for every k in [MinK, MaxK] and keeps the k at
// the knee of the inertia curve. It never reports noise.
type KMeansClusterer struct {
	MinK int
	MaxK int
	Seed int64
}

// Cluster implements Clusterer
func (c KMeansClusterer) Cluster(x *mat.Dense) (Assignment, error) {
	n, _, err := dims(x)
	if err != nil {
		return nil, err
	}
	minK := max(c.MinK, 1)
	maxK := c.MaxK
	if maxK <= 0 {
		maxK = DefaultK
	}
	maxK = min(maxK, n)
	if minK > maxK {
		return nil, fmt.Errorf("%w: k range [%d, %d] is empty for %d samples", ErrInputShape, c.MinK, maxK, n)
	}
	seed := c.Seed
	if seed == 0 {
		seed = DefaultSeed
	}

	fits := make([]*KMeansResult, 0, maxK-minK+1)
	inertias := make([]float64, 0, maxK-minK+1)
	for k := minK; k <= maxK; k++ {
		km := KMeans{
			K:     k,
			Init:  InitKMeansPlusPlus,
			NInit: 3,
			Rand:  rand.New(rand.NewSource(seed + int64(k))),
		}
		fit, err := km.Fit(x, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fit k-means with k=%d: %w", k, err)
		}
		fits = append(fits, fit)
		inertias = append(inertias, fit.Inertia)
	}

	best := fits[KneeIndex(inertias)]
	log.Debug().Int("k", best.K).Float64("inertia", best.Inertia).Msg("k-means clusterer selected k")
	return Assignment(best.Labels), nil
}

// AutoClusterer runs Density and falls back to Fallback when density clustering
// finds no cluster or leaves less than MinCoverage of the points clustered.
// Nil strategies default to DensityClusterer{} and KMeansClusterer{MinK: 1}.
type AutoClusterer struct {
	Density     Clusterer
	Fallback    Clusterer
	MinCoverage float64
}

// Cluster implements Clusterer
func (c AutoClusterer) Cluster(x *mat.Dense) (Assignment, error) {
	density := c.Density
	if density == nil {
		density = DensityClusterer{}
	}
	fallback := c.Fallback
	if fallback == nil {
		fallback = KMeansClusterer{MinK: 1}
	}

	assignment, err := density.Cluster(x)
	if err != nil {
		return nil, err
	}
	minCoverage := c.MinCoverage
	if minCoverage <= 0 {
		minCoverage = DefaultMinCoverage
	}

	coverage := 1 - float64(assignment.NoiseCount())/float64(len(assignment))
	if assignment.NumClusters() > 0 && coverage >= minCoverage {
		return assignment, nil
	}

	log.Info().Int("clusters", assignment.NumClusters()).Float64("coverage", coverage).Msg("density clustering too sparse, falling back")
	return fallback.Cluster(x)
}
