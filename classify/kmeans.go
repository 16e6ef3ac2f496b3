package classify

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Init selects how initial k-means centers are chosen
type Init int

const (
	// InitKMeansPlusPlus spreads initial centers using distance weighted sampling
	InitKMeansPlusPlus Init = iota
	// InitRandom picks k rows uniformly at random, with replacement
	InitRandom
)

func (i Init) String() string {
	switch i {
	case InitRandom:
		return "random"
	case InitKMeansPlusPlus:
		return "k-means++"
	default:
		return fmt.Sprintf("Init(%d)", int(i))
	}
}

// Defaults used when the matching KMeans field is zero
const (
	DefaultK         = 8
	DefaultMaxIter   = 300
	DefaultTol       = 1e-4
	DefaultChunkSize = 256
	DefaultSeed      = 42
)

// KMeans configures Lloyd's algorithm
type KMeans struct {
	K       int
	Init    Init
	NInit   int // 0 picks 10 restarts for InitRandom and 1 for InitKMeansPlusPlus
	MaxIter int
	// Tol bounds the total squared center shift that ends a run early. Zero
	// selects DefaultTol; a negative Tol stops only when labels stop changing.
	Tol float64
	// ChunkSize bounds how many points are assigned per distance computation
	ChunkSize int
	Rand      *rand.Rand
}

// KMeansResult is a fitted k-means model. Labels and Centers are always consistent.
type KMeansResult struct {
	K       int
	Centers *mat.Dense
	Labels  []int
	Inertia float64
	NIter   int
}

func (km KMeans) withDefaults() KMeans {
	if km.K == 0 {
		km.K = DefaultK
	}
	if km.NInit <= 0 {
		if km.Init == InitRandom {
			km.NInit = 10
		} else {
			km.NInit = 1
		}
	}
	if km.MaxIter <= 0 {
		km.MaxIter = DefaultMaxIter
	}
	if km.Tol == 0 {
		km.Tol = DefaultTol
	}
	if km.ChunkSize <= 0 {
		km.ChunkSize = DefaultChunkSize
	}
	if km.Rand == nil {
		km.Rand = rand.New(rand.NewSource(DefaultSeed))
	}
	return km
}

// Fit clusters the rows of x. A nil sampleWeight gives every row weight one.
func (km KMeans) Fit(x *mat.Dense, sampleWeight []float64) (*KMeansResult, error) {
	n, d, err := dims(x)
	if err != nil {
		return nil, err
	}
	km = km.withDefaults()
	if km.K < 1 || km.K > n {
		return nil, fmt.Errorf("%w: k=%d with %d samples", ErrInputShape, km.K, n)
	}

	weights, err := checkWeights(sampleWeight, n)
	if err != nil {
		return nil, err
	}

	// centering improves the accuracy of the dot product distance form
	means := columnMeans(x)
	centered := mat.NewDense(n, d, nil)
	centered.Apply(func(_, j int, v float64) float64 {
		return v - means[j]
	}, x)
	xSq := RowNorms(centered, true)

	var best lloydRun
	for run := 0; run < km.NInit; run++ {
		var initCenters *mat.Dense
		switch km.Init {
		case InitRandom:
			initCenters = randomCenters(centered, km.K, km.Rand)
		case InitKMeansPlusPlus:
			if initCenters, err = kmeansPlusPlus(centered, xSq, weights, km.K, km.Rand); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown init strategy %v", km.Init)
		}

		result := runLloyd(centered, xSq, weights, initCenters, km.MaxIter, km.Tol, km.ChunkSize)
		log.Debug().Int("run", run).Int("iterations", result.nIter).Float64("inertia", result.inertia).Msg("k-means run finished")
		if run == 0 || result.inertia < best.inertia {
			best = result
		}
	}

	for j := 0; j < km.K; j++ {
		floats.Add(best.centers.RawRowView(j), means)
	}

	distinct := make(map[int]struct{}, km.K)
	for _, label := range best.labels {
		distinct[label] = struct{}{}
	}
	if len(distinct) < km.K {
		log.Warn().Int("k", km.K).Int("distinct", len(distinct)).Msg("k-means produced fewer distinct clusters than requested")
	}

	return &KMeansResult{
		K:       km.K,
		Centers: best.centers,
		Labels:  best.labels,
		Inertia: best.inertia,
		NIter:   best.nIter,
	}, nil
}

// WCSS returns the within-cluster sum of squares of every cluster for the rows of x
func (r *KMeansResult) WCSS(x *mat.Dense) []float64 {
	wcss := make([]float64, r.K)
	for i, label := range r.Labels {
		wcss[label] += sqDist(x.RawRowView(i), r.Centers.RawRowView(label))
	}
	return wcss
}

// Sizes returns the number of points assigned to every cluster
func (r *KMeansResult) Sizes() []int {
	sizes := make([]int, r.K)
	for _, label := range r.Labels {
		sizes[label]++
	}
	return sizes
}

func checkWeights(sampleWeight []float64, n int) ([]float64, error) {
	if sampleWeight == nil {
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
		return weights, nil
	}
	if len(sampleWeight) != n {
		return nil, fmt.Errorf("%w: %d sample weights for %d samples", ErrInputShape, len(sampleWeight), n)
	}
	var total float64
	for i, w := range sampleWeight {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: invalid sample weight %v at %d", ErrInputShape, w, i)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: sample weights sum to zero", ErrInputShape)
	}
	return sampleWeight, nil
}

// randomCenters draws k rows of x uniformly with replacement
func randomCenters(x *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := x.Dims()
	centers := mat.NewDense(k, d, nil)
	for c := 0; c < k; c++ {
		centers.SetRow(c, x.RawRowView(rng.Intn(n)))
	}
	return centers
}

// kmeansPlusPlus picks the first center uniformly, then for every further center
// samples 2+ln(k) candidates proportionally to their weighted squared distance
// from the chosen centers and keeps the one giving the lowest total potential.
func kmeansPlusPlus(x *mat.Dense, xSq, weights []float64, k int, rng *rand.Rand) (*mat.Dense, error) {
	n, d := x.Dims()
	centers := mat.NewDense(k, d, nil)
	nLocalTrials := 2 + int(math.Log(float64(k)))

	first := rng.Intn(n)
	centers.SetRow(0, x.RawRowView(first))

	closest := make([]float64, n)
	for i := 0; i < n; i++ {
		closest[i] = math.Max(xSq[i]+xSq[first]-2*floats.Dot(x.RawRowView(i), x.RawRowView(first)), 0)
	}
	potential := floats.Dot(closest, weights)

	cumulative := make([]float64, n)
	candidates := make([]int, nLocalTrials)
	candidateRows := mat.NewDense(nLocalTrials, d, nil)
	candidateSq := make([]float64, nLocalTrials)
	best := make([]float64, n)
	trial := make([]float64, n)

	for c := 1; c < k; c++ {
		for i := 0; i < n; i++ {
			cumulative[i] = weights[i] * closest[i]
		}
		floats.CumSum(cumulative, cumulative)

		for t := range candidates {
			target := rng.Float64() * potential
			idx := sort.SearchFloat64s(cumulative, target)
			if idx > n-1 {
				idx = n - 1
			}
			candidates[t] = idx
			candidateRows.SetRow(t, x.RawRowView(idx))
			candidateSq[t] = xSq[idx]
		}

		dist, err := EuclideanDistances(candidateRows, x, candidateSq, xSq, true)
		if err != nil {
			return nil, err
		}

		bestPotential := math.Inf(1)
		bestCandidate := candidates[0]
		for t := range candidates {
			row := dist.RawRowView(t)
			var pot float64
			for i := 0; i < n; i++ {
				trial[i] = math.Min(closest[i], row[i])
				pot += weights[i] * trial[i]
			}
			if pot < bestPotential {
				bestPotential = pot
				bestCandidate = candidates[t]
				copy(best, trial)
			}
		}

		potential = bestPotential
		copy(closest, best)
		centers.SetRow(c, x.RawRowView(bestCandidate))
	}

	return centers, nil
}
