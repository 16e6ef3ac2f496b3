package classify

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// lloydWorkspace holds the buffers reused by every Lloyd iteration of one run
type lloydWorkspace struct {
	chunkSize int

	// chunk x k buffer for x.c products, sliced down for the last chunk
	dots *mat.Dense
	// weighted sum of the points assigned to every center
	sums *mat.Dense
	// total sample weight assigned to every center
	weightInCluster []float64
	centerSq        []float64
	centerShift     []float64
}

func newLloydWorkspace(n, d, k, chunkSize int) *lloydWorkspace {
	chunkSize = min(chunkSize, n)
	return &lloydWorkspace{
		chunkSize:       chunkSize,
		dots:            mat.NewDense(chunkSize, k, nil),
		sums:            mat.NewDense(k, d, nil),
		weightInCluster: make([]float64, k),
		centerSq:        make([]float64, k),
		centerShift:     make([]float64, k),
	}
}

// lloydIter assigns every point to its closest center, chunk by chunk. When
// updateCenters is set it also writes the weighted means of the new clusters to
// centersNew and records how far every center moved.
func (ws *lloydWorkspace) lloydIter(x *mat.Dense, xSq, weights []float64, centers, centersNew *mat.Dense, labels []int, updateCenters bool) {
	n, d := x.Dims()
	k, _ := centers.Dims()

	for j := 0; j < k; j++ {
		c := centers.RawRowView(j)
		ws.centerSq[j] = floats.Dot(c, c)
	}
	if updateCenters {
		ws.sums.Zero()
		for j := range ws.weightInCluster {
			ws.weightInCluster[j] = 0
		}
	}

	for start := 0; start < n; start += ws.chunkSize {
		end := min(start+ws.chunkSize, n)
		chunk := x.Slice(start, end, 0, d).(*mat.Dense)
		dots := ws.dots.Slice(0, end-start, 0, k).(*mat.Dense)
		dots.Mul(chunk, centers.T())

		for r := 0; r < end-start; r++ {
			i := start + r
			row := dots.RawRowView(r)
			best := 0
			bestDist := math.Inf(1)
			for j := 0; j < k; j++ {
				dist := xSq[i] + ws.centerSq[j] - 2*row[j]
				if dist < bestDist {
					bestDist = dist
					best = j
				}
			}
			labels[i] = best

			if updateCenters {
				floats.AddScaled(ws.sums.RawRowView(best), weights[i], x.RawRowView(i))
				ws.weightInCluster[best] += weights[i]
			}
		}
	}

	if !updateCenters {
		return
	}

	for j := 0; j < k; j++ {
		dst := centersNew.RawRowView(j)
		old := centers.RawRowView(j)
		if ws.weightInCluster[j] > 0 {
			copy(dst, ws.sums.RawRowView(j))
			floats.Scale(1/ws.weightInCluster[j], dst)
		} else {
			// empty clusters keep their previous center
			copy(dst, old)
		}
		ws.centerShift[j] = math.Sqrt(sqDist(dst, old))
	}
}

// lloydRun is a single k-means fit starting from the given initial centers
type lloydRun struct {
	labels  []int
	centers *mat.Dense
	inertia float64
	nIter   int
}

// runLloyd iterates assignment and center updates until the labels stop
// changing, the total squared center shift drops to tol, or maxIter is hit.
func runLloyd(x *mat.Dense, xSq, weights []float64, initCenters *mat.Dense, maxIter int, tol float64, chunkSize int) lloydRun {
	n, d := x.Dims()
	k, _ := initCenters.Dims()
	ws := newLloydWorkspace(n, d, k, chunkSize)

	centers := mat.DenseCopyOf(initCenters)
	centersNew := mat.NewDense(k, d, nil)
	labels := make([]int, n)
	labelsOld := make([]int, n)
	for i := range labelsOld {
		labelsOld[i] = -1
	}

	strictConvergence := false
	iter := 0
	for iter < maxIter {
		ws.lloydIter(x, xSq, weights, centers, centersNew, labels, true)
		centers, centersNew = centersNew, centers
		iter++

		if slices.Equal(labels, labelsOld) {
			strictConvergence = true
			break
		}
		shift := floats.Dot(ws.centerShift, ws.centerShift)
		if shift <= tol {
			break
		}
		copy(labelsOld, labels)
	}

	if !strictConvergence {
		// make the labels consistent with the final centers
		ws.lloydIter(x, xSq, weights, centers, nil, labels, false)
	}

	return lloydRun{
		labels:  labels,
		centers: centers,
		inertia: inertia(x, weights, centers, labels),
		nIter:   iter,
	}
}

// inertia is the weighted sum of squared distances from every point to its center
func inertia(x *mat.Dense, weights []float64, centers *mat.Dense, labels []int) float64 {
	var total float64
	for i, label := range labels {
		total += weights[i] * sqDist(x.RawRowView(i), centers.RawRowView(label))
	}
	return total
}
