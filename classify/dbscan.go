package classify

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Noise marks a point that belongs to no cluster
const Noise = -1

// Assignment holds the cluster id of every point, or Noise
type Assignment []int

// NumClusters returns the number of distinct non-noise clusters
func (a Assignment) NumClusters() int {
	seen := make(map[int]struct{})
	for _, id := range a {
		if id != Noise {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// NoiseCount returns how many points are noise
func (a Assignment) NoiseCount() int {
	count := 0
	for _, id := range a {
		if id == Noise {
			count++
		}
	}
	return count
}

// DBSCAN groups points that are density reachable within eps. A point is a
// core point when at least minSize points, itself included, lie within eps of
// it. Clusters are numbered in the order they are discovered.
func DBSCAN(x *mat.Dense, eps float64, minSize int) (Assignment, error) {
	if x == nil || x.IsEmpty() {
		return nil, fmt.Errorf("%w: empty matrix", ErrClustering)
	}
	if math.IsNaN(eps) || eps <= 0 {
		return nil, fmt.Errorf("%w: eps must be positive, got %v", ErrClustering, eps)
	}
	if minSize < 1 {
		return nil, fmt.Errorf("%w: min size must be at least 1, got %d", ErrClustering, minSize)
	}

	n, _ := x.Dims()
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		neighbors[i] = findNeighbors(x, i, eps)
	}

	labels := make(Assignment, n)
	for i := range labels {
		labels[i] = Noise
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != Noise || len(neighbors[i]) < minSize {
			continue
		}
		expandCluster(i, clusterID, neighbors, minSize, labels)
		clusterID++
	}

	log.Debug().Int("clusters", clusterID).Int("noise", labels.NoiseCount()).Float64("eps", eps).Int("min_size", minSize).Msg("DBSCAN finished")
	return labels, nil
}

// findNeighbors returns every point within eps of the given point, itself included
func findNeighbors(x *mat.Dense, pointIdx int, eps float64) []int {
	n, _ := x.Dims()
	point := x.RawRowView(pointIdx)

	var neighbors []int
	for j := 0; j < n; j++ {
		if floats.Distance(point, x.RawRowView(j), 2) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// expandCluster labels every point reachable from the core point pointIdx
func expandCluster(pointIdx, clusterID int, neighbors [][]int, minSize int, labels Assignment) {
	labels[pointIdx] = clusterID
	queue := []int{pointIdx}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if len(neighbors[p]) < minSize {
			// border points join the cluster but do not extend it
			continue
		}
		for _, q := range neighbors[p] {
			if labels[q] != Noise {
				continue
			}
			labels[q] = clusterID
			queue = append(queue, q)
		}
	}
}
