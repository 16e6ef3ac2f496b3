package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type fixedClusterer struct {
	assignment Assignment
	calls      int
}

func (f *fixedClusterer) Cluster(x *mat.Dense) (Assignment, error) {
	f.calls++
	return f.assignment, nil
}

func TestDensityClusterer_TwoBlobs(t *testing.T) {
	x := blobs(71, 20, 0.2, []float64{0, 0}, []float64{10, 10})

	labels, err := DensityClusterer{KNeighbors: 3, MinSize: 3}.Cluster(x)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, labels.NumClusters(), 2)

	// no cluster spans both blobs
	for i := 0; i < 20; i++ {
		for j := 20; j < 40; j++ {
			if labels[i] != Noise {
				assert.NotEqual(t, labels[i], labels[j])
			}
		}
	}
}

func TestDensityClusterer_ClampsNeighbours(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{0, 0.5, 1})
	labels, err := DensityClusterer{KNeighbors: 25, MinSize: 2}.Cluster(x)
	require.NoError(t, err)
	assert.Equal(t, Assignment{0, 0, 0}, labels)
}

func TestDensityClusterer_SingleSample(t *testing.T) {
	x := mat.NewDense(1, 1, []float64{0})
	_, err := DensityClusterer{}.Cluster(x)
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestKMeansClusterer_PicksKAtKnee(t *testing.T) {
	x := blobs(72, 15, 0.3, threeBlobCenters...)

	labels, err := KMeansClusterer{MinK: 1, MaxK: 8}.Cluster(x)
	require.NoError(t, err)
	assert.Equal(t, 3, labels.NumClusters())
	assert.Equal(t, 0, labels.NoiseCount())
	for b := 0; b < 3; b++ {
		for p := 1; p < 15; p++ {
			assert.Equal(t, labels[b*15], labels[b*15+p])
		}
	}
}

func TestKMeansClusterer_EmptyRange(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0, 1})
	_, err := KMeansClusterer{MinK: 5, MaxK: 8}.Cluster(x)
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestAutoClusterer(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, 2, 3})

	t.Run("keeps dense result", func(t *testing.T) {
		density := &fixedClusterer{assignment: Assignment{0, 0, 1, Noise}}
		fallback := &fixedClusterer{assignment: Assignment{0, 0, 0, 0}}

		labels, err := AutoClusterer{Density: density, Fallback: fallback, MinCoverage: 0.5}.Cluster(x)
		require.NoError(t, err)
		assert.Equal(t, density.assignment, labels)
		assert.Equal(t, 0, fallback.calls)
	})

	t.Run("falls back on low coverage", func(t *testing.T) {
		density := &fixedClusterer{assignment: Assignment{0, Noise, Noise, Noise}}
		fallback := &fixedClusterer{assignment: Assignment{0, 0, 1, 1}}

		labels, err := AutoClusterer{Density: density, Fallback: fallback}.Cluster(x)
		require.NoError(t, err)
		assert.Equal(t, fallback.assignment, labels)
		assert.Equal(t, 1, fallback.calls)
	})

	t.Run("falls back when nothing clusters", func(t *testing.T) {
		density := &fixedClusterer{assignment: Assignment{Noise, Noise, Noise, Noise}}
		fallback := &fixedClusterer{assignment: Assignment{0, 0, 0, 0}}

		labels, err := AutoClusterer{Density: density, Fallback: fallback, MinCoverage: 0.01}.Cluster(x)
		require.NoError(t, err)
		assert.Equal(t, fallback.assignment, labels)
	})
}

func TestAutoClusterer_ZeroValueUsesDefaults(t *testing.T) {
	x := blobs(5, 15, 0.3, []float64{0, 0}, []float64{8, 8})

	labels, err := AutoClusterer{}.Cluster(x)
	require.NoError(t, err)
	assert.Len(t, labels, 30)

	sparse := &fixedClusterer{assignment: make(Assignment, 30)}
	for i := range sparse.assignment {
		sparse.assignment[i] = Noise
	}
	labels, err = AutoClusterer{Density: sparse}.Cluster(x)
	require.NoError(t, err)
	assert.Len(t, labels, 30)
	assert.Zero(t, labels.NoiseCount())
}
