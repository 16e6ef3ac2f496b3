package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// fakeEmbedder returns preset vectors in order and records the texts it saw
type fakeEmbedder struct {
	vectors [][]float64
	err     error
	texts   []string
	onEmbed func()
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.texts = texts
	if f.onEmbed != nil {
		f.onEmbed()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

// twoTopics builds 12 items whose embeddings lie on one great circle of R^4:
// two arcs of six points with the same uneven angular spacing, 1.5 radians
// apart, each vector scaled by a different length.
func twoTopics() ([]HistoryItem, [][]float64) {
	u := []float64{1, 0.5, 0, 0.25}
	v := []float64{-0.5, 1, 0, 0}
	floats.Scale(1/floats.Norm(u, 2), u)
	floats.Scale(1/floats.Norm(v, 2), v)

	offsets := []float64{0, 0.054, 0.097, 0.152, 0.196, 0.253}
	point := func(angle, scale float64) []float64 {
		vec := make([]float64, len(u))
		floats.AddScaled(vec, scale*math.Cos(angle), u)
		floats.AddScaled(vec, scale*math.Sin(angle), v)
		return vec
	}

	var items []HistoryItem
	var vectors [][]float64
	for i, off := range offsets {
		items = append(items, HistoryItem{URL: fmt.Sprintf("https://go.dev/doc/%d", i), Title: strPtr("Go docs")})
		vectors = append(vectors, point(off, 0.5+float64(i)))
	}
	for i, off := range offsets {
		items = append(items, HistoryItem{URL: fmt.Sprintf("https://cooking.example/%d", i), Title: strPtr("Recipes")})
		vectors = append(vectors, point(1.5+off, 10+0.3*float64(i)))
	}
	return items, vectors
}

// recordingClusterer keeps the matrix it was asked to cluster
type recordingClusterer struct {
	Clusterer
	input *mat.Dense
}

func (r *recordingClusterer) Cluster(x *mat.Dense) (Assignment, error) {
	r.input = x
	return r.Clusterer.Cluster(x)
}

func TestClassifier_TwoTopics(t *testing.T) {
	items, vectors := twoTopics()
	embedder := &fakeEmbedder{vectors: vectors}

	clusterer := &recordingClusterer{Clusterer: DensityClusterer{KNeighbors: 3, MinSize: 3}}
	c := &Classifier{
		Embedder:   embedder,
		Clusterer:  clusterer,
		Components: 2,
	}
	groups, err := c.Classify(context.Background(), items)
	require.NoError(t, err)

	// the radius comes from the k-distance curve, not from the floor
	eps, err := SelectEps(clusterer.input, 3)
	require.NoError(t, err)
	assert.Greater(t, eps, 0.05)
	assert.Less(t, eps, 0.2)

	require.Len(t, groups, 2)
	assert.Equal(t, items[:6], groups[0])
	assert.Equal(t, items[6:], groups[1])

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, len(items), total)
	assert.Equal(t, "query: Go docs https://go.dev/doc/0", embedder.texts[0])
}

func TestClassifier_ReportsProgress(t *testing.T) {
	items, vectors := twoTopics()

	var done []int
	c := NewClassifier(&fakeEmbedder{vectors: vectors})
	c.Clusterer = DensityClusterer{KNeighbors: 3, MinSize: 3}
	c.OnProgress = func(d, total int) {
		assert.Equal(t, 5, total)
		done = append(done, d)
	}

	_, err := c.Classify(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, done)
}

func TestClassifier_EmbedderError(t *testing.T) {
	items, _ := twoTopics()
	cause := errors.New("model not loaded")
	c := NewClassifier(&fakeEmbedder{err: cause})

	_, err := c.Classify(context.Background(), items)
	require.Error(t, err)

	var embedErr *EmbedderError
	require.ErrorAs(t, err, &embedErr)
	assert.ErrorIs(t, err, cause)
}

func TestClassifier_ShapeErrors(t *testing.T) {
	items, vectors := twoTopics()

	t.Run("no items", func(t *testing.T) {
		_, err := NewClassifier(&fakeEmbedder{}).Classify(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInputShape)
	})

	t.Run("vector count mismatch", func(t *testing.T) {
		_, err := NewClassifier(&fakeEmbedder{vectors: vectors[:5]}).Classify(context.Background(), items)
		assert.ErrorIs(t, err, ErrInputShape)
	})

	t.Run("ragged vectors", func(t *testing.T) {
		ragged := append([][]float64{}, vectors...)
		ragged[3] = []float64{1, 2}
		_, err := NewClassifier(&fakeEmbedder{vectors: ragged}).Classify(context.Background(), items)
		assert.ErrorIs(t, err, ErrInputShape)
	})
}

func TestClassifier_CancelledBetweenStages(t *testing.T) {
	items, vectors := twoTopics()
	ctx, cancel := context.WithCancel(context.Background())

	var done []int
	c := NewClassifier(&fakeEmbedder{vectors: vectors, onEmbed: cancel})
	c.OnProgress = func(d, _ int) { done = append(done, d) }

	_, err := c.Classify(ctx, items)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1}, done)
}

func TestClassifier_ClusteringError(t *testing.T) {
	items := []HistoryItem{{URL: "https://only.example"}}
	c := NewClassifier(&fakeEmbedder{vectors: [][]float64{{1, 2, 3}}})

	_, err := c.Classify(context.Background(), items)
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestClassifier_NoEmbedder(t *testing.T) {
	items, _ := twoTopics()
	_, err := (&Classifier{}).Classify(context.Background(), items)
	assert.Error(t, err)
}
