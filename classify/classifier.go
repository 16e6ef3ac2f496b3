// Package classify groups browsing history items into topical clusters. Item
// texts are embedded, L2 normalized, reduced with PCA and clustered by
// density, with the clustering radius picked from the k-distance curve.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Embedder turns texts into vectors, one per text and all of the same length
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// DefaultComponents is the number of PCA components kept by Classifier
const DefaultComponents = 25

const classifyStages = 5

// Classifier runs the whole pipeline:
// embed -> normalize -> reduce -> cluster -> group.
type Classifier struct {
	Embedder  Embedder
	Clusterer Clusterer
	// Components is clamped to the matrix shape
	Components int
	// OnProgress is called after every stage with the number of finished stages
	OnProgress func(done, total int)
}

// NewClassifier returns a Classifier using density clustering with default parameters
func NewClassifier(embedder Embedder) *Classifier {
	return &Classifier{
		Embedder:   embedder,
		Clusterer:  DensityClusterer{KNeighbors: DefaultKNeighbors, MinSize: DefaultMinSize},
		Components: DefaultComponents,
	}
}

// Classify groups items by topic. Noise items are not part of the result.
// Any error aborts the run without partial output.
func (c *Classifier) Classify(ctx context.Context, items []HistoryItem) (map[int][]HistoryItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to classify", ErrInputShape)
	}
	if c.Embedder == nil {
		return nil, errors.New("classifier has no embedder")
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.EmbeddingText()
	}

	vectors, err := c.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &EmbedderError{Err: err}
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d items", ErrInputShape, len(vectors), len(items))
	}
	x, err := NewMatrix(vectors)
	if err != nil {
		return nil, err
	}
	n, d := x.Dims()
	log.Debug().Int("items", n).Int("dims", d).Msg("embedded items")
	c.progress(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if x, err = Normalize(x); err != nil {
		return nil, err
	}
	c.progress(2)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	components := c.Components
	if components <= 0 {
		components = DefaultComponents
	}
	components = min(components, n, d)
	reduced, err := PCA(x, components)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce embeddings: %w", err)
	}
	c.progress(3)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusterer := c.Clusterer
	if clusterer == nil {
		clusterer = DensityClusterer{}
	}
	assignment, err := clusterer.Cluster(reduced)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster embeddings: %w", err)
	}
	c.progress(4)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups, err := GroupItems(items, assignment)
	if err != nil {
		return nil, err
	}
	c.progress(5)

	log.Info().Int("items", n).Int("clusters", len(groups)).Int("noise", assignment.NoiseCount()).Msg("classified history")
	return groups, nil
}

func (c *Classifier) progress(done int) {
	if c.OnProgress != nil {
		c.OnProgress(done, classifyStages)
	}
}
