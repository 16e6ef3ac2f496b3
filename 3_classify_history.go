package dailyai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/annie444/daily-ai/classify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// DefaultMiscSize is the group size below which clusters are merged into misc
const DefaultMiscSize = 3

// URLCluster is a labeled group of history items
type URLCluster struct {
	Label string                 `json:"label"`
	URLs  []classify.HistoryItem `json:"urls"`
}

// BrowserClusters is the document written by the classify command
type BrowserClusters struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Since       time.Time    `json:"since"`
	Clusters    []URLCluster `json:"clusters"`
}

// classifyOptions are the flags of the classify command
type classifyOptions struct {
	historyOptions
	Output     string
	Clusterer  string
	Components int
	Neighbors  int
	MinSize    int
	MiscSize   int
	NoCache    bool
}

func (o *classifyOptions) register(cmd *cobra.Command) {
	o.historyOptions.register(cmd)
	cmd.Flags().StringVarP(&o.Output, "output", "o", "clusters.json", "output file for the labeled clusters")
	cmd.Flags().StringVar(&o.Clusterer, "clusterer", "density", "clustering strategy: density, kmeans or auto")
	cmd.Flags().IntVar(&o.Components, "components", classify.DefaultComponents, "number of PCA components")
	cmd.Flags().IntVar(&o.Neighbors, "neighbors", classify.DefaultKNeighbors, "neighbour rank used to pick the clustering radius")
	cmd.Flags().IntVar(&o.MinSize, "min-size", classify.DefaultMinSize, "minimum neighbourhood size of a dense region")
	cmd.Flags().IntVar(&o.MiscSize, "misc-size", DefaultMiscSize, "clusters smaller than this are merged into misc")
	cmd.Flags().BoolVar(&o.NoCache, "no-cache", false, "do not use the embedding cache")
}

var classifyOpts classifyOptions

// ClassifyHistoryCmd groups recent Safari history into labeled clusters
var ClassifyHistoryCmd = &cobra.Command{
	Use:   "classify",
	Short: "Cluster recent Safari history and label every cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := classifyHistory(cmd.Context(), classifyOpts)
		if err != nil {
			return err
		}
		if err := WriteClustersJSON(classifyOpts.Output, result); err != nil {
			return err
		}
		log.Info().Int("clusters", len(result.Clusters)).Str("path", classifyOpts.Output).Msg("clusters written")
		return nil
	},
}

func init() {
	classifyOpts.register(ClassifyHistoryCmd)
}

// newClusterer builds the clustering strategy named on the command line
func newClusterer(name string, neighbors, minSize int) (classify.Clusterer, error) {
	density := classify.DensityClusterer{KNeighbors: neighbors, MinSize: minSize}
	switch name {
	case "density", "dbscan":
		return density, nil
	case "kmeans":
		return classify.KMeansClusterer{MinK: 1}, nil
	case "auto":
		return classify.AutoClusterer{Density: density, Fallback: classify.KMeansClusterer{MinK: 1}}, nil
	default:
		return nil, fmt.Errorf("unknown clusterer %q (want density, kmeans or auto)", name)
	}
}

// classifyHistory runs the whole classify stage: read, embed, cluster, label
func classifyHistory(ctx context.Context, opts classifyOptions) (BrowserClusters, error) {
	clusterer, err := newClusterer(opts.Clusterer, opts.Neighbors, opts.MinSize)
	if err != nil {
		return BrowserClusters{}, err
	}

	items, since, err := opts.load(ctx)
	if err != nil {
		return BrowserClusters{}, err
	}
	if len(items) == 0 {
		return BrowserClusters{}, fmt.Errorf("no Safari history since %s", since.Format(time.RFC3339))
	}
	log.Info().Int("items", len(items)).Time("since", since).Msg("classifying Safari history")

	client := NewOpenAIClient()
	var embedder classify.Embedder = &OpenAIEmbedder{Client: client, Model: Config.EmbeddingModel}
	if !opts.NoCache {
		db, err := OpenEmbeddingCache(Config.EmbeddingCachePath)
		if err != nil {
			return BrowserClusters{}, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close embedding cache")
			}
		}()
		embedder = &CachedEmbedder{Inner: embedder, DB: db, Model: Config.EmbeddingModel}
	}

	classifier := &classify.Classifier{
		Embedder:   embedder,
		Clusterer:  clusterer,
		Components: opts.Components,
		OnProgress: func(done, total int) {
			log.Debug().Int("stage", done).Int("stages", total).Msg("classification progress")
		},
	}
	groups, err := classifier.Classify(ctx, items)
	if err != nil {
		return BrowserClusters{}, fmt.Errorf("failed to classify history: %w", err)
	}

	labeler := &OpenAILabeler{Client: client, Model: Config.LabelModel, Temperature: 0.1}
	clusters, err := BuildClusterOutput(ctx, labeler, groups, opts.MiscSize)
	if err != nil {
		return BrowserClusters{}, err
	}

	return BrowserClusters{
		GeneratedAt: time.Now().UTC(),
		Since:       since.UTC(),
		Clusters:    clusters,
	}, nil
}

// BuildClusterOutput labels every group with at least minSize items and
// merges the smaller ones into a single misc group, labeled last.
func BuildClusterOutput(ctx context.Context, labeler Labeler, groups map[int][]classify.HistoryItem, minSize int) ([]URLCluster, error) {
	if minSize <= 0 {
		minSize = DefaultMiscSize
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var clusters []URLCluster
	var misc []classify.HistoryItem
	for i, id := range ids {
		items := groups[id]
		if len(items) == 0 {
			continue
		}
		if len(items) < minSize {
			misc = append(misc, items...)
			continue
		}

		label, err := labeler.Label(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("failed to label cluster %d: %w", id, err)
		}
		clusters = append(clusters, URLCluster{Label: label, URLs: items})
		log.Info().Int("cluster", i+1).Int("clusters", len(ids)).Str("label", label).Int("urls", len(items)).Msg("labeled cluster")
	}

	if len(misc) > 0 {
		log.Info().Int("urls", len(misc)).Msg("labeling miscellaneous URLs")
		label, err := labeler.Label(ctx, misc)
		if err != nil {
			return nil, fmt.Errorf("failed to label miscellaneous URLs: %w", err)
		}
		clusters = append(clusters, URLCluster{Label: label, URLs: misc})
	}

	return clusters, nil
}

// WriteClustersJSON writes the labeled clusters to path
func WriteClustersJSON(path string, result BrowserClusters) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal clusters: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write clusters file: %w", err)
	}
	return nil
}

// LoadClustersJSON reads clusters written by WriteClustersJSON
func LoadClustersJSON(path string) (BrowserClusters, error) {
	var result BrowserClusters
	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("failed to read clusters file: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to parse clusters file: %w", err)
	}
	return result, nil
}
