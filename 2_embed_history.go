package dailyai

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annie444/daily-ai/classify"
	_ "github.com/mattn/go-sqlite3"
	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog/log"
)

// DefaultEmbeddingBatchSize is how many texts OpenAIEmbedder sends per request
const DefaultEmbeddingBatchSize = 64

// OpenAIEmbedder embeds texts with an OpenAI compatible embeddings endpoint
type OpenAIEmbedder struct {
	Client    openai.Client
	Model     string
	BatchSize int
}

// Embed implements classify.Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}

	out := make([][]float64, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		var resp *openai.CreateEmbeddingResponse
		err := llmRetry.do(ctx, "embeddings", func() error {
			var err error
			resp, err = e.Client.Embeddings.New(ctx, openai.EmbeddingNewParams{
				Input: openai.EmbeddingNewParamsInputUnion{
					OfArrayOfStrings: texts[start:end],
				},
				Model:          openai.EmbeddingModel(e.Model),
				EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to call embeddings API: %w", err)
		}

		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embeddings API returned %d vectors for %d texts", len(resp.Data), end-start)
		}
		for _, d := range resp.Data {
			idx := int(d.Index)
			if idx < 0 || idx >= end-start {
				return nil, fmt.Errorf("embeddings API returned out of range index %d", idx)
			}
			out[start+idx] = d.Embedding
		}
		log.Debug().Int("from", start).Int("to", end).Msg("embedded batch")
	}

	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("embeddings API returned no vector for text %d", i)
		}
	}
	return out, nil
}

// OpenEmbeddingCache opens (creating if needed) the SQLite embedding cache
func OpenEmbeddingCache(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS embeddings (
		model TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		text TEXT NOT NULL,
		embedding_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model, text_hash)
	);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close embedding cache")
		}
		return nil, fmt.Errorf("failed to create embeddings table: %w", err)
	}

	return db, nil
}

// CachedEmbedder serves embeddings from a SQLite cache and only asks Inner for
// texts it has not seen with the same model.
type CachedEmbedder struct {
	Inner classify.Embedder
	DB    *sql.DB
	Model string
}

// Embed implements classify.Embedder
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		vec, ok, err := c.lookup(ctx, text)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	log.Debug().Int("hits", len(texts)-len(missing)).Int("misses", len(missing)).Msg("embedding cache lookup")
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.Inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		if err := c.save(ctx, missing[j], vec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// lookup returns the cached embedding of text, if any
func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float64, bool, error) {
	var embeddingJSON string
	err := c.DB.QueryRowContext(ctx,
		"SELECT embedding_json FROM embeddings WHERE model = ? AND text_hash = ?",
		c.Model, textHash(text)).Scan(&embeddingJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query embedding cache: %w", err)
	}

	var vec []float64
	if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
		return nil, false, fmt.Errorf("failed to parse cached embedding: %w", err)
	}
	return vec, true, nil
}

// save stores an embedding in the cache
func (c *CachedEmbedder) save(ctx context.Context, text string, vec []float64) error {
	embeddingJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	insertSQL := `
	INSERT OR REPLACE INTO embeddings (model, text_hash, text, embedding_json)
	VALUES (?, ?, ?, ?)
	`

	if _, err := c.DB.ExecContext(ctx, insertSQL, c.Model, textHash(text), text, string(embeddingJSON)); err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}
