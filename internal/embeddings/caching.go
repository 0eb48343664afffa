package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"errors"
	"log/slog"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/observability"
)

// CacheStore persists embeddings keyed by (model, text hash).
type CacheStore interface {
	GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, model string, entries map[string][]float32) error
}

// CachingClient serves embeddings for unchanged texts from a CacheStore and sends only
// the misses to the next Client, in a single call. Cache read and write failures are
// logged and treated as misses; they never fail the run.
type CachingClient struct {
	next       Client
	store      CacheStore
	model      string
	dimensions int
	metrics    observability.EmbeddingMetrics
}

// NewCachingClient wraps next. dimensions > 0 discards cached vectors of any other length.
func NewCachingClient(next Client, store CacheStore, model string, dimensions int, metrics observability.EmbeddingMetrics) *CachingClient {
	return &CachingClient{
		next:       next,
		store:      store,
		model:      model,
		dimensions: dimensions,
		metrics:    metrics,
	}
}

// TextHash returns the hex SHA-256 of text, the cache key for one embedding.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))

	return hex.EncodeToString(sum[:])
}

// GetEmbeddings implements Client.
func (c *CachingClient) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared := make([]string, len(texts))
	hashes := make([]string, len(texts))
	unique := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))

	for i, t := range texts {
		prepared[i] = PrepareText(t)
		hashes[i] = TextHash(prepared[i])

		if _, ok := seen[hashes[i]]; !ok {
			seen[hashes[i]] = struct{}{}
			unique = append(unique, hashes[i])
		}
	}

	cached, err := c.store.GetEmbeddings(ctx, c.model, unique)
	if err != nil {
		slog.WarnContext(ctx, "embeddings: cache read failed, embedding everything", "error", err)

		cached = nil
	}

	found := make(map[string][]float32, len(unique))

	for h, v := range cached {
		if len(v) == 0 || (c.dimensions > 0 && len(v) != c.dimensions) {
			continue
		}

		found[h] = v
	}

	hits := len(found)

	var (
		missTexts  []string
		missHashes []string
	)

	for i, h := range hashes {
		if _, ok := found[h]; ok {
			continue
		}

		if _, queued := seen[h]; !queued {
			continue
		}

		delete(seen, h)

		missTexts = append(missTexts, prepared[i])
		missHashes = append(missHashes, h)
	}

	if c.metrics != nil {
		c.metrics.RecordCacheLookup(ctx, hits, len(missHashes))
	}

	slog.InfoContext(ctx, "embeddings: cache lookup", "unique_texts", len(unique), "hits", hits, "misses", len(missHashes))

	if len(missTexts) > 0 {
		vectors, err := c.next.GetEmbeddings(ctx, missTexts)
		if err != nil {
			return nil, unavailable(err)
		}

		if len(vectors) != len(missTexts) {
			return nil, fmt.Errorf("%w: %w: got %d, want %d",
				huberrors.ErrEmbeddingUnavailable, ErrCountMismatch, len(vectors), len(missTexts))
		}

		fresh := make(map[string][]float32, len(vectors))
		for i, v := range vectors {
			found[missHashes[i]] = v
			fresh[missHashes[i]] = v
		}

		if err := c.store.PutEmbeddings(ctx, c.model, fresh); err != nil {
			slog.WarnContext(ctx, "embeddings: cache write failed", "entries", len(fresh), "error", err)
		}
	}

	out := make([][]float32, len(hashes))
	for i, h := range hashes {
		out[i] = found[h]
	}

	if _, err := checkVectors(out, len(texts), c.dimensions); err != nil {
		return nil, fmt.Errorf("%w: cached embeddings for model %q: %w", huberrors.ErrEmbeddingUnavailable, c.model, err)
	}

	return out, nil
}

var _ Client = (*CachingClient)(nil)

// unavailable wraps err in huberrors.ErrEmbeddingUnavailable unless it already is one.
func unavailable(err error) error {
	if errors.Is(err, huberrors.ErrEmbeddingUnavailable) {
		return err
	}

	return fmt.Errorf("%w: %w", huberrors.ErrEmbeddingUnavailable, err)
}
