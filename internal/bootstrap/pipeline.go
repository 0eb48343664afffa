package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundgraph/hub/internal/catalog"
	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/internal/embeddings"
	"github.com/soundgraph/hub/internal/export"
	"github.com/soundgraph/hub/internal/repository"
	"github.com/soundgraph/hub/internal/service"
	"github.com/soundgraph/hub/internal/similarity"
)

var errNoSinks = errors.New("no export sinks configured")

// NeedsDatabase reports whether the configured catalog source, sinks or cache use Postgres.
func NeedsDatabase(cfg *config.Config) bool {
	return cfg.CatalogSource == config.CatalogSourcePostgres ||
		cfg.HasSink(config.SinkPostgres) ||
		cfg.EmbeddingCacheEnabled
}

// NewSimilarityPipeline wires catalog source, embedding stack, neighbor finder and sinks.
// db may be nil when NeedsDatabase is false.
func NewSimilarityPipeline(
	ctx context.Context, cfg *config.Config, db *pgxpool.Pool, obs *Observability,
) (*service.SimilarityPipeline, error) {
	if db == nil && NeedsDatabase(cfg) {
		return nil, fmt.Errorf("configuration needs DATABASE_URL: catalog=%s sinks=%v cache=%t",
			cfg.CatalogSource, cfg.ExportSinks, cfg.EmbeddingCacheEnabled)
	}

	var source service.CatalogLoader

	switch cfg.CatalogSource {
	case config.CatalogSourceCSV:
		source = catalog.NewCSVSource(cfg.CatalogCSVPath)
	default:
		source = repository.NewTracksRepository(db)
	}

	var store embeddings.CacheStore
	if db != nil {
		store = repository.NewEmbeddingsRepository(db)
	}

	stack, err := NewEmbeddingStack(ctx, cfg, store, obs.EmbeddingMetrics())
	if err != nil {
		return nil, err
	}

	finder, err := similarity.NewFinder(cfg.SimilarityStrategy, cfg.SimilarityBlockSize)
	if err != nil {
		return nil, fmt.Errorf("create neighbor finder: %w", err)
	}

	sink, err := NewSink(cfg, db)
	if err != nil {
		return nil, err
	}

	return service.NewSimilarityPipeline(service.SimilarityPipelineParams{
		Catalog:        source,
		Embedder:       stack.Client,
		Finder:         finder,
		Sink:           sink,
		K:              cfg.SimilarityTopK,
		Strategy:       cfg.SimilarityStrategy,
		EmbeddingModel: stack.Model,
		Metrics:        obs.PipelineMetrics(),
	}), nil
}

// NewSink returns the configured sinks. Postgres always commits first: its commit can fail, while
// the CSV commit is a rename within one directory.
func NewSink(cfg *config.Config, db *pgxpool.Pool) (*export.MultiSink, error) {
	sinks := make([]export.NamedSink, 0, len(cfg.ExportSinks))

	for _, name := range commitOrder(cfg.ExportSinks) {
		switch name {
		case config.SinkPostgres:
			if db == nil {
				return nil, fmt.Errorf("sink %s needs a database", name)
			}

			sinks = append(sinks, export.NamedSink{Name: name, Sink: repository.NewSimilarityRepository(db)})
		case config.SinkCSV:
			sinks = append(sinks, export.NamedSink{Name: name, Sink: export.NewCSVSink(cfg.ExportCSVPath)})
		default:
			return nil, fmt.Errorf("unsupported sink %q", name)
		}
	}

	if len(sinks) == 0 {
		return nil, errNoSinks
	}

	return export.NewMultiSink(sinks...), nil
}

// commitOrder moves the postgres sink ahead of the others, keeping their relative order.
func commitOrder(names []string) []string {
	out := slices.Clone(names)
	slices.SortStableFunc(out, func(a, b string) int {
		return commitRank(a) - commitRank(b)
	})

	return out
}

func commitRank(sink string) int {
	if sink == config.SinkPostgres {
		return 0
	}

	return 1
}
