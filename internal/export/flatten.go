// Package export turns ranked neighbor lists into the durable similarity edge set and writes it
// to one or more sinks, replacing whatever a previous run wrote.
package export

import (
	"fmt"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/internal/similarity"
)

// Flatten converts per-row neighbor lists into edges, source by source in row order and,
// within a source, in the ranked order given. Rank is 1-based.
func Flatten(ids []string, neighbors [][]similarity.Neighbor) ([]models.SimilarityEdge, error) {
	if len(ids) != len(neighbors) {
		return nil, huberrors.NewValidationError("neighbors",
			fmt.Sprintf("%d neighbor lists for %d tracks", len(neighbors), len(ids)))
	}

	total := 0
	for _, list := range neighbors {
		total += len(list)
	}

	edges := make([]models.SimilarityEdge, 0, total)

	for i, list := range neighbors {
		for rank, n := range list {
			if n.Index < 0 || n.Index >= len(ids) {
				return nil, huberrors.NewValidationError("neighbors",
					fmt.Sprintf("neighbor index %d out of range for track %q", n.Index, ids[i]))
			}

			if n.Index == i || ids[n.Index] == ids[i] {
				return nil, huberrors.NewValidationError("neighbors",
					fmt.Sprintf("track %q listed as its own neighbor", ids[i]))
			}

			edges = append(edges, models.SimilarityEdge{
				SourceID: ids[i],
				TargetID: ids[n.Index],
				Score:    n.Score,
				Rank:     rank + 1,
			})
		}
	}

	return edges, nil
}
