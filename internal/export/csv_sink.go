package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/soundgraph/hub/internal/models"
)

// CSVHeader is the edge file header the graph loader expects.
var CSVHeader = []string{"track_id", "similar_track_id", "score"}

// CSVSink writes the edge list to a CSV file. The file is written to a temporary file in the
// same directory and renamed over Path, so readers see either the old or the new edge set.
type CSVSink struct {
	Path string
}

// NewCSVSink returns a sink writing to path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

// ReplaceAll implements Sink.
func (s *CSVSink) ReplaceAll(ctx context.Context, run *models.SimilarityRun, edges []models.SimilarityEdge) error {
	return StageAndCommit(ctx, s, run, edges)
}

// Stage implements StagingSink: the edges are written and synced to a temporary file next to
// Path. Commit renames it over Path; Abort removes it.
func (s *CSVSink) Stage(ctx context.Context, _ *models.SimilarityRun, edges []models.SimilarityEdge) (_ Staged, err error) {
	dir := filepath.Dir(s.Path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)

	if err = w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range edges {
		if i%10000 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}

		if err = w.Write([]string{e.SourceID, e.TargetID, strconv.FormatFloat(e.Score, 'g', -1, 64)}); err != nil {
			return nil, fmt.Errorf("write edge %d: %w", i, err)
		}
	}

	w.Flush()

	if err = w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync csv: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("close csv: %w", err)
	}

	return &stagedCSV{tmpPath: tmp.Name(), path: s.Path}, nil
}

type stagedCSV struct {
	tmpPath string
	path    string
}

func (st *stagedCSV) Commit(context.Context) error {
	if err := os.Rename(st.tmpPath, st.path); err != nil {
		return fmt.Errorf("replace %s: %w", st.path, err)
	}

	return nil
}

func (st *stagedCSV) Abort(context.Context) {
	_ = os.Remove(st.tmpPath)
}

var _ StagingSink = (*CSVSink)(nil)
