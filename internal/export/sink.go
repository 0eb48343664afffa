package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

// Sink durably replaces the whole edge set. A failed ReplaceAll leaves the previous edge set in place.
type Sink interface {
	ReplaceAll(ctx context.Context, run *models.SimilarityRun, edges []models.SimilarityEdge) error
}

// Staged is an edge set that has been written but is not visible yet.
// Exactly one of Commit or Abort must be called.
type Staged interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context)
}

// StagingSink is a Sink that can write an edge set without publishing it, so several
// sinks can be switched over together.
type StagingSink interface {
	Sink
	Stage(ctx context.Context, run *models.SimilarityRun, edges []models.SimilarityEdge) (Staged, error)
}

// NamedSink labels a sink for logs and errors.
type NamedSink struct {
	Name string
	Sink StagingSink
}

// MultiSink replaces the edge set in several sinks. Every sink is staged before any is
// committed, so a write failure in any sink leaves all of them on the previous edge set.
// Commits run in order; a commit failure aborts the sinks not committed yet, but sinks
// committed before it keep the new edge set. Put the sink whose commit can fail first.
type MultiSink struct {
	sinks []NamedSink
}

// NewMultiSink returns a MultiSink over sinks.
func NewMultiSink(sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

type namedStaged struct {
	name   string
	staged Staged
}

// ReplaceAll implements Sink. Errors wrap huberrors.ErrExportFailed.
func (m *MultiSink) ReplaceAll(ctx context.Context, run *models.SimilarityRun, edges []models.SimilarityEdge) error {
	if len(m.sinks) == 0 {
		return fmt.Errorf("%w: no sinks configured", huberrors.ErrExportFailed)
	}

	staged := make([]namedStaged, 0, len(m.sinks))

	for _, s := range m.sinks {
		st, err := s.Sink.Stage(ctx, run, edges)
		if err != nil {
			abortAll(ctx, staged)

			return fmt.Errorf("%w: sink %s: %w", huberrors.ErrExportFailed, s.Name, err)
		}

		staged = append(staged, namedStaged{name: s.Name, staged: st})
	}

	for i, st := range staged {
		if err := st.staged.Commit(ctx); err != nil {
			abortAll(ctx, staged[i+1:])

			if i > 0 {
				slog.ErrorContext(ctx, "export: sinks diverged, earlier sinks hold the new edge set",
					"failed_sink", st.name, "committed", i)
			}

			return fmt.Errorf("%w: sink %s: commit: %w", huberrors.ErrExportFailed, st.name, err)
		}

		slog.InfoContext(ctx, "export: edges written", "sink", st.name, "edges", len(edges))
	}

	return nil
}

func abortAll(ctx context.Context, staged []namedStaged) {
	for _, st := range staged {
		st.staged.Abort(ctx)
	}
}

// StageAndCommit replaces the edge set of a single staging sink.
func StageAndCommit(ctx context.Context, s StagingSink, run *models.SimilarityRun, edges []models.SimilarityEdge) error {
	st, err := s.Stage(ctx, run, edges)
	if err != nil {
		return err
	}

	if err := st.Commit(ctx); err != nil {
		st.Abort(ctx)

		return err
	}

	return nil
}

var _ Sink = (*MultiSink)(nil)
