package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/soundgraph/hub/internal/features"
	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

// Column names of the cleaned tables.
const (
	ColTrackID       = "track_id"
	ColEmbeddingText = "embedding_text"
	ColTrackName     = "track_name"
	ColArtists       = "artists"
	ColTrackGenre    = "track_genre"
	ColPopularity    = "popularity"
)

const ctxCheckRows = 10000

// ReadStats summarizes what ReadTracks did with the input.
type ReadStats struct {
	Rows       int // data rows read
	Skipped    int // rows without a track id or that could not be parsed
	Duplicates int // rows whose track id was already seen
	Coerced    int // numeric cells that were missing, unparsable or non-finite
}

// CSVSource loads the catalog from a cleaned CSV file (tracks_embeddings_input.csv or the full
// cleaned dataset with track_name/artists/track_genre columns).
type CSVSource struct {
	Path string
}

// NewCSVSource returns a source reading path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// LoadCatalog reads every track from the file, in file order.
func (s *CSVSource) LoadCatalog(ctx context.Context) ([]models.Track, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer f.Close()

	tracks, stats, err := ReadTracks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read catalog csv %s: %w", s.Path, err)
	}

	slog.InfoContext(ctx, "catalog: csv loaded",
		"path", s.Path,
		"tracks", len(tracks),
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"coerced_cells", stats.Coerced,
	)

	return tracks, nil
}

// ReadTracks parses a header-driven catalog CSV. Column order does not matter and unknown
// columns are ignored; only track_id is required. Missing or unparsable numbers become 0.
// When embedding_text is absent or blank it is built from track_name, artists and track_genre.
// The first row for a track id wins; later duplicates are counted and logged.
func ReadTracks(ctx context.Context, r io.Reader) ([]models.Track, ReadStats, error) {
	var stats ReadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, huberrors.NewValidationError("csv", "catalog csv is empty")
		}

		return nil, stats, fmt.Errorf("read header: %w", err)
	}

	cols := headerIndex(header)
	if _, ok := cols[ColTrackID]; !ok {
		return nil, stats, huberrors.NewValidationError("csv", "catalog csv has no track_id column")
	}

	_, hasText := cols[ColEmbeddingText]
	_, hasName := cols[ColTrackName]
	_, hasArtists := cols[ColArtists]
	_, hasGenre := cols[ColTrackGenre]
	canBuildText := hasName || hasArtists || hasGenre

	if !hasText && !canBuildText {
		slog.WarnContext(ctx, "catalog: no text columns, every track will embed the placeholder text")
	}

	seen := map[string]struct{}{}
	tracks := []models.Track{}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		stats.Rows++

		if stats.Rows%ctxCheckRows == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
		}

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				slog.WarnContext(ctx, "catalog: skipping malformed row", "line", parseErr.Line, "error", parseErr.Err)

				stats.Skipped++

				continue
			}

			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows, err)
		}

		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(record) {
				return ""
			}

			return strings.TrimSpace(record[idx])
		}

		id := field(ColTrackID)
		if id == "" {
			stats.Skipped++

			continue
		}

		if _, dup := seen[id]; dup {
			stats.Duplicates++

			slog.DebugContext(ctx, "catalog: duplicate track id, keeping first", "track_id", id)

			continue
		}

		seen[id] = struct{}{}

		name := field(ColTrackName)
		artists := field(ColArtists)
		genre := field(ColTrackGenre)

		text := field(ColEmbeddingText)
		if text == "" && canBuildText {
			text = DescriptiveText(orUnknown(name), artists, orUnknown(genre))
		}

		number := func(name string) float64 {
			v, ok := parseNumber(field(name))
			if !ok {
				stats.Coerced++
			}

			return v
		}

		values := make([]float64, features.Dim)
		for i, col := range features.Columns {
			values[i] = number(col)
		}

		popularity := 0
		if _, ok := cols[ColPopularity]; ok {
			popularity = int(number(ColPopularity))
		}

		tracks = append(tracks, models.Track{
			ID:         id,
			Name:       name,
			Artists:    SplitArtists(artists),
			Genre:      genre,
			Popularity: popularity,
			Text:       text,
			Audio:      features.FromRow(values),
		})
	}

	if stats.Duplicates > 0 {
		slog.WarnContext(ctx, "catalog: duplicate track ids dropped", "duplicates", stats.Duplicates)
	}

	return tracks, stats, nil
}

// headerIndex maps normalized column names to positions. Names are trimmed, lowercased and
// stripped of a UTF-8 BOM and stray ';' left by spreadsheet exports.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))

	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ReplaceAll(h, ";", "")
		h = strings.ToLower(strings.TrimSpace(h))

		if _, dup := cols[h]; !dup && h != "" {
			cols[h] = i
		}
	}

	return cols
}

// parseNumber parses s as a finite float. ok is false when s is empty, unparsable or non-finite;
// the value is then 0.
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
