package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/internal/observability"
	"github.com/soundgraph/hub/pkg/cache"
)

const (
	cacheNameSimilarTracks = "similar_tracks"
	cacheNameTrackInfo     = "track_info"

	defaultSimilarLimit = 5
	defaultListLimit    = 100
)

// TracksRepository reads the catalog display fields.
type TracksRepository interface {
	Get(ctx context.Context, id string) (*models.TrackInfo, error)
	List(ctx context.Context, filters *models.ListTracksFilters) ([]models.TrackInfo, error)
}

// SimilarityReader reads the persisted edge set.
type SimilarityReader interface {
	ListSimilar(ctx context.Context, trackID string, limit int, orderBy string) ([]models.SimilarTrack, error)
	LatestRun(ctx context.Context) (*models.SimilarityRun, error)
}

// SimilarKey identifies one cached similar-tracks lookup.
type SimilarKey struct {
	TrackID string
	Limit   int
	OrderBy string
}

// String implements the cache key encoding.
func (k SimilarKey) String() string {
	return k.TrackID + "|" + strconv.Itoa(k.Limit) + "|" + k.OrderBy
}

// TracksServiceParams configures TracksService. SimilarCache, InfoCache and CacheMetrics may be nil.
type TracksServiceParams struct {
	Tracks       TracksRepository
	Similarity   SimilarityReader
	SimilarCache *cache.LoaderCache[SimilarKey, *models.SimilarTracksResponse]
	InfoCache    *cache.LoaderCache[string, *models.TrackInfo]
	CacheMetrics observability.CacheMetrics
}

// TracksService serves track info and persisted neighbors.
type TracksService struct {
	tracks       TracksRepository
	similarity   SimilarityReader
	similarCache *cache.LoaderCache[SimilarKey, *models.SimilarTracksResponse]
	infoCache    *cache.LoaderCache[string, *models.TrackInfo]
	metrics      observability.CacheMetrics
}

// NewTracksService creates a TracksService.
func NewTracksService(p TracksServiceParams) *TracksService {
	return &TracksService{
		tracks:       p.Tracks,
		similarity:   p.Similarity,
		similarCache: p.SimilarCache,
		infoCache:    p.InfoCache,
		metrics:      p.CacheMetrics,
	}
}

// Get returns one track.
func (s *TracksService) Get(ctx context.Context, id string) (*models.TrackInfo, error) {
	if s.infoCache == nil {
		return s.tracks.Get(ctx, id)
	}

	info, hit, err := s.infoCache.GetWithStats(ctx, id, s.tracks.Get)
	if err != nil {
		return nil, err
	}

	s.recordLookup(ctx, cacheNameTrackInfo, hit)

	return info, nil
}

// List returns a page of tracks ordered by name.
func (s *TracksService) List(ctx context.Context, filters *models.ListTracksFilters) (*models.ListTracksResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	tracks, err := s.tracks.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}

	return &models.ListTracksResponse{Data: tracks, Limit: filters.Limit, Offset: filters.Offset}, nil
}

// Similar returns the persisted neighbors of trackID. A track with no edges that exists in the
// catalog yields an empty list; an unknown track with no edges is not found.
func (s *TracksService) Similar(ctx context.Context, trackID string, q *models.SimilarTracksQuery) (*models.SimilarTracksResponse, error) {
	key := SimilarKey{TrackID: trackID, Limit: q.Limit, OrderBy: q.OrderBy}
	if key.Limit <= 0 {
		key.Limit = defaultSimilarLimit
	}

	if key.OrderBy == "" {
		key.OrderBy = models.SimilarOrderByScore
	}

	if s.similarCache == nil {
		return s.loadSimilar(ctx, key)
	}

	resp, hit, err := s.similarCache.GetWithStats(ctx, key, s.loadSimilar)
	if err != nil {
		return nil, err
	}

	s.recordLookup(ctx, cacheNameSimilarTracks, hit)

	return resp, nil
}

// LatestRun returns the run that produced the current edge set.
func (s *TracksService) LatestRun(ctx context.Context) (*models.SimilarityRun, error) {
	return s.similarity.LatestRun(ctx)
}

// Purge drops every cached lookup. Called after a run replaces the edge set.
func (s *TracksService) Purge() {
	if s.similarCache != nil {
		s.similarCache.InvalidateAll()
	}

	if s.infoCache != nil {
		s.infoCache.InvalidateAll()
	}
}

func (s *TracksService) loadSimilar(ctx context.Context, key SimilarKey) (*models.SimilarTracksResponse, error) {
	similar, err := s.similarity.ListSimilar(ctx, key.TrackID, key.Limit, key.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("list similar tracks: %w", err)
	}

	if len(similar) == 0 {
		similar = []models.SimilarTrack{}

		if _, err := s.tracks.Get(ctx, key.TrackID); err != nil {
			return nil, err
		}
	}

	resp := &models.SimilarTracksResponse{TrackID: key.TrackID, Data: similar}

	if len(similar) > 0 {
		// Rows are replaced in one transaction, so every row carries the same run.
		runID := similar[0].RunID
		resp.RunID = &runID

		return resp, nil
	}

	run, err := s.similarity.LatestRun(ctx)

	switch {
	case err == nil:
		resp.RunID = &run.ID
	case errors.Is(err, huberrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("latest run: %w", err)
	}

	return resp, nil
}

func (s *TracksService) recordLookup(ctx context.Context, cacheName string, hit bool) {
	if s.metrics == nil {
		return
	}

	if hit {
		s.metrics.RecordHit(ctx, cacheName)
	} else {
		s.metrics.RecordMiss(ctx, cacheName)
	}
}
