// Package observability provides OpenTelemetry metrics and tracing for the similarity pipeline and query API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameSimilarityRuns          = "hub_similarity_runs_total"
	MetricNameSimilarityRunDuration   = "hub_similarity_run_duration_seconds"
	MetricNameSimilarityStageDuration = "hub_similarity_stage_duration_seconds"
	MetricNameSimilarityTracks        = "hub_similarity_tracks"
	MetricNameSimilarityEdges         = "hub_similarity_edges"
	MetricNameEmbeddingRequests       = "hub_embedding_requests_total"
	MetricNameEmbeddingTexts          = "hub_embedding_texts_total"
	MetricNameEmbeddingDuration       = "hub_embedding_request_duration_seconds"
	MetricNameEmbeddingCacheLookups   = "hub_embedding_cache_lookups_total"
	MetricNameCacheHits               = "hub_cache_hits_total"
	MetricNameCacheMisses             = "hub_cache_misses_total"
	MetricNameRequestBodyTooLarge     = "hub_request_body_too_large_total"
	MetricNameRecomputeEnqueued       = "hub_recompute_jobs_enqueued_total"
	MetricNameRiverQueueDepth         = "hub_river_queue_depth"
)

// SpanSimilarityRun is the root span of one pipeline run.
const SpanSimilarityRun = "similarity.run"

// Attribute keys.
const (
	AttrReason   = "reason"
	AttrStatus   = "status"
	AttrStage    = "stage"
	AttrProvider = "provider"
	AttrResult   = "result"
)

// Pipeline stages, in execution order.
const (
	StageLoadCatalog = "load_catalog"
	StageNormalize   = "normalize"
	StageEmbed       = "embed"
	StageCompose     = "compose"
	StageNeighbors   = "neighbors"
	StageExport      = "export"
)

// AllowedStages for hub_similarity_stage_duration_seconds.
var AllowedStages = map[string]bool{
	StageLoadCatalog: true,
	StageNormalize:   true,
	StageEmbed:       true,
	StageCompose:     true,
	StageNeighbors:   true,
	StageExport:      true,
}

// AllowedRunStatuses for hub_similarity_runs_total.
var AllowedRunStatuses = map[string]bool{
	"success":   true,
	"failed":    true,
	"cancelled": true,
}

// AllowedEmbeddingStatuses for hub_embedding_requests_total.
var AllowedEmbeddingStatuses = map[string]bool{
	"success": true,
	"error":   true,
}

// AllowedProviders for the provider attribute on embedding metrics.
var AllowedProviders = map[string]bool{
	"openai":     true,
	"google":     true,
	"compatible": true,
	"mock":       true,
}

// AllowedCacheNames for hub_cache_hits_total and hub_cache_misses_total.
var AllowedCacheNames = map[string]bool{
	"similar_tracks": true,
	"track_info":     true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
