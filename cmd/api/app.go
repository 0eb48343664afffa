package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/soundgraph/hub/internal/api/handlers"
	"github.com/soundgraph/hub/internal/api/middleware"
	"github.com/soundgraph/hub/internal/bootstrap"
	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/internal/jobs"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/internal/observability"
	"github.com/soundgraph/hub/internal/repository"
	"github.com/soundgraph/hub/internal/service"
	"github.com/soundgraph/hub/pkg/cache"
)

const (
	serviceName             = "soundgraph-api"
	riverQueueDepthInterval = 15 * time.Second
	// maxRequestBodyBytes bounds POST bodies; the only one is the small recompute request.
	maxRequestBodyBytes = 64 << 10
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg    *config.Config
	db     *pgxpool.Pool
	server *http.Server
	river  *river.Client[pgx.Tx]
	obs    *bootstrap.Observability
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	obs, err := bootstrap.SetupObservability(cfg, serviceName)
	if err != nil {
		return nil, err
	}

	app, err := newApp(ctx, cfg, db, obs)
	if err != nil {
		if err2 := obs.Shutdown(context.Background()); err2 != nil {
			slog.Error("shutdown observability after init error", "error", err2)
		}

		return nil, err
	}

	return app, nil
}

func newApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, obs *bootstrap.Observability) (*App, error) {
	var (
		cacheMetrics observability.CacheMetrics
		apiMetrics   observability.APIMetrics
		jobMetrics   observability.JobMetrics
	)

	if obs.Metrics != nil {
		cacheMetrics = obs.Metrics.Cache
		apiMetrics = obs.Metrics.API
		jobMetrics = obs.Metrics.Jobs
	}

	similarCache, err := cache.NewLoaderCache[service.SimilarKey, *models.SimilarTracksResponse](
		cfg.SimilarCacheSize, cfg.SimilarCacheTTL, service.SimilarKey.String)
	if err != nil {
		return nil, fmt.Errorf("create similar tracks cache: %w", err)
	}

	infoCache, err := cache.NewLoaderCache[string, *models.TrackInfo](
		cfg.SimilarCacheSize, cfg.SimilarCacheTTL, func(id string) string { return id })
	if err != nil {
		return nil, fmt.Errorf("create track info cache: %w", err)
	}

	similarityRepo := repository.NewSimilarityRepository(db)
	tracksService := service.NewTracksService(service.TracksServiceParams{
		Tracks:       repository.NewTracksRepository(db),
		Similarity:   similarityRepo,
		SimilarCache: similarCache,
		InfoCache:    infoCache,
		CacheMetrics: cacheMetrics,
	})

	pipeline, err := bootstrap.NewSimilarityPipeline(ctx, cfg, db, obs)
	if err != nil {
		return nil, fmt.Errorf("create similarity pipeline: %w", err)
	}

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, jobs.NewRecomputeWorker(jobs.RecomputeWorkerDeps{
		Pipeline: pipeline,
		Purger:   tracksService,
		Timeout:  cfg.SimilarityTimeout,
	}))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			// One worker: at most one run writes the edge set at a time.
			jobs.QueueSimilarity: {MaxWorkers: 1},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{},
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	inserter := jobs.NewRiverJobInserter(riverClient, jobMetrics)

	server := newHTTPServer(cfg, obs, apiMetrics,
		handlers.NewHealthHandler(),
		handlers.NewTracksHandler(tracksService),
		handlers.NewSimilarityRunsHandler(inserter, tracksService),
	)

	return &App{
		cfg:    cfg,
		db:     db,
		server: server,
		river:  riverClient,
		obs:    obs,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and /metrics, API key on /v1/).
// Handler chain: RequestID -> otelhttp(Logging(mux)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	obs *bootstrap.Observability,
	apiMetrics observability.APIMetrics,
	health *handlers.HealthHandler,
	tracks *handlers.TracksHandler,
	runs *handlers.SimilarityRunsHandler,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)

	if obs.MetricsHandler != nil {
		public.Handle("GET /metrics", obs.MetricsHandler)
	}

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/tracks", tracks.List)
	protected.HandleFunc("GET /v1/tracks/{id}", tracks.Get)
	protected.HandleFunc("GET /v1/tracks/{id}/similar", tracks.Similar)

	protected.HandleFunc("POST /v1/similarity/runs", runs.Enqueue)
	protected.HandleFunc("GET /v1/similarity/runs/latest", runs.Latest)

	var bodyRecorder middleware.RequestBodyTooLargeRecorder
	if apiMetrics != nil {
		bodyRecorder = apiMetrics
	}

	protectedWithAuth := middleware.MaxBody(maxRequestBodyBytes, bodyRecorder)(middleware.Auth(cfg.APIKey)(protected))
	mux := http.NewServeMux()
	mux.Handle("/v1/", protectedWithAuth)
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if obs.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(obs.MeterProvider))
	}

	if obs.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(obs.TracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log (trace_id/span_id in access logs).
	inner := middleware.Logging(mux)
	handler := otelhttp.NewHandler(inner, serviceName, otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 15 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. When ctx is cancelled or a component fails, it cancels the internal
// River context so River and the queue depth poller stop before Run returns. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.obs.Metrics != nil && a.obs.Metrics.Jobs != nil {
		go runRiverQueueDepthPoller(riverCtx, a.db, a.obs.Metrics.Jobs)
	}

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runRiverQueueDepthPoller periodically updates the similarity queue depth gauge.
func runRiverQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, jobMetrics observability.JobMetrics) {
	ticker := time.NewTicker(riverQueueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			jobs.QueueSimilarity,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		jobMetrics.SetRiverQueueDepth(count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// Shutdown stops the server and River in order. Call after Run returns.
// Observability is shut down once via defer; its error is returned only when server and River shut down successfully.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := a.obs.Shutdown(ctx)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
