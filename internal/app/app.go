package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"trawlscope/internal/aggregate"
	"trawlscope/internal/config"
	apierrors "trawlscope/internal/errors"
	"trawlscope/internal/exporter"
	"trawlscope/internal/infrastructure"
	"trawlscope/internal/loader"
	customMiddleware "trawlscope/internal/middleware"
	"trawlscope/internal/operations"
	"trawlscope/internal/services"
	"trawlscope/internal/survey"
	handlers "trawlscope/internal/transport/http"
	ws "trawlscope/internal/websocket"
	"trawlscope/pkg/contracts"
	"trawlscope/pkg/contracts/domain"
)

const (
	Version = contracts.Version
	AppName = "TrawlScope - Bottom Trawl Survey Explorer"
)

var (
	// BuildID identifies this build in health payloads.
	BuildID = generateBuildID()
)

// buildTime falls back to process start when ldflags did not stamp one.
func buildTime() string {
	if contracts.BuildTime != "unknown" {
		return contracts.BuildTime
	}
	return time.Now().Format(time.RFC3339)
}

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application wires configuration, the pipeline, services and transport into
// a runnable server.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	Store   *services.SnapshotStore
	Manager *operations.Manager
	Hub     *ws.Hub

	SpeciesService *services.SpeciesService
	DatasetService *services.DatasetService
	HealthService  *services.HealthService

	Scheduler     *Scheduler
	OTelProviders *infrastructure.OTelProviders
	SystemMetrics *infrastructure.SystemMetricsCollector

	snapshotLoader *loader.Loader
	engine         *aggregate.Engine
	paths          *config.Paths
}

// NewApplication builds the full dependency graph from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("build_id", BuildID))

	paths := cfg.ResolvedPaths()
	if paths == nil {
		return nil, fmt.Errorf("configuration paths were not resolved")
	}

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.ServiceName = "trawlscope"
	otelCfg.ServiceVersion = Version
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	var businessMetrics *infrastructure.BusinessMetrics
	var systemMetrics *infrastructure.SystemMetricsCollector
	if providers.Meter != nil {
		if businessMetrics, err = infrastructure.CreateBusinessMetrics(providers.Meter); err != nil {
			logger.Warn("business metrics unavailable", slog.String("error", err.Error()))
			businessMetrics = nil
		}
		if systemMetrics, err = infrastructure.NewSystemMetricsCollector(providers.Meter, 30*time.Second); err != nil {
			logger.Warn("system metrics unavailable", slog.String("error", err.Error()))
			systemMetrics = nil
		}
	}

	// Pipeline components.
	snapshotLoader := loader.New(logger)
	pipeline := survey.NewPipeline(logger)
	engine := aggregate.NewEngine(logger, cfg.Pipeline.Parallelism)
	csvWriter := exporter.NewCSVWriter(logger, cfg.Pipeline.WriteBOM)
	snapshotExporter := exporter.NewSnapshotExporter(csvWriter)
	store := services.NewSnapshotStore(logger)

	steps := []operations.Step{
		operations.NewLoadStep(snapshotLoader, paths, cfg.Pipeline.RawFormat, logger),
		operations.NewCleanStep(pipeline, logger),
		operations.NewAggregateStep(engine, logger),
		operations.NewExportStep(snapshotExporter, paths, logger),
		operations.NewPublishStep(store, logger),
	}

	manager := operations.NewManager(logger, steps, &operations.ManagerOptions{
		Metrics: businessMetrics,
		Timeout: cfg.Pipeline.RunTimeout,
	})

	hub := ws.NewHub(logger)
	manager.OnProgress(func(p domain.RunProgress) {
		hub.BroadcastRunProgress(p)

		// Terminal completion event: tell dashboards to reload.
		if p.Status == domain.RunStatusCompleted && p.StepID == "" {
			if records, err := store.Records(); err == nil {
				hub.BroadcastDatasetRefreshed(len(records), countSpecies(records))
			}
		}
	})

	app := &Application{
		Config:         cfg,
		Logger:         logger,
		Store:          store,
		Manager:        manager,
		Hub:            hub,
		SpeciesService: services.NewSpeciesService(store, logger),
		DatasetService: services.NewDatasetService(store, paths, logger),
		HealthService:  services.NewHealthService(Version, buildTime(), BuildID, paths, store, manager, hub, logger),
		OTelProviders:  providers,
		SystemMetrics:  systemMetrics,
		snapshotLoader: snapshotLoader,
		engine:         engine,
		paths:          paths,
	}

	if cfg.Scheduler.Enabled {
		app.Scheduler = NewScheduler(cfg.Scheduler, manager, logger)
	}

	app.setupRouter()

	app.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        app.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return app, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware only; anything that wraps the ResponseWriter
	// breaks the WebSocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Prometheus scrape endpoint stays outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		if a.OTelProviders.Tracer != nil && a.OTelProviders.Meter != nil {
			if otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders); err != nil {
				a.Logger.Error("failed to create otel middleware", slog.String("error", err.Error()))
			} else {
				r.Use(otelMiddleware.Handler)
			}
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupWebRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes mounts the JSON API.
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
			r.Get("/stats", healthHandler.Stats)

			speciesHandler := handlers.NewSpeciesHandler(a.SpeciesService, a.Logger, errorHandler)
			r.Mount("/species", speciesHandler.Routes())

			datasetHandler := handlers.NewDatasetHandler(a.DatasetService, a.Logger, errorHandler)
			r.Mount("/dataset", datasetHandler.Routes())

			// Refresh responds 202 immediately; the run itself executes on
			// a detached context, so the request timeout is safe here.
			operationsHandler := handlers.NewOperationsHandler(a.Manager, a.Logger, errorHandler)
			r.Mount("/operations", operationsHandler.Routes())
		})
	})
}

// setupWebRoutes serves the dashboard page and its static assets.
func (a *Application) setupWebRoutes(r chi.Router) {
	webDir := a.Config.Paths.WebDir
	r.Get("/", handlers.ServeDashboard(webDir))
	r.Handle("/static/*", handlers.StaticAssets(webDir))
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// handleWebSocket upgrades the connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range a.Config.Security.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.Warn("websocket origin rejected",
				slog.String("origin", origin))
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Error("websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	a.Logger.Info("websocket client connected",
		slog.String("remote_addr", r.RemoteAddr))

	ws.ServeWS(a.Hub, conn, a.Logger, ws.Options{
		PingPeriod: a.Config.WebSocket.PingPeriod,
		PongWait:   a.Config.WebSocket.PongWait,
	})
}

// Start launches background services and the HTTP server. A server error
// cancels the supplied context via cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.paths.DataDir))

	a.Hub.Start()

	if a.SystemMetrics != nil {
		a.SystemMetrics.Start(ctx)
	}

	if a.Scheduler != nil {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// A previous run's snapshot makes the API usable immediately.
	a.restoreSnapshot(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.logStartupState(ctx)

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop shuts the application down gracefully.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	a.Hub.Stop()

	if a.SystemMetrics != nil {
		a.SystemMetrics.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	// Last: anything logged after this point would go to a closed file.
	a.Logger.InfoContext(ctx, "shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run starts the application and blocks until an interrupt or server error.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// restoreSnapshot republishes the cleaned snapshot from a previous run so
// the API serves data across restarts. Missing snapshots are not an error.
func (a *Application) restoreSnapshot(ctx context.Context) {
	records, err := a.snapshotLoader.CleanSnapshot(ctx, a.paths.CleanSnapshot)
	if err != nil {
		a.Logger.InfoContext(ctx, "no snapshot to restore",
			slog.String("path", a.paths.CleanSnapshot),
			slog.String("reason", err.Error()))
		return
	}
	if len(records) == 0 {
		return
	}

	annual, err := a.engine.Aggregate(ctx, records, domain.GroupAnnual)
	if err != nil {
		a.Logger.WarnContext(ctx, "snapshot restore failed during annual aggregation",
			slog.String("error", err.Error()))
		return
	}
	seasonal, err := a.engine.Aggregate(ctx, records, domain.GroupSeasonal)
	if err != nil {
		a.Logger.WarnContext(ctx, "snapshot restore failed during seasonal aggregation",
			slog.String("error", err.Error()))
		return
	}

	audit := domain.CleaningAudit{
		CleanRows:       len(records),
		SpeciesEligible: countSpecies(records),
		SnapshotRef:     a.paths.CleanSnapshot,
		StartedAt:       time.Now(),
	}
	a.Store.PublishDataset(records, annual, seasonal, audit)

	a.Logger.InfoContext(ctx, "snapshot restored",
		slog.Int("records", len(records)),
		slog.Int("species", audit.SpeciesEligible))
}

// logStartupState surfaces missing inputs early instead of at first run.
func (a *Application) logStartupState(ctx context.Context) {
	if _, err := os.Stat(a.paths.RawSnapshot); err != nil {
		a.Logger.WarnContext(ctx, "raw snapshot missing, pipeline runs will fail until it is provided",
			slog.String("path", a.paths.RawSnapshot))
	}
	if _, err := os.Stat(a.paths.SpeciesCodes); err != nil {
		a.Logger.WarnContext(ctx, "species reference list missing, display names will fall back to codes",
			slog.String("path", a.paths.SpeciesCodes))
	}
	if _, err := os.Stat(a.paths.WebDir); err != nil {
		a.Logger.WarnContext(ctx, "web directory missing, dashboard will not be served",
			slog.String("path", a.paths.WebDir))
	}
}

func countSpecies(records []domain.CleanedBiomassRecord) int {
	seen := make(map[string]struct{}, 64)
	for _, r := range records {
		seen[r.CommonName] = struct{}{}
	}
	return len(seen)
}
