package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warmline/warmline/api/handlers"
	"github.com/warmline/warmline/config"
	"github.com/warmline/warmline/directory"
	"github.com/warmline/warmline/internal/cache"
	"github.com/warmline/warmline/internal/database"
	"github.com/warmline/warmline/internal/metrics"
	"github.com/warmline/warmline/internal/server"
	"github.com/warmline/warmline/internal/telemetry"
	"github.com/warmline/warmline/notify"
	"github.com/warmline/warmline/room"
	"github.com/warmline/warmline/store"
	"github.com/warmline/warmline/summary"
	"github.com/warmline/warmline/transfer"
)

// gaugeRefreshInterval is how often the active-transfer and
// connected-operator gauges are resampled.
const gaugeRefreshInterval = 15 * time.Second

// summaryCacheTTL bounds how long a briefing summary may be reused for
// repeated transfers of the same call.
const summaryCacheTTL = 30 * time.Minute

// roomSweepInterval is how often stale briefing rooms are reaped.
const roomSweepInterval = time.Hour

// Server assembles the warmline dependency graph and owns its lifecycle.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector    *metrics.Collector
	telemetry    *telemetry.Providers
	dbManager    *database.Manager
	presence     *directory.Presence
	summaryCache *cache.Manager
	hub          *notify.Hub
	orchestrator *transfer.Orchestrator

	bgCancel context.CancelFunc
}

// NewServer creates a Server; nothing is started until Start.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start brings up every component: telemetry, the durable store, the
// presence store, the orchestrator, the HTTP API, and the metrics
// endpoint. On error everything already started is torn down.
func (s *Server) Start() error {
	bgCtx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.collector = metrics.NewCollector("warmline")

	providers, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.teardown()
		return fmt.Errorf("init telemetry: %w", err)
	}
	s.telemetry = providers

	db, err := store.Open(s.cfg.Database, store.DefaultPoolConfig(), s.logger)
	if err != nil {
		s.teardown()
		return fmt.Errorf("open database: %w", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		s.teardown()
		return fmt.Errorf("migrate database: %w", err)
	}
	s.dbManager, err = database.NewManager(db, 30*time.Second, s.logger)
	if err != nil {
		s.teardown()
		return fmt.Errorf("init database manager: %w", err)
	}
	st := store.New(db, s.logger)

	// Presence is optional at runtime. Without Redis the directory falls
	// back to persisted operator status.
	pingCtx, pingCancel := context.WithTimeout(bgCtx, 5*time.Second)
	presence, err := directory.NewPresence(pingCtx, s.cfg.Redis, s.cfg.Directory.HeartbeatTTL)
	pingCancel()
	if err != nil {
		s.logger.Warn("presence store unavailable, using persisted operator status",
			zap.String("addr", s.cfg.Redis.Addr), zap.Error(err))
		presence = nil
	}
	s.presence = presence

	dir := directory.New(db, presence, s.logger)
	s.hub = notify.NewHub(s.logger)
	rooms := room.NewClient(s.cfg.Room, s.logger)

	summaryClient := summary.NewClient(s.cfg.Summarizer, s.logger)
	var summarizer transfer.Summarizer = summaryClient
	if presence != nil {
		cacheCtx, cacheCancel := context.WithTimeout(bgCtx, 5*time.Second)
		cm, err := cache.New(cacheCtx, s.cfg.Redis, summaryCacheTTL, s.logger)
		cacheCancel()
		if err != nil {
			s.logger.Warn("summary cache unavailable", zap.Error(err))
		} else {
			s.summaryCache = cm
			summarizer = summary.NewCached(summarizer, cm, summaryCacheTTL, s.logger)
		}
	}

	s.orchestrator = transfer.NewOrchestrator(
		transfer.Deps{
			Rooms:      rooms,
			Summarizer: summarizer,
			Notifier:   s.hub,
			Directory:  dir,
			Recorder:   st,
			Metrics:    s.collector,
			Fallback:   summary.Fallback,
		},
		transfer.Config{
			Timeout:                     s.cfg.Transfer.Timeout,
			SummaryTimeout:              s.cfg.Transfer.SummaryTimeout,
			BriefingRoomMaxParticipants: s.cfg.Transfer.BriefingRoomMaxParticipants,
			MaxConcurrent:               s.cfg.Transfer.MaxConcurrent,
		},
		s.logger,
	)

	health := handlers.NewHealthHandler(s.logger)
	health.RegisterCheck(handlers.NewPingCheck("database", s.dbManager.Ping))
	if presence != nil {
		health.RegisterCheck(handlers.NewPingCheck("presence", func(ctx context.Context) error {
			_, err := presence.Online(ctx, "healthcheck")
			return err
		}))
	}

	router := &handlers.Router{
		Transfer:  handlers.NewTransferHandler(s.orchestrator, summaryClient, s.logger),
		Operator:  handlers.NewOperatorHandler(st, dir, s.logger),
		Call:      handlers.NewCallHandler(st, s.logger),
		Analytics: handlers.NewAnalyticsHandler(st, s.logger),
		Health:    health,
		WS:        handlers.NewWSHandler(s.hub, dir, s.logger),
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}

	if err := s.startHTTPServer(bgCtx, router); err != nil {
		s.teardown()
		return err
	}
	if err := s.startMetricsServer(); err != nil {
		s.teardown()
		return err
	}

	go s.refreshGauges(bgCtx)
	if s.cfg.Room.BaseURL != "" {
		go s.sweepStaleRooms(bgCtx, rooms)
	}

	s.logger.Info("warmline started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("database", s.cfg.Database.Driver),
		zap.Bool("presence", presence != nil),
	)
	return nil
}

// skipAuthPaths are served without an API key.
var skipAuthPaths = []string{"/health", "/ready", "/version"}

func (s *Server) startHTTPServer(ctx context.Context, router *handlers.Router) error {
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	middlewares = append(middlewares,
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger),
	)
	handler := Chain(router.Mux(), middlewares...)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := newMetricsMux(s.collector)
	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 5 * time.Second,
	}, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	return nil
}

// newMetricsMux serves the Prometheus exposition endpoint plus a bare
// liveness probe for the metrics listener itself.
func newMetricsMux(collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", collector.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// refreshGauges periodically resamples the working-set gauges.
func (s *Server) refreshGauges(ctx context.Context) {
	ticker := time.NewTicker(gaugeRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collector.SetActiveTransfers(len(s.orchestrator.ListActive()))
			s.collector.SetConnectedOperators(s.hub.ConnectedRecipients())
		}
	}
}

// sweepStaleRooms reaps briefing rooms the orchestrator never got to
// delete, for example after a crash mid-transfer.
func (s *Server) sweepStaleRooms(ctx context.Context, rooms *room.Client) {
	ticker := time.NewTicker(roomSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := rooms.CleanupStale(sweepCtx)
			cancel()
			if err != nil {
				s.logger.Warn("stale room sweep failed", zap.Error(err))
			} else if removed > 0 {
				s.logger.Info("stale rooms removed", zap.Int("count", removed))
			}
		}
	}
}

// WaitForShutdown blocks until a termination signal or a server error,
// then shuts everything down.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	s.Shutdown()
}

// Shutdown stops components in reverse dependency order: listeners
// first so no new work arrives, then the orchestrator and its
// collaborators.
func (s *Server) Shutdown() {
	s.logger.Info("shutting down warmline")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Manager.Shutdown is idempotent, so this is safe after
	// WaitForShutdown already stopped the HTTP listener.
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Warn("http server shutdown failed", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	s.teardownWithContext(ctx)
	s.logger.Info("shutdown complete")
}

// teardown releases whatever Start managed to bring up.
func (s *Server) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.teardownWithContext(ctx)
}

func (s *Server) teardownWithContext(ctx context.Context) {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
	if s.hub != nil {
		s.hub.CloseAll()
	}
	if s.summaryCache != nil {
		if err := s.summaryCache.Close(); err != nil {
			s.logger.Warn("summary cache close failed", zap.Error(err))
		}
	}
	if s.presence != nil {
		if err := s.presence.Close(); err != nil {
			s.logger.Warn("presence close failed", zap.Error(err))
		}
	}
	if s.dbManager != nil {
		if err := s.dbManager.Close(); err != nil {
			s.logger.Warn("database close failed", zap.Error(err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
}
