package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quangtm/stashsync/internal/api"
	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/config"
	"github.com/quangtm/stashsync/internal/health"
	"github.com/quangtm/stashsync/internal/infra/redis"
	"github.com/quangtm/stashsync/internal/infra/storage/sqlite"
	"github.com/quangtm/stashsync/internal/intent"
	"github.com/quangtm/stashsync/internal/mutation"
	"github.com/quangtm/stashsync/internal/session"
	"github.com/quangtm/stashsync/internal/telemetry"
)

// Agent wires the data-access stack together: session, API client, cache
// store, mutation coordinator, intent queue, refresher, and the
// health/metrics server.
type Agent struct {
	cfg     config.AppConfig
	client  *api.Client
	session session.Store
	store   cache.Store
	coord   *mutation.Coordinator
	queue   *intent.Queue

	db           *sqlite.DB
	redisStore   *redis.Store
	healthServer *health.Server
	refresher    *Refresher
	cancel       context.CancelFunc
}

// NewAgent creates an Agent with all dependencies initialized. Storage
// selection: Redis when configured (shared daemon cache), else SQLite when a
// path is configured (single device, survives restarts), else memory.
func NewAgent(cfg config.AppConfig) (*Agent, error) {
	a := &Agent{cfg: cfg}

	// 1. Session + region storage
	var checks []health.Check
	if cfg.Storage.Path != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := sqlite.NewDB(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to init storage: %w", err)
		}
		a.db = db

		sess, err := sqlite.NewSessionRepo(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		a.session = sess
		a.store = sqlite.NewRegionRepo(db)
		checks = append(checks, health.Check{Name: "sqlite", Probe: db.PingContext})
		slog.Info("Using SQLite storage", "path", cfg.Storage.Path)
	} else {
		a.session = session.NewMemoryStore("")
		a.store = cache.NewMemoryStore()
		slog.Info("Using in-memory storage")
	}

	if cfg.Redis.URL != "" {
		rs, err := redis.NewStore(cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisStore = rs
		a.store = rs
		checks = append(checks, health.Check{Name: "redis", Probe: rs.Ping})
		slog.Info("Using Redis region store")
	}

	// 2. API client
	a.client = api.NewClient(cfg.API.BaseURL, a.session,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Std()}),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithPolicy(api.Policy{
			BaseDelay: cfg.API.RetryBaseDelay.Std(),
			MaxDelay:  cfg.API.RetryMaxDelay.Std(),
		}),
		api.WithTelemetry(telemetry.NewLogSink(nil)),
		api.WithSessionExpired(func() {
			slog.Warn("Session ended, sign-in required")
		}),
	)

	// 3. Coordinator, intent queue, workers
	a.coord = mutation.New(a.store)
	a.queue = intent.New(a.importEntry)
	a.refresher = NewRefresher(a, 30*time.Second)
	a.healthServer = health.NewServer(cfg.Server.Port, checks...)

	return a, nil
}

// SignIn stores a bearer credential obtained by the external auth flow.
func (a *Agent) SignIn(token string) {
	a.session.Set(token)
}

// Start launches the health server and the region refresher.
func (a *Agent) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	go func() {
		slog.Info("Health server listening", "port", a.cfg.Server.Port)
		if err := a.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server failed", "error", err)
		}
	}()

	go a.refresher.Start(ctx)
	return nil
}

// Stop shuts the agent down, waiting for in-flight intents to drain.
func (a *Agent) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.queue.Wait()

	if err := a.healthServer.Stop(ctx); err != nil {
		slog.Warn("Health server shutdown failed", "error", err)
	}
	a.close()
	slog.Info("Agent stopped")
	return nil
}

func (a *Agent) close() {
	if a.redisStore != nil {
		if err := a.redisStore.Close(); err != nil {
			slog.Warn("Failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
}
