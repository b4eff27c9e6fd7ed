// Package app assembles the inference service and its dependencies from
// configuration. The HTTP and MCP entry points share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/api"
	"github.com/medguard-inference-server/internal/cache"
	"github.com/medguard-inference-server/internal/catalog"
	"github.com/medguard-inference-server/internal/config"
	"github.com/medguard-inference-server/internal/database"
	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
	"github.com/medguard-inference-server/internal/middleware"
	"github.com/medguard-inference-server/internal/service"
)

// App holds the wired components. Close releases them.
type App struct {
	Config    *domain.Config
	Logger    *logrus.Logger
	Knowledge *knowledge.Base
	Service   *service.DiagnosisService
	Cache     *cache.Tiered

	redis *cache.RedisCache
	db    *database.DB
}

// New loads the knowledge base and builds the service. Logs go to logOut.
func New(ctx context.Context, cfg *domain.Config, logOut io.Writer) (*App, error) {
	logger := config.NewLogger(cfg.Logging, logOut)
	a := &App{Config: cfg, Logger: logger}

	kb, err := catalog.LoadKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Knowledge = kb

	var resultCache domain.ResultCache
	if cfg.Cache.Enabled {
		memory, err := cache.NewMemoryCache(cfg.Cache.MemorySize, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}

		if cfg.Cache.RedisURL != "" {
			redis, err := cache.NewRedisCache(cfg.Cache, logger)
			if err != nil {
				// Redis is an optional tier.
				logger.WithError(err).Warn("Redis cache unavailable, using memory cache only")
			} else {
				a.redis = redis
			}
		}

		a.Cache = cache.NewTiered(memory, a.redis, logger)
		resultCache = a.Cache
	}

	if cfg.Knowledge.Source == domain.SourcePostgres {
		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
	}

	a.Service = service.NewDiagnosisService(logger, service.NewEngine(kb), resultCache)

	logger.WithFields(logrus.Fields{
		"knowledge_source": sourceName(cfg),
		"cache_enabled":    cfg.Cache.Enabled,
		"redis":            a.redis != nil,
	}).Info("Inference service ready")

	return a, nil
}

// Readiness returns the dependency probes for /ready.
func (a *App) Readiness() map[string]api.HealthCheck {
	checks := make(map[string]api.HealthCheck)
	if a.db != nil {
		checks["database"] = a.db.Health
		checks["knowledge_base"] = catalogCheck(a.db, a.Knowledge.Version())
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// APIOptions builds the HTTP server options for this app.
func (a *App) APIOptions(limiter *middleware.RateLimiter) api.Options {
	opts := api.Options{
		RateLimiter: limiter,
		Readiness:   a.Readiness(),
	}
	if a.Cache != nil {
		opts.CacheStats = a.Cache.Stats
	}
	return opts
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close cache")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

type catalogVersioner interface {
	CatalogVersion(ctx context.Context) (string, error)
}

// catalogCheck fails when the database catalog no longer matches the one
// loaded at startup, for example after a reseed.
func catalogCheck(db catalogVersioner, served string) api.HealthCheck {
	return func(ctx context.Context) error {
		stored, err := db.CatalogVersion(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: database holds no catalog", domain.ErrStaleKnowledgeBase)
		}
		if err != nil {
			return err
		}
		if stored != served {
			return fmt.Errorf("%w: database holds %q, serving %q", domain.ErrStaleKnowledgeBase, stored, served)
		}
		return nil
	}
}

func sourceName(cfg *domain.Config) string {
	if cfg.Knowledge.Source == "" {
		return domain.SourceBuiltin
	}
	return cfg.Knowledge.Source
}
