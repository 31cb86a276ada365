// Package app wires the service components together and runs the server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mdbin/mdbin/internal/config"
	"github.com/mdbin/mdbin/internal/db"
	"github.com/mdbin/mdbin/internal/docstore"
	internalhttp "github.com/mdbin/mdbin/internal/http"
	"github.com/mdbin/mdbin/internal/http/api/front"
	"github.com/mdbin/mdbin/internal/metrics"
	"github.com/mdbin/mdbin/internal/moderation"
	"github.com/mdbin/mdbin/internal/publish"
	"github.com/mdbin/mdbin/internal/quota"
	"github.com/mdbin/mdbin/internal/ratelimit"
	"github.com/mdbin/mdbin/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// settingsRefreshEvery is the interval between DB settings snapshot reloads.
const settingsRefreshEvery = time.Minute

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg *config.AppConfig) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the paste service and blocks until the context ends.
func RunServer(ctx context.Context, cfg *config.AppConfig) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("app: initial settings load failed, using defaults")
	}
	startSettingsRefresher(ctx, conn)

	limiter := buildLimiter(ctx, cfg)
	moderator := buildModerator(cfg)

	store := quota.NewStore(conn)
	quotaSvc := quota.NewService(store, quota.Config{
		DailyLimit:  cfg.Quota.DailyLimit,
		ResetWindow: cfg.Quota.ResetWindow(),
	})
	docs := docstore.NewStore(conn)
	publisher := publish.NewPublisher(quotaSvc, limiter, moderator, docs, publish.Config{
		MaxPayloadBytes: cfg.Publish.MaxPayloadBytes,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), internalhttp.RequestIDMiddleware())
	front.RegisterFrontRoutes(engine, publisher, quotaSvc, docs)
	engine.GET("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("app: listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("app: shutting down")
		return server.Shutdown(shutdownCtx)
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// startSettingsRefresher keeps the in-memory settings snapshot current.
func startSettingsRefresher(ctx context.Context, conn *gorm.DB) {
	ticker := time.NewTicker(settingsRefreshEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
					log.WithError(errRefresh).Warn("app: settings refresh failed")
				}
			}
		}
	}()
}

// buildLimiter selects the shared redis limiter when configured, otherwise an
// in-process one. An unreachable redis is kept anyway; the publish pipeline
// fails open until it recovers.
func buildLimiter(ctx context.Context, cfg *config.AppConfig) ratelimit.Limiter {
	perMinute := int64(cfg.Publish.RateLimitPerMinute)

	if cfg.Redis.Addr == "" {
		limiter := ratelimit.NewMemoryLimiter(perMinute)
		limiter.StartJanitor(ctx)
		return limiter
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warnf("app: redis unreachable at startup (addr=%s), rate limiting fails open until it recovers", cfg.Redis.Addr)
	}

	return ratelimit.NewRedisLimiter(client, perMinute)
}

// buildModerator chains the hosted moderation endpoint with the built-in
// pattern fallback. Without an endpoint only the patterns run.
func buildModerator(cfg *config.AppConfig) moderation.Moderator {
	// The built-in patterns always compile; only extra patterns can fail.
	patterns, _ := moderation.NewPatternModerator()
	if cfg.Moderation.Endpoint == "" {
		return patterns
	}

	hosted := moderation.NewHTTPModerator(cfg.Moderation.Endpoint, cfg.Moderation.APIKey, cfg.Moderation.ModerationTimeout())
	return &moderation.Fallback{Primary: hosted, Secondary: patterns}
}
