package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-console/internal/repository"
	"github.com/noah-isme/enrollment-console/internal/service"
	"github.com/noah-isme/enrollment-console/pkg/apiclient"
	"github.com/noah-isme/enrollment-console/pkg/cache"
	"github.com/noah-isme/enrollment-console/pkg/config"
)

// NewClient builds the backend client from configuration. When caching is enabled and
// Redis answers, collection reads go through the cache; an unreachable Redis only
// disables caching.
func NewClient(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logger *zap.Logger) *Bootstrap {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.Backend.Timeout),
		apiclient.WithLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, apiclient.WithObserver(metrics))
	}

	b := &Bootstrap{}
	if cfg.Cache.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("collection cache disabled", zap.Error(err))
		} else {
			b.cacheRepo = repository.NewCacheRepository(rdb, logger)
			cacheSvc := service.NewCacheService(b.cacheRepo, metrics, cfg.Cache.TTL, logger, true)
			opts = append(opts, apiclient.WithCache(cacheSvc, cfg.Cache.TTL))
			logger.Info("collection cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
		}
	}
	b.Client = apiclient.New(cfg.Backend.BaseURL, opts...)
	return b
}

// Bootstrap owns the backend client and its optional cache connection.
type Bootstrap struct {
	Client    *apiclient.Client
	cacheRepo *repository.CacheRepository
}

// Close releases idle connections and the cache client.
func (b *Bootstrap) Close() error {
	b.Client.Close()
	if b.cacheRepo != nil {
		return b.cacheRepo.Close()
	}
	return nil
}
