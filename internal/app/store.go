package app

import (
	"context"
	"fmt"

	"github.com/vk/pipegridgo/internal/artifact"
	"github.com/vk/pipegridgo/internal/artifact/local"
	"github.com/vk/pipegridgo/internal/artifact/memory"
	"github.com/vk/pipegridgo/internal/artifact/redis"
	"github.com/vk/pipegridgo/internal/artifact/s3"
)

// openStore creates the artifact store backend named by the config. The
// caller owns the returned store and must close it.
func (a *App) openStore(ctx context.Context) (artifact.Store, error) {
	a.logger.Debug("Opening artifact store.", "backend", a.config.StoreBackend)

	switch a.config.StoreBackend {
	case "", BackendMemory:
		return memory.New(), nil

	case BackendLocal:
		return local.New(a.config.DataDir)

	case BackendS3:
		return s3.New(ctx, s3.Config{
			Bucket:   a.config.S3Bucket,
			Region:   a.config.S3Region,
			Endpoint: a.config.S3Endpoint,
		})

	case BackendRedis:
		return redis.New(redis.Config{
			Addr:     a.config.RedisAddr,
			Password: a.config.RedisPassword,
			DB:       a.config.RedisDB,
		}), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", a.config.StoreBackend)
	}
}
