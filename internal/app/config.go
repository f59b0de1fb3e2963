package app

import (
	"errors"
	"fmt"
)

// Store backend names accepted by Config.StoreBackend.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendRedis  = "redis"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl file or directory

	StoreBackend string // memory, local, s3, or redis
	StorePrefix  string // namespace prepended to every dataset ref
	DataDir      string // root directory for the local backend

	S3Bucket   string
	S3Region   string
	S3Endpoint string // non-empty for S3-compatible services

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LiveURL string // Socket.IO visualizer endpoint, empty disables the feed

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int // 0 falls back to the pipeline setting, then the built-in default
}

// NewConfig validates a Config and returns it, filling in backend defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}

	switch cfg.StoreBackend {
	case "":
		cfg.StoreBackend = BackendMemory
	case BackendMemory:
	case BackendLocal:
		if cfg.DataDir == "" {
			return nil, errors.New("DataDir is required for the local store backend")
		}
	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3Bucket is required for the s3 store backend")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("RedisAddr is required for the redis store backend")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q: must be 'memory', 'local', 's3', or 'redis'", cfg.StoreBackend)
	}

	return &cfg, nil
}
