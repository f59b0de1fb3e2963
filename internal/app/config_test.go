package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigRequiresPipelinePath(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PipelinePath")
}

func TestNewConfigDefaultsBackendToMemory(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{PipelinePath: "ci.hcl"})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
}

func TestNewConfigValidatesBackendRequirements(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "local without data dir",
			cfg:  Config{PipelinePath: "ci.hcl", StoreBackend: BackendLocal},
			want: "DataDir is required",
		},
		{
			name: "s3 without bucket",
			cfg:  Config{PipelinePath: "ci.hcl", StoreBackend: BackendS3},
			want: "S3Bucket is required",
		},
		{
			name: "redis without addr",
			cfg:  Config{PipelinePath: "ci.hcl", StoreBackend: BackendRedis},
			want: "RedisAddr is required",
		},
		{
			name: "unknown backend",
			cfg:  Config{PipelinePath: "ci.hcl", StoreBackend: "tape"},
			want: "unknown store backend",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
