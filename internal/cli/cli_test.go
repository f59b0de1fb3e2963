package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/app"
	"github.com/vk/pipegridgo/internal/cli"
)

func TestParsePositionalPath(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{"ci.hcl"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "ci.hcl", cfg.PipelinePath)
	assert.Equal(t, app.BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.WorkerCount)
}

func TestParseFlagOverridesPositional(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{"--pipeline", "a.hcl", "b.hcl"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "a.hcl", cfg.PipelinePath)
}

func TestParseStoreSelection(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{
		"--store", "redis",
		"--redis-addr", "redis.internal:6380",
		"--redis-db", "3",
		"--store-prefix", "nightly",
		"ci.hcl",
	}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, app.BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "nightly", cfg.StorePrefix)
}

func TestParseDataDirFromEnv(t *testing.T) {
	t.Setenv("PIPEGRID_DATA_DIR", "/var/lib/pipegrid")

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{"--store", "local", "ci.hcl"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "/var/lib/pipegrid", cfg.DataDir)
}

func TestParseNoPathPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"log format", []string{"--log-format", "yaml", "ci.hcl"}, "invalid log-format"},
		{"log level", []string{"--log-level", "loud", "ci.hcl"}, "invalid log-level"},
		{"store backend", []string{"--store", "tape", "ci.hcl"}, "unknown store backend"},
		{"s3 without bucket", []string{"--store", "s3", "ci.hcl"}, "S3Bucket is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := &bytes.Buffer{}
			_, _, err := cli.Parse(tc.args, out)

			var exitErr *cli.ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
