package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/pipegridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pipegridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
PipeGridGo - a declarative pipeline runner backed by a namespaced artifact store.

Usage:
  pipegridgo [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	storeFlag := flagSet.String("store", "memory", "Artifact store backend. Options: 'memory', 'local', 's3', 'redis'.")
	storePrefixFlag := flagSet.String("store-prefix", "", "Namespace prefix prepended to every dataset ref.")
	dataDirFlag := flagSet.String("data-dir", defaultDataDir(), "Root directory for the local store backend.")
	s3BucketFlag := flagSet.String("s3-bucket", "", "Bucket for the s3 store backend.")
	s3RegionFlag := flagSet.String("s3-region", "", "Region for the s3 store backend. Defaults to the AWS environment.")
	s3EndpointFlag := flagSet.String("s3-endpoint", "", "Custom endpoint for S3-compatible services.")
	redisAddrFlag := flagSet.String("redis-addr", "localhost:6379", "Address for the redis store backend.")
	redisPasswordFlag := flagSet.String("redis-password", "", "Password for the redis store backend.")
	redisDBFlag := flagSet.Int("redis-db", 0, "Database number for the redis store backend.")
	liveURLFlag := flagSet.String("live-url", "", "Socket.IO endpoint to stream run events to. Empty disables the feed.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent workers. 0 uses the pipeline setting or the built-in default.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Pipeline path determined.", "path", path)

	if path == "" {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PipelinePath:    path,
		StoreBackend:    strings.ToLower(*storeFlag),
		StorePrefix:     *storePrefixFlag,
		DataDir:         *dataDirFlag,
		S3Bucket:        *s3BucketFlag,
		S3Region:        *s3RegionFlag,
		S3Endpoint:      *s3EndpointFlag,
		RedisAddr:       *redisAddrFlag,
		RedisPassword:   *redisPasswordFlag,
		RedisDB:         *redisDBFlag,
		LiveURL:         *liveURLFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// defaultDataDir resolves the local-store root: the PIPEGRID_DATA_DIR
// environment variable when set, otherwise a dotted directory in the
// working directory.
func defaultDataDir() string {
	if dir := os.Getenv("PIPEGRID_DATA_DIR"); dir != "" {
		return dir
	}
	return ".pipegrid"
}
