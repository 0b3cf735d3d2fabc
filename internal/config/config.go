// Package config resolves pipeline settings from environment variables
// into an immutable snapshot created once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"finetl/internal/etl"
)

// Environment variables consumed by Load. SOURCE_URI and SINK_URI are
// required; the rest have defaults.
const (
	EnvSourceURI      = "SOURCE_URI"
	EnvSinkURI        = "SINK_URI"
	EnvOLAPURI        = "OLAP_URI"
	EnvOnError        = "ON_ERROR"
	EnvTimeoutSeconds = "TIMEOUT_SECONDS"
	EnvBatchSize      = "BATCH_SIZE"
	EnvLogFile        = "LOG_FILE"
)

// ConfigError marks an unrecoverable pre-run configuration failure. The
// process exits with code 2 when one is returned.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds all settings for one pipeline run. It is never mutated
// after Load returns.
type Config struct {
	// SourceURI points at the source list file: one filing path per line,
	// blank lines and # comments ignored.
	SourceURI string
	// SinkURI selects the sink by scheme: a plain path or sqlite:// for
	// the SQLite OLTP database, mongodb:// for a document sink,
	// sqlserver:// for SQL Server.
	SinkURI string
	// OLAPURI, when set, is the SQLite database the OLAP star schema is
	// built into after a successful load.
	OLAPURI   string
	OnError   etl.ErrorPolicy
	Timeout   time.Duration
	BatchSize int
	LogFile   string
}

// Load reads and validates the environment. It is a pure function of the
// process environment with no other side effects.
func Load() (*Config, error) {
	cfg := &Config{
		SourceURI: os.Getenv(EnvSourceURI),
		SinkURI:   os.Getenv(EnvSinkURI),
		OLAPURI:   os.Getenv(EnvOLAPURI),
		LogFile:   os.Getenv(EnvLogFile),
		OnError:   etl.PolicyFail,
		Timeout:   30 * time.Second,
		BatchSize: 100,
	}

	if cfg.SourceURI == "" {
		return nil, &ConfigError{Key: EnvSourceURI, Err: fmt.Errorf("required variable not set")}
	}
	if cfg.SinkURI == "" {
		return nil, &ConfigError{Key: EnvSinkURI, Err: fmt.Errorf("required variable not set")}
	}

	if v := os.Getenv(EnvOnError); v != "" {
		policy, err := etl.ParsePolicy(v)
		if err != nil {
			return nil, &ConfigError{Key: EnvOnError, Err: err}
		}
		cfg.OnError = policy
	}

	if v := os.Getenv(EnvTimeoutSeconds); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, &ConfigError{Key: EnvTimeoutSeconds, Err: fmt.Errorf("want a positive integer, got %q", v)}
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, &ConfigError{Key: EnvBatchSize, Err: fmt.Errorf("want a positive integer, got %q", v)}
		}
		cfg.BatchSize = n
	}

	return cfg, nil
}
