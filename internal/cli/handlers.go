package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"finetl/internal/config"
	"finetl/internal/etl"
	"finetl/internal/extract"
	"finetl/internal/load"
	"finetl/internal/transform"
	"finetl/pkg/database"
	"finetl/pkg/logger"
)

const maxReportedErrors = 10

func runPipeline() error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	if cfg.LogFile != "" {
		if err := logger.InitLogger(cfg.LogFile); err != nil {
			return &ExitError{Code: 2, Err: fmt.Errorf("cannot open log file: %w", err)}
		}
		defer logger.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, oltpPath, err := newLoader(cfg)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	extractor := extract.NewFilingExtractor(cfg.SourceURI, cfg.Timeout)
	pipeline := etl.NewPipeline(extractor, transform.DefaultSteps(), loader, cfg.BatchSize, cfg.OnError, cfg.Timeout)

	res := pipeline.Run(ctx)
	res.Summary(os.Stderr, maxReportedErrors)

	switch res.State {
	case etl.StateCancelled:
		return &ExitError{Code: 3, Err: fmt.Errorf("run cancelled")}
	case etl.StateFailed:
		return &ExitError{Code: 1}
	}

	// Post-load: derive the star schema and verify it, when an OLAP
	// database is configured and the sink was the SQLite OLTP store.
	if cfg.OLAPURI != "" && oltpPath != "" {
		logger.Infof("OLAP build started")
		if err := load.BuildOLAP(ctx, cfg.OLAPURI, oltpPath); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		report, err := load.RunQualityChecks(ctx, cfg.OLAPURI, oltpPath)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		if !report.Clean() {
			logger.Warnf("Quality checks reported violations: %v", map[string]int(report))
		}
	}
	return nil
}

// newLoader dispatches on the SINK_URI scheme. The second return value is
// the SQLite OLTP path when that sink is selected, for the OLAP build.
func newLoader(cfg *config.Config) (etl.Loader, string, error) {
	uri := cfg.SinkURI
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		client, err := database.ConnectMongo(uri, cfg.Timeout)
		if err != nil {
			return nil, "", err
		}
		return load.NewMongoLoader(client), "", nil

	case strings.HasPrefix(uri, "sqlserver://"):
		db, err := database.ConnectSQLServer(uri, cfg.Timeout)
		if err != nil {
			return nil, "", err
		}
		loader, err := load.NewSQLServerLoader(db)
		if err != nil {
			db.Close()
			return nil, "", err
		}
		return loader, "", nil

	default:
		path := strings.TrimPrefix(uri, "sqlite://")
		db, err := database.ConnectSQLite(path)
		if err != nil {
			return nil, "", err
		}
		loader, err := load.NewSQLiteLoader(db)
		if err != nil {
			db.Close()
			return nil, "", err
		}
		return loader, path, nil
	}
}

func runOLAP() error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	oltpPath, err := sqlitePath(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	if err := load.BuildOLAP(context.Background(), cfg.OLAPURI, oltpPath); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}

func runQualityChecks() error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	oltpPath, err := sqlitePath(cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	report, err := load.RunQualityChecks(context.Background(), cfg.OLAPURI, oltpPath)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	if !report.Clean() {
		return &ExitError{Code: 1, Err: fmt.Errorf("quality checks reported violations: %v", map[string]int(report))}
	}
	return nil
}

func sqlitePath(cfg *config.Config) (string, error) {
	if cfg.OLAPURI == "" {
		return "", fmt.Errorf("config %s: required variable not set", config.EnvOLAPURI)
	}
	uri := cfg.SinkURI
	if strings.HasPrefix(uri, "mongodb") || strings.HasPrefix(uri, "sqlserver://") {
		return "", fmt.Errorf("OLAP build requires a SQLite %s", config.EnvSinkURI)
	}
	return strings.TrimPrefix(uri, "sqlite://"), nil
}
