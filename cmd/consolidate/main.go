// Command consolidate runs one end-to-end consolidation: it discovers region
// directories under INPUT_DIR, validates and reshapes every station CSV,
// consolidates each region, folds the regions into the national matrix and
// writes it to OUTPUT_PATH. Operational endpoints (/healthz, /readyz,
// /metrics, /summary) are served on HTTP_ADDR for the duration of the run.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/csvsink"
	"github.com/couchcryptid/groundwater-etl/internal/adapter/fssource"
	httpadapter "github.com/couchcryptid/groundwater-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/groundwater-etl/internal/adapter/kafka"
	"github.com/couchcryptid/groundwater-etl/internal/audit"
	"github.com/couchcryptid/groundwater-etl/internal/config"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/couchcryptid/groundwater-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	schemas, err := cfg.Schemas()
	if err != nil {
		logger.Error("failed to load region schemas", "error", err)
		return 1
	}

	runID := uuid.NewString()

	sinks, err := auditSinks(cfg, logger)
	if err != nil {
		logger.Error("failed to open audit sinks", "error", err)
		return 1
	}
	trail := audit.NewTrail(runID, sinks, logger, metrics)
	defer func() {
		if err := trail.Close(); err != nil {
			logger.Error("audit trail close error", "error", err)
		}
	}()

	source := fssource.New(cfg.InputDir, cfg.RegionDirPattern, logger)
	matrixSink := csvsink.New(cfg.OutputPath)

	p := pipeline.New(runID, source, trail, matrixSink, schemas, cfg.ConflictPolicy,
		logger, metrics, pipeline.Options{
			FileWorkers:   cfg.FileWorkers,
			RegionWorkers: cfg.RegionWorkers,
		})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	summary, err := p.Run(ctx)
	if err != nil {
		logger.Error("consolidation failed", "error", err, "run_id", runID)
		code = 1
	} else {
		srv.SetSummary(summary)
		reportSummary(logger, summary)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return code
}

// auditSinks builds the configured audit sinks; any combination of the
// JSONL file, the sqlite store and the Kafka publisher may be active.
func auditSinks(cfg *config.Config, logger *slog.Logger) ([]audit.Sink, error) {
	var sinks []audit.Sink

	if cfg.AuditPath != "" {
		s, err := audit.NewFileSink(cfg.AuditPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.AuditDB != "" {
		s, err := audit.NewSQLiteSink(cfg.AuditDB)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, logger))
		logger.Info("audit kafka publisher enabled", "topic", cfg.KafkaAuditTopic)
	}
	return sinks, nil
}

// reportSummary logs the per-region breakdown the way operators read it:
// usable ratios first, skipped regions called out explicitly.
func reportSummary(logger *slog.Logger, s pipeline.Summary) {
	for _, r := range s.Regions {
		attrs := []any{
			"region", r.Region,
			"files", r.Files,
			"accepted", r.Accepted,
			"usable_ratio", r.UsableRatio(),
			"warnings", r.Warnings,
			"conflicts", r.Conflicts,
		}
		for outcome, n := range r.Rejected {
			attrs = append(attrs, "rejected_"+string(outcome), n)
		}
		if r.Skipped {
			logger.Warn("region skipped", attrs...)
			continue
		}
		logger.Info("region report", attrs...)
	}
	logger.Info("run report",
		"run_id", s.RunID,
		"files", s.TotalFiles,
		"accepted", s.TotalAccepted,
		"conflicts", s.TotalConflicts,
		"matrix_dates", s.MatrixDates,
		"matrix_stations", s.MatrixStations,
		"skipped_regions", s.SkippedRegions,
		"duration", s.Duration,
	)
}
