// Package pipeline orchestrates the consolidation run: validate and reshape
// raw files in parallel, consolidate each region, and fold region tables
// into the national matrix one at a time.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
)

// FileSource supplies raw files grouped by region.
type FileSource interface {
	Regions(ctx context.Context) ([]string, error)
	Files(ctx context.Context, region string) ([]domain.RawFile, error)
}

// AuditRecorder receives the disposition of every inspected file.
type AuditRecorder interface {
	Record(v domain.ValidationVerdict)
}

// MatrixSink persists a completed national matrix.
type MatrixSink interface {
	Write(matrix domain.NationalMatrix) error
}

// Options bound the pipeline's parallelism.
type Options struct {
	// FileWorkers bounds concurrent validate+reshape work within a region.
	FileWorkers int
	// RegionWorkers bounds how many regions consolidate at once. Folding
	// into the national matrix is always a single consumer.
	RegionWorkers int
}

// Pipeline runs one end-to-end consolidation.
type Pipeline struct {
	source  FileSource
	auditor AuditRecorder
	sink    MatrixSink
	schemas domain.SchemaSet
	policy  domain.ConflictPolicy
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options
	runID   string
	ready   atomic.Bool
}

// New creates a Pipeline with the given collaborators.
func New(runID string, source FileSource, auditor AuditRecorder, sink MatrixSink,
	schemas domain.SchemaSet, policy domain.ConflictPolicy,
	logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.FileWorkers < 1 {
		opts.FileWorkers = 1
	}
	if opts.RegionWorkers < 1 {
		opts.RegionWorkers = 1
	}
	return &Pipeline{
		runID:   runID,
		source:  source,
		auditor: auditor,
		sink:    sink,
		schemas: schemas,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// CheckReadiness returns nil once the pipeline has folded at least one
// region, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not merged any regions yet")
	}
	return nil
}

// regionResult carries one region's table and summary from a worker to the
// merging consumer.
type regionResult struct {
	table   domain.RegionTable
	summary RegionSummary
}

// Run executes one consolidation over all discovered regions. Per-file and
// per-region failures are contained; only context cancellation and merge
// integrity violations abort the run. On success the matrix has been
// persisted and the returned summary describes the whole run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	regions, err := p.source.Regions(ctx)
	if err != nil {
		return Summary{}, err
	}
	p.logger.Info("consolidation started", "run_id", p.runID, "regions", len(regions))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan regionResult)

	producers, pctx := errgroup.WithContext(runCtx)
	producers.SetLimit(p.opts.RegionWorkers)
	for _, region := range regions {
		producers.Go(func() error {
			res, err := p.processRegion(pctx, region)
			if err != nil {
				return err
			}
			select {
			case results <- res:
				return nil
			case <-pctx.Done():
				return pctx.Err()
			}
		})
	}
	go func() {
		producers.Wait() //nolint:errcheck // collected again below
		close(results)
	}()

	// Single consumer: fold region tables incrementally so peak memory stays
	// near two matrices' worth, never all regions at once.
	merger := domain.NewNationalMerger(p.runID)
	var (
		summaries []RegionSummary
		foldErr   error
	)
	mergeStart := time.Now()
	for res := range results {
		summaries = append(summaries, res.summary)
		if res.summary.Skipped || foldErr != nil {
			continue
		}
		if err := merger.Fold(res.table); err != nil {
			foldErr = err
			cancel()
			continue
		}
		p.metrics.RegionsMerged.Inc()
		p.ready.Store(true)
	}

	if foldErr != nil {
		p.logger.Error("national merge aborted", "error", foldErr)
		return Summary{}, foldErr
	}
	if err := producers.Wait(); err != nil {
		return Summary{}, err
	}

	matrix, err := merger.Finalize()
	if err != nil {
		p.logger.Error("national merge failed integrity checks", "error", err)
		return Summary{}, err
	}
	p.metrics.StageDuration.WithLabelValues("merge").Observe(time.Since(mergeStart).Seconds())
	p.metrics.MatrixDates.Set(float64(matrix.NumDates()))
	p.metrics.MatrixStations.Set(float64(matrix.NumStations()))

	if err := p.sink.Write(matrix); err != nil {
		return Summary{}, err
	}

	summary := buildSummary(p.runID, summaries, matrix, time.Since(start))
	p.logger.Info("consolidation finished",
		"run_id", p.runID,
		"regions_merged", len(matrix.Regions),
		"regions_skipped", len(summary.SkippedRegions),
		"files", summary.TotalFiles,
		"accepted", summary.TotalAccepted,
		"conflicts", summary.TotalConflicts,
		"matrix_dates", summary.MatrixDates,
		"matrix_stations", summary.MatrixStations,
		"duration", summary.Duration,
	)
	return summary, nil
}
