package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// processRegion validates, reshapes and consolidates one region's files.
// Only context errors are returned; everything else is contained here so one
// bad region never aborts its siblings. A region with no accepted files
// comes back with Skipped set, matching how the source portal treats
// regions whose exports are entirely unusable.
func (p *Pipeline) processRegion(ctx context.Context, region string) (regionResult, error) {
	schema := p.schemas.For(region)
	summary := RegionSummary{Region: region, Rejected: make(map[domain.Outcome]int)}

	files, err := p.source.Files(ctx, region)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return regionResult{}, err
		}
		p.logger.Error("region source failed, skipping region", "region", region, "error", err)
		summary.Skipped = true
		return regionResult{summary: summary}, nil
	}
	summary.Files = len(files)

	// Validation and reshaping are stateless per file; only the frames slice
	// and summary counters are shared, guarded by mu.
	var (
		mu     sync.Mutex
		frames []domain.WideFrame
	)

	workers, wctx := errgroup.WithContext(ctx)
	workers.SetLimit(p.opts.FileWorkers)
	for _, file := range files {
		workers.Go(func() error {
			if err := wctx.Err(); err != nil {
				return err
			}

			frame, warnings, verdict := p.processFile(file, schema)

			mu.Lock()
			defer mu.Unlock()
			summary.Warnings += warnings
			if verdict.Outcome.Rejected() {
				summary.Rejected[verdict.Outcome]++
				return nil
			}
			summary.Accepted++
			frames = append(frames, frame)
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return regionResult{}, err
	}

	if len(frames) == 0 {
		p.logger.Warn("region has no usable files, skipping",
			"region", region, "files", summary.Files)
		summary.Skipped = true
		return regionResult{summary: summary}, nil
	}

	start := time.Now()
	table, err := domain.ConsolidateRegion(region, frames, p.policy)
	if err != nil {
		p.logger.Error("region consolidation failed, skipping region", "region", region, "error", err)
		summary.Skipped = true
		return regionResult{summary: summary}, nil
	}
	p.metrics.StageDuration.WithLabelValues("consolidate").Observe(time.Since(start).Seconds())

	for _, c := range table.Conflicts {
		p.logger.Debug("conflict resolved",
			"region", c.Region,
			"station", c.Station,
			"date", domain.FormatDate(c.Date),
			"kept", c.Kept, "kept_file", c.KeptFile,
			"discarded", c.Discarded, "discarded_file", c.DiscardedFile,
		)
	}
	if n := len(table.Conflicts); n > 0 {
		p.metrics.ConflictsResolved.WithLabelValues(region).Add(float64(n))
		p.logger.Info("region conflicts resolved", "region", region, "conflicts", n, "policy", p.policy)
	}

	summary.Conflicts = len(table.Conflicts)
	summary.Stations = table.NumStations()
	summary.Dates = table.NumDates()
	p.logger.Info("region consolidated",
		"region", region,
		"files", summary.Files,
		"accepted", summary.Accepted,
		"stations", summary.Stations,
		"dates", summary.Dates,
	)
	return regionResult{table: table, summary: summary}, nil
}

// processFile runs one file through validation and, if accepted, reshaping.
// Returns the frame (zero when rejected), the warning count, and the
// verdict that was recorded to the audit trail. A reshape failure is
// recorded as a second, late rejection entry for the same file so the audit
// trail always holds the file's final disposition.
func (p *Pipeline) processFile(file domain.RawFile, schema domain.RegionSchema) (domain.WideFrame, int, domain.ValidationVerdict) {
	start := time.Now()
	verdict := domain.Validate(file, schema)
	p.metrics.StageDuration.WithLabelValues("validate").Observe(time.Since(start).Seconds())
	p.metrics.FilesValidated.WithLabelValues(file.Region, string(verdict.Outcome)).Inc()
	p.auditor.Record(verdict)

	if verdict.Outcome.Rejected() {
		p.logger.Debug("file rejected",
			"file", verdict.FileID, "outcome", verdict.Outcome, "reason", verdict.Reason)
		return domain.WideFrame{}, 0, verdict
	}

	start = time.Now()
	frame, warnings, err := domain.Reshape(file, schema)
	p.metrics.StageDuration.WithLabelValues("reshape").Observe(time.Since(start).Seconds())
	for _, w := range warnings {
		p.logger.Debug("reshape warning", "file", file.ID(), "line", w.Line, "reason", w.Reason)
	}
	if n := len(warnings); n > 0 {
		p.metrics.ReshapeWarnings.Add(float64(n))
	}

	if err != nil {
		// Late validation failure: the file looked fine structurally but no
		// observation survived pivoting.
		p.logger.Warn("reshape failed, skipping file", "file", file.ID(), "error", err)
		p.metrics.ReshapeFailures.Inc()
		late := domain.ValidationVerdict{
			FileID:    verdict.FileID,
			Region:    verdict.Region,
			Outcome:   domain.RejectedOther,
			Reason:    "reshape: " + err.Error(),
			CheckedAt: verdict.CheckedAt,
		}
		p.auditor.Record(late)
		return domain.WideFrame{}, len(warnings), late
	}

	return frame, len(warnings), verdict
}
