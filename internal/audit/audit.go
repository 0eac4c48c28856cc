// Package audit records every raw file's disposition for traceability.
// Verdicts flow through a single-writer queue so concurrent validation
// workers never contend on sink I/O.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
)

// Entry is one audit record: a file and its validation disposition.
type Entry struct {
	RunID     string         `json:"run_id"`
	FileID    string         `json:"file_id"`
	Region    string         `json:"region"`
	Outcome   domain.Outcome `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink persists audit entries. Implementations need not be safe for
// concurrent use; the trail serializes all writes.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// Trail fans verdicts out to its sinks from a single writer goroutine.
// Record never blocks the pipeline on sink latency beyond queue capacity.
type Trail struct {
	runID   string
	sinks   []Sink
	logger  *slog.Logger
	metrics *observability.Metrics

	entries chan Entry
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// queueDepth trades memory for pipeline decoupling; with ~24k files per run
// the writer keeps up long before the queue fills.
const queueDepth = 1024

// NewTrail starts the writer goroutine. Close must be called to flush.
func NewTrail(runID string, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics) *Trail {
	t := &Trail{
		runID:   runID,
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
		entries: make(chan Entry, queueDepth),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Record enqueues one verdict. Safe for concurrent use. Sink failures are
// logged and counted but never propagate: losing an audit line must not
// fail the batch.
func (t *Trail) Record(v domain.ValidationVerdict) {
	t.entries <- Entry{
		RunID:     t.runID,
		FileID:    v.FileID,
		Region:    v.Region,
		Outcome:   v.Outcome,
		Reason:    v.Reason,
		Timestamp: v.CheckedAt,
	}
}

// Close drains the queue, flushes and closes all sinks. Record must not be
// called after Close.
func (t *Trail) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.entries)
		t.wg.Wait()
		for _, s := range t.sinks {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (t *Trail) run() {
	defer t.wg.Done()
	ctx := context.Background()
	for e := range t.entries {
		t.metrics.AuditEntries.Inc()
		for _, s := range t.sinks {
			if err := s.Write(ctx, e); err != nil {
				t.metrics.AuditSinkErrors.Inc()
				t.logger.Warn("audit sink write failed", "error", err, "file_id", e.FileID)
			}
		}
	}
}
