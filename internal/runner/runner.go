// Package runner supervises batch download runs: it enforces the
// one-run-at-a-time rule, drives the pipeline in a background goroutine,
// queues progress lines for observers, and tracks where the finished archive
// lives.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/client"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/metrics"
	"github.com/igotools/coursevault/internal/models"
	"github.com/igotools/coursevault/internal/notify"
	"github.com/igotools/coursevault/internal/pipeline"
	"github.com/igotools/coursevault/internal/workspace"
)

// ProgressDone is the sentinel pushed onto the progress queue when a run has
// finished and everything before it has been queued.
const ProgressDone = "DONE"

// Runner owns the run lifecycle. The worker goroutine is the only writer to
// the active pipeline's statistics; everything else lives behind mu.
type Runner struct {
	client   client.Client
	cfg      *config.Config
	notifier notify.Service

	mu          sync.Mutex
	running     bool
	complete    bool
	archivePath string
	current     *pipeline.Pipeline
	lastStats   models.RunStatistics
	cancel      context.CancelFunc
	queue       *progressQueue
}

// New creates a runner. The client is shared across runs.
func New(c client.Client, cfg *config.Config, n notify.Service) *Runner {
	return &Runner{
		client:   c,
		cfg:      cfg,
		notifier: n,
		queue:    newProgressQueue(),
	}
}

// Start validates the identifiers and launches the background worker.
// Returns apperrors.ErrNoIdentifiers when nothing usable was submitted and
// apperrors.ErrRunActive when a run is already in flight.
func (r *Runner) Start(ids []string) error {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return apperrors.ErrNoIdentifiers
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return apperrors.ErrRunActive
	}
	r.running = true
	r.complete = false
	r.archivePath = ""
	r.current = nil
	r.queue = newProgressQueue()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	queue := r.queue
	r.mu.Unlock()

	logger := config.GetLogger()
	logger.Info().Int("courses", len(clean)).Msg("Starting download run")
	go r.run(ctx, clean, queue)
	return nil
}

// run is the worker goroutine for one batch: cleanup, workspace, batch
// processing, archiving, notification. Driver failures (workspace or
// packaging) are captured and surfaced. Finalization is deferred so the run
// is marked finished and the sentinel is queued even when the worker itself
// panics; otherwise a single bad run would reject every run after it.
func (r *Runner) run(ctx context.Context, ids []string, queue *progressQueue) {
	logger := config.GetLogger()

	var failure error
	archivePath := ""
	var p *pipeline.Pipeline

	defer func() {
		if rec := recover(); rec != nil {
			failure = fmt.Errorf("run worker panic: %v", rec)
			logger.Error().Interface("panic", rec).Msg("Run worker panicked")
			queue.push("ERROR: " + failure.Error())
		}

		if failure != nil {
			logger.Error().Err(failure).Msg("Run failed")
			sentry.CaptureException(failure)
			metrics.RunsTotal.WithLabelValues("failure").Inc()
		} else {
			metrics.RunsTotal.WithLabelValues("success").Inc()
		}

		var stats models.RunStatistics
		if p != nil {
			stats = p.SnapshotStats()
		}
		r.notifySummary(stats, archivePath)

		r.mu.Lock()
		r.running = false
		r.complete = failure == nil
		r.archivePath = archivePath
		r.lastStats = stats
		r.current = nil
		r.cancel = nil
		r.mu.Unlock()

		queue.push(ProgressDone)
	}()

	dir := r.cfg.DownloadDir
	if dir == "" {
		dir = "."
	}
	workspace.CleanStale(dir)

	ws, err := workspace.New(dir)
	if err != nil {
		failure = err
		queue.push("ERROR: " + err.Error())
		return
	}

	p = pipeline.New(
		r.client,
		ws.Path,
		queue.push,
		config.Duration(r.cfg.Pacing.ResourceDelay, 500*time.Millisecond),
		config.Duration(r.cfg.Pacing.CourseDelay, 2*time.Second),
	)
	r.mu.Lock()
	r.current = p
	r.mu.Unlock()

	p.ProcessBatch(ctx, ids)

	dest := workspace.NewArchivePath(dir)
	if err := ws.Archive(dest); err != nil {
		failure = err
		queue.push("ERROR: " + err.Error())
		return
	}
	archivePath = dest
	queue.push("Archive ready: " + filepath.Base(dest))
	if err := ws.Remove(); err != nil {
		logger.Warn().Err(err).Msg("Could not remove session workspace after archiving")
	}
}

// notifySummary delivers the end-of-run notification. The notifier is
// outside our control, so its errors and panics are contained here and must
// never block run finalization.
func (r *Runner) notifySummary(stats models.RunStatistics, archivePath string) {
	logger := config.GetLogger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn().Interface("panic", rec).Msg("Summary notification panicked")
		}
	}()
	if err := r.notifier.RunSummary(stats, archivePath); err != nil {
		logger.Warn().Err(err).Msg("Summary notification failed")
	}
}

// Snapshot returns the current run state for status endpoints.
func (r *Runner) Snapshot() models.StatusSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := models.StatusSnapshot{
		IsRunning:        r.running,
		DownloadComplete: r.complete,
	}
	if r.current != nil {
		snap.RunStatistics = r.current.SnapshotStats()
	} else {
		snap.RunStatistics = r.lastStats.Clone()
	}
	if r.archivePath != "" {
		snap.ArchivePath = r.archivePath
		snap.ArchiveName = filepath.Base(r.archivePath)
	}
	return snap
}

// NextProgress blocks until the next progress line is available. Returns
// false when ctx ends first. The ProgressDone sentinel marks the end of a run.
func (r *Runner) NextProgress(ctx context.Context) (string, bool) {
	r.mu.Lock()
	queue := r.queue
	r.mu.Unlock()
	return queue.next(ctx)
}

// ArchiveFile returns the path of the finished archive, or
// apperrors.ErrArchiveNotAvailable when no completed archive exists on disk.
func (r *Runner) ArchiveFile() (string, error) {
	r.mu.Lock()
	path := r.archivePath
	complete := r.complete
	r.mu.Unlock()

	if !complete || path == "" {
		return "", apperrors.ErrArchiveNotAvailable
	}
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.ErrArchiveNotAvailable
	}
	return path, nil
}

// Shutdown cancels an in-flight run, if any. The worker still finishes its
// bookkeeping before the sentinel is queued.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
