// Package pipeline walks course content trees: it resolves identifiers,
// classifies each resource, downloads course packages, and collects
// transcripts into a session workspace.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/igotools/coursevault/internal/client"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/models"
)

// Pipeline processes a batch of course identifiers into a workspace
// directory. It is single-use: one Pipeline per run, driven by one worker
// goroutine. Statistics are written only by that worker, under statsMu so
// observers can take consistent snapshots mid-run.
type Pipeline struct {
	client client.Client

	statsMu sync.Mutex
	stats   *models.RunStatistics

	root string // session workspace directory

	// Deliberate self-throttling against the upstream portal. Zero in tests.
	resourceDelay time.Duration
	courseDelay   time.Duration

	progress func(string)
}

// New creates a pipeline writing into root. progress may be nil; when set it
// receives human-readable progress lines as they happen.
func New(c client.Client, root string, progress func(string), resourceDelay, courseDelay time.Duration) *Pipeline {
	return &Pipeline{
		client:        c,
		stats:         &models.RunStatistics{},
		root:          root,
		resourceDelay: resourceDelay,
		courseDelay:   courseDelay,
		progress:      progress,
	}
}

// SnapshotStats returns a consistent copy of the run statistics, safe to
// read while the worker keeps mutating the originals.
func (p *Pipeline) SnapshotStats() models.RunStatistics {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats.Clone()
}

// updateStats applies a mutation to the statistics under the stats lock.
// All counter and error-list writes go through here.
func (p *Pipeline) updateStats(fn func(s *models.RunStatistics)) {
	p.statsMu.Lock()
	fn(p.stats)
	p.statsMu.Unlock()
}

// recordError formats and appends one run error.
func (p *Pipeline) recordError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.updateStats(func(s *models.RunStatistics) { s.RecordError(msg) })
}

// report logs a progress line and forwards it to the progress sink.
func (p *Pipeline) report(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger := config.GetLogger()
	logger.Info().Msg(msg)
	if p.progress != nil {
		p.progress(msg)
	}
}

// pause sleeps for d unless the context is cancelled first.
func (p *Pipeline) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
