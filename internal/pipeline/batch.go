package pipeline

import (
	"context"

	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/models"
)

// ProcessBatch processes every course identifier sequentially. A failing or
// panicking course never takes down the batch; its error is recorded and the
// next course starts after the inter-course pause. The pause is skipped after
// the final course.
func (p *Pipeline) ProcessBatch(ctx context.Context, courseIDs []string) {
	p.updateStats(func(s *models.RunStatistics) { s.TotalCourses = len(courseIDs) })

	for i, id := range courseIDs {
		if ctx.Err() != nil {
			break
		}
		p.report("Processing course %d/%d: %s", i+1, len(courseIDs), id)
		p.processCourseSafe(ctx, id)
		if i < len(courseIDs)-1 {
			p.pause(ctx, p.courseDelay)
		}
	}

	p.reportSummary()
}

// processCourseSafe isolates a single course so a panic in one course's
// processing cannot abort the remainder of the batch.
func (p *Pipeline) processCourseSafe(ctx context.Context, courseID string) {
	defer func() {
		if r := recover(); r != nil {
			logger := config.GetLogger()
			logger.Error().
				Str("courseID", courseID).
				Interface("panic", r).
				Msg("Recovered from panic while processing course")
			p.recordError("course %s: panic: %v", courseID, r)
		}
	}()
	p.ProcessCourse(ctx, courseID)
}

// reportSummary emits the end-of-run statistics and the first few recorded
// errors.
func (p *Pipeline) reportSummary() {
	s := p.SnapshotStats()
	p.report("Run complete: %d/%d courses processed", s.ProcessedCourses, s.TotalCourses)
	p.report("Packages: %d found, %d downloaded, %d failed", s.PackagesFound, s.DownloadedFiles, s.FailedDownloads)
	p.report("Transcripts: %d videos, %d fetched, %d errors", s.VideosFound, s.TranscriptsFetched, s.TranscriptErrors)

	errs, overflow := s.SurfacedErrors()
	if len(errs) > 0 {
		p.report("Errors (%d total):", len(s.Errors))
		for _, e := range errs {
			p.report("  - %s", e)
		}
		if overflow > 0 {
			p.report("  ... and %d more", overflow)
		}
	}
}
