package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/metrics"
	"github.com/igotools/coursevault/internal/models"
	"github.com/igotools/coursevault/internal/naming"
)

// ProcessCourse resolves one course and processes its child resources in the
// order the metadata API returned them. A short pause follows every resource,
// including the last, to avoid hammering the portal. The course counts as
// processed once all children have been attempted, regardless of per-resource
// failures.
func (p *Pipeline) ProcessCourse(ctx context.Context, courseID string) {
	logger := config.GetLogger()

	record, err := p.client.Resolve(ctx, courseID)
	if err != nil {
		logger.Error().Err(err).Str("courseID", courseID).Msg("Failed to resolve course")
		p.recordError("course %s: %v", courseID, err)
		return
	}

	courseDir := filepath.Join(p.root, naming.CourseFolderName(record.Name, record.ID))
	if err := os.MkdirAll(courseDir, 0o755); err != nil {
		logger.Error().Err(err).Str("courseID", courseID).Msg("Failed to create course folder")
		p.recordError("course %s: failed to create folder: %v", courseID, err)
		return
	}

	p.report("Course %q has %d resources", record.Name, len(record.ChildIDs))

	for i, childID := range record.ChildIDs {
		if ctx.Err() != nil {
			return
		}
		p.report("  [%d/%d] Processing resource %s", i+1, len(record.ChildIDs), childID)
		p.processResource(ctx, courseDir, childID)
		p.pause(ctx, p.resourceDelay)
	}

	p.updateStats(func(s *models.RunStatistics) { s.ProcessedCourses++ })
	metrics.CoursesProcessedTotal.Inc()
}
