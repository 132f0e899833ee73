package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/igotools/coursevault/internal/client"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/metrics"
	"github.com/igotools/coursevault/internal/models"
	"github.com/igotools/coursevault/internal/naming"
)

// processResource resolves one child resource and dispatches on its media
// type. Each branch increments its "found" counter exactly once; success and
// failure counts are recorded only around the innermost fetch or download.
func (p *Pipeline) processResource(ctx context.Context, courseDir, resourceID string) {
	logger := config.GetLogger()

	record, err := p.client.Resolve(ctx, resourceID)
	if err != nil {
		logger.Error().Err(err).Str("resourceID", resourceID).Msg("Failed to resolve resource")
		p.recordError("resource %s: %v", resourceID, err)
		return
	}

	switch {
	case record.IsPackage():
		p.processPackage(ctx, courseDir, record)
	case record.IsVideo():
		p.processVideo(ctx, courseDir, record)
	case record.IsExternalLink() || isHostedVideoURL(record.ArtifactURL):
		p.processHostedVideo(ctx, courseDir, record)
	default:
		logger.Info().
			Str("resourceID", record.ID).
			Str("mimeType", record.MimeType).
			Msg("Skipping resource with unhandled media type")
	}
}

// isHostedVideoURL reports whether an artifact URL points at the external
// video host rather than portal storage.
func isHostedVideoURL(url string) bool {
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}

// processPackage downloads a course package zip into its own folder.
func (p *Pipeline) processPackage(ctx context.Context, courseDir string, record *models.ContentRecord) {
	logger := config.GetLogger()
	p.updateStats(func(s *models.RunStatistics) { s.PackagesFound++ })

	folder, err := p.resourceFolder(courseDir, record)
	if err != nil {
		p.recordError("resource %s: %v", record.ID, err)
		return
	}

	if record.ArtifactURL == "" {
		logger.Warn().Str("resourceID", record.ID).Msg("Package has no artifact URL, nothing to download")
		return
	}

	url := p.client.ConvertStorageURL(record.ArtifactURL)
	dest := filepath.Join(folder, naming.ResourceBaseName(record.Name, record.ID)+".zip")

	p.report("Downloading package %s", record.Name)
	if err := p.client.DownloadWithRetry(ctx, url, dest); err != nil {
		logger.Error().Err(err).Str("resourceID", record.ID).Msg("Package download failed")
		p.updateStats(func(s *models.RunStatistics) { s.FailedDownloads++ })
		p.recordError("download %s: %v", record.ID, err)
		metrics.PackageDownloadsTotal.WithLabelValues("failure").Inc()
		return
	}

	p.updateStats(func(s *models.RunStatistics) { s.DownloadedFiles++ })
	metrics.PackageDownloadsTotal.WithLabelValues("success").Inc()
}

// processVideo fetches the transcription-pipeline payload for a hosted video
// and saves every matching English VTT body. When no VTT matches, the raw
// payload is kept so the run still yields something inspectable.
func (p *Pipeline) processVideo(ctx context.Context, courseDir string, record *models.ContentRecord) {
	logger := config.GetLogger()
	p.updateStats(func(s *models.RunStatistics) { s.VideosFound++ })

	folder, err := p.resourceFolder(courseDir, record)
	if err != nil {
		p.recordError("resource %s: %v", record.ID, err)
		return
	}

	p.report("Fetching transcript for %s", record.Name)
	payload, err := p.client.FetchPipelineTranscript(ctx, record.ID)
	if err != nil {
		logger.Error().Err(err).Str("resourceID", record.ID).Msg("Transcript pipeline query failed")
		p.updateStats(func(s *models.RunStatistics) { s.TranscriptErrors++ })
		p.recordError("transcript %s: %v", record.ID, err)
		metrics.TranscriptFetchesTotal.WithLabelValues(kindVTT, "failure").Inc()
		return
	}

	matches := client.SelectEnglishVTTs(client.ExtractCaptionEntries(payload))
	if len(matches) == 0 {
		logger.Info().Str("resourceID", record.ID).Msg("No English VTT in payload, keeping raw response")
		p.saveTranscript(folder, record, kindRawJSON, payload.PrettyJSON())
		return
	}

	for _, entry := range matches {
		body, err := p.client.FetchVTTBody(ctx, entry.URL)
		if err != nil {
			logger.Error().Err(err).Str("url", entry.URL).Msg("Subtitle fetch failed")
			p.updateStats(func(s *models.RunStatistics) { s.TranscriptErrors++ })
			p.recordError("subtitle %s: %v", record.ID, err)
			metrics.TranscriptFetchesTotal.WithLabelValues(kindVTT, "failure").Inc()
			continue
		}
		p.saveTranscript(folder, record, kindVTT, body)
	}
}

// processHostedVideo fetches captions for an externally hosted video.
func (p *Pipeline) processHostedVideo(ctx context.Context, courseDir string, record *models.ContentRecord) {
	logger := config.GetLogger()
	p.updateStats(func(s *models.RunStatistics) { s.VideosFound++ })

	folder, err := p.resourceFolder(courseDir, record)
	if err != nil {
		p.recordError("resource %s: %v", record.ID, err)
		return
	}

	if record.ArtifactURL == "" {
		logger.Warn().Str("resourceID", record.ID).Msg("External link has no artifact URL, nothing to fetch")
		return
	}

	p.report("Fetching hosted-video captions for %s", record.Name)
	transcript, err := p.client.FetchHostedVideoTranscript(ctx, record.ArtifactURL)
	if err != nil {
		if client.IsProviderBlock(err) {
			logger.Warn().Err(err).Str("resourceID", record.ID).Msg("Caption provider refused the request")
		} else {
			logger.Error().Err(err).Str("resourceID", record.ID).Msg("Hosted-video transcript fetch failed")
		}
		p.updateStats(func(s *models.RunStatistics) { s.TranscriptErrors++ })
		p.recordError("captions %s: %v", record.ID, err)
		metrics.TranscriptFetchesTotal.WithLabelValues(kindHosted, "failure").Inc()
		return
	}

	p.saveTranscript(folder, record, kindHosted, transcript)
}

// saveTranscript persists transcript content and records the outcome.
// Persistence failures never abort the resource.
func (p *Pipeline) saveTranscript(folder string, record *models.ContentRecord, kind, content string) {
	if err := SaveTranscript(folder, record.ID, record.Name, kind, content); err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Str("resourceID", record.ID).Msg("Failed to save transcript")
		p.updateStats(func(s *models.RunStatistics) { s.TranscriptErrors++ })
		p.recordError("save transcript %s: %v", record.ID, err)
		metrics.TranscriptFetchesTotal.WithLabelValues(kind, "failure").Inc()
		return
	}
	p.updateStats(func(s *models.RunStatistics) { s.TranscriptsFetched++ })
	metrics.TranscriptFetchesTotal.WithLabelValues(kind, "success").Inc()
}

// resourceFolder creates the per-resource directory under the course folder.
func (p *Pipeline) resourceFolder(courseDir string, record *models.ContentRecord) (string, error) {
	folder := filepath.Join(courseDir, naming.ResourceBaseName(record.Name, record.ID))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create resource folder: %w", err)
	}
	return folder, nil
}
