package models

// maxSurfacedErrors bounds how many recorded errors appear in summaries
// and snapshots; the full list is kept in memory for the run's lifetime.
const maxSurfacedErrors = 10

// RunStatistics aggregates the outcome of one batch run. It has a single
// writer (the pipeline worker); readers must go through the run supervisor,
// which copies it under its own lock.
type RunStatistics struct {
	TotalCourses       int      `json:"total_courses"`
	ProcessedCourses   int      `json:"processed_courses"`
	PackagesFound      int      `json:"total_scorm_files"`
	DownloadedFiles    int      `json:"downloaded_files"`
	FailedDownloads    int      `json:"failed_downloads"`
	VideosFound        int      `json:"total_video_files"`
	TranscriptsFetched int      `json:"transcripts_fetched"`
	TranscriptErrors   int      `json:"transcript_errors"`
	Errors             []string `json:"errors"`
}

// RecordError appends a human-readable error to the run's error list.
func (s *RunStatistics) RecordError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// SurfacedErrors returns at most the first ten recorded errors plus a count
// of any overflow beyond them.
func (s *RunStatistics) SurfacedErrors() (errs []string, overflow int) {
	if len(s.Errors) <= maxSurfacedErrors {
		return s.Errors, 0
	}
	return s.Errors[:maxSurfacedErrors], len(s.Errors) - maxSurfacedErrors
}

// Clone returns a deep copy safe to hand to readers while the worker keeps
// mutating the original.
func (s *RunStatistics) Clone() RunStatistics {
	out := *s
	out.Errors = append([]string(nil), s.Errors...)
	return out
}

// StatusSnapshot is a point-in-time view of a run, served to observers.
type StatusSnapshot struct {
	RunStatistics
	IsRunning        bool   `json:"is_running"`
	DownloadComplete bool   `json:"download_complete"`
	ArchivePath      string `json:"zip_file_path,omitempty"`
	ArchiveName      string `json:"zip_filename,omitempty"`
}
