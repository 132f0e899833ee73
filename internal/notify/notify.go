// Package notify sends an optional end-of-run summary email. Notification is
// strictly best-effort: the run's outcome never depends on it.
package notify

import (
	"fmt"
	"net/smtp"
	"path/filepath"
	"strings"

	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/models"
)

// Service delivers run summaries.
type Service interface {
	// RunSummary reports the statistics of a finished run. archivePath is
	// empty when the run produced no archive.
	RunSummary(stats models.RunStatistics, archivePath string) error
}

// New returns an SMTP-backed service when email is enabled and fully
// configured, and a no-op service otherwise.
func New(cfg *config.Config) Service {
	e := cfg.Email
	if !e.Enabled {
		return noop{}
	}
	if e.SMTPHost == "" || e.Sender == "" || e.Recipient == "" {
		logger := config.GetLogger()
		logger.Warn().Msg("Email notification enabled but incomplete, disabling")
		return noop{}
	}
	return &smtpService{
		host:      e.SMTPHost,
		port:      e.SMTPPort,
		sender:    e.Sender,
		password:  e.Password,
		recipient: e.Recipient,
	}
}

type noop struct{}

func (noop) RunSummary(models.RunStatistics, string) error { return nil }

type smtpService struct {
	host      string
	port      int
	sender    string
	password  string
	recipient string
}

func (s *smtpService) RunSummary(stats models.RunStatistics, archivePath string) error {
	subject := fmt.Sprintf("Course download run complete: %d/%d courses", stats.ProcessedCourses, stats.TotalCourses)
	body := summaryBody(stats, archivePath)

	msg := strings.Join([]string{
		"From: " + s.sender,
		"To: " + s.recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.sender, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.sender, []string{s.recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send summary email: %w", err)
	}
	return nil
}

// summaryBody renders the plain-text statistics table plus the first few
// recorded errors.
func summaryBody(stats models.RunStatistics, archivePath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Courses processed:   %d/%d\n", stats.ProcessedCourses, stats.TotalCourses)
	fmt.Fprintf(&b, "Packages found:      %d\n", stats.PackagesFound)
	fmt.Fprintf(&b, "Packages downloaded: %d\n", stats.DownloadedFiles)
	fmt.Fprintf(&b, "Download failures:   %d\n", stats.FailedDownloads)
	fmt.Fprintf(&b, "Videos found:        %d\n", stats.VideosFound)
	fmt.Fprintf(&b, "Transcripts fetched: %d\n", stats.TranscriptsFetched)
	fmt.Fprintf(&b, "Transcript errors:   %d\n", stats.TranscriptErrors)
	if archivePath != "" {
		fmt.Fprintf(&b, "Archive:             %s\n", filepath.Base(archivePath))
	}

	errs, overflow := stats.SurfacedErrors()
	if len(errs) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d total):\n", len(stats.Errors))
		for _, e := range errs {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		if overflow > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", overflow)
		}
	}
	return b.String()
}
