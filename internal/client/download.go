package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/config"
)

// downloadChunkSize is the streaming write granularity for binary assets.
const downloadChunkSize = 8 * 1024

// progressLogInterval throttles progress log lines during large downloads.
const progressLogInterval = 2 * time.Second

// Download streams a binary asset to destPath in a single attempt.
// The destination's parent directory is created first; failure to create it
// is permanent and never retried. The file is fsynced before success is
// reported, so a nil return means the bytes are on disk past any OS buffer.
// On failure a partially written file may remain at destPath; the attempt is
// still reported as failed and the next attempt truncates it.
func (c *client) Download(ctx context.Context, url, destPath string) error {
	logger := config.GetLogger()

	destPath = filepath.Clean(destPath)
	logger.Info().Str("file", filepath.Base(destPath)).Str("url", url).Msg("Downloading asset")

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return &permanentError{apperrors.NewFilesystemError("mkdir", filepath.Dir(destPath), err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError("download", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewNetworkError("download", url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	f, err := os.Create(destPath)
	if err != nil {
		return apperrors.NewFilesystemError("create", destPath, err)
	}
	defer f.Close()

	totalSize := resp.ContentLength
	if totalSize > 0 {
		logger.Info().Str("file", filepath.Base(destPath)).Float64("size_mb", float64(totalSize)/(1024*1024)).Msg("Streaming download")
		if err := c.streamBody(resp.Body, f, totalSize, destPath); err != nil {
			return err
		}
	} else {
		// No usable content-length: read the whole body and write it in one go.
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.NewNetworkError("download", url, err)
		}
		if _, err := f.Write(body); err != nil {
			return apperrors.NewFilesystemError("write", destPath, err)
		}
	}

	// Durability guarantee: flush past the OS buffer before declaring success.
	if err := f.Sync(); err != nil {
		return apperrors.NewFilesystemError("sync", destPath, err)
	}

	logger.Info().Str("file", filepath.Base(destPath)).Msg("Download complete")
	return nil
}

// streamBody copies the response body to the file in fixed-size chunks,
// logging progress periodically.
func (c *client) streamBody(body io.Reader, f *os.File, totalSize int64, destPath string) error {
	logger := config.GetLogger()

	buf := make([]byte, downloadChunkSize)
	var downloaded int64
	lastLog := time.Now()

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return apperrors.NewFilesystemError("write", destPath, writeErr)
			}
			downloaded += int64(n)

			if time.Since(lastLog) > progressLogInterval {
				logger.Info().
					Str("file", filepath.Base(destPath)).
					Float64("percent", float64(downloaded)/float64(totalSize)*100).
					Float64("downloaded_mb", float64(downloaded)/(1024*1024)).
					Float64("total_mb", float64(totalSize)/(1024*1024)).
					Msg("Download progress")
				lastLog = time.Now()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return apperrors.NewNetworkError("download", destPath, readErr)
		}
	}
}

// DownloadWithRetry wraps Download with the client's retry policy: up to 3
// attempts with doubling backoff between them. Exhausting all attempts
// returns the last error; it never panics out of the batch.
func (c *client) DownloadWithRetry(ctx context.Context, url, destPath string) error {
	return failsafe.Run(func() error {
		return c.Download(ctx, url, destPath)
	}, c.retryPolicy)
}
