// Package workspace manages the on-disk lifecycle of a download run: a
// timestamped session directory that content is written into, cleanup of
// leftovers from earlier runs, and packaging of the finished session into a
// single zip archive.
package workspace

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/config"
)

const (
	workspacePrefix = "course_workspace_"
	archivePrefix   = "course_archive_"

	timestampLayout = "20060102_150405"
)

// Workspace is one run's session directory.
type Workspace struct {
	// Path is the absolute or dir-relative session directory.
	Path string
}

// New creates a fresh timestamped session directory under dir.
func New(dir string) (*Workspace, error) {
	path := filepath.Join(dir, workspacePrefix+time.Now().Format(timestampLayout))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, apperrors.NewFilesystemError("create workspace", path, err)
	}
	return &Workspace{Path: path}, nil
}

// NewArchivePath returns a timestamped archive path under dir. The name
// matches what CleanStale removes on the next run.
func NewArchivePath(dir string) string {
	return filepath.Join(dir, archivePrefix+time.Now().Format(timestampLayout)+".zip")
}

// CleanStale removes archives and session directories left behind by earlier
// runs. Best effort: individual failures are logged and skipped, and calling
// it on an already-clean directory does nothing.
func CleanStale(dir string) {
	logger := config.GetLogger()

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Could not scan for stale run artifacts")
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		switch {
		case !entry.IsDir() && strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, ".zip"):
			if err := os.Remove(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Could not remove stale archive")
			} else {
				logger.Info().Str("path", path).Msg("Removed stale archive")
			}
		case entry.IsDir() && strings.HasPrefix(name, workspacePrefix):
			if err := os.RemoveAll(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Could not remove stale workspace")
			} else {
				logger.Info().Str("path", path).Msg("Removed stale workspace")
			}
		}
	}
}

// Archive packages the whole workspace tree into one deflate-compressed zip
// at destZip. Entry names are kept relative to the workspace parent, so the
// archive unpacks into a single session folder.
func (w *Workspace) Archive(destZip string) error {
	out, err := os.Create(destZip)
	if err != nil {
		return apperrors.NewPackagingError("create archive", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(dst io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(dst, flate.DefaultCompression)
	})

	base := filepath.Dir(w.Path)
	walkErr := filepath.WalkDir(w.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		dst, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if walkErr != nil {
		zw.Close()
		return apperrors.NewPackagingError("write archive", walkErr)
	}

	if err := zw.Close(); err != nil {
		return apperrors.NewPackagingError("finalize archive", err)
	}
	if err := out.Sync(); err != nil {
		return apperrors.NewPackagingError("sync archive", err)
	}

	logger := config.GetLogger()
	logger.Info().Str("archive", destZip).Msg("Workspace archived")
	return nil
}

// Remove deletes the session directory tree.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.Path); err != nil {
		return apperrors.NewFilesystemError("remove workspace", w.Path, err)
	}
	return nil
}
