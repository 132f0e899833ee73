package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for run lifecycle preconditions.
var (
	// ErrRunActive is returned when a batch run is requested while one is already in progress.
	ErrRunActive = errors.New("a download run is already in progress")

	// ErrNoIdentifiers is returned when a batch run is requested with no usable content identifiers.
	ErrNoIdentifiers = errors.New("no valid content identifiers provided")

	// ErrArchiveNotAvailable is returned when the run archive is requested before any run has completed.
	ErrArchiveNotAvailable = errors.New("no completed archive available")
)

// ResolutionError indicates the content-metadata API answered but did not
// return a usable record for the identifier (error envelope or non-OK status).
type ResolutionError struct {
	ID      string
	Message string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("failed to resolve content %s: %s", e.ID, e.Message)
	}
	return fmt.Sprintf("failed to resolve content %s", e.ID)
}

// Is allows for error checking with errors.Is().
func (e *ResolutionError) Is(target error) bool {
	_, ok := target.(*ResolutionError)
	return ok
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(id, message string) *ResolutionError {
	return &ResolutionError{ID: id, Message: message}
}

// NetworkError indicates a transport-level failure (timeout, connection
// refused, DNS) talking to a remote endpoint.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s for %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *NetworkError) Is(target error) bool {
	_, ok := target.(*NetworkError)
	return ok
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(op, url string, err error) *NetworkError {
	return &NetworkError{Op: op, URL: url, Err: err}
}

// FilesystemError indicates a directory or file operation failed.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error during %s on %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying OS error.
func (e *FilesystemError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *FilesystemError) Is(target error) bool {
	_, ok := target.(*FilesystemError)
	return ok
}

// NewFilesystemError creates a new FilesystemError.
func NewFilesystemError(op, path string, err error) *FilesystemError {
	return &FilesystemError{Op: op, Path: path, Err: err}
}

// TranscriptError indicates a transcript could not be fetched or persisted
// for a resource, from either the pipeline API or the caption provider.
type TranscriptError struct {
	ResourceID string
	Err        error
}

// Error implements the error interface.
func (e *TranscriptError) Error() string {
	return fmt.Sprintf("transcript error for resource %s: %v", e.ResourceID, e.Err)
}

// Unwrap exposes the underlying error.
func (e *TranscriptError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *TranscriptError) Is(target error) bool {
	_, ok := target.(*TranscriptError)
	return ok
}

// NewTranscriptError creates a new TranscriptError.
func NewTranscriptError(resourceID string, err error) *TranscriptError {
	return &TranscriptError{ResourceID: resourceID, Err: err}
}

// CaptionsUnavailableError indicates the caption provider refused or cannot
// serve captions for a video (throttling, blocked caller, captions disabled).
// This is an expected upstream limitation rather than an internal defect.
type CaptionsUnavailableError struct {
	VideoID string
	Reason  string
}

// Error implements the error interface.
func (e *CaptionsUnavailableError) Error() string {
	return fmt.Sprintf("captions unavailable for video %s: %s", e.VideoID, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *CaptionsUnavailableError) Is(target error) bool {
	_, ok := target.(*CaptionsUnavailableError)
	return ok
}

// NewCaptionsUnavailableError creates a new CaptionsUnavailableError.
func NewCaptionsUnavailableError(videoID, reason string) *CaptionsUnavailableError {
	return &CaptionsUnavailableError{VideoID: videoID, Reason: reason}
}

// PackagingError indicates the final archive could not be produced or the
// session workspace could not be cleaned up.
type PackagingError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging error during %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PackagingError) Unwrap() error { return e.Err }

// Is allows for error checking with errors.Is().
func (e *PackagingError) Is(target error) bool {
	_, ok := target.(*PackagingError)
	return ok
}

// NewPackagingError creates a new PackagingError.
func NewPackagingError(stage string, err error) *PackagingError {
	return &PackagingError{Stage: stage, Err: err}
}
