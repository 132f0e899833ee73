package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestResolutionError_Message(t *testing.T) {
	t.Parallel()
	err := NewResolutionError("do_123", "content not found")
	want := "failed to resolve content do_123: content not found"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	bare := NewResolutionError("do_123", "")
	if bare.Error() != "failed to resolve content do_123" {
		t.Errorf("Unexpected message without errmsg: %q", bare.Error())
	}
}

func TestErrorKinds_Is(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		err    error
		target error
	}{
		{"resolution", NewResolutionError("do_1", "x"), &ResolutionError{}},
		{"network", NewNetworkError("resolve", "http://x", errors.New("refused")), &NetworkError{}},
		{"filesystem", NewFilesystemError("mkdir", "/tmp/x", errors.New("denied")), &FilesystemError{}},
		{"transcript", NewTranscriptError("do_1", errors.New("boom")), &TranscriptError{}},
		{"captions", NewCaptionsUnavailableError("abc", "blocked"), &CaptionsUnavailableError{}},
		{"packaging", NewPackagingError("archive", errors.New("disk full")), &PackagingError{}},
	}

	for _, tc := range cases {
		if !errors.Is(tc.err, tc.target) {
			t.Errorf("%s: expected errors.Is to match same kind", tc.name)
		}
	}

	// Kinds must not match each other.
	if errors.Is(NewNetworkError("x", "y", errors.New("z")), &FilesystemError{}) {
		t.Error("NetworkError should not match FilesystemError")
	}
}

func TestErrorKinds_Unwrap(t *testing.T) {
	t.Parallel()
	inner := errors.New("connection reset")
	err := NewNetworkError("download", "http://example.com/a.zip", inner)
	if !errors.Is(err, inner) {
		t.Error("Expected unwrapping to reach the transport error")
	}

	wrapped := fmt.Errorf("processing failed: %w", NewTranscriptError("do_9", inner))
	if !errors.Is(wrapped, &TranscriptError{}) {
		t.Error("Expected TranscriptError to be detected through wrapping")
	}
}

func TestSentinels(t *testing.T) {
	t.Parallel()
	if ErrRunActive.Error() == "" || ErrNoIdentifiers.Error() == "" || ErrArchiveNotAvailable.Error() == "" {
		t.Error("Sentinel errors must carry messages")
	}
}
