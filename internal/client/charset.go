package client

import (
	"io"

	"golang.org/x/net/html/charset"
)

// newUTF8Reader wraps an io.Reader with automatic character encoding
// detection and conversion to UTF-8. Subtitle and caption bodies arrive in
// whatever encoding the upstream chose (ISO-8859-1, Windows-1252, UTF-8
// with or without BOM); everything persisted locally is normalized to UTF-8.
// Already-UTF-8 content passes through with minimal overhead.
func newUTF8Reader(body io.Reader) (io.Reader, error) {
	// Empty contentType lets the charset be detected from the content itself.
	return charset.NewReader(body, "")
}
