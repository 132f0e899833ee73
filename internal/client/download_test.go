package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestDownload_StreamsToDisk(t *testing.T) {
	t.Parallel()
	payload := bytes.Repeat([]byte("course-content-"), 4096) // > one chunk
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "course", "module", "pkg.zip")
	c := newTestClient("", "")
	if err := c.Download(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Reading downloaded file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Downloaded bytes differ: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestDownload_NoContentLength(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Chunked response, no content-length.
		w.Write([]byte("small body"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "pkg.zip")
	c := newTestClient("", "")
	if err := c.Download(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "small body" {
		t.Errorf("Unexpected file content %q", string(got))
	}
}

func TestDownload_Non2xxStatus(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := newTestClient("", "")
	if err := c.Download(context.Background(), ts.URL, filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatal("Expected error for 403 response")
	}
}

func TestDownloadWithRetry_SucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "pkg.zip")
	c := newTestClient("", "")
	if err := c.DownloadWithRetry(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("Expected success on attempt 3, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "finally" {
		t.Errorf("Unexpected content %q", string(got))
	}
}

func TestDownloadWithRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := newTestClient("", "")
	if err := c.DownloadWithRetry(context.Background(), ts.URL, filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatal("Expected failure after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", attempts)
	}
}

func TestDownloadWithRetry_MkdirFailureIsPermanent(t *testing.T) {
	t.Parallel()
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte("data"))
	}))
	defer ts.Close()

	// Parent path is a regular file, so MkdirAll must fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient("", "")
	err := c.DownloadWithRetry(context.Background(), ts.URL, filepath.Join(blocker, "sub", "x.zip"))
	if err == nil {
		t.Fatal("Expected mkdir failure")
	}
	if attempts != 0 {
		t.Errorf("Mkdir failure must not reach the server or retry, server saw %d requests", attempts)
	}
}
