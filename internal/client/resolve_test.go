package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/cache"
)

func TestResolve_Success(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/content/v1/read/do_123" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"responseCode": "OK",
			"result": {"content": {
				"identifier": "do_123",
				"name": "Leadership Basics",
				"mimeType": "application/vnd.ekstep.content-collection",
				"childNodes": ["do_a", "do_b", "do_c"]
			}}
		}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, "")
	record, err := c.Resolve(context.Background(), "do_123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if record.Name != "Leadership Basics" {
		t.Errorf("Unexpected name %q", record.Name)
	}
	if len(record.ChildIDs) != 3 || record.ChildIDs[0] != "do_a" {
		t.Errorf("Child order not preserved: %v", record.ChildIDs)
	}
}

func TestResolve_ErrorEnvelope(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseCode": "RESOURCE_NOT_FOUND", "params": {"errmsg": "no such content"}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, "")
	_, err := c.Resolve(context.Background(), "do_missing")
	if err == nil {
		t.Fatal("Expected resolution error")
	}
	var resErr *apperrors.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Expected ResolutionError, got %T: %v", err, err)
	}
	if resErr.Message != "no such content" {
		t.Errorf("Expected errmsg to be surfaced, got %q", resErr.Message)
	}
}

func TestResolve_NetworkFailure(t *testing.T) {
	t.Parallel()
	// Point at a closed server to force a connection error.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	c := newTestClient(ts.URL, "")
	_, err := c.Resolve(context.Background(), "do_1")
	if !errors.Is(err, &apperrors.NetworkError{}) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
}

func TestResolve_NoRetry(t *testing.T) {
	t.Parallel()
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, "")
	if _, err := c.Resolve(context.Background(), "do_1"); err == nil {
		t.Fatal("Expected error")
	}
	if hits != 1 {
		t.Errorf("Resolution must not retry, server saw %d requests", hits)
	}
}

func TestResolve_CachesRecord(t *testing.T) {
	t.Parallel()
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"responseCode":"OK","result":{"content":{"identifier":"do_9","name":"Cached","mimeType":"video/mp4"}}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, "")
	mem, err := cache.New("memory", cache.ProviderConfig{Size: 4, TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	c.metaCache = mem

	for i := 0; i < 3; i++ {
		record, err := c.Resolve(context.Background(), "do_9")
		if err != nil {
			t.Fatalf("Resolve %d failed: %v", i, err)
		}
		if record.Name != "Cached" {
			t.Errorf("Unexpected record: %+v", record)
		}
	}
	if hits != 1 {
		t.Errorf("Expected 1 upstream hit with caching, got %d", hits)
	}
}
