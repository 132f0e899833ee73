package client

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/ratelimiter"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/igotools/coursevault/internal/config"
)

// newTestClient builds a client pointed at test servers with fast retry
// backoff so tests don't sleep through real delays.
func newTestClient(baseURL, pipelineURL string) *client {
	retry := retrypolicy.Builder[any]().
		WithMaxAttempts(downloadRetryAttempts).
		WithBackoff(time.Millisecond, 2*time.Millisecond).
		HandleIf(func(_ any, err error) bool {
			var perm *permanentError
			return err != nil && !errors.As(err, &perm)
		}).
		Build()

	return &client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		downloadClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:        baseURL,
		pipelineURL:    pipelineURL,
		storagePrefix:  "https://storage.googleapis.com/igotprod",
		storeMirror:    "https://igotkarmayogi.gov.in/content-store",
		retryPolicy:    retry,
		captionLimiter: ratelimiter.SmoothBuilderWithMaxRate[any](time.Millisecond).Build(),
		captionBaseURL: defaultCaptionBaseURL,
	}
}

func TestConvertStorageURL(t *testing.T) {
	t.Parallel()
	c := newTestClient("", "")

	got := c.ConvertStorageURL("https://storage.googleapis.com/igotprod/content/do_1/artifact.zip")
	want := "https://igotkarmayogi.gov.in/content-store/content/do_1/artifact.zip"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	passthrough := "https://cdn.example.com/other.zip"
	if c.ConvertStorageURL(passthrough) != passthrough {
		t.Error("Unrelated URLs must pass through unchanged")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Provider = "memory"
	cfg.Cache.Size = 8
	c := NewClient(cfg)
	defer c.Close()

	impl, ok := c.(*client)
	if !ok {
		t.Fatalf("Unexpected client type %T", c)
	}
	if impl.httpClient.Timeout != 30*time.Second {
		t.Errorf("Expected default 30s client timeout, got %v", impl.httpClient.Timeout)
	}
	if impl.downloadClient.Timeout != 5*time.Minute {
		t.Errorf("Expected default 5m download timeout, got %v", impl.downloadClient.Timeout)
	}
	if impl.metaCache == nil {
		t.Error("Expected metadata cache to be configured")
	}
}
