package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/ratelimiter"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/igotools/coursevault/internal/cache"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/models"
)

// Client defines the interface for talking to the content portal, the
// transcription pipeline, and the hosted-video caption provider.
type Client interface {
	// Resolve fetches and parses the metadata record for one content identifier.
	Resolve(ctx context.Context, id string) (*models.ContentRecord, error)

	// Download streams a binary asset to destPath. Single attempt.
	Download(ctx context.Context, url, destPath string) error

	// DownloadWithRetry wraps Download with bounded retry and exponential backoff.
	DownloadWithRetry(ctx context.Context, url, destPath string) error

	// FetchPipelineTranscript queries the transcription-pipeline API for a resource.
	FetchPipelineTranscript(ctx context.Context, resourceID string) (*TranscriptPayload, error)

	// FetchVTTBody fetches one subtitle file body as UTF-8 text. Unretried.
	FetchVTTBody(ctx context.Context, url string) (string, error)

	// FetchHostedVideoTranscript fetches and joins captions for an externally
	// hosted video URL, honoring the provider rate limit.
	FetchHostedVideoTranscript(ctx context.Context, videoURL string) (string, error)

	// ConvertStorageURL rewrites a known storage-provider URL prefix to the
	// internal content-store mirror.
	ConvertStorageURL(url string) string

	// Close releases resources held by the client (e.g. cache connections).
	Close() error
}

// client implements the Client interface.
type client struct {
	httpClient     *http.Client // metadata, transcripts, captions
	downloadClient *http.Client // binary assets, longer timeout
	baseURL        string
	pipelineURL    string
	storagePrefix  string
	storeMirror    string
	metaCache      cache.Cache
	retryPolicy    retrypolicy.RetryPolicy[any]
	captionLimiter ratelimiter.RateLimiter[any]
	captionBaseURL string // overridable for tests
}

// downloadRetryAttempts bounds retries for downloads and pipeline
// transcript calls. Backoff doubles from retryBaseDelay, so attempts
// 2 and 3 wait 2s and 4s.
const (
	downloadRetryAttempts = 3
	retryBaseDelay        = 2 * time.Second
	retryMaxDelay         = 4 * time.Second
)

// NewClient creates a client from configuration. The metadata cache is
// created from the configured provider; when that fails (e.g. redis down),
// the client degrades to uncached operation with a warning.
func NewClient(cfg *config.Config) Client {
	logger := config.GetLogger()

	timeout := config.Duration(cfg.ClientTimeout, 30*time.Second)
	downloadTimeout := config.Duration(cfg.DownloadTimeout, 5*time.Minute)

	// Clone DefaultTransport to preserve its pooling and HTTP/2 settings,
	// then wrap it for transparent response decompression.
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	transport := newDecompressionTransport(baseTransport)

	metaCache := newMetadataCache(cfg)

	retry := newRetryPolicy(logger)

	captionInterval := config.Duration(cfg.Pacing.CaptionInterval, 5*time.Second)
	limiter := ratelimiter.SmoothBuilderWithMaxRate[any](captionInterval).Build()

	logger.Debug().
		Dur("client_timeout", timeout).
		Dur("download_timeout", downloadTimeout).
		Dur("caption_interval", captionInterval).
		Msg("HTTP client configured")

	return &client{
		httpClient:     &http.Client{Timeout: timeout, Transport: transport},
		downloadClient: &http.Client{Timeout: downloadTimeout, Transport: transport},
		baseURL:        cfg.BaseURL,
		pipelineURL:    cfg.PipelineBaseURL,
		storagePrefix:  cfg.StorageURLPrefix,
		storeMirror:    cfg.ContentStorePrefix,
		metaCache:      metaCache,
		retryPolicy:    retry,
		captionLimiter: limiter,
		captionBaseURL: defaultCaptionBaseURL,
	}
}

// newRetryPolicy builds the shared retry policy for downloads and pipeline
// transcript calls: 3 attempts with doubling backoff (2s, 4s). Failures
// marked permanent (e.g. the destination directory cannot be created) are
// not retried.
func newRetryPolicy(logger zerolog.Logger) retrypolicy.RetryPolicy[any] {
	return retrypolicy.Builder[any]().
		WithMaxAttempts(downloadRetryAttempts).
		WithBackoff(retryBaseDelay, retryMaxDelay).
		HandleIf(func(_ any, err error) bool {
			var perm *permanentError
			return err != nil && !errors.As(err, &perm)
		}).
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			logger.Warn().
				Err(e.LastError()).
				Int("attempt", e.Attempts()).
				Msg("Retrying after failure")
		}).
		Build()
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func newMetadataCache(cfg *config.Config) cache.Cache {
	logger := config.GetLogger()

	provider := cfg.Cache.Provider
	if provider == "" {
		provider = "memory"
	}
	c, err := cache.New(provider, cache.ProviderConfig{
		Size:          cfg.Cache.Size,
		TTL:           config.Duration(cfg.Cache.TTL, 15*time.Minute),
		RedisAddress:  cfg.Cache.Redis.Address,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
		Group:         "content_metadata",
		Logger:        cacheLogger{logger},
	})
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("Metadata cache unavailable, running uncached")
		return nil
	}
	return c
}

// ConvertStorageURL rewrites a storage-provider URL to the content-store mirror.
func (c *client) ConvertStorageURL(url string) string {
	if c.storagePrefix != "" && strings.HasPrefix(url, c.storagePrefix) {
		return c.storeMirror + strings.TrimPrefix(url, c.storagePrefix)
	}
	return url
}

// cacheLogger adapts zerolog to the cache package's error reporting hook.
type cacheLogger struct {
	logger zerolog.Logger
}

func (l cacheLogger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Close releases the metadata cache.
func (c *client) Close() error {
	if c.metaCache == nil {
		return nil
	}
	return c.metaCache.Close()
}
