package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/failsafe-go/failsafe-go"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/config"
)

// TranscriptPayload is the raw pipeline response plus its decoded form.
// The pipeline schema is not firmly contracted, so the decoded value is kept
// loose and interrogated through the extraction rules below.
type TranscriptPayload struct {
	Raw   json.RawMessage
	Value any
}

// CaptionEntry is one caption asset advertised by the pipeline.
type CaptionEntry struct {
	URL      string
	Type     string
	Language string
}

// FetchPipelineTranscript queries the transcription-pipeline API for a
// resource, with the same retry shape as binary downloads (3 attempts,
// doubling backoff).
func (c *client) FetchPipelineTranscript(ctx context.Context, resourceID string) (*TranscriptPayload, error) {
	logger := config.GetLogger()

	if c.pipelineURL == "" {
		return nil, apperrors.NewTranscriptError(resourceID, fmt.Errorf("pipeline base URL not configured"))
	}

	endpoint := c.pipelineURL
	if u, err := url.Parse(endpoint); err == nil {
		q := u.Query()
		q.Set("resource_id", resourceID)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	logger.Info().Str("resourceID", resourceID).Msg("Fetching pipeline transcript")

	var payload *TranscriptPayload
	err := failsafe.Run(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return &permanentError{fmt.Errorf("failed to create request: %w", err)}
		}
		req.Header.Set("User-Agent", config.GetUserAgent())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperrors.NewNetworkError("transcript", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperrors.NewNetworkError("transcript", endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.NewNetworkError("transcript", endpoint, err)
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return &permanentError{fmt.Errorf("invalid transcript JSON: %w", err)}
		}

		payload = &TranscriptPayload{Raw: raw, Value: value}
		return nil
	}, c.retryPolicy)

	if err != nil {
		return nil, apperrors.NewTranscriptError(resourceID, err)
	}
	return payload, nil
}

// FetchVTTBody fetches one subtitle file as UTF-8 text. Deliberately
// unretried: by this point the pipeline has already vouched for the URL, and
// a miss is handled by the JSON fallback artifact.
func (c *client) FetchVTTBody(ctx context.Context, vttURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vttURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewNetworkError("vtt", vttURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewNetworkError("vtt", vttURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	reader, err := newUTF8Reader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", apperrors.NewNetworkError("vtt", vttURL, err)
	}
	return string(body), nil
}

// itemsRule locates the list of transcript items somewhere in the payload.
// Rules are tried in priority order; the first match wins. Keeping the
// search policy as an explicit table makes it testable on its own, rather
// than burying it in nested conditionals.
type itemsRule struct {
	name   string
	locate func(value any) ([]any, bool)
}

var itemsRules = []itemsRule{
	{"data-array", arrayField("data")},
	{"result-array", arrayField("result")},
	{"payload-is-array", func(value any) ([]any, bool) {
		items, ok := value.([]any)
		return items, ok
	}},
	{"top-level-object", func(value any) ([]any, bool) {
		if obj, ok := value.(map[string]any); ok {
			return []any{obj}, true
		}
		return nil, false
	}},
}

func arrayField(key string) func(any) ([]any, bool) {
	return func(value any) ([]any, bool) {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		items, ok := obj[key].([]any)
		return items, ok
	}
}

// captionKeys are the fields under which an item may advertise caption
// entries. All matches across all keys are pooled.
var captionKeys = []string{"transcription_urls", "transcription_url", "transcripts"}

// ExtractCaptionEntries pools every caption entry found in the payload,
// applying the ordered item-location rules first.
func ExtractCaptionEntries(payload *TranscriptPayload) []CaptionEntry {
	if payload == nil {
		return nil
	}

	var items []any
	for _, rule := range itemsRules {
		if found, ok := rule.locate(payload.Value); ok {
			logger := config.GetLogger()
			logger.Debug().Str("rule", rule.name).Int("items", len(found)).Msg("Located transcript items")
			items = found
			break
		}
	}

	var pool []CaptionEntry
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range captionKeys {
			switch v := obj[key].(type) {
			case []any:
				for _, raw := range v {
					if entry, ok := toCaptionEntry(raw); ok {
						pool = append(pool, entry)
					}
				}
			case map[string]any:
				if entry, ok := toCaptionEntry(v); ok {
					pool = append(pool, entry)
				}
			case string:
				// A bare URL with no declared type or language.
				pool = append(pool, CaptionEntry{URL: v})
			}
		}
	}
	return pool
}

func toCaptionEntry(raw any) (CaptionEntry, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return CaptionEntry{}, false
	}
	entry := CaptionEntry{}
	if s, ok := obj["url"].(string); ok {
		entry.URL = s
	}
	if s, ok := obj["type"].(string); ok {
		entry.Type = s
	}
	if s, ok := obj["language"].(string); ok {
		entry.Language = s
	}
	return entry, entry.URL != "" || entry.Type != "" || entry.Language != ""
}

// SelectEnglishVTTs filters the pooled entries down to downloadable English
// VTT captions: type "vtt" and language "english" or "en", case-insensitive.
func SelectEnglishVTTs(entries []CaptionEntry) []CaptionEntry {
	var out []CaptionEntry
	for _, e := range entries {
		if !strings.EqualFold(e.Type, "vtt") {
			continue
		}
		lang := strings.ToLower(e.Language)
		if lang == "english" || lang == "en" {
			out = append(out, e)
		}
	}
	return out
}

// PrettyJSON renders the raw payload indented, for the fallback artifact
// written when no English VTT captions exist.
func (p *TranscriptPayload) PrettyJSON() string {
	var buf strings.Builder
	var out any
	if err := json.Unmarshal(p.Raw, &out); err != nil {
		return string(p.Raw)
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return string(p.Raw)
	}
	return strings.TrimRight(buf.String(), "\n")
}
