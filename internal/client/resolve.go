package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/config"
	"github.com/igotools/coursevault/internal/models"
)

// readEnvelope is the JSON envelope returned by the content read API.
type readEnvelope struct {
	ResponseCode string `json:"responseCode"`
	Result       struct {
		Content models.ContentRecord `json:"content"`
	} `json:"result"`
	Params struct {
		ErrMsg string `json:"errmsg"`
	} `json:"params"`
}

// Resolve fetches the metadata record for one content identifier.
// A non-OK envelope yields a ResolutionError; transport failures yield a
// NetworkError. Resolution is never retried: a failed read almost always
// means the content does not exist, and backoff on metadata calls would only
// slow the batch down.
func (c *client) Resolve(ctx context.Context, id string) (*models.ContentRecord, error) {
	logger := config.GetLogger()

	if c.metaCache != nil {
		if cached, ok := c.metaCache.Get(id); ok {
			var record models.ContentRecord
			if err := json.Unmarshal(cached, &record); err == nil {
				logger.Debug().Str("id", id).Msg("Resolved content from cache")
				return &record, nil
			}
			// A corrupt cache entry is ignored and overwritten below.
		}
	}

	endpoint := fmt.Sprintf("%s/api/content/v1/read/%s", c.baseURL, id)
	logger.Info().Str("id", id).Msg("Fetching content metadata")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("resolve", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewResolutionError(id, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)))
	}

	var envelope readEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.NewResolutionError(id, fmt.Sprintf("invalid response: %v", err))
	}

	if envelope.ResponseCode != "OK" {
		msg := envelope.Params.ErrMsg
		if msg == "" {
			msg = fmt.Sprintf("response code %q", envelope.ResponseCode)
		}
		return nil, apperrors.NewResolutionError(id, msg)
	}

	record := envelope.Result.Content
	if record.ID == "" {
		record.ID = id
	}

	if c.metaCache != nil {
		if raw, err := json.Marshal(&record); err == nil {
			c.metaCache.Set(id, raw)
		}
	}

	logger.Debug().
		Str("id", id).
		Str("name", record.Name).
		Str("mimeType", record.MimeType).
		Int("children", len(record.ChildIDs)).
		Msg("Resolved content")

	return &record, nil
}
