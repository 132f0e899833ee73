package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/igotools/coursevault/internal/apperrors"
	"github.com/igotools/coursevault/internal/config"
)

// videoIDPatterns cover the three hosted-video URL shapes seen in course
// metadata: watch?v=ID, youtu.be/ID, and embed/ID.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{6,})`),
}

// captionTracksPattern locates the caption track list embedded in the
// watch-page player response.
var captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// blockPhrases identify provider-side refusal rather than an internal
// defect. Matched case-insensitively against error text and page content.
var blockPhrases = []string{
	"too many requests",
	"unusual traffic",
	"recaptcha",
	"sign in to confirm",
	"captions are disabled",
}

// ExtractVideoID pulls the video identifier out of a hosted-video URL.
func ExtractVideoID(videoURL string) (string, bool) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(videoURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// IsProviderBlock reports whether the error looks like the caption provider
// throttling or refusing the caller, an expected upstream limitation.
func IsProviderBlock(err error) bool {
	if err == nil {
		return false
	}
	var blocked *apperrors.CaptionsUnavailableError
	if errors.As(err, &blocked) {
		return true
	}
	return containsBlockPhrase(err.Error())
}

func containsBlockPhrase(s string) bool {
	s = strings.ToLower(s)
	for _, phrase := range blockPhrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

// captionTrack mirrors the fields we need from the player response.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

// FetchHostedVideoTranscript fetches English captions for an externally
// hosted video and joins the fragments into one text blob. A minimum
// interval between caption-provider requests is enforced through the shared
// rate limiter before any request is issued.
func (c *client) FetchHostedVideoTranscript(ctx context.Context, videoURL string) (string, error) {
	logger := config.GetLogger()

	videoID, ok := ExtractVideoID(videoURL)
	if !ok {
		return "", fmt.Errorf("no video id recognized in %s", videoURL)
	}

	// Deliberate self-throttling: the caption provider blocks callers that
	// query too frequently.
	if err := c.captionLimiter.AcquirePermit(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait interrupted: %w", err)
	}

	logger.Info().Str("videoID", videoID).Msg("Fetching hosted-video captions")

	track, err := c.findCaptionTrack(ctx, videoID)
	if err != nil {
		return "", err
	}

	transcript, err := c.fetchTimedText(ctx, track.BaseURL, videoID)
	if err != nil {
		return "", err
	}

	logger.Debug().Str("videoID", videoID).Int("chars", len(transcript)).Msg("Captions fetched")
	return transcript, nil
}

// defaultCaptionBaseURL is where watch pages are fetched from.
const defaultCaptionBaseURL = "https://www.youtube.com"

// findCaptionTrack loads the watch page and picks an English caption track.
func (c *client) findCaptionTrack(ctx context.Context, videoID string) (*captionTrack, error) {
	watchURL := c.captionBaseURL + "/watch?v=" + videoID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("captions", watchURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewCaptionsUnavailableError(videoID, "too many requests")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError("captions", watchURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("captions", watchURL, err)
	}

	page := string(body)
	if containsBlockPhrase(page) {
		return nil, apperrors.NewCaptionsUnavailableError(videoID, "provider is blocking automated requests")
	}

	m := captionTracksPattern.FindStringSubmatch(page)
	if m == nil {
		return nil, apperrors.NewCaptionsUnavailableError(videoID, "no caption tracks published")
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(m[1]), &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse caption track list: %w", err)
	}

	for _, t := range tracks {
		if t.LanguageCode == "en" || strings.HasPrefix(t.LanguageCode, "en-") {
			return &t, nil
		}
	}
	return nil, apperrors.NewCaptionsUnavailableError(videoID, "no English caption track")
}

// fetchTimedText downloads a caption track and joins its fragments with
// spaces. The timed-text body is XML of <text> elements; goquery's lenient
// parser handles it and unescapes entities for free.
func (c *client) fetchTimedText(ctx context.Context, trackURL, videoID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewNetworkError("captions", trackURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewNetworkError("captions", trackURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse timed text: %w", err)
	}

	var fragments []string
	doc.Find("text").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			fragments = append(fragments, t)
		}
	})

	if len(fragments) == 0 {
		return "", apperrors.NewCaptionsUnavailableError(videoID, "caption track is empty")
	}
	return strings.Join(fragments, " "), nil
}
