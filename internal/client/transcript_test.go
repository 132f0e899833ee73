package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func payloadFromJSON(t *testing.T, raw string) *TranscriptPayload {
	t.Helper()
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("Bad test JSON: %v", err)
	}
	return &TranscriptPayload{Raw: json.RawMessage(raw), Value: value}
}

func TestExtractCaptionEntries_Shapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{
			"data-array",
			`{"data": [{"transcription_urls": [{"url": "http://x/1.vtt", "type": "vtt", "language": "English"}]}]}`,
			1,
		},
		{
			"result-array",
			`{"result": [{"transcription_url": {"url": "http://x/2.vtt", "type": "vtt", "language": "en"}}]}`,
			1,
		},
		{
			"payload-is-array",
			`[{"transcripts": [{"url": "http://x/3.vtt", "type": "vtt", "language": "en"}, {"url": "http://x/3.srt", "type": "srt", "language": "en"}]}]`,
			2,
		},
		{
			"top-level-object",
			`{"transcription_urls": [{"url": "http://x/4.vtt", "type": "vtt", "language": "EN"}]}`,
			1,
		},
		{
			"bare-url-string",
			`{"data": [{"transcription_url": "http://x/5.vtt"}]}`,
			1,
		},
		{
			"empty",
			`{"status": "processing"}`,
			0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			entries := ExtractCaptionEntries(payloadFromJSON(t, tc.raw))
			if len(entries) != tc.want {
				t.Errorf("Expected %d pooled entries, got %d: %+v", tc.want, len(entries), entries)
			}
		})
	}
}

func TestExtractCaptionEntries_DataWinsOverResult(t *testing.T) {
	t.Parallel()
	raw := `{
		"data": [{"transcription_urls": [{"url": "http://x/data.vtt", "type": "vtt", "language": "en"}]}],
		"result": [{"transcription_urls": [{"url": "http://x/result.vtt", "type": "vtt", "language": "en"}]}]
	}`
	entries := ExtractCaptionEntries(payloadFromJSON(t, raw))
	if len(entries) != 1 || entries[0].URL != "http://x/data.vtt" {
		t.Errorf("Expected the data array to take priority, got %+v", entries)
	}
}

func TestSelectEnglishVTTs(t *testing.T) {
	t.Parallel()
	pool := []CaptionEntry{
		{URL: "a", Type: "vtt", Language: "English"},
		{URL: "b", Type: "VTT", Language: "EN"},
		{URL: "c", Type: "vtt", Language: "hindi"},
		{URL: "d", Type: "srt", Language: "en"},
		{URL: "e"},
	}
	got := SelectEnglishVTTs(pool)
	if len(got) != 2 {
		t.Fatalf("Expected 2 matches, got %d: %+v", len(got), got)
	}
	if got[0].URL != "a" || got[1].URL != "b" {
		t.Errorf("Wrong entries selected: %+v", got)
	}
}

func TestFetchPipelineTranscript_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("resource_id") != "do_55" {
			t.Errorf("Missing resource_id parameter, got %q", r.URL.RawQuery)
		}
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer ts.Close()

	c := newTestClient("", ts.URL)
	payload, err := c.FetchPipelineTranscript(context.Background(), "do_55")
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if payload == nil || payload.Value == nil {
		t.Fatal("Expected decoded payload")
	}
}

func TestFetchPipelineTranscript_InvalidJSONNotRetried(t *testing.T) {
	t.Parallel()
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer ts.Close()

	c := newTestClient("", ts.URL)
	if _, err := c.FetchPipelineTranscript(context.Background(), "do_55"); err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if attempts != 1 {
		t.Errorf("Invalid JSON is permanent, expected 1 attempt, got %d", attempts)
	}
}

func TestFetchVTTBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/vtt")
		w.Write([]byte("WEBVTT\n\n00:01.000 --> 00:04.000\nHello"))
	}))
	defer ts.Close()

	c := newTestClient("", "")
	body, err := c.FetchVTTBody(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("FetchVTTBody failed: %v", err)
	}
	if !strings.HasPrefix(body, "WEBVTT") {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestPrettyJSON(t *testing.T) {
	t.Parallel()
	p := payloadFromJSON(t, `{"b":1,"a":[2,3]}`)
	pretty := p.PrettyJSON()
	if !strings.Contains(pretty, "\n") || !strings.Contains(pretty, "  ") {
		t.Errorf("Expected indented output, got %q", pretty)
	}
}
