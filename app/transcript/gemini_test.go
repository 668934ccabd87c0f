package transcript

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiServer(t *testing.T, status int, body string, requests *[]map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "gemini-key" {
			t.Errorf("Expected API key header, got: %s", r.Header.Get("x-goog-api-key"))
		}
		if requests != nil {
			raw, _ := io.ReadAll(r.Body)
			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err == nil {
				*requests = append(*requests, payload)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGeminiGenerateText(t *testing.T) {
	var requests []map[string]any
	server := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "  Hello and welcome.  "}, {"text": "ignored"}]},
			"finishReason": "STOP"
		}]
	}`, &requests)

	client := NewGeminiClient(server.Client(), "gemini-2.0-flash", server.URL)
	text, err := client.GenerateText(context.Background(), "gemini-key", "Rewrite this")
	require.NoError(t, err)
	assert.Equal(t, "Hello and welcome.", text)

	require.Len(t, requests, 1)
	config, ok := requests[0]["generationConfig"].(map[string]any)
	require.True(t, ok, "expected generationConfig in request")
	assert.InDelta(t, 0.7, config["temperature"], 0.001)
	assert.InDelta(t, 64, config["topK"], 0.001)
	assert.InDelta(t, 0.95, config["topP"], 0.001)
	assert.InDelta(t, 8192, config["maxOutputTokens"], 0.001)
}

func TestGeminiEmptyCandidates(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates": []}`,
		"blank text":    `{"candidates": [{"content": {"parts": [{"text": "   "}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := newGeminiServer(t, http.StatusOK, body, nil)
			client := NewGeminiClient(server.Client(), "gemini-2.0-flash", server.URL)

			_, err := client.GenerateText(context.Background(), "gemini-key", "prompt")
			assert.True(t, apperr.As[*apperr.UpstreamError](err), "expected UpstreamError, got %v", err)
		})
	}
}

func TestGeminiErrorResponse(t *testing.T) {
	server := newGeminiServer(t, http.StatusBadRequest,
		`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`, nil)
	client := NewGeminiClient(server.Client(), "gemini-2.0-flash", server.URL)

	_, err := client.GenerateText(context.Background(), "gemini-key", "prompt")
	assert.True(t, apperr.As[*apperr.UpstreamError](err), "expected UpstreamError, got %v", err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGeminiMissingKey(t *testing.T) {
	client := NewGeminiClient(http.DefaultClient, "gemini-2.0-flash", "")
	_, err := client.GenerateText(context.Background(), "", "prompt")
	assert.True(t, apperr.As[*apperr.MissingKeyError](err))
}
