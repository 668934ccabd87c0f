package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mp3Data = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 128)...)

func TestSynthesizeSendsExpectedRequest(t *testing.T) {
	var got struct {
		path    string
		apiKey  string
		accept  string
		payload synthesisPayload
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.apiKey = r.Header.Get("xi-api-key")
		got.accept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&got.payload); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(mp3Data)
	}))
	defer server.Close()

	client := NewElevenLabsClient(server.Client(), server.URL+"/v1/", nil)
	audio, contentType, err := client.Synthesize(context.Background(), "secret", SynthesisRequest{
		Text:    "Hello listeners",
		VoiceID: "voice-1",
		ModelID: "eleven_turbo_v2",
	})
	require.NoError(t, err)

	assert.Equal(t, mp3Data, audio)
	assert.Equal(t, "audio/mpeg", contentType)
	assert.Equal(t, "/v1/text-to-speech/voice-1", got.path)
	assert.Equal(t, "secret", got.apiKey)
	assert.Equal(t, "audio/mpeg", got.accept)
	assert.Equal(t, synthesisPayload{
		Text:          "Hello listeners",
		ModelID:       "eleven_turbo_v2",
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.5},
	}, got.payload)
}

func TestSynthesizeUpstreamErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		detail      string
	}{
		{
			name:        "structured detail",
			status:      http.StatusUnauthorized,
			contentType: "application/json",
			body:        `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`,
			detail:      "Invalid API key",
		},
		{
			name:        "string detail",
			status:      http.StatusTooManyRequests,
			contentType: "application/json",
			body:        `{"detail":"Too many concurrent requests"}`,
			detail:      "Too many concurrent requests",
		},
		{
			name:        "plain body",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        "bad gateway",
			detail:      "bad gateway",
		},
		{
			name:        "empty audio",
			status:      http.StatusOK,
			contentType: "audio/mpeg",
			body:        "",
			detail:      "response contained no audio",
		},
		{
			name:        "json instead of audio",
			status:      http.StatusOK,
			contentType: "audio/mpeg",
			body:        `{"message":"queued"}`,
			detail:      "response is not audio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewElevenLabsClient(server.Client(), server.URL, nil)
			_, _, err := client.Synthesize(context.Background(), "key", SynthesisRequest{Text: "hi", VoiceID: "v"})

			var upstream *apperr.UpstreamError
			require.True(t, errors.As(err, &upstream), "expected UpstreamError, got %v", err)
			assert.Equal(t, tt.detail, upstream.Detail)
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, upstream.Status)
			}
		})
	}
}

func TestSynthesizeRequiresKeyAndText(t *testing.T) {
	client := NewElevenLabsClient(http.DefaultClient, "http://127.0.0.1:0", nil)

	_, _, err := client.Synthesize(context.Background(), "", SynthesisRequest{Text: "hi"})
	assert.True(t, apperr.As[*apperr.MissingKeyError](err))

	_, _, err = client.Synthesize(context.Background(), "key", SynthesisRequest{Text: "  "})
	assert.Error(t, err)
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "boom", errorDetail([]byte(`{"detail":{"message":"boom"}}`)))
	assert.Equal(t, "plain", errorDetail([]byte("plain")))
	assert.Equal(t, `[{"loc":["body"]}]`, errorDetail([]byte(`{"detail":[{"loc":["body"]}]}`)))
}
