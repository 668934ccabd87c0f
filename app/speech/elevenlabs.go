package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lysyi3m/rss-radio/app/apperr"
	"golang.org/x/time/rate"
)

const (
	serviceName = "ElevenLabs"

	defaultStability       = 0.5
	defaultSimilarityBoost = 0.5

	maxAudioBytes = 50 << 20
	maxErrorBytes = 64 << 10
)

type SynthesisRequest struct {
	Text    string
	VoiceID string
	ModelID string
}

// TextToSpeech turns text into encoded audio using the caller's API key.
type TextToSpeech interface {
	Synthesize(ctx context.Context, apiKey string, req SynthesisRequest) (audio []byte, contentType string, err error)
}

var _ TextToSpeech = (*ElevenLabsClient)(nil)

type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisPayload struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewElevenLabsClient paces requests through limiter; nil means unlimited.
func NewElevenLabsClient(httpClient *http.Client, baseURL string, limiter *rate.Limiter) *ElevenLabsClient {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &ElevenLabsClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    limiter,
	}
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, apiKey string, req SynthesisRequest) ([]byte, string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, "", fmt.Errorf("text cannot be empty")
	}
	if apiKey == "" {
		return nil, "", &apperr.MissingKeyError{Key: serviceName}
	}

	body, err := json.Marshal(synthesisPayload{
		Text:    req.Text,
		ModelID: req.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       defaultStability,
			SimilarityBoost: defaultSimilarityBoost,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Err: err}
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, url.PathEscape(req.VoiceID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", apiKey)

	slog.Debug("Sending text-to-speech request", "voice_id", req.VoiceID, "model_id", req.ModelID, "chars", len(req.Text))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, "", &apperr.UpstreamError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Detail:  errorDetail(errorBody),
		}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Err: fmt.Errorf("failed to read audio: %w", err)}
	}
	if len(audio) == 0 {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Detail: "response contained no audio"}
	}

	contentType, ok := audioType(audio, resp.Header.Get("Content-Type"))
	if !ok {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Detail: "response is not audio"}
	}

	return audio, contentType, nil
}

// errorDetail extracts the human readable message from an error payload.
// The API answers either {"detail": {"message": ...}} or {"detail": "..."}.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var structured struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Detail, &structured); err == nil && structured.Message != "" {
		return structured.Message
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}

	return string(payload.Detail)
}

// audioType sniffs the payload. A declared audio type is trusted only when
// the bytes are opaque binary rather than text or JSON.
func audioType(data []byte, declared string) (string, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return detected.String(), true
		}
	}

	mediaType, _, _ := mime.ParseMediaType(declared)
	if strings.HasPrefix(mediaType, "audio/") && detected.Is("application/octet-stream") {
		return mediaType, true
	}

	return "", false
}
