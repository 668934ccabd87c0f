package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"google.golang.org/genai"
)

const serviceName = "Gemini"

// TextGenerator produces text for a prompt using the caller's API key.
type TextGenerator interface {
	GenerateText(ctx context.Context, apiKey, prompt string) (string, error)
}

var _ TextGenerator = (*GeminiClient)(nil)

// GeminiClient keeps one SDK client per API key.
type GeminiClient struct {
	httpClient *http.Client
	model      string
	baseURL    string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiClient(httpClient *http.Client, model, baseURL string) *GeminiClient {
	return &GeminiClient{
		httpClient: httpClient,
		model:      model,
		baseURL:    baseURL,
		clients:    make(map[string]*genai.Client),
	}
}

func (g *GeminiClient) GenerateText(ctx context.Context, apiKey, prompt string) (string, error) {
	if apiKey == "" {
		return "", &apperr.MissingKeyError{Key: serviceName}
	}

	client, err := g.client(ctx, apiKey)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](64),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 8192,
	})
	if err != nil {
		return "", upstreamError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &apperr.UpstreamError{Service: serviceName, Detail: "no candidates in response"}
	}

	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", &apperr.UpstreamError{Service: serviceName, Detail: "empty generated text"}
	}

	return text, nil
}

func (g *GeminiClient) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[apiKey]; ok {
		return client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g.clients[apiKey] = client
	return client, nil
}

func upstreamError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &apperr.UpstreamError{Service: serviceName, Detail: "request cancelled or timed out", Err: err}
	}
	return &apperr.UpstreamError{Service: serviceName, Err: err}
}
