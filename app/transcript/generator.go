package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/feed"
	"github.com/lysyi3m/rss-radio/app/metrics"
	"golang.org/x/text/unicode/norm"
)

const MaxContentChars = 30000

const promptTemplate = "Convert this article into a radio-ready script. Make it engaging and easy to read aloud:\n\nTitle: %s\n\nContent: %s"

// PageSource downloads an article's web page.
type PageSource interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor pulls readable text out of a page.
type TextExtractor interface {
	Run(data []byte) (string, error)
}

type Generator struct {
	articleRepo    database.ArticleRepository
	credentialRepo database.CredentialRepository
	llm            TextGenerator
	pages          PageSource
	extractor      TextExtractor
	timeout        time.Duration
}

func NewGenerator(articleRepo database.ArticleRepository, credentialRepo database.CredentialRepository,
	llm TextGenerator, pages PageSource, extractor TextExtractor, timeout time.Duration) *Generator {
	return &Generator{
		articleRepo:    articleRepo,
		credentialRepo: credentialRepo,
		llm:            llm,
		pages:          pages,
		extractor:      extractor,
		timeout:        timeout,
	}
}

// Generate rewrites the article as a radio script and stores it as the
// article's transcript.
func (g *Generator) Generate(ctx context.Context, ownerID string, article database.Article) (transcript string, err error) {
	defer func() {
		metrics.StageRuns.WithLabelValues(metrics.StageTranscript, metrics.Result(err)).Inc()
	}()

	creds, err := g.credentialRepo.GetCredentials(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.GeminiAPIKey == "" {
		return "", &apperr.MissingKeyError{Key: serviceName}
	}

	content := g.resolveContent(ctx, article)
	if content == "" {
		return "", &apperr.NoContentError{ArticleID: article.ID}
	}

	prompt := BuildPrompt(article.Title, content)

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	transcript, err = g.llm.GenerateText(callCtx, creds.GeminiAPIKey, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return "", &apperr.UpstreamError{Service: serviceName, Detail: "empty generated text"}
	}

	if err := g.articleRepo.SetTranscript(ctx, article.ID, transcript); err != nil {
		return "", err
	}

	slog.Info("Transcript generated",
		"article_id", article.ID,
		"content_length", len([]rune(content)),
		"transcript_length", len([]rune(transcript)),
		"duration", time.Since(start))

	return transcript, nil
}

// resolveContent prefers stored content and falls back to scraping the
// article page. An empty result means no usable text.
func (g *Generator) resolveContent(ctx context.Context, article database.Article) string {
	if article.Content != nil {
		if text := feed.PlainText(*article.Content); text != "" {
			return text
		}
	}

	if g.pages == nil || article.URL == "" {
		return ""
	}

	page, err := g.pages.FetchPage(ctx, article.URL)
	if err != nil {
		slog.Warn("Failed to fetch article page", "article_id", article.ID, "url", article.URL, "error", err)
		return ""
	}

	text, err := g.extractor.Run(page)
	if err != nil {
		if !errors.Is(err, feed.ErrNoContent) {
			slog.Warn("Content extraction failed", "article_id", article.ID, "error", err)
		}
		return ""
	}
	return text
}

// BuildPrompt normalizes content to NFC and truncates it before embedding it
// in the radio script prompt.
func BuildPrompt(title, content string) string {
	content = norm.NFC.String(content)
	if runes := []rune(content); len(runes) > MaxContentChars {
		content = string(runes[:MaxContentChars])
	}
	return fmt.Sprintf(promptTemplate, title, content)
}
