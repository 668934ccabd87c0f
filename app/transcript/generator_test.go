package transcript

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/database/dbtest"
	"github.com/lysyi3m/rss-radio/app/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeLLM) GenerateText(ctx context.Context, apiKey, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakePages struct {
	pages map[string]string
	urls  []string
}

func (f *fakePages) FetchPage(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, &apperr.FetchError{URL: url, Err: errors.New("HTTP error: 404 Not Found")}
	}
	return []byte(page), nil
}

func newGenerator(fx *dbtest.Fixture, llm TextGenerator, pages PageSource) *Generator {
	extractor := feed.NewContentExtractor(feed.DefaultStrategies(false)...)
	return NewGenerator(fx.Articles, fx.Credentials, llm, pages, extractor, 0)
}

func TestGenerateUsesStoredContent(t *testing.T) {
	fx := dbtest.New(t)
	fx.SetKeys(t, "gemini-key", "")
	feedRow := fx.Feed(t, "https://example.com/feed")
	article := fx.Seed(t, feedRow, "Budget")[0]

	llm := &fakeLLM{reply: "Good evening, here is the budget news."}
	pages := &fakePages{}

	transcript, err := newGenerator(fx, llm, pages).Generate(context.Background(), dbtest.OwnerID, article)
	require.NoError(t, err)

	assert.Equal(t, "Good evening, here is the budget news.", transcript)
	assert.Empty(t, pages.urls, "stored content should not trigger a page fetch")
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, "Convert this article into a radio-ready script. Make it engaging and easy to read aloud:\n\nTitle: Budget\n\nContent: Content of Budget", llm.prompts[0])

	stored := fx.Article(t, article.ID)
	require.NotNil(t, stored.Transcript)
	assert.Equal(t, transcript, *stored.Transcript)
}

func TestGenerateFallsBackToPage(t *testing.T) {
	fx := dbtest.New(t)
	fx.SetKeys(t, "gemini-key", "")
	feedRow := fx.Feed(t, "https://example.com/feed")

	_, err := fx.Articles.UpsertArticles(context.Background(), feedRow.ID, "Feed", []database.NewArticle{
		{Title: "No body", URL: "https://example.com/story"},
	})
	require.NoError(t, err)
	articles, err := fx.Articles.ListArticles(context.Background(), dbtest.OwnerID, database.ArticleFilter{})
	require.NoError(t, err)

	paragraph := strings.Repeat("The council approved the new cycling lanes today. ", 3)
	llm := &fakeLLM{reply: "script"}
	pages := &fakePages{pages: map[string]string{
		"https://example.com/story": "<html><body><p>" + paragraph + "</p></body></html>",
	}}

	_, err = newGenerator(fx, llm, pages).Generate(context.Background(), dbtest.OwnerID, articles[0])
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/story"}, pages.urls)
	assert.Contains(t, llm.prompts[0], "council approved the new cycling lanes")
}

func TestGenerateNoContent(t *testing.T) {
	fx := dbtest.New(t)
	fx.SetKeys(t, "gemini-key", "")
	feedRow := fx.Feed(t, "https://example.com/feed")

	_, err := fx.Articles.UpsertArticles(context.Background(), feedRow.ID, "Feed", []database.NewArticle{
		{Title: "Gone", URL: "https://example.com/gone"},
		{Title: "Thin", URL: "https://example.com/thin"},
	})
	require.NoError(t, err)
	articles, err := fx.Articles.ListArticles(context.Background(), dbtest.OwnerID, database.ArticleFilter{})
	require.NoError(t, err)

	llm := &fakeLLM{reply: "script"}
	pages := &fakePages{pages: map[string]string{
		"https://example.com/thin": "<html><body><p>Too short.</p></body></html>",
	}}
	generator := newGenerator(fx, llm, pages)

	for _, article := range articles {
		_, err := generator.Generate(context.Background(), dbtest.OwnerID, article)
		var noContent *apperr.NoContentError
		require.True(t, errors.As(err, &noContent), "expected NoContentError, got %v", err)
		assert.Equal(t, article.ID, noContent.ArticleID)
	}
	assert.Empty(t, llm.prompts)
}

func TestGenerateErrors(t *testing.T) {
	fx := dbtest.New(t)
	feedRow := fx.Feed(t, "https://example.com/feed")
	article := fx.Seed(t, feedRow, "A")[0]

	t.Run("missing key", func(t *testing.T) {
		llm := &fakeLLM{reply: "script"}
		_, err := newGenerator(fx, llm, nil).Generate(context.Background(), dbtest.OwnerID, article)
		assert.True(t, apperr.As[*apperr.MissingKeyError](err))
		assert.Empty(t, llm.prompts)
	})

	fx.SetKeys(t, "gemini-key", "")

	t.Run("upstream", func(t *testing.T) {
		llm := &fakeLLM{err: &apperr.UpstreamError{Service: serviceName, Status: 429}}
		_, err := newGenerator(fx, llm, nil).Generate(context.Background(), dbtest.OwnerID, article)
		assert.True(t, apperr.As[*apperr.UpstreamError](err))
	})

	t.Run("blank reply", func(t *testing.T) {
		llm := &fakeLLM{reply: "  \n"}
		_, err := newGenerator(fx, llm, nil).Generate(context.Background(), dbtest.OwnerID, article)
		assert.True(t, apperr.As[*apperr.UpstreamError](err))
	})

	t.Run("persistence", func(t *testing.T) {
		llm := &fakeLLM{reply: "script"}
		missing := article
		missing.ID = "missing"
		_, err := newGenerator(fx, llm, nil).Generate(context.Background(), dbtest.OwnerID, missing)
		assert.True(t, apperr.As[*apperr.PersistenceError](err))
	})

	assert.Nil(t, fx.Article(t, article.ID).Transcript)
}

func TestBuildPromptTruncatesContent(t *testing.T) {
	content := strings.Repeat("é", MaxContentChars+500)
	prompt := BuildPrompt("Long", content)

	body := prompt[strings.Index(prompt, "Content: ")+len("Content: "):]
	assert.Equal(t, MaxContentChars, utf8.RuneCountInString(body))
}

func TestBuildPromptNormalizes(t *testing.T) {
	prompt := BuildPrompt("Title", "Cafe\u0301")
	assert.True(t, strings.HasSuffix(prompt, "Caf\u00e9"), prompt)
}
