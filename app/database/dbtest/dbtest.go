// Package dbtest provides a migrated SQLite database for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/stretchr/testify/require"
)

const OwnerID = "owner-1"

type Fixture struct {
	DB          *sqlx.DB
	Feeds       database.FeedRepository
	Stations    database.StationRepository
	Articles    database.ArticleRepository
	Credentials database.CredentialRepository
}

func New(t testing.TB) *Fixture {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "radio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return &Fixture{
		DB:          db,
		Feeds:       database.NewFeedRepository(db),
		Stations:    database.NewStationRepository(db),
		Articles:    database.NewArticleRepository(db),
		Credentials: database.NewCredentialRepository(db),
	}
}

func (f *Fixture) Feed(t testing.TB, url string) *database.Feed {
	t.Helper()
	feed, err := f.Feeds.CreateFeed(context.Background(), OwnerID, url, nil)
	require.NoError(t, err)
	return feed
}

// Seed upserts one article per title, each an hour newer than the previous,
// and returns the feed's articles newest first.
func (f *Fixture) Seed(t testing.TB, feed *database.Feed, titles ...string) []database.Article {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]database.NewArticle, 0, len(titles))
	for i, title := range titles {
		content := "Content of " + title
		entries = append(entries, database.NewArticle{
			Title:       title,
			Content:     &content,
			URL:         feed.URL + "/" + title,
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	_, err := f.Articles.UpsertArticles(ctx, feed.ID, feed.DisplayTitle(), entries)
	require.NoError(t, err)

	articles, err := f.Articles.ListArticles(ctx, OwnerID, database.ArticleFilter{FeedID: feed.ID})
	require.NoError(t, err)
	return articles
}

func (f *Fixture) SetKeys(t testing.TB, gemini, elevenLabs string) {
	t.Helper()
	_, err := f.Credentials.UpdateCredentials(context.Background(), OwnerID, database.CredentialsUpdate{
		GeminiAPIKey:     &gemini,
		ElevenLabsAPIKey: &elevenLabs,
	})
	require.NoError(t, err)
}

func (f *Fixture) Article(t testing.TB, id string) *database.Article {
	t.Helper()
	article, err := f.Articles.GetArticle(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, article)
	return article
}
