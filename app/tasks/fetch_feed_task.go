package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/feed"
	"github.com/lysyi3m/rss-radio/app/metrics"
)

// FetchFeedTask pulls a feed's newest entries into the article store.
// Re-running it is idempotent: known URLs are refreshed in place and
// generated transcripts and audio are left alone.
type FetchFeedTask struct {
	Task
	source      FeedSource
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
}

func NewFetchFeedTask(feedID string, source FeedSource, feedRepo database.FeedRepository,
	articleRepo database.ArticleRepository) *FetchFeedTask {
	return &FetchFeedTask{
		Task:        NewTask(TaskTypeFetchFeed, feedID),
		source:      source,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
	}
}

func (t *FetchFeedTask) Execute(ctx context.Context) error {
	_, err := t.Run(ctx)
	return err
}

// Run fetches the feed once and returns how many articles were upserted.
func (t *FetchFeedTask) Run(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if t.StartedAt == nil {
		t.Start()
	}

	f, err := t.feedRepo.GetFeed(ctx, t.FeedID)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, fmt.Errorf("feed %s not found", t.FeedID)
	}

	metadata, entries, err := t.source.FetchFeed(ctx, f.URL)
	if err != nil {
		metrics.FeedFetches.WithLabelValues(metrics.Result(err)).Inc()
		return 0, err
	}

	// The channel title only sticks once the articles are stored.
	feedTitle := f.DisplayTitle()
	fillTitle := f.Title == nil && metadata.Title != ""
	if fillTitle {
		feedTitle = metadata.Title
	}

	count, err := t.articleRepo.UpsertArticles(ctx, f.ID, feedTitle, toNewArticles(entries))
	if err != nil {
		metrics.FeedFetches.WithLabelValues(metrics.Result(err)).Inc()
		return 0, err
	}

	if fillTitle {
		if err := t.feedRepo.UpdateFeedTitle(ctx, f.ID, &metadata.Title); err != nil {
			return count, err
		}
	}

	if err := t.feedRepo.MarkFetched(ctx, f.ID, time.Now(), metadata.Description); err != nil {
		return count, err
	}

	metrics.FeedFetches.WithLabelValues(metrics.Result(nil)).Inc()
	metrics.ArticlesUpserted.Add(float64(count))

	slog.Info("Task completed",
		"type", string(t.Type),
		"feed_id", f.ID,
		"url", f.URL,
		"duration", t.GetDuration(),
		"entries", len(entries),
		"upserted", count)

	return count, nil
}

func toNewArticles(entries []feed.Entry) []database.NewArticle {
	articles := make([]database.NewArticle, 0, len(entries))
	for _, entry := range entries {
		articles = append(articles, database.NewArticle{
			Title:       entry.Title,
			Content:     entry.Content,
			URL:         entry.Link,
			PublishedAt: entry.PublishedAt,
		})
	}
	return articles
}
