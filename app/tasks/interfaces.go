package tasks

import (
	"context"

	"github.com/lysyi3m/rss-radio/app/feed"
)

// TaskSchedulerInterface is the background refresh worker pool as seen by
// the application entry point.
//
//	scheduler := NewScheduler(fetcher, feedRepo, articleRepo, ownerID, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// FeedSource downloads and parses a subscribed feed.
type FeedSource interface {
	FetchFeed(ctx context.Context, url string) (*feed.Metadata, []feed.Entry, error)
}
