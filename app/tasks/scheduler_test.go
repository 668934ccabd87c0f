package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/rss-radio/app/database/dbtest"
	"github.com/lysyi3m/rss-radio/app/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for condition")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerRefreshesDueFeeds(t *testing.T) {
	fx := dbtest.New(t)
	first := fx.Feed(t, "https://example.com/one")
	second := fx.Feed(t, "https://example.com/two")

	source := &MockFeedSource{entries: []feed.Entry{entry("Story", time.Now())}}
	scheduler := NewScheduler(source, fx.Feeds, fx.Articles, dbtest.OwnerID, SchedulerOptions{
		WorkerCount:     2,
		Interval:        time.Hour,
		RefreshInterval: time.Hour,
	})
	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool { return len(source.requested()) == 2 })
	assert.ElementsMatch(t, []string{first.URL, second.URL}, source.requested())

	waitFor(t, func() bool {
		due, err := fx.Feeds.ListDueFeeds(context.Background(), dbtest.OwnerID, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		return len(due) == 0
	})
}

func TestSchedulerRefreshDisabled(t *testing.T) {
	fx := dbtest.New(t)
	fx.Feed(t, "https://example.com/one")

	source := &MockFeedSource{}
	scheduler := NewScheduler(source, fx.Feeds, fx.Articles, dbtest.OwnerID, SchedulerOptions{
		WorkerCount: 1,
		Interval:    10 * time.Millisecond,
	})
	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Empty(t, source.requested())
}

type countingTask struct {
	Task
	runs atomic.Int32
	err  error
}

func (c *countingTask) Execute(ctx context.Context) error {
	c.runs.Add(1)
	return c.err
}

func TestSchedulerSkipsPendingFeed(t *testing.T) {
	fx := dbtest.New(t)
	scheduler := NewScheduler(&MockFeedSource{}, fx.Feeds, fx.Articles, dbtest.OwnerID, SchedulerOptions{})

	task := &countingTask{Task: NewTask(TaskTypeFetchFeed, "feed-1")}
	require.NoError(t, scheduler.EnqueueTask(task))
	require.NoError(t, scheduler.EnqueueTask(&countingTask{Task: NewTask(TaskTypeFetchFeed, "feed-1")}))
	assert.Len(t, scheduler.taskQueue, 1)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool { return task.runs.Load() == 1 })
	waitFor(t, func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		return !scheduler.pending["feed-1"]
	})
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	fx := dbtest.New(t)
	scheduler := NewScheduler(&MockFeedSource{}, fx.Feeds, fx.Articles, dbtest.OwnerID, SchedulerOptions{WorkerCount: 1})

	task := &countingTask{Task: NewTask(TaskTypeFetchFeed, "feed-1"), err: errors.New("boom")}
	task.MaxRetries = 1

	scheduler.Start()
	defer scheduler.Stop()
	require.NoError(t, scheduler.EnqueueTask(task))

	// One retry after a one second delay, then the task gives up.
	waitFor(t, func() bool { return task.runs.Load() == 2 })
	waitFor(t, func() bool {
		scheduler.mu.Lock()
		defer scheduler.mu.Unlock()
		return !scheduler.pending["feed-1"]
	})
	assert.Equal(t, 1, task.GetRetryCount())
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryDelay(tt.retry); got != tt.expected {
			t.Errorf("retryDelay(%d) = %v, expected %v", tt.retry, got, tt.expected)
		}
	}
}
