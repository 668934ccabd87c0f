package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-radio/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerOptions struct {
	WorkerCount     int
	Interval        time.Duration // how often due feeds are looked up
	RefreshInterval time.Duration // minimum age of last_fetched_at; 0 disables refresh
}

// Scheduler refreshes the owner's feeds in the background. Work lives only
// in memory; pending tasks are lost on shutdown.
type Scheduler struct {
	source      FeedSource
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	ownerID     string
	opts        SchedulerOptions
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	pending map[string]bool
}

func NewScheduler(source FeedSource, feedRepo database.FeedRepository, articleRepo database.ArticleRepository,
	ownerID string, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}

	return &Scheduler{
		source:      source,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		ownerID:     ownerID,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		pending:     make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.opts.RefreshInterval <= 0 || s.opts.Interval <= 0 {
		slog.Info("Background feed refresh disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// EnqueueTask queues a task unless one for the same feed is already pending.
func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	s.mu.Lock()
	if s.pending[task.GetFeedID()] {
		s.mu.Unlock()
		return nil
	}
	s.pending[task.GetFeedID()] = true
	s.mu.Unlock()

	if err := s.push(task); err != nil {
		s.release(task)
		return err
	}
	return nil
}

func (s *Scheduler) push(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) release(task TaskInterface) {
	s.mu.Lock()
	delete(s.pending, task.GetFeedID())
	s.mu.Unlock()
}

func (s *Scheduler) enqueueTasks() {
	before := time.Now().Add(-s.opts.RefreshInterval)
	feeds, err := s.feedRepo.ListDueFeeds(s.ctx, s.ownerID, before)
	if err != nil {
		slog.Error("Failed to list feeds due for refresh", "error", err)
		return
	}
	if len(feeds) == 0 {
		slog.Debug("No feeds due for refresh")
		return
	}

	slog.Debug("Scheduling feed refresh", "count", len(feeds))

	for _, f := range feeds {
		task := NewFetchFeedTask(f.ID, s.source, s.feedRepo, s.articleRepo)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue FetchFeedTask", "feed_id", f.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.release(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		s.release(task)
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed_id", task.GetFeedID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.release(task)
		case <-timer.C:
			if retryErr := s.push(task); retryErr != nil {
				s.release(task)
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
