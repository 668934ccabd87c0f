package radio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/events"
	"github.com/lysyi3m/rss-radio/app/metrics"
	"github.com/lysyi3m/rss-radio/app/speech"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

const (
	StageTranscript = "transcript"
	StageAudio      = "audio"
)

type ArticleSource interface {
	ListArticles(ctx context.Context, ownerID string, filter database.ArticleFilter) ([]database.Article, error)
}

type Transcriber interface {
	Generate(ctx context.Context, ownerID string, article database.Article) (string, error)
}

type AudioSynthesizer interface {
	HasKey(ctx context.Context, ownerID string) (bool, error)
	Synthesize(ctx context.Context, ownerID string, article database.Article, voice speech.VoiceSelection) (string, error)
}

// Warning records a per-article stage failure. Warnings never abort a run.
type Warning struct {
	ArticleID string    `json:"article_id"`
	Title     string    `json:"title"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

type Status struct {
	State        State      `json:"state"`
	Total        int        `json:"total"`
	Index        int        `json:"index"`
	CurrentTitle string     `json:"current_title,omitempty"`
	Processed    int        `json:"processed"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	Warnings     []Warning  `json:"warnings"`
	Message      string     `json:"message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Orchestrator advances a fixed batch of articles through transcript and
// audio generation, one article at a time.
type Orchestrator struct {
	articles    ArticleSource
	transcripts Transcriber
	audio       AudioSynthesizer
	player      Player
	publisher   Publisher

	mu       sync.Mutex
	status   Status
	stopping bool
	done     chan struct{}
}

func NewOrchestrator(articles ArticleSource, transcripts Transcriber, audio AudioSynthesizer,
	player Player, publisher Publisher) *Orchestrator {
	done := make(chan struct{})
	close(done)

	return &Orchestrator{
		articles:    articles,
		transcripts: transcripts,
		audio:       audio,
		player:      player,
		publisher:   publisher,
		status:      Status{State: StateIdle, Warnings: []Warning{}},
		done:        done,
	}
}

// Start validates preconditions, snapshots the owner's articles newest
// first and processes them in the background. Preconditions are checked
// before any external call is made.
func (o *Orchestrator) Start(ctx context.Context, ownerID string, voice speech.VoiceSelection) error {
	if o.running() {
		return &apperr.ConfigurationError{Reason: "radio is already running"}
	}

	hasKey, err := o.audio.HasKey(ctx, ownerID)
	if err != nil {
		return err
	}
	if !hasKey {
		return &apperr.ConfigurationError{Reason: "ElevenLabs API key is not configured"}
	}

	batch, err := o.articles.ListArticles(ctx, ownerID, database.ArticleFilter{})
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return &apperr.ConfigurationError{Reason: "no articles to process; fetch some feeds first"}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Another Start may have won while the lock was released.
	if o.status.State == StateRunning {
		return &apperr.ConfigurationError{Reason: "radio is already running"}
	}

	now := time.Now()
	o.stopping = false
	o.done = make(chan struct{})
	o.status = Status{
		State:     StateRunning,
		Total:     len(batch),
		Warnings:  []Warning{},
		Message:   fmt.Sprintf("Processing %d articles", len(batch)),
		StartedAt: &now,
	}
	o.publishLocked()

	slog.Info("Radio started", "owner", ownerID, "articles", len(batch))

	go o.run(context.WithoutCancel(ctx), ownerID, voice, batch, o.done)

	return nil
}

// Stop asks a running batch to halt. The in-flight article finishes and
// its results persist; no further article is started. Stop waits for that
// to happen unless ctx ends first.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.status.State != StateRunning {
		o.mu.Unlock()
		return &apperr.ConfigurationError{Reason: "radio is not running"}
	}
	o.stopping = true
	o.status.Message = "Stopping after the current article"
	o.publishLocked()
	done := o.done
	o.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Done is closed when the current run, if any, has finished.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (o *Orchestrator) run(ctx context.Context, ownerID string, voice speech.VoiceSelection, batch []database.Article, done chan struct{}) {
	defer close(done)

	for i := range batch {
		if o.stopRequested() {
			break
		}

		article := batch[i]
		o.progress(i, article.Title)

		if article.HasTranscript() && article.HasAudio() {
			o.count(func(s *Status) { s.Skipped++ })
			continue
		}

		if !article.HasTranscript() {
			transcript, err := o.transcripts.Generate(ctx, ownerID, article)
			if err != nil {
				o.warn(article, StageTranscript, err)
				continue
			}
			article.Transcript = &transcript
		}

		if !article.HasAudio() {
			audioURL, err := o.audio.Synthesize(ctx, ownerID, article, voice)
			if err != nil {
				o.warn(article, StageAudio, err)
				continue
			}
			article.AudioURL = &audioURL
			batch[i] = article

			if !o.stopRequested() {
				o.player.Republish(readySubset(batch))
			}
		}

		o.count(func(s *Status) { s.Processed++ })
	}

	o.finish()
}

// finish settles the run. The player reset and the final snapshot happen
// while the state is still Running, so a new run cannot start in between.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	stopped := o.stopping
	if stopped {
		o.player.Reset()
	}

	now := time.Now()
	o.status.FinishedAt = &now
	o.status.CurrentTitle = ""
	if stopped {
		o.status.State = StateStopped
		o.status.Message = "Radio stopped"
	} else {
		o.status.State = StateCompleted
		o.status.Message = fmt.Sprintf("Radio finished: %d processed, %d skipped, %d failed",
			o.status.Processed, o.status.Skipped, o.status.Failed)
	}
	status := o.snapshotLocked()
	o.publish(status)
	o.mu.Unlock()

	metrics.RadioRuns.WithLabelValues(string(status.State)).Inc()
	slog.Info("Radio run finished",
		"state", status.State,
		"processed", status.Processed,
		"skipped", status.Skipped,
		"failed", status.Failed)
}

func (o *Orchestrator) progress(index int, title string) {
	o.mu.Lock()
	o.status.Index = index
	o.status.CurrentTitle = title
	if !o.stopping {
		o.status.Message = fmt.Sprintf("Processing %d of %d: %s", index+1, o.status.Total, title)
	}
	o.publishLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) count(update func(*Status)) {
	o.mu.Lock()
	update(&o.status)
	o.publishLocked()
	o.mu.Unlock()
}

func (o *Orchestrator) warn(article database.Article, stage string, err error) {
	slog.Warn("Article stage failed, continuing",
		"article_id", article.ID,
		"title", article.Title,
		"stage", stage,
		"error", err)

	o.count(func(s *Status) {
		s.Failed++
		s.Warnings = append(s.Warnings, Warning{
			ArticleID: article.ID,
			Title:     article.Title,
			Stage:     stage,
			Message:   err.Error(),
			At:        time.Now(),
		})
	})
}

func (o *Orchestrator) running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status.State == StateRunning
}

func (o *Orchestrator) stopRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopping
}

func (o *Orchestrator) snapshotLocked() Status {
	status := o.status
	status.Warnings = append([]Warning{}, o.status.Warnings...)
	return status
}

func (o *Orchestrator) publishLocked() {
	o.publish(o.snapshotLocked())
}

func (o *Orchestrator) publish(status Status) {
	if o.publisher != nil {
		o.publisher.Publish(events.StreamRadio, status)
	}
}

func readySubset(batch []database.Article) []database.Article {
	ready := make([]database.Article, 0, len(batch))
	for _, article := range batch {
		if article.HasAudio() {
			ready = append(ready, article)
		}
	}
	return ready
}
