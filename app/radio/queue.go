package radio

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/events"
)

// Publisher delivers state snapshots to connected dashboards.
type Publisher interface {
	Publish(stream string, data any)
}

// ListenRecorder persists that an article was played to the end.
type ListenRecorder interface {
	MarkListened(ctx context.Context, id string) error
}

type PlayerState struct {
	Queue      []database.Article `json:"queue"`
	Index      int                `json:"index"`
	Current    *database.Article  `json:"current"`
	PlayingAll bool               `json:"playing_all"`
	Position   float64            `json:"position"`
	Duration   float64            `json:"duration"`
}

// Player is the shared playback state. HTTP handlers drive it from user
// actions and the orchestrator republishes ready articles into it.
type Player interface {
	State() PlayerState
	Current() *database.Article

	Next() bool
	Previous() bool
	Ended(ctx context.Context, articleID string) error
	Seek(fraction float64) (float64, bool)
	SetDuration(seconds float64)

	Replace(articles []database.Article)
	Republish(articles []database.Article)
	Reset()
}

var _ Player = (*Queue)(nil)

// Queue holds ready articles and the index of the one playing.
// The index is within [0, len-1] whenever the queue is non-empty.
type Queue struct {
	mu         sync.Mutex
	entries    []database.Article
	index      int
	playingAll bool
	position   float64
	duration   float64

	listens   ListenRecorder
	publisher Publisher
}

func NewQueue(listens ListenRecorder, publisher Publisher) *Queue {
	return &Queue{listens: listens, publisher: publisher}
}

func (q *Queue) State() PlayerState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

func (q *Queue) Current() *database.Article {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.currentLocked()
}

// Next moves to the following entry. It is a no-op on the last entry.
func (q *Queue) Next() bool {
	q.mu.Lock()
	if q.index >= len(q.entries)-1 {
		q.mu.Unlock()
		return false
	}
	q.moveLocked(q.index + 1)
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
	return true
}

// Previous moves to the preceding entry. It is a no-op on the first entry.
func (q *Queue) Previous() bool {
	q.mu.Lock()
	if q.index <= 0 || len(q.entries) == 0 {
		q.mu.Unlock()
		return false
	}
	q.moveLocked(q.index - 1)
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
	return true
}

// Ended handles natural completion of the current article's audio: the
// article is marked listened, then playback advances or the queue clears.
// A non-empty articleID that is no longer current is ignored as stale.
func (q *Queue) Ended(ctx context.Context, articleID string) error {
	q.mu.Lock()
	current := q.currentLocked()
	if current == nil || (articleID != "" && articleID != current.ID) {
		q.mu.Unlock()
		return nil
	}
	q.entries[q.index].Listened = true

	if q.index < len(q.entries)-1 {
		q.moveLocked(q.index + 1)
	} else {
		q.clearLocked()
	}
	state := q.stateLocked()
	q.mu.Unlock()

	var err error
	if q.listens != nil {
		if err = q.listens.MarkListened(ctx, current.ID); err != nil {
			slog.Error("Failed to mark article listened", "article_id", current.ID, "error", err)
		}
	}

	q.publish(state)
	return err
}

// Seek positions playback at fraction of the known duration. Fractions
// outside [0, 1] are clamped. It reports false when nothing is seekable.
func (q *Queue) Seek(fraction float64) (float64, bool) {
	q.mu.Lock()
	if q.currentLocked() == nil || q.duration <= 0 {
		q.mu.Unlock()
		return 0, false
	}
	fraction = min(max(fraction, 0), 1)
	q.position = fraction * q.duration
	position := q.position
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
	return position, true
}

func (q *Queue) SetDuration(seconds float64) {
	q.mu.Lock()
	if q.currentLocked() == nil {
		q.mu.Unlock()
		return
	}
	q.duration = max(seconds, 0)
	q.position = min(q.position, q.duration)
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
}

// Replace installs a new queue ("play all") starting at its head.
// An empty list stops playback.
func (q *Queue) Replace(articles []database.Article) {
	q.mu.Lock()
	if len(articles) == 0 {
		q.clearLocked()
	} else {
		q.entries = slices.Clone(articles)
		q.playingAll = true
		q.moveLocked(0)
	}
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
}

// Republish swaps in a fresh ready list without interrupting the article
// being played. When nothing is playing, or the current article is gone,
// playback moves to the head.
func (q *Queue) Republish(articles []database.Article) {
	q.mu.Lock()
	if len(articles) == 0 {
		q.clearLocked()
		state := q.stateLocked()
		q.mu.Unlock()
		q.publish(state)
		return
	}

	current := q.currentLocked()
	q.entries = slices.Clone(articles)
	q.playingAll = true

	index := -1
	if current != nil {
		index = slices.IndexFunc(q.entries, func(a database.Article) bool { return a.ID == current.ID })
	}
	if index >= 0 {
		q.index = index
	} else {
		q.moveLocked(0)
	}
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
}

// Reset stops playback and empties the queue.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.clearLocked()
	state := q.stateLocked()
	q.mu.Unlock()

	q.publish(state)
}

func (q *Queue) moveLocked(index int) {
	q.index = index
	q.position = 0
	q.duration = 0
}

func (q *Queue) clearLocked() {
	q.entries = nil
	q.playingAll = false
	q.moveLocked(0)
}

func (q *Queue) currentLocked() *database.Article {
	if len(q.entries) == 0 {
		return nil
	}
	current := q.entries[q.index]
	return &current
}

func (q *Queue) stateLocked() PlayerState {
	entries := slices.Clone(q.entries)
	if entries == nil {
		entries = []database.Article{}
	}
	return PlayerState{
		Queue:      entries,
		Index:      q.index,
		Current:    q.currentLocked(),
		PlayingAll: q.playingAll,
		Position:   q.position,
		Duration:   q.duration,
	}
}

func (q *Queue) publish(state PlayerState) {
	if q.publisher != nil {
		q.publisher.Publish(events.StreamPlayer, state)
	}
}
