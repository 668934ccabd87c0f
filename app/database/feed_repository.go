package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lysyi3m/rss-radio/app/apperr"
)

var _ FeedRepository = (*feedRepository)(nil)

type feedRepository struct {
	db *sqlx.DB
}

func NewFeedRepository(db *sqlx.DB) FeedRepository {
	return &feedRepository{db: db}
}

const feedColumns = `id, owner_id, url, title, description, station_id, last_fetched_at, created_at, updated_at`

func (r *feedRepository) CreateFeed(ctx context.Context, ownerID, url string, title *string) (*Feed, error) {
	now := time.Now().UTC()
	feed := &Feed{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		URL:       url,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO feeds (id, owner_id, url, title, description, created_at, updated_at)
		VALUES (:id, :owner_id, :url, :title, :description, :created_at, :updated_at)`, feed)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrFeedExists
		}
		return nil, apperr.Persistence("create feed", err)
	}

	return feed, nil
}

func (r *feedRepository) GetFeed(ctx context.Context, id string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return &feed, nil
}

func (r *feedRepository) ListFeeds(ctx context.Context, ownerID string) ([]Feed, error) {
	feeds := []Feed{}
	err := r.db.SelectContext(ctx, &feeds, `
		SELECT `+feedColumns+` FROM feeds
		WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	return feeds, nil
}

func (r *feedRepository) ListDueFeeds(ctx context.Context, ownerID string, fetchedBefore time.Time) ([]Feed, error) {
	feeds := []Feed{}
	err := r.db.SelectContext(ctx, &feeds, `
		SELECT `+feedColumns+` FROM feeds
		WHERE owner_id = ? AND (last_fetched_at IS NULL OR last_fetched_at < ?)
		ORDER BY created_at`, ownerID, fetchedBefore.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list due feeds: %w", err)
	}
	return feeds, nil
}

func (r *feedRepository) GetFeedCount(ctx context.Context, ownerID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM feeds WHERE owner_id = ?`, ownerID); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

func (r *feedRepository) UpdateFeedTitle(ctx context.Context, id string, title *string) error {
	if title != nil && strings.TrimSpace(*title) == "" {
		title = nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE feeds SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), id)
	return apperr.Persistence("update feed title", err)
}

// MarkFetched advances last_fetched_at and fills an empty description.
func (r *feedRepository) MarkFetched(ctx context.Context, id string, fetchedAt time.Time, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_fetched_at = ?,
		    description = CASE WHEN description = '' THEN ? ELSE description END,
		    updated_at = ?
		WHERE id = ?`, fetchedAt.UTC(), description, time.Now().UTC(), id)
	return apperr.Persistence("update feed fetch time", err)
}

// SetFeedStation assigns the feed to a station; nil ungroups it.
func (r *feedRepository) SetFeedStation(ctx context.Context, id string, stationID *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE feeds SET station_id = ?, updated_at = ? WHERE id = ?`,
		stationID, time.Now().UTC(), id)
	return apperr.Persistence("set feed station", err)
}

func (r *feedRepository) DeleteFeed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	return apperr.Persistence("delete feed", err)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
