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

var _ ArticleRepository = (*articleRepository)(nil)

type articleRepository struct {
	db *sqlx.DB
}

func NewArticleRepository(db *sqlx.DB) ArticleRepository {
	return &articleRepository{db: db}
}

const articleColumns = `a.id, a.feed_id, a.title, a.content, a.url, a.feed_title, a.published_at,
	a.transcript, a.audio_url, a.listened, a.created_at, a.updated_at`

// UpsertArticles writes all entries in one transaction keyed on (feed_id, url).
// Conflicting rows get title, content, published_at and feed_title refreshed;
// transcript, audio_url and listened are never part of the statement.
func (r *articleRepository) UpsertArticles(ctx context.Context, feedID, feedTitle string, entries []NewArticle) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperr.Persistence("begin article upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO articles (id, feed_id, title, content, url, feed_title, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_id, url) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			published_at = excluded.published_at,
			feed_title = excluded.feed_title,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, apperr.Persistence("prepare article upsert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	seen := make(map[string]bool, len(entries))
	count := 0
	for _, entry := range entries {
		if seen[entry.URL] {
			continue
		}
		seen[entry.URL] = true

		_, err := stmt.ExecContext(ctx, uuid.NewString(), feedID, entry.Title, entry.Content, entry.URL,
			feedTitle, entry.PublishedAt.UTC(), now, now)
		if err != nil {
			return 0, apperr.Persistence("upsert articles", err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Persistence("commit article upsert", err)
	}

	return count, nil
}

func (r *articleRepository) GetArticle(ctx context.Context, id string) (*Article, error) {
	var article Article
	err := r.db.GetContext(ctx, &article, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &article, nil
}

// ListArticles returns the owner's articles newest first.
func (r *articleRepository) ListArticles(ctx context.Context, ownerID string, filter ArticleFilter) ([]Article, error) {
	where, args := filterClause(ownerID, filter)
	query := `SELECT ` + articleColumns + `
		FROM articles a JOIN feeds f ON f.id = a.feed_id
		WHERE ` + where + `
		ORDER BY a.published_at DESC, a.created_at DESC, a.id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	articles := []Article{}
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (r *articleRepository) CountArticles(ctx context.Context, ownerID string, filter ArticleFilter) (int, error) {
	where, args := filterClause(ownerID, filter)
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM articles a JOIN feeds f ON f.id = a.feed_id
		WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (r *articleRepository) ListAudioURLs(ctx context.Context, articleIDs []string) ([]string, error) {
	if len(articleIDs) == 0 {
		return []string{}, nil
	}
	query, args, err := sqlx.In(`SELECT audio_url FROM articles WHERE id IN (?) AND audio_url IS NOT NULL`, articleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build audio query: %w", err)
	}

	urls := []string{}
	if err := r.db.SelectContext(ctx, &urls, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list audio urls: %w", err)
	}
	return urls, nil
}

func (r *articleRepository) ListFeedAudioURLs(ctx context.Context, feedID string) ([]string, error) {
	urls := []string{}
	err := r.db.SelectContext(ctx, &urls,
		`SELECT audio_url FROM articles WHERE feed_id = ? AND audio_url IS NOT NULL`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed audio urls: %w", err)
	}
	return urls, nil
}

func (r *articleRepository) SetTranscript(ctx context.Context, id, transcript string) error {
	return r.updateOne(ctx, "save transcript",
		`UPDATE articles SET transcript = ?, updated_at = ? WHERE id = ?`, transcript, time.Now().UTC(), id)
}

func (r *articleRepository) SetAudioURL(ctx context.Context, id, audioURL string) error {
	return r.updateOne(ctx, "save audio url",
		`UPDATE articles SET audio_url = ?, updated_at = ? WHERE id = ?`, audioURL, time.Now().UTC(), id)
}

func (r *articleRepository) ClearAudioURL(ctx context.Context, id string) error {
	return r.updateOne(ctx, "clear audio url",
		`UPDATE articles SET audio_url = NULL, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
}

// MarkListened only flips false to true; repeated calls are no-ops.
func (r *articleRepository) MarkListened(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET listened = 1, updated_at = ? WHERE id = ? AND listened = 0`, time.Now().UTC(), id)
	return apperr.Persistence("mark article listened", err)
}

func (r *articleRepository) DeleteArticles(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM articles WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, apperr.Persistence("delete articles", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.Persistence("delete articles", err)
	}
	return int(affected), nil
}

func (r *articleRepository) updateOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if affected == 0 {
		return apperr.Persistence(op, ErrArticleNotFound)
	}
	return nil
}

func filterClause(ownerID string, filter ArticleFilter) (string, []any) {
	conditions := []string{"f.owner_id = ?"}
	args := []any{ownerID}

	if filter.FeedID != "" {
		conditions = append(conditions, "a.feed_id = ?")
		args = append(args, filter.FeedID)
	}
	if filter.StationID != "" {
		conditions = append(conditions, "f.station_id = ?")
		args = append(args, filter.StationID)
	}
	if filter.HasTranscript != nil {
		if *filter.HasTranscript {
			conditions = append(conditions, "a.transcript IS NOT NULL AND a.transcript != ''")
		} else {
			conditions = append(conditions, "(a.transcript IS NULL OR a.transcript = '')")
		}
	}
	if filter.HasAudio != nil {
		if *filter.HasAudio {
			conditions = append(conditions, "a.audio_url IS NOT NULL AND a.audio_url != ''")
		} else {
			conditions = append(conditions, "(a.audio_url IS NULL OR a.audio_url = '')")
		}
	}
	if filter.Listened != nil {
		conditions = append(conditions, "a.listened = ?")
		args = append(args, *filter.Listened)
	}

	return strings.Join(conditions, " AND "), args
}
