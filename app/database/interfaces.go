package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFeedExists      = errors.New("feed already subscribed")
	ErrArticleNotFound = errors.New("article not found")
	ErrStationNotFound = errors.New("station not found")
)

type FeedRepository interface {
	CreateFeed(ctx context.Context, ownerID, url string, title *string) (*Feed, error)
	GetFeed(ctx context.Context, id string) (*Feed, error)
	ListFeeds(ctx context.Context, ownerID string) ([]Feed, error)
	ListDueFeeds(ctx context.Context, ownerID string, fetchedBefore time.Time) ([]Feed, error)
	GetFeedCount(ctx context.Context, ownerID string) (int, error)

	UpdateFeedTitle(ctx context.Context, id string, title *string) error
	MarkFetched(ctx context.Context, id string, fetchedAt time.Time, description string) error
	SetFeedStation(ctx context.Context, id string, stationID *string) error
	DeleteFeed(ctx context.Context, id string) error
}

type ArticleRepository interface {
	UpsertArticles(ctx context.Context, feedID, feedTitle string, entries []NewArticle) (int, error)

	GetArticle(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context, ownerID string, filter ArticleFilter) ([]Article, error)
	CountArticles(ctx context.Context, ownerID string, filter ArticleFilter) (int, error)
	ListAudioURLs(ctx context.Context, articleIDs []string) ([]string, error)
	ListFeedAudioURLs(ctx context.Context, feedID string) ([]string, error)

	SetTranscript(ctx context.Context, id, transcript string) error
	SetAudioURL(ctx context.Context, id, audioURL string) error
	ClearAudioURL(ctx context.Context, id string) error
	MarkListened(ctx context.Context, id string) error
	DeleteArticles(ctx context.Context, ids []string) (int, error)
}

type CredentialRepository interface {
	GetCredentials(ctx context.Context, ownerID string) (*Credentials, error)
	UpdateCredentials(ctx context.Context, ownerID string, update CredentialsUpdate) (*Credentials, error)
}

type StationRepository interface {
	CreateStation(ctx context.Context, ownerID string, input StationInput) (*Station, error)
	GetStation(ctx context.Context, id string) (*Station, error)
	ListStations(ctx context.Context, ownerID string) ([]Station, error)
	UpdateStation(ctx context.Context, id string, input StationInput) (*Station, error)
	DeleteStation(ctx context.Context, id string) error
}
