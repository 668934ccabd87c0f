package database

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/jmoiron/sqlx/types"
)

type Feed struct {
	ID            string     `db:"id" json:"id"`
	OwnerID       string     `db:"owner_id" json:"owner_id"`
	URL           string     `db:"url" json:"url"`
	Title         *string    `db:"title" json:"title"` // user-editable display title
	Description   string     `db:"description" json:"description"`
	StationID     *string    `db:"station_id" json:"station_id"`
	LastFetchedAt *time.Time `db:"last_fetched_at" json:"last_fetched_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayTitle returns the user title, falling back to the feed URL.
func (f Feed) DisplayTitle() string {
	if f.Title != nil && *f.Title != "" {
		return *f.Title
	}
	return f.URL
}

type Article struct {
	ID          string    `db:"id" json:"id"`
	FeedID      string    `db:"feed_id" json:"feed_id"`
	Title       string    `db:"title" json:"title"`
	Content     *string   `db:"content" json:"content"`
	URL         string    `db:"url" json:"url"`
	FeedTitle   string    `db:"feed_title" json:"feed_title"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Transcript  *string   `db:"transcript" json:"transcript"`
	AudioURL    *string   `db:"audio_url" json:"audio_url"`
	Listened    bool      `db:"listened" json:"listened"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (a Article) HasTranscript() bool {
	return a.Transcript != nil && *a.Transcript != ""
}

func (a Article) HasAudio() bool {
	return a.AudioURL != nil && *a.AudioURL != ""
}

// NewArticle is one normalized feed entry ready for upsert.
type NewArticle struct {
	Title       string
	Content     *string
	URL         string
	PublishedAt time.Time
}

// ArticleFilter narrows article listings. Nil fields are not applied.
type ArticleFilter struct {
	FeedID        string
	StationID     string
	HasTranscript *bool
	HasAudio      *bool
	Listened      *bool
	Limit         int
}

type Credentials struct {
	OwnerID          string    `db:"owner_id" json:"owner_id"`
	GeminiAPIKey     string    `db:"gemini_api_key" json:"-"`
	ElevenLabsAPIKey string    `db:"elevenlabs_api_key" json:"-"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CredentialsUpdate carries the keys to change; nil keeps the stored value.
type CredentialsUpdate struct {
	GeminiAPIKey     *string
	ElevenLabsAPIKey *string
}

// Station groups an owner's feeds into a named radio station.
type Station struct {
	ID        string         `db:"id" json:"id"`
	OwnerID   string         `db:"owner_id" json:"owner_id"`
	Name      string         `db:"name" json:"name"`
	Category  *string        `db:"category" json:"category"`
	Tags      types.JSONText `db:"tags" json:"tags"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// TagList decodes the stored tags; malformed data yields no tags.
func (s Station) TagList() []string {
	tags := []string{}
	if len(s.Tags) == 0 {
		return tags
	}
	if err := json.Unmarshal(s.Tags, &tags); err != nil {
		return []string{}
	}
	return tags
}

type StationInput struct {
	Name     string
	Category *string
	Tags     []string
}

var StationCategories = []string{
	"News", "Technology", "Business", "Entertainment", "Sports", "Science", "Education",
}

func ValidStationCategory(category string) bool {
	return slices.Contains(StationCategories, category)
}
