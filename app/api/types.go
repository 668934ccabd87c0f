package api

import (
	"context"

	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/feed"
	"github.com/lysyi3m/rss-radio/app/radio"
	"github.com/lysyi3m/rss-radio/app/speech"
	"github.com/lysyi3m/rss-radio/app/tasks"
	"github.com/lysyi3m/rss-radio/app/transcript"
)

type GeneratorInterface interface {
	Run(feed database.Feed, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type CatalogInterface interface {
	GetEntry(name string) (*feed.CatalogEntry, error)
	GetEntries() []feed.CatalogEntry
	GetCount() int
}

var _ CatalogInterface = (*feed.Catalog)(nil)

type ObjectRemover interface {
	RemoveURLs(ctx context.Context, urls []string) error
}

type RadioInterface interface {
	Start(ctx context.Context, ownerID string, voice speech.VoiceSelection) error
	Stop(ctx context.Context) error
	Status() radio.Status
}

var (
	_ RadioInterface         = (*radio.Orchestrator)(nil)
	_ radio.Transcriber      = (*transcript.Generator)(nil)
	_ radio.AudioSynthesizer = (*speech.Synthesizer)(nil)
)

// Services groups the collaborators the handlers drive.
type Services struct {
	Feeds       database.FeedRepository
	Stations    database.StationRepository
	Articles    database.ArticleRepository
	Credentials database.CredentialRepository
	Source      tasks.FeedSource
	Generator   GeneratorInterface
	Catalog     CatalogInterface
	Storage     ObjectRemover
	Transcripts radio.Transcriber
	Audio       radio.AudioSynthesizer
	Radio       RadioInterface
	Player      radio.Player
	Defaults    speech.VoiceSelection
}

type Handler struct {
	Services
	ownerID string
}

type createFeedRequest struct {
	URL       string  `json:"url" binding:"required"`
	Title     *string `json:"title"`
	StationID *string `json:"station_id"`
}

// updateFeedRequest leaves absent fields unchanged; an empty station_id
// ungroups the feed.
type updateFeedRequest struct {
	Title     *string `json:"title"`
	StationID *string `json:"station_id"`
}

type createStationRequest struct {
	Name     string   `json:"name" binding:"required"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
}

type updateStationRequest struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
}

type deleteArticlesRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type credentialsRequest struct {
	GeminiAPIKey     *string `json:"gemini_api_key"`
	ElevenLabsAPIKey *string `json:"elevenlabs_api_key"`
}

type credentialsResponse struct {
	GeminiAPIKey     string `json:"gemini_api_key"`
	ElevenLabsAPIKey string `json:"elevenlabs_api_key"`
	HasGemini        bool   `json:"has_gemini"`
	HasElevenLabs    bool   `json:"has_elevenlabs"`
}

type seekRequest struct {
	Fraction *float64 `json:"fraction" binding:"required"`
}

type durationRequest struct {
	Seconds float64 `json:"seconds"`
}

type endedRequest struct {
	ArticleID string `json:"article_id"`
}

type playAllRequest struct {
	FeedID    string `json:"feed_id"`
	StationID string `json:"station_id"`
}

type feedResponse struct {
	database.Feed
	DisplayTitle string `json:"display_title"`
	ArticleCount int    `json:"article_count"`
	ReadyCount   int    `json:"ready_count"`
}

type stationResponse struct {
	database.Station
	Tags         []string       `json:"tags"`
	Feeds        []feedResponse `json:"feeds"`
	ArticleCount int            `json:"article_count"`
	ReadyCount   int            `json:"ready_count"`
}
