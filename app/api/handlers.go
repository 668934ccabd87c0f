package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/speech"
	"github.com/lysyi3m/rss-radio/app/tasks"
)

func NewHandler(services Services, ownerID string) *Handler {
	return &Handler{Services: services, ownerID: ownerID}
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.As[*apperr.ConfigurationError](err),
		apperr.As[*apperr.MissingKeyError](err),
		apperr.As[*apperr.NoContentError](err):
		status = http.StatusUnprocessableEntity
	case apperr.As[*apperr.FetchError](err),
		apperr.As[*apperr.UpstreamError](err):
		status = http.StatusBadGateway
	case errors.Is(err, database.ErrFeedExists):
		status = http.StatusConflict
	case errors.Is(err, database.ErrArticleNotFound),
		errors.Is(err, database.ErrStationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "error", err)
	} else {
		slog.Warn("Request rejected", "operation", operation, "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// ownedFeed loads a feed of the configured owner; it writes the response
// and returns nil when the feed is unavailable.
func (h *Handler) ownedFeed(c *gin.Context) *database.Feed {
	f, err := h.Feeds.GetFeed(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_feed", err)
		return nil
	}
	if f == nil || f.OwnerID != h.ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return nil
	}
	return f
}

func (h *Handler) ownedArticle(c *gin.Context) *database.Article {
	article, err := h.Articles.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_article", err)
		return nil
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return nil
	}

	f, err := h.Feeds.GetFeed(c.Request.Context(), article.FeedID)
	if err != nil {
		respondError(c, "get_feed", err)
		return nil
	}
	if f == nil || f.OwnerID != h.ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return nil
	}
	return article
}

func (h *Handler) ownedStation(c *gin.Context) *database.Station {
	station, err := h.Stations.GetStation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_station", err)
		return nil
	}
	if station == nil || station.OwnerID != h.ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Station not found"})
		return nil
	}
	return station
}

// resolveStation checks a station reference from a request body. An absent
// or empty reference resolves to no station.
func (h *Handler) resolveStation(c *gin.Context, raw *string) (*string, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}

	station, err := h.Stations.GetStation(c.Request.Context(), strings.TrimSpace(*raw))
	if err != nil {
		respondError(c, "get_station", err)
		return nil, false
	}
	if station == nil || station.OwnerID != h.ownerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown station"})
		return nil, false
	}
	return &station.ID, true
}

func (h *Handler) GetPodcast(c *gin.Context) {
	f := h.ownedFeed(c)
	if f == nil {
		return
	}

	hasAudio := true
	articles, err := h.Articles.ListArticles(c.Request.Context(), h.ownerID, database.ArticleFilter{
		FeedID:   f.ID,
		HasAudio: &hasAudio,
	})
	if err != nil {
		respondError(c, "list_articles", err)
		return
	}

	rss, err := h.Generator.Run(*f, articles)
	if err != nil {
		slog.Error("Podcast generation error", "feed_id", f.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Sum64String(rss), 16) + `"`
	c.Header("ETag", etag)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.Header("X-Last-Updated", f.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.Feeds.GetFeedCount(ctx, h.ownerID); err == nil {
		health["feeds"] = feedCount
	}
	if articleCount, err := h.Articles.CountArticles(ctx, h.ownerID, database.ArticleFilter{}); err == nil {
		health["articles"] = articleCount
	}

	health["catalog_entries"] = h.Catalog.GetCount()
	health["radio"] = h.Radio.Status().State

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	ctx := c.Request.Context()
	feeds, err := h.Feeds.ListFeeds(ctx, h.ownerID)
	if err != nil {
		respondError(c, "list_feeds", err)
		return
	}

	hasAudio := true
	response := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		item := feedResponse{Feed: f, DisplayTitle: f.DisplayTitle()}
		if count, err := h.Articles.CountArticles(ctx, h.ownerID, database.ArticleFilter{FeedID: f.ID}); err == nil {
			item.ArticleCount = count
		}
		if count, err := h.Articles.CountArticles(ctx, h.ownerID, database.ArticleFilter{FeedID: f.ID, HasAudio: &hasAudio}); err == nil {
			item.ReadyCount = count
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": response,
		"total": len(response),
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	f := h.ownedFeed(c)
	if f == nil {
		return
	}
	c.JSON(http.StatusOK, feedResponse{Feed: *f, DisplayTitle: f.DisplayTitle()})
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stationID, ok := h.resolveStation(c, req.StationID)
	if !ok {
		return
	}

	h.subscribe(c, strings.TrimSpace(req.URL), req.Title, stationID)
}

func (h *Handler) subscribe(c *gin.Context, feedURL string, title, stationID *string) {
	parsed, err := url.Parse(feedURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
		return
	}

	f, err := h.Feeds.CreateFeed(c.Request.Context(), h.ownerID, feedURL, title)
	if err != nil {
		respondError(c, "create_feed", err)
		return
	}
	if stationID != nil {
		if err := h.Feeds.SetFeedStation(c.Request.Context(), f.ID, stationID); err != nil {
			respondError(c, "set_feed_station", err)
			return
		}
		f.StationID = stationID
	}

	slog.Info("Feed subscribed", "feed_id", f.ID, "url", f.URL)
	c.JSON(http.StatusCreated, feedResponse{Feed: *f, DisplayTitle: f.DisplayTitle()})
}

func (h *Handler) UpdateFeed(c *gin.Context) {
	f := h.ownedFeed(c)
	if f == nil {
		return
	}

	var req updateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.StationID != nil {
		stationID, ok := h.resolveStation(c, req.StationID)
		if !ok {
			return
		}
		if err := h.Feeds.SetFeedStation(ctx, f.ID, stationID); err != nil {
			respondError(c, "set_feed_station", err)
			return
		}
	}
	if req.Title != nil {
		if err := h.Feeds.UpdateFeedTitle(ctx, f.ID, req.Title); err != nil {
			respondError(c, "update_feed", err)
			return
		}
	}

	updated := h.ownedFeed(c)
	if updated == nil {
		return
	}
	c.JSON(http.StatusOK, feedResponse{Feed: *updated, DisplayTitle: updated.DisplayTitle()})
}

// DeleteFeed removes the feed's audio objects, then the feed and its
// articles.
func (h *Handler) DeleteFeed(c *gin.Context) {
	f := h.ownedFeed(c)
	if f == nil {
		return
	}
	ctx := c.Request.Context()

	urls, err := h.Articles.ListFeedAudioURLs(ctx, f.ID)
	if err != nil {
		respondError(c, "list_audio", err)
		return
	}
	if err := h.Storage.RemoveURLs(ctx, urls); err != nil {
		respondError(c, "remove_audio", err)
		return
	}
	if err := h.Feeds.DeleteFeed(ctx, f.ID); err != nil {
		respondError(c, "delete_feed", err)
		return
	}

	slog.Info("Feed deleted", "feed_id", f.ID, "audio_removed", len(urls))
	c.JSON(http.StatusOK, gin.H{"message": "Feed deleted", "audio_removed": len(urls)})
}

func (h *Handler) FetchFeed(c *gin.Context) {
	f := h.ownedFeed(c)
	if f == nil {
		return
	}

	task := tasks.NewFetchFeedTask(f.ID, h.Source, h.Feeds, h.Articles)
	count, err := task.Run(c.Request.Context())
	if err != nil {
		respondError(c, "fetch_feed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Fetched " + strconv.Itoa(count) + " articles",
		"count":   count,
	})
}

func (h *Handler) ListStations(c *gin.Context) {
	ctx := c.Request.Context()
	stations, err := h.Stations.ListStations(ctx, h.ownerID)
	if err != nil {
		respondError(c, "list_stations", err)
		return
	}
	feeds, err := h.Feeds.ListFeeds(ctx, h.ownerID)
	if err != nil {
		respondError(c, "list_feeds", err)
		return
	}

	response := make([]stationResponse, 0, len(stations))
	for _, station := range stations {
		response = append(response, h.describeStation(ctx, station, feeds))
	}

	c.JSON(http.StatusOK, gin.H{
		"stations":   response,
		"total":      len(response),
		"categories": database.StationCategories,
	})
}

func (h *Handler) GetStation(c *gin.Context) {
	station := h.ownedStation(c)
	if station == nil {
		return
	}
	feeds, err := h.Feeds.ListFeeds(c.Request.Context(), h.ownerID)
	if err != nil {
		respondError(c, "list_feeds", err)
		return
	}
	c.JSON(http.StatusOK, h.describeStation(c.Request.Context(), *station, feeds))
}

func (h *Handler) CreateStation(c *gin.Context) {
	var req createStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, ok := stationInput(c, req.Name, req.Category, req.Tags)
	if !ok {
		return
	}

	station, err := h.Stations.CreateStation(c.Request.Context(), h.ownerID, input)
	if err != nil {
		respondError(c, "create_station", err)
		return
	}

	slog.Info("Station created", "station_id", station.ID, "name", station.Name)
	c.JSON(http.StatusCreated, h.describeStation(c.Request.Context(), *station, nil))
}

// UpdateStation keeps every field the request leaves out; an empty
// category clears it.
func (h *Handler) UpdateStation(c *gin.Context) {
	station := h.ownedStation(c)
	if station == nil {
		return
	}

	var req updateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := station.Name
	if req.Name != nil {
		name = *req.Name
	}
	category := station.Category
	if req.Category != nil {
		category = req.Category
	}
	tags := req.Tags
	if tags == nil {
		tags = station.TagList()
	}

	input, ok := stationInput(c, name, category, tags)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	updated, err := h.Stations.UpdateStation(ctx, station.ID, input)
	if err != nil {
		respondError(c, "update_station", err)
		return
	}
	feeds, err := h.Feeds.ListFeeds(ctx, h.ownerID)
	if err != nil {
		respondError(c, "list_feeds", err)
		return
	}
	c.JSON(http.StatusOK, h.describeStation(ctx, *updated, feeds))
}

// DeleteStation removes the station and ungroups its feeds.
func (h *Handler) DeleteStation(c *gin.Context) {
	station := h.ownedStation(c)
	if station == nil {
		return
	}

	if err := h.Stations.DeleteStation(c.Request.Context(), station.ID); err != nil {
		respondError(c, "delete_station", err)
		return
	}

	slog.Info("Station deleted", "station_id", station.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Station deleted"})
}

// describeStation attaches the station's feeds out of the owner's feed list.
func (h *Handler) describeStation(ctx context.Context, station database.Station, feeds []database.Feed) stationResponse {
	response := stationResponse{
		Station: station,
		Tags:    station.TagList(),
		Feeds:   []feedResponse{},
	}
	for _, f := range feeds {
		if f.StationID == nil || *f.StationID != station.ID {
			continue
		}
		response.Feeds = append(response.Feeds, feedResponse{Feed: f, DisplayTitle: f.DisplayTitle()})
	}

	hasAudio := true
	if count, err := h.Articles.CountArticles(ctx, h.ownerID, database.ArticleFilter{StationID: station.ID}); err == nil {
		response.ArticleCount = count
	}
	if count, err := h.Articles.CountArticles(ctx, h.ownerID, database.ArticleFilter{StationID: station.ID, HasAudio: &hasAudio}); err == nil {
		response.ReadyCount = count
	}
	return response
}

// stationInput validates station fields; it writes the response and
// reports false when they are invalid.
func stationInput(c *gin.Context, name string, category *string, tags []string) (database.StationInput, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
		return database.StationInput{}, false
	}

	category = trimmed(category)
	if category != nil && *category == "" {
		category = nil
	}
	if category != nil && !database.ValidStationCategory(*category) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "unknown station category",
			"categories": database.StationCategories,
		})
		return database.StationInput{}, false
	}

	return database.StationInput{Name: name, Category: category, Tags: tags}, true
}

func (h *Handler) ListArticles(c *gin.Context) {
	filter := database.ArticleFilter{
		FeedID:    c.Query("feed_id"),
		StationID: c.Query("station_id"),
	}

	for name, target := range map[string]**bool{
		"has_transcript": &filter.HasTranscript,
		"has_audio":      &filter.HasAudio,
		"listened":       &filter.Listened,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
			return
		}
		*target = &value
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		filter.Limit = limit
	}

	articles, err := h.Articles.ListArticles(c.Request.Context(), h.ownerID, filter)
	if err != nil {
		respondError(c, "list_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    len(articles),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article := h.ownedArticle(c)
	if article == nil {
		return
	}
	c.JSON(http.StatusOK, article)
}

// DeleteArticles removes stored audio first, then the article rows.
func (h *Handler) DeleteArticles(c *gin.Context) {
	var req deleteArticlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		article, err := h.Articles.GetArticle(ctx, id)
		if err != nil {
			respondError(c, "get_article", err)
			return
		}
		if article == nil {
			continue
		}
		f, err := h.Feeds.GetFeed(ctx, article.FeedID)
		if err != nil {
			respondError(c, "get_feed", err)
			return
		}
		if f != nil && f.OwnerID == h.ownerID {
			ids = append(ids, id)
		}
	}

	urls, err := h.Articles.ListAudioURLs(ctx, ids)
	if err != nil {
		respondError(c, "list_audio", err)
		return
	}
	if err := h.Storage.RemoveURLs(ctx, urls); err != nil {
		respondError(c, "remove_audio", err)
		return
	}

	deleted, err := h.Articles.DeleteArticles(ctx, ids)
	if err != nil {
		respondError(c, "delete_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "audio_removed": len(urls)})
}

func (h *Handler) ClearAudio(c *gin.Context) {
	article := h.ownedArticle(c)
	if article == nil {
		return
	}
	ctx := c.Request.Context()

	if article.HasAudio() {
		if err := h.Storage.RemoveURLs(ctx, []string{*article.AudioURL}); err != nil {
			respondError(c, "remove_audio", err)
			return
		}
	}
	if err := h.Articles.ClearAudioURL(ctx, article.ID); err != nil {
		respondError(c, "clear_audio", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Audio removed"})
}

func (h *Handler) GenerateTranscript(c *gin.Context) {
	article := h.ownedArticle(c)
	if article == nil {
		return
	}

	transcript, err := h.Transcripts.Generate(c.Request.Context(), h.ownerID, *article)
	if err != nil {
		respondError(c, "generate_transcript", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"article_id": article.ID, "transcript": transcript})
}

func (h *Handler) GenerateAudio(c *gin.Context) {
	article := h.ownedArticle(c)
	if article == nil {
		return
	}

	voice, ok := bindVoice(c)
	if !ok {
		return
	}

	audioURL, err := h.Audio.Synthesize(c.Request.Context(), h.ownerID, *article, voice)
	if err != nil {
		respondError(c, "generate_audio", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"article_id": article.ID, "audio_url": audioURL})
}

// bindVoice reads an optional voice selection; an empty body selects the
// defaults.
func bindVoice(c *gin.Context) (speech.VoiceSelection, bool) {
	var voice speech.VoiceSelection
	if err := c.ShouldBindJSON(&voice); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return voice, false
	}
	return voice, true
}

func (h *Handler) GetCredentials(c *gin.Context) {
	creds, err := h.Credentials.GetCredentials(c.Request.Context(), h.ownerID)
	if err != nil {
		respondError(c, "get_credentials", err)
		return
	}
	c.JSON(http.StatusOK, maskCredentials(creds))
}

func (h *Handler) UpdateCredentials(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds, err := h.Credentials.UpdateCredentials(c.Request.Context(), h.ownerID, database.CredentialsUpdate{
		GeminiAPIKey:     trimmed(req.GeminiAPIKey),
		ElevenLabsAPIKey: trimmed(req.ElevenLabsAPIKey),
	})
	if err != nil {
		respondError(c, "update_credentials", err)
		return
	}

	slog.Info("Credentials updated", "owner", h.ownerID)
	c.JSON(http.StatusOK, maskCredentials(creds))
}

func (h *Handler) ListCatalog(c *gin.Context) {
	entries := h.Catalog.GetEntries()
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

func (h *Handler) SubscribeCatalog(c *gin.Context) {
	entry, err := h.Catalog.GetEntry(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	title := entry.Title
	h.subscribe(c, entry.URL, &title, nil)
}

func (h *Handler) ListVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"voices":  speech.Voices,
		"models":  speech.Models,
		"default": h.Defaults,
	})
}

func (h *Handler) StartRadio(c *gin.Context) {
	voice, ok := bindVoice(c)
	if !ok {
		return
	}

	if err := h.Radio.Start(c.Request.Context(), h.ownerID, voice); err != nil {
		respondError(c, "start_radio", err)
		return
	}

	c.JSON(http.StatusAccepted, h.Radio.Status())
}

func (h *Handler) StopRadio(c *gin.Context) {
	if err := h.Radio.Stop(c.Request.Context()); err != nil {
		respondError(c, "stop_radio", err)
		return
	}
	c.JSON(http.StatusOK, h.Radio.Status())
}

func (h *Handler) GetRadioStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Radio.Status())
}

func (h *Handler) GetPlayer(c *gin.Context) {
	c.JSON(http.StatusOK, h.Player.State())
}

// PlayAll queues every ready article, newest first, optionally for one feed
// or station.
func (h *Handler) PlayAll(c *gin.Context) {
	var req playAllRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hasAudio := true
	articles, err := h.Articles.ListArticles(c.Request.Context(), h.ownerID, database.ArticleFilter{
		FeedID:    req.FeedID,
		StationID: req.StationID,
		HasAudio:  &hasAudio,
	})
	if err != nil {
		respondError(c, "list_articles", err)
		return
	}

	h.Player.Replace(articles)
	c.JSON(http.StatusOK, h.Player.State())
}

func (h *Handler) PlayerNext(c *gin.Context) {
	h.Player.Next()
	c.JSON(http.StatusOK, h.Player.State())
}

func (h *Handler) PlayerPrevious(c *gin.Context) {
	h.Player.Previous()
	c.JSON(http.StatusOK, h.Player.State())
}

func (h *Handler) PlayerEnded(c *gin.Context) {
	var req endedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Player.Ended(c.Request.Context(), req.ArticleID); err != nil {
		respondError(c, "mark_listened", err)
		return
	}
	c.JSON(http.StatusOK, h.Player.State())
}

func (h *Handler) PlayerSeek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.Player.Seek(*req.Fraction); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Nothing seekable is playing"})
		return
	}
	c.JSON(http.StatusOK, h.Player.State())
}

func (h *Handler) PlayerDuration(c *gin.Context) {
	var req durationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.Player.SetDuration(req.Seconds)
	c.JSON(http.StatusOK, h.Player.State())
}

func maskCredentials(creds *database.Credentials) credentialsResponse {
	return credentialsResponse{
		GeminiAPIKey:     maskKey(creds.GeminiAPIKey),
		ElevenLabsAPIKey: maskKey(creds.ElevenLabsAPIKey),
		HasGemini:        creds.GeminiAPIKey != "",
		HasElevenLabs:    creds.ElevenLabsAPIKey != "",
	}
}

// maskKey keeps the last four characters of keys long enough to hide.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
