package speech

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/metrics"
	"github.com/lysyi3m/rss-radio/app/storage"
)

// ObjectStore persists synthesized audio and hands back its public URL.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType string, opts storage.UploadOptions) (string, error)
	RemoveURLs(ctx context.Context, urls []string) error
}

// VoiceSelection picks the voice and model; empty fields use the defaults.
type VoiceSelection struct {
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`
}

type Synthesizer struct {
	articleRepo    database.ArticleRepository
	credentialRepo database.CredentialRepository
	tts            TextToSpeech
	store          ObjectStore
	defaults       VoiceSelection
	timeout        time.Duration
}

func NewSynthesizer(articleRepo database.ArticleRepository, credentialRepo database.CredentialRepository,
	tts TextToSpeech, store ObjectStore, defaults VoiceSelection, timeout time.Duration) *Synthesizer {
	return &Synthesizer{
		articleRepo:    articleRepo,
		credentialRepo: credentialRepo,
		tts:            tts,
		store:          store,
		defaults:       defaults,
		timeout:        timeout,
	}
}

// HasKey reports whether the owner has a text-to-speech credential.
func (s *Synthesizer) HasKey(ctx context.Context, ownerID string) (bool, error) {
	creds, err := s.credentialRepo.GetCredentials(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return creds.ElevenLabsAPIKey != "", nil
}

// Synthesize voices the article's transcript, stores the audio and records
// its URL on the article. The URL is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, ownerID string, article database.Article, voice VoiceSelection) (audioURL string, err error) {
	defer func() {
		metrics.StageRuns.WithLabelValues(metrics.StageAudio, metrics.Result(err)).Inc()
	}()

	creds, err := s.credentialRepo.GetCredentials(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.ElevenLabsAPIKey == "" {
		return "", &apperr.MissingKeyError{Key: serviceName}
	}
	if !article.HasTranscript() {
		return "", &apperr.NoContentError{ArticleID: article.ID}
	}

	req := SynthesisRequest{
		Text:    *article.Transcript,
		VoiceID: cmp.Or(voice.VoiceID, s.defaults.VoiceID),
		ModelID: cmp.Or(voice.ModelID, s.defaults.ModelID),
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	audio, contentType, err := s.tts.Synthesize(callCtx, creds.ElevenLabsAPIKey, req)
	if err != nil {
		return "", err
	}

	audioURL, err = s.store.Upload(ctx, audio, contentType, storage.UploadOptions{})
	if err != nil {
		return "", err
	}

	if err := s.articleRepo.SetAudioURL(ctx, article.ID, audioURL); err != nil {
		if rmErr := s.store.RemoveURLs(ctx, []string{audioURL}); rmErr != nil {
			slog.Warn("Failed to remove orphaned audio", "article_id", article.ID, "url", audioURL, "error", rmErr)
		}
		return "", err
	}

	slog.Info("Audio generated",
		"article_id", article.ID,
		"voice_id", req.VoiceID,
		"model_id", req.ModelID,
		"bytes", len(audio),
		"duration", time.Since(start))

	return audioURL, nil
}
