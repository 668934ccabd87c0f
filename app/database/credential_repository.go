package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lysyi3m/rss-radio/app/apperr"
)

var _ CredentialRepository = (*credentialRepository)(nil)

type credentialRepository struct {
	db *sqlx.DB
}

func NewCredentialRepository(db *sqlx.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// GetCredentials returns empty keys when the owner has never saved any.
func (r *credentialRepository) GetCredentials(ctx context.Context, ownerID string) (*Credentials, error) {
	var creds Credentials
	err := r.db.GetContext(ctx, &creds, `
		SELECT owner_id, gemini_api_key, elevenlabs_api_key, updated_at
		FROM credentials WHERE owner_id = ?`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Credentials{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &creds, nil
}

func (r *credentialRepository) UpdateCredentials(ctx context.Context, ownerID string, update CredentialsUpdate) (*Credentials, error) {
	creds, err := r.GetCredentials(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if update.GeminiAPIKey != nil {
		creds.GeminiAPIKey = *update.GeminiAPIKey
	}
	if update.ElevenLabsAPIKey != nil {
		creds.ElevenLabsAPIKey = *update.ElevenLabsAPIKey
	}
	creds.UpdatedAt = time.Now().UTC()

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO credentials (owner_id, gemini_api_key, elevenlabs_api_key, updated_at)
		VALUES (:owner_id, :gemini_api_key, :elevenlabs_api_key, :updated_at)
		ON CONFLICT (owner_id) DO UPDATE SET
			gemini_api_key = excluded.gemini_api_key,
			elevenlabs_api_key = excluded.elevenlabs_api_key,
			updated_at = excluded.updated_at`, creds)
	if err != nil {
		return nil, apperr.Persistence("save credentials", err)
	}

	return creds, nil
}
