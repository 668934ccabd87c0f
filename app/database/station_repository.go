package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lysyi3m/rss-radio/app/apperr"
)

var _ StationRepository = (*stationRepository)(nil)

type stationRepository struct {
	db *sqlx.DB
}

func NewStationRepository(db *sqlx.DB) StationRepository {
	return &stationRepository{db: db}
}

const stationColumns = `id, owner_id, name, category, tags, created_at, updated_at`

func (r *stationRepository) CreateStation(ctx context.Context, ownerID string, input StationInput) (*Station, error) {
	tags, err := encodeTags(input.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO stations (id, owner_id, name, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, strings.TrimSpace(input.Name), input.Category, tags, now, now)
	if err != nil {
		return nil, apperr.Persistence("create station", err)
	}

	return r.GetStation(ctx, id)
}

func (r *stationRepository) GetStation(ctx context.Context, id string) (*Station, error) {
	var station Station
	err := r.db.GetContext(ctx, &station, `SELECT `+stationColumns+` FROM stations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return &station, nil
}

func (r *stationRepository) ListStations(ctx context.Context, ownerID string) ([]Station, error) {
	stations := []Station{}
	err := r.db.SelectContext(ctx, &stations, `
		SELECT `+stationColumns+` FROM stations
		WHERE owner_id = ?
		ORDER BY created_at DESC, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}

func (r *stationRepository) UpdateStation(ctx context.Context, id string, input StationInput) (*Station, error) {
	tags, err := encodeTags(input.Tags)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE stations SET name = ?, category = ?, tags = ?, updated_at = ?
		WHERE id = ?`, strings.TrimSpace(input.Name), input.Category, tags, time.Now().UTC(), id)
	if err != nil {
		return nil, apperr.Persistence("update station", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperr.Persistence("update station", err)
	}
	if affected == 0 {
		return nil, ErrStationNotFound
	}

	return r.GetStation(ctx, id)
}

// DeleteStation removes the station. Its feeds stay subscribed, ungrouped,
// together with their articles and audio.
func (r *stationRepository) DeleteStation(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Persistence("begin station delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE feeds SET station_id = NULL, updated_at = ? WHERE station_id = ?`,
		time.Now().UTC(), id); err != nil {
		return apperr.Persistence("ungroup station feeds", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id); err != nil {
		return apperr.Persistence("delete station", err)
	}

	return apperr.Persistence("commit station delete", tx.Commit())
}

func encodeTags(tags []string) (string, error) {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		cleaned = append(cleaned, tag)
	}

	data, err := json.Marshal(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}
