package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/shared"
)

// HistoryRepository implements [HistoryStore] on SQLite.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a recognition outcome. A missing ID is generated.
func (r *HistoryRepository) Create(rec models.Recognition) error {
	if rec.ID == "" {
		rec.ID = shared.GenerateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO recognitions (id, title, artist, track_uri, playlist_id, stage, failure, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Track.Title, rec.Track.Artist,
		nullable(rec.TrackURI), nullable(rec.PlaylistID),
		rec.Stage, nullable(rec.Failure),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record recognition: %w", err)
	}
	return nil
}

// List returns the most recent recognitions, newest first.
func (r *HistoryRepository) List(limit int) ([]models.Recognition, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, title, artist, track_uri, playlist_id, stage, failure, created_at
		FROM recognitions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recognitions: %w", err)
	}
	defer rows.Close()

	var recs []models.Recognition
	for rows.Next() {
		var rec models.Recognition
		var uri, playlistID, failure sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Track.Title, &rec.Track.Artist, &uri, &playlistID, &rec.Stage, &failure, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan recognition: %w", err)
		}

		rec.TrackURI = uri.String
		rec.PlaylistID = playlistID.String
		rec.Failure = failure.String
		if ts, err := parseTimestamp(createdAt); err == nil {
			rec.CreatedAt = ts
		}

		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
