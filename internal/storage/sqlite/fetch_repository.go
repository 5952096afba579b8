package sqlite

import (
	"database/sql"
	"time"

	"github.com/reelpipe/mediacache/internal/storage"
)

// FetchRepository persists fetch outcomes in SQLite.
type FetchRepository struct {
	db *sql.DB
}

func NewFetchRepository(dbConn *sql.DB) *FetchRepository {
	return &FetchRepository{db: dbConn}
}

// RecordFetch appends one terminal outcome to the history.
func (r *FetchRepository) RecordFetch(rec storage.FetchRecord) error {
	createdAt := rec.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().Format(time.RFC3339)
	}

	_, err := r.db.Exec(`
		INSERT INTO fetch_history (cache_key, url, outcome, attempts, byte_size, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.CacheKey, rec.URL, rec.Outcome, rec.Attempts, rec.ByteSize, rec.DurationMS, createdAt)

	return err
}

// RecentFetches returns up to limit outcomes, newest first.
func (r *FetchRepository) RecentFetches(limit int) ([]storage.FetchRecord, error) {
	rows, err := r.db.Query(`
		SELECT cache_key, url, outcome, attempts, byte_size, duration_ms, created_at
		FROM fetch_history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.FetchRecord

	for rows.Next() {
		var rec storage.FetchRecord

		if err := rows.Scan(&rec.CacheKey, &rec.URL, &rec.Outcome, &rec.Attempts,
			&rec.ByteSize, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
