package sqlite

import (
	"database/sql"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database at path and creates the fetch_history
// table if it doesn't exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS fetch_history (
		id INTEGER PRIMARY KEY,
		cache_key TEXT,
		url TEXT,
		outcome TEXT,
		attempts INTEGER,
		byte_size INTEGER,
		duration_ms INTEGER,
		created_at DATETIME
	)`)

	if err != nil {
		return nil, err
	}

	return db, nil
}
