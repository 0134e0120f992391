// Package images stores operator-uploaded item photos, keyed by the item
// identifier taken from each filename.
package images

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// File is one uploaded blob.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store persists identifier->image blobs in the application database and
// hands out serveable handles.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		content_type TEXT NOT NULL DEFAULT '',
		data BLOB NOT NULL,
		uploaded_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create images table: %w", err)
	}
	return &Store{db: db}, nil
}

// Identifier derives the image key from an uploaded filename: everything
// before the first dot.
func Identifier(filename string) string {
	if i := strings.Index(filename, "."); i >= 0 {
		return filename[:i]
	}
	return filename
}

// Ingest stores a batch of uploads. Within a batch a later duplicate wins;
// across sessions identifiers accumulate. Returns the number stored.
func (s *Store) Ingest(files []File) (int, error) {
	stored := 0
	now := time.Now()
	for _, f := range files {
		id := Identifier(f.Name)
		if id == "" {
			log.Warn().Str("filename", f.Name).Msg("Skipping upload with empty identifier")
			continue
		}
		_, err := s.db.Exec(`INSERT INTO images (id, content_type, data, uploaded_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET content_type = excluded.content_type, data = excluded.data, uploaded_at = excluded.uploaded_at`,
			id, f.ContentType, f.Data, now)
		if err != nil {
			return stored, fmt.Errorf("failed to store image %s: %w", id, err)
		}
		stored++
		log.Debug().Str("id", id).Int("bytes", len(f.Data)).Msg("Stored image")
	}
	return stored, nil
}

// Resolve returns the serveable handle for an identifier, or "" and false
// when no image is stored for it.
func (s *Store) Resolve(id string) (string, bool) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM images WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to resolve image")
		return "", false
	}
	return "/images/" + id, true
}

// Get reads a stored blob for serving.
func (s *Store) Get(id string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.db.QueryRow(`SELECT data, content_type FROM images WHERE id = ?`, id).Scan(&data, &contentType)
	if err == sql.ErrNoRows {
		return nil, "", fmt.Errorf("no image stored for %s", id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image %s: %w", id, err)
	}
	return data, contentType, nil
}

// Has reports whether any image has ever been ingested.
func (s *Store) Has() bool {
	return s.Count() > 0
}

// Count returns the number of stored images.
func (s *Store) Count() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		log.Error().Err(err).Msg("Failed to count images")
		return 0
	}
	return n
}

// Clear wipes all stored images.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM images`); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}
	log.Info().Msg("Cleared stored images")
	return nil
}
