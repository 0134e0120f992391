package persist

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// SQLiteGateway stores values in a settings table of the application
// database.
type SQLiteGateway struct {
	db *sql.DB
}

func NewSQLiteGateway(db *sql.DB) (*SQLiteGateway, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &SQLiteGateway{db: db}, nil
}

func (g *SQLiteGateway) Load(key string) (string, bool) {
	var value string
	err := g.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to load setting")
		return "", false
	}
	return value, true
}

func (g *SQLiteGateway) Save(key, value string) error {
	_, err := g.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (g *SQLiteGateway) Delete(key string) error {
	if _, err := g.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

func (g *SQLiteGateway) Clear() error {
	if _, err := g.db.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}
