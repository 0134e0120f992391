// Package record holds the rows most recently pulled from the auction sheet.
package record

import (
	"strings"
	"sync"
)

// Record is one data row: column name to cell value. The display cares about
// "Item", "Type", "Base Price", "Current Bid", "Name of Bidder" and "Status",
// but nothing is enforced; a missing column reads as the empty string.
type Record map[string]string

// Get returns the value for a column, or "" when the column is absent.
func (r Record) Get(column string) string {
	return r[column]
}

// Item returns the row's item identifier.
func (r Record) Item() string {
	return r["Item"]
}

// IsOpen reports whether the row's Status is "open", case-insensitively.
func (r Record) IsOpen() bool {
	return strings.EqualFold(strings.TrimSpace(r["Status"]), "open")
}

// Store holds the current row set. SetRows replaces it wholesale; readers
// never observe a partial update.
type Store struct {
	mu   sync.RWMutex
	rows []Record
}

func NewStore() *Store {
	return &Store{}
}

// SetRows atomically replaces the held rows.
func (s *Store) SetRows(rows []Record) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

// All returns the full row set in source order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.rows))
	copy(out, s.rows)
	return out
}

// Open returns the rows whose Status is "open", preserving source order.
func (s *Store) Open() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.rows {
		if r.IsOpen() {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of held rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
