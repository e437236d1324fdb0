// Package models defines the domain types for the journal.
package models

// EntryType names the root a note lives under.
type EntryType string

const (
	EntryTypeProject EntryType = "project"
	EntryTypeUser    EntryType = "user"
)

// EntryTypes lists every root type in a stable order.
var EntryTypes = []EntryType{EntryTypeProject, EntryTypeUser}

// Valid reports whether t is a known root type.
func (t EntryType) Valid() bool {
	return t == EntryTypeProject || t == EntryTypeUser
}

// Note is a journal entry as read from the store.
type Note struct {
	Path      string    `json:"path"`
	Content   []byte    `json:"-"`
	Timestamp int64     `json:"timestamp"` // epoch millis
	Type      EntryType `json:"type"`
}

// SearchResult is one ranked entry returned by search or list operations.
type SearchResult struct {
	Path      string    `json:"path"`
	Score     float64   `json:"score"`
	Text      string    `json:"text"`
	Sections  []string  `json:"sections"`
	Timestamp int64     `json:"timestamp"`
	Excerpt   string    `json:"excerpt"`
	Type      EntryType `json:"type"`
}
