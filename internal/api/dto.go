package api

import (
	"context"

	"github.com/starford/journal/internal/journal"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/search"
)

// Searcher answers read-side requests.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]models.SearchResult, error)
	ListRecent(ctx context.Context, opts search.Options) ([]models.SearchResult, error)
	ReadEntry(ctx context.Context, path string) (string, error)
}

// Writer creates and removes entries.
type Writer interface {
	WriteEntry(ctx context.Context, content string) (models.Note, error)
	WriteThoughts(ctx context.Context, th journal.Thoughts) ([]models.Note, error)
	Delete(ctx context.Context, path string) error
}

// WriteEntryRequest is the request body for creating a free-form entry.
type WriteEntryRequest struct {
	Content string `json:"content" example:"Finished the search refactor." validate:"required"`
}

// WriteThoughtsRequest is the request body for structured thoughts.
type WriteThoughtsRequest = journal.Thoughts

// EntryRef identifies a written entry.
type EntryRef struct {
	Path      string           `json:"path" example:"/home/me/.ai-journal/2026-03-14/2026-03-14_09-26-53-589.md" validate:"required"`
	Type      models.EntryType `json:"type" example:"user" validate:"required"`
	Timestamp int64            `json:"timestamp" example:"1773480413589" validate:"required"`
}

// WriteResponse lists the entries produced by a write.
type WriteResponse struct {
	Entries []EntryRef `json:"entries" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// ListResponse wraps recent entries.
type ListResponse struct {
	Entries []models.SearchResult `json:"entries" validate:"required"`
}

// EntryResponse is the raw content of one entry.
type EntryResponse struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func toRefs(notes []models.Note) []EntryRef {
	refs := make([]EntryRef, len(notes))
	for i, n := range notes {
		refs[i] = EntryRef{Path: n.Path, Type: n.Type, Timestamp: n.Timestamp}
	}
	return refs
}
