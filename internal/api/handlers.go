package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	searcher Searcher
	writer   Writer
}

// NewHandler creates a new Handler.
func NewHandler(searcher Searcher, writer Writer) *Handler {
	return &Handler{searcher: searcher, writer: writer}
}

// searchOptions reads type, section and limit from the query string.
// Sections may repeat or be comma separated.
func searchOptions(q url.Values) (search.Options, bool) {
	opts := search.Options{Type: models.EntryType(q.Get("type"))}
	for _, raw := range q["section"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				opts.Sections = append(opts.Sections, s)
			}
		}
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return opts, false
		}
		opts.Limit = n
	}
	return opts, true
}

// Search handles GET /api/search.
//
//	@Summary		Semantic search across journal entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string		true	"Search query"
//	@Param			type	query		string		false	"Restrict to one root"	Enums(project, user)
//	@Param			section	query		[]string	false	"Section labels (substring, case-insensitive)"
//	@Param			limit	query		int			false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	opts, ok := searchOptions(q)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
		return
	}
	results, err := h.searcher.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListRecent handles GET /api/entries.
//
//	@Summary		List the most recent entries
//	@Tags			entries
//	@Produce		json
//	@Param			type	query		string	false	"Restrict to one root"	Enums(project, user)
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	ListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opts, ok := searchOptions(r.URL.Query())
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
		return
	}
	entries, err := h.searcher.ListRecent(r.Context(), opts)
	if err != nil {
		writeError(w, "list recent", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Entries: entries})
}

// ReadEntry handles GET /api/entry?path=.
//
//	@Summary		Read the raw content of one entry
//	@Tags			entries
//	@Produce		json
//	@Param			path	query		string	true	"Absolute entry path"
//	@Success		200		{object}	EntryResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entry [get]
func (h *Handler) ReadEntry(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	content, err := h.searcher.ReadEntry(r.Context(), path)
	if err != nil {
		writeError(w, "read entry", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Path: path, Content: content})
}

// WriteEntry handles POST /api/entries.
//
//	@Summary		Write a free-form entry to the project journal
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WriteEntryRequest	true	"Entry content"
//	@Success		201		{object}	WriteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [post]
func (h *Handler) WriteEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req WriteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.writer.WriteEntry(r.Context(), req.Content)
	if err != nil {
		writeError(w, "write entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, WriteResponse{Entries: toRefs([]models.Note{note})})
}

// WriteThoughts handles POST /api/thoughts.
//
//	@Summary		Write structured thoughts, routed to the project and user journals
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WriteThoughtsRequest	true	"Thought sections"
//	@Success		201		{object}	WriteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/thoughts [post]
func (h *Handler) WriteThoughts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req WriteThoughtsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	notes, err := h.writer.WriteThoughts(r.Context(), req)
	if err != nil {
		writeError(w, "write thoughts", err)
		return
	}
	writeJSON(w, http.StatusCreated, WriteResponse{Entries: toRefs(notes)})
}

// DeleteEntry handles DELETE /api/entry?path=.
//
//	@Summary		Delete an entry and its embedding
//	@Tags			entries
//	@Param			path	query	string	true	"Absolute entry path"
//	@Success		204		"Entry deleted"
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entry [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.writer.Delete(r.Context(), path); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
