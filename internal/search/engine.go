// Package search ranks journal notes against a query by embedding similarity.
//
// Every call lists candidates afresh from the store and loads or computes
// their vectors through the sidecar cache; the engine keeps no index of its
// own between calls.
package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/errgroup"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/index"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/parser"
	"github.com/starford/journal/internal/pathguard"
	"github.com/starford/journal/internal/storage"
	"github.com/starford/journal/internal/vector"
)

const (
	defaultExcerptLength = 200
	defaultWorkers       = 8
)

// Config tunes result shaping and scoring parallelism.
type Config struct {
	// DefaultLimit applies when a call passes Limit 0. Zero means unbounded.
	DefaultLimit  int
	ExcerptLength int
	Workers       int
}

// Options narrow a Search or ListRecent call. The zero value searches both
// roots with the configured default limit.
type Options struct {
	Type     models.EntryType
	Sections []string
	Limit    int
}

// Validate checks the option values.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Type, validation.In(models.EntryTypeProject, models.EntryTypeUser)),
		validation.Field(&o.Limit, validation.Min(0)),
	)
}

// Engine answers search, recent-list and read requests over a store.
type Engine struct {
	store  storage.Provider
	ix     *index.Indexer
	cfg    Config
	logger *slog.Logger
}

// New creates a search engine.
func New(store storage.Provider, ix *index.Indexer, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = defaultExcerptLength
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Engine{store: store, ix: ix, cfg: cfg, logger: logger}
}

// outcome is the per-candidate result of the scoring step. A non-empty skip
// means the candidate was dropped and why.
type outcome struct {
	result models.SearchResult
	skip   string
}

// Search ranks the notes selected by opts against query. Candidates whose
// vector cannot be obtained are logged and left out; a failure to embed the
// query itself fails the call.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]models.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrValidation)
	}
	start := time.Now()

	qvec, err := e.ix.Provider().Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	notes, err := e.candidates(ctx, opts.Type)
	if err != nil {
		return nil, err
	}

	outcomes := make([]outcome, len(notes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, n := range notes {
		g.Go(func() error {
			o, err := e.score(gctx, qvec, n)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(outcomes))
	skipped := 0
	for i, o := range outcomes {
		if o.skip != "" {
			skipped++
			e.logger.Warn("search: candidate skipped",
				slog.String("path", notes[i].Path),
				slog.String("reason", o.skip))
			continue
		}
		if !matchesSections(o.result.Sections, opts.Sections) {
			continue
		}
		results = append(results, o.result)
	}

	slices.SortFunc(results, func(a, b models.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	results = e.truncate(results, opts.Limit)

	e.logger.Debug("search: done",
		slog.Int("candidates", len(notes)),
		slog.Int("skipped", skipped),
		slog.Int("results", len(results)),
		slog.Duration("took", time.Since(start)))
	return results, nil
}

// ListRecent returns the notes selected by opts, newest first, without
// computing any embedding. Scores are zero.
func (e *Engine) ListRecent(ctx context.Context, opts Options) ([]models.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	notes, err := e.candidates(ctx, opts.Type)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(notes))
	for _, n := range notes {
		ex := parser.Extract(string(n.Content))
		if !matchesSections(ex.Sections, opts.Sections) {
			continue
		}
		results = append(results, e.build(n, ex.Text, ex.Sections, 0))
	}

	slices.SortFunc(results, func(a, b models.SearchResult) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return e.truncate(results, opts.Limit), nil
}

// ReadEntry returns the raw content of the note at path. Paths outside both
// roots fail with apperr.ErrAccessDenied before the file system is touched.
func (e *Engine) ReadEntry(_ context.Context, path string) (string, error) {
	abs, err := pathguard.Authorize(path, e.store.Roots())
	if err != nil {
		return "", err
	}
	data, err := e.store.Read(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return "", err
	}
	return string(data), nil
}

// candidates lists the notes under the root for t, or under both roots when
// t is empty. A note reachable from both roots is returned once.
func (e *Engine) candidates(ctx context.Context, t models.EntryType) ([]models.Note, error) {
	types := models.EntryTypes
	if t != "" {
		types = []models.EntryType{t}
	}
	var out []models.Note
	seen := make(map[string]struct{})
	for _, typ := range types {
		notes, err := e.store.List(ctx, typ, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("search: list %s: %w", typ, err)
		}
		for _, n := range notes {
			if _, dup := seen[n.Path]; dup {
				continue
			}
			seen[n.Path] = struct{}{}
			out = append(out, n)
		}
	}
	return out, nil
}

// score loads or computes the vector of n and compares it with qvec. Only a
// vector length mismatch is returned as an error.
func (e *Engine) score(ctx context.Context, qvec []float64, n models.Note) (outcome, error) {
	rec, err := e.ix.Ensure(ctx, n, len(qvec))
	if err != nil {
		return outcome{skip: err.Error()}, nil
	}
	s, err := vector.Cosine(qvec, rec.Embedding)
	if err != nil {
		return outcome{}, fmt.Errorf("search: score %s: %w", n.Path, err)
	}
	return outcome{result: e.build(n, rec.Text, rec.Sections, s)}, nil
}

func (e *Engine) build(n models.Note, text string, sections []string, score float64) models.SearchResult {
	if sections == nil {
		sections = []string{}
	}
	return models.SearchResult{
		Path:      n.Path,
		Score:     score,
		Text:      text,
		Sections:  sections,
		Timestamp: n.Timestamp,
		Excerpt:   Excerpt(text, e.cfg.ExcerptLength),
		Type:      e.typeOf(n),
	}
}

func (e *Engine) typeOf(n models.Note) models.EntryType {
	if t, ok := e.store.TypeOf(n.Path); ok {
		return t
	}
	return n.Type
}

func (e *Engine) truncate(results []models.SearchResult, limit int) []models.SearchResult {
	if limit == 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// matchesSections reports whether any of have contains any of want,
// ignoring case. An empty want matches everything.
func matchesSections(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, h := range have {
		h = strings.ToLower(h)
		for _, w := range want {
			if w = strings.TrimSpace(w); w == "" {
				continue
			}
			if strings.Contains(h, strings.ToLower(w)) {
				return true
			}
		}
	}
	return false
}

// Excerpt collapses runs of whitespace in text and cuts it to limit runes,
// appending "..." when something was dropped.
func Excerpt(text string, limit int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if limit <= 0 || len(runes) <= limit {
		return collapsed
	}
	return strings.TrimRight(string(runes[:limit]), " ") + "..."
}
