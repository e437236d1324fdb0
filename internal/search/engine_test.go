package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/embedding"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/sidecar"
	"github.com/starford/journal/internal/testutil"
)

func newEngine(j *testutil.Journal, cfg Config) *Engine {
	return New(j.Store, j.Indexer, cfg, j.Logger)
}

func entry(ts int64, body string) string {
	return fmt.Sprintf("---\ntitle: \"t\"\ntimestamp: %d\n---\n\n%s\n", ts, body)
}

func TestSearch_FindsRelevantNote(t *testing.T) {
	j := testutil.NewJournal(t)
	j.WriteNote(t, models.EntryTypeUser, "2026-01-01/a.md",
		entry(1000, "## Feelings\n\nI was frustrated with debugging the parser today."))
	j.WriteNote(t, models.EntryTypeUser, "2026-01-01/b.md",
		entry(2000, "## World Knowledge\n\nBananas ripen faster next to apples."))

	e := newEngine(j, Config{})
	res, err := e.Search(context.Background(), "debugging", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) == 0 {
		t.Fatal("expected results")
	}
	top := res[0]
	if !strings.Contains(top.Text, "frustrated") {
		t.Errorf("top result text = %q", top.Text)
	}
	if top.Score <= 0.1 {
		t.Errorf("top score = %f, want > 0.1", top.Score)
	}
	if top.Type != models.EntryTypeUser {
		t.Errorf("type = %q", top.Type)
	}
	if len(top.Sections) != 1 || top.Sections[0] != "Feelings" {
		t.Errorf("sections = %v", top.Sections)
	}
}

func TestSearch_FillsSidecarCache(t *testing.T) {
	j := testutil.NewJournal(t)
	p := j.WriteNote(t, models.EntryTypeProject, "a.md", entry(1, "caching works"))

	if _, err := newEngine(j, Config{}).Search(context.Background(), "caching", Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sidecar.PathFor(p)); err != nil {
		t.Errorf("sidecar not written: %v", err)
	}
}

func TestSearch_TypeFilter(t *testing.T) {
	j := testutil.NewJournal(t)
	j.WriteNote(t, models.EntryTypeUser, "u.md", entry(1, "debugging session notes"))
	j.WriteNote(t, models.EntryTypeProject, "p.md", entry(2, "debugging the build"))

	res, err := newEngine(j, Config{}).Search(context.Background(), "debugging", Options{Type: models.EntryTypeProject})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("got %d results, want 1", len(res))
	}
	for _, r := range res {
		if r.Type != models.EntryTypeProject {
			t.Errorf("result %s has type %q", r.Path, r.Type)
		}
	}
}

func TestSearch_Limit(t *testing.T) {
	j := testutil.NewJournal(t)
	for i := range 5 {
		j.WriteNote(t, models.EntryTypeUser, fmt.Sprintf("n%d.md", i), entry(int64(i), "shared words here"))
	}
	e := newEngine(j, Config{DefaultLimit: 3})

	res, err := e.Search(context.Background(), "shared", Options{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Errorf("limit 2: got %d", len(res))
	}

	res, _ = e.Search(context.Background(), "shared", Options{})
	if len(res) != 3 {
		t.Errorf("default limit: got %d, want 3", len(res))
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	j := testutil.NewJournal(t)
	res, err := newEngine(j, Config{}).Search(context.Background(), "anything", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("got %#v, want empty slice", res)
	}
}

func TestSearch_TiesBreakByTimestamp(t *testing.T) {
	j := testutil.NewJournal(t)
	j.WriteNote(t, models.EntryTypeUser, "old.md", entry(100, "same body"))
	j.WriteNote(t, models.EntryTypeUser, "new.md", entry(200, "same body"))

	res, err := newEngine(j, Config{}).Search(context.Background(), "same body", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].Timestamp != 200 {
		t.Errorf("order = %+v", res)
	}
}

func TestSearch_SectionFilterIsSubstringCaseInsensitive(t *testing.T) {
	j := testutil.NewJournal(t)
	j.WriteNote(t, models.EntryTypeUser, "a.md", entry(1, "## Technical Insights\n\ngoroutines leak"))
	j.WriteNote(t, models.EntryTypeUser, "b.md", entry(2, "## Feelings\n\ngoroutines scare me"))

	res, err := newEngine(j, Config{}).Search(context.Background(), "goroutines", Options{Sections: []string{"technical"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || filepath.Base(res[0].Path) != "a.md" {
		t.Errorf("got %+v", res)
	}
}

func TestSearch_SkipsFailingCandidate(t *testing.T) {
	hash := embedding.NewHash(testutil.Dimensions)
	p := embedding.ProviderFunc(func(ctx context.Context, text string) ([]float64, error) {
		if strings.Contains(text, "poison") {
			return nil, errors.New("model refused")
		}
		return hash.Embed(ctx, text)
	})
	j := testutil.NewJournalWithProvider(t, p)
	j.WriteNote(t, models.EntryTypeUser, "good.md", entry(1, "healthy note"))
	j.WriteNote(t, models.EntryTypeUser, "bad.md", entry(2, "poison note"))

	res, err := newEngine(j, Config{}).Search(context.Background(), "note", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || filepath.Base(res[0].Path) != "good.md" {
		t.Errorf("got %+v", res)
	}
}

func TestSearch_QueryEmbedFailureFails(t *testing.T) {
	p := embedding.ProviderFunc(func(context.Context, string) ([]float64, error) {
		return nil, errors.New("offline")
	})
	j := testutil.NewJournalWithProvider(t, p)
	if _, err := newEngine(j, Config{}).Search(context.Background(), "x", Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_RecomputesStaleDimension(t *testing.T) {
	j := testutil.NewJournal(t)
	p := j.WriteNote(t, models.EntryTypeUser, "a.md", entry(1, "dimension change"))
	_ = j.Indexer.Codec().Save(p, sidecar.Record{Embedding: []float64{1, 0, 0}, Text: "dimension change"})

	res, err := newEngine(j, Config{}).Search(context.Background(), "dimension", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("got %d results", len(res))
	}
	rec, ok := j.Indexer.Codec().Load(p)
	if !ok || len(rec.Embedding) != testutil.Dimensions {
		t.Errorf("sidecar not refreshed: ok=%v len=%d", ok, len(rec.Embedding))
	}
}

func TestSearch_SeesEditsMadeOnDisk(t *testing.T) {
	j := testutil.NewJournal(t)
	e := newEngine(j, Config{})
	ctx := context.Background()
	j.WriteNote(t, models.EntryTypeUser, "2026-01-01/a.md", entry(1, "bananas are yellow"))
	if _, err := e.Search(ctx, "bananas", Options{}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	// Edited without the watcher running.
	j.WriteNote(t, models.EntryTypeUser, "2026-01-01/a.md", entry(1, "## Feelings\n\nfrustrated with debugging"))

	res, err := e.Search(ctx, "debugging", Options{Sections: []string{"feelings"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("got %d results, want 1", len(res))
	}
	if !strings.Contains(res[0].Text, "frustrated with debugging") || strings.Contains(res[0].Text, "bananas") {
		t.Errorf("text = %q", res[0].Text)
	}
	if res[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", res[0].Score)
	}
}

func TestSearch_InvalidOptions(t *testing.T) {
	j := testutil.NewJournal(t)
	e := newEngine(j, Config{})
	ctx := context.Background()

	for name, opts := range map[string]Options{
		"bad type":       {Type: "team"},
		"negative limit": {Limit: -1},
	} {
		if _, err := e.Search(ctx, "q", opts); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: err = %v, want validation", name, err)
		}
	}
	if _, err := e.Search(ctx, "   ", Options{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank query: err = %v", err)
	}
}

func TestListRecent_OrderedByTimestamp(t *testing.T) {
	j := testutil.NewJournal(t)
	j.WriteNote(t, models.EntryTypeUser, "first.md", entry(1000, "older"))
	j.WriteNote(t, models.EntryTypeUser, "second.md", entry(5000, "newer"))
	j.WriteNote(t, models.EntryTypeProject, "p.md", entry(9000, "project"))

	res, err := newEngine(j, Config{}).ListRecent(context.Background(), Options{Type: models.EntryTypeUser})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].Timestamp != 5000 || res[1].Timestamp != 1000 {
		t.Errorf("order = %d, %d", res[0].Timestamp, res[1].Timestamp)
	}
	if res[0].Score != 0 || res[0].Type != models.EntryTypeUser {
		t.Errorf("result = %+v", res[0])
	}
}

func TestListRecent_DoesNotEmbed(t *testing.T) {
	p := embedding.ProviderFunc(func(context.Context, string) ([]float64, error) {
		t.Error("ListRecent must not call the provider")
		return nil, errors.New("unexpected")
	})
	j := testutil.NewJournalWithProvider(t, p)
	j.WriteNote(t, models.EntryTypeProject, "a.md", entry(1, "x"))

	res, err := newEngine(j, Config{}).ListRecent(context.Background(), Options{Limit: 1})
	if err != nil || len(res) != 1 {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestReadEntry(t *testing.T) {
	j := testutil.NewJournal(t)
	p := j.WriteNote(t, models.EntryTypeUser, "a.md", "hello")
	e := newEngine(j, Config{})
	ctx := context.Background()

	got, err := e.ReadEntry(ctx, p)
	if err != nil || got != "hello" {
		t.Errorf("ReadEntry = %q, %v", got, err)
	}

	if _, err := e.ReadEntry(ctx, "/etc/passwd"); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Errorf("outside root: err = %v", err)
	}
	if _, err := e.ReadEntry(ctx, filepath.Join(j.UserRoot, "..", "..", "escape.md")); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Errorf("traversal: err = %v", err)
	}
	if _, err := e.ReadEntry(ctx, filepath.Join(j.UserRoot, "missing.md")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := e.ReadEntry(ctx, j.UserRoot); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("directory: err = %v", err)
	}
	if _, err := e.ReadEntry(ctx, sidecar.PathFor(p)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("sidecar: err = %v", err)
	}
}

func TestSearch_TypeMatchesRoot(t *testing.T) {
	j := testutil.NewJournal(t)
	j.WriteNote(t, models.EntryTypeUser, "u.md", entry(1, "hello from the user journal"))
	j.WriteNote(t, models.EntryTypeProject, "p.md", entry(2, "hello from the project journal"))
	e := newEngine(j, Config{})

	for _, typ := range models.EntryTypes {
		res, err := e.Search(context.Background(), "hello", Options{Type: typ})
		if err != nil {
			t.Fatalf("Search %s: %v", typ, err)
		}
		if len(res) != 1 || res[0].Type != typ {
			t.Errorf("type %s: results = %+v", typ, res)
		}
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"a  b\n\nc", 10, "a b c"},
		{"abcdef", 3, "abc..."},
		{"héllo wörld", 5, "héllo..."},
		{"short", 0, "short"},
	}
	for _, tt := range tests {
		if got := Excerpt(tt.in, tt.limit); got != tt.want {
			t.Errorf("Excerpt(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
