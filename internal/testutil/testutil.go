// Package testutil provides shared test helpers for setting up journals.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/journal/internal/embedding"
	"github.com/starford/journal/internal/index"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/sidecar"
	"github.com/starford/journal/internal/storage"
)

// Dimensions is the vector size used by the test provider.
const Dimensions = 128

// Journal bundles a temporary two-root store with a hash-provider indexer.
type Journal struct {
	ProjectRoot string
	UserRoot    string
	Store       *storage.FS
	Indexer     *index.Indexer
	Logger      *slog.Logger
}

// Logger returns a JSON logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// NewJournal creates empty project and user roots under t.TempDir.
func NewJournal(t *testing.T) *Journal {
	t.Helper()
	return NewJournalWithProvider(t, embedding.NewHash(Dimensions))
}

// NewJournalWithProvider is NewJournal with a custom embedding provider.
func NewJournalWithProvider(t *testing.T, p embedding.Provider) *Journal {
	t.Helper()
	base := t.TempDir()
	project := filepath.Join(base, "project", ".ai-journal")
	user := filepath.Join(base, "home", ".ai-journal")
	logger := Logger()

	store, err := storage.NewFS(project, user, logger)
	if err != nil {
		t.Fatal(err)
	}
	return &Journal{
		ProjectRoot: project,
		UserRoot:    user,
		Store:       store,
		Indexer:     index.NewIndexer(p, sidecar.NewCodec(logger), logger),
		Logger:      logger,
	}
}

// WriteNote writes content to rel under the root of typ and returns the absolute path.
func (j *Journal) WriteNote(t *testing.T, typ models.EntryType, rel, content string) string {
	t.Helper()
	p := filepath.Join(j.Store.Root(typ), rel)
	if err := j.Store.Write(p, []byte(content)); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return p
}
