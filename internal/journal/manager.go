// Package journal creates and removes journal entries.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/index"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/storage"
)

const (
	dayLayout  = "2006-01-02"
	fileLayout = "2006-01-02_15-04-05"
	dateLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Notification kinds passed to the notifier.
const (
	EventWritten = "written"
	EventRemoved = "removed"
)

// Thoughts is a structured journal submission. Project notes go to the
// project root; everything else goes to the user root.
type Thoughts struct {
	Feelings          string `json:"feelings,omitempty"`
	ProjectNotes      string `json:"project_notes,omitempty"`
	UserContext       string `json:"user_context,omitempty"`
	TechnicalInsights string `json:"technical_insights,omitempty"`
	WorldKnowledge    string `json:"world_knowledge,omitempty"`
}

type section struct {
	heading string
	body    string
}

func (t Thoughts) project() []section {
	return nonEmpty([]section{{"Project Notes", t.ProjectNotes}})
}

func (t Thoughts) user() []section {
	return nonEmpty([]section{
		{"Feelings", t.Feelings},
		{"User Context", t.UserContext},
		{"Technical Insights", t.TechnicalInsights},
		{"World Knowledge", t.WorldKnowledge},
	})
}

func nonEmpty(in []section) []section {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s.body) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Manager writes entries under the day directories of the two roots and keeps
// their sidecars current.
type Manager struct {
	store  storage.Provider
	ix     *index.Indexer
	logger *slog.Logger
	now    func() time.Time
	notify func(kind, path string)

	mu   sync.Mutex
	last time.Time
}

// NewManager creates a journal manager.
func NewManager(store storage.Provider, ix *index.Indexer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, ix: ix, logger: logger, now: time.Now}
}

// SetNotifier registers fn to be called after every write and delete.
func (m *Manager) SetNotifier(fn func(kind, path string)) {
	m.notify = fn
}

// WriteEntry stores content as a new entry under the project root.
func (m *Manager) WriteEntry(ctx context.Context, content string) (models.Note, error) {
	if strings.TrimSpace(content) == "" {
		return models.Note{}, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}
	return m.write(ctx, models.EntryTypeProject, "Journal Entry", content)
}

// WriteThoughts splits th between the project and user roots and writes one
// entry per root that received something. At least one field must be set.
func (m *Manager) WriteThoughts(ctx context.Context, th Thoughts) ([]models.Note, error) {
	routed := []struct {
		typ      models.EntryType
		title    string
		sections []section
	}{
		{models.EntryTypeProject, "Project Notes", th.project()},
		{models.EntryTypeUser, "Thoughts", th.user()},
	}

	var notes []models.Note
	for _, r := range routed {
		if len(r.sections) == 0 {
			continue
		}
		var b strings.Builder
		for i, s := range r.sections {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "## %s\n\n%s", s.heading, strings.TrimSpace(s.body))
		}
		n, err := m.write(ctx, r.typ, r.title, b.String())
		if err != nil {
			return notes, err
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("%w: at least one thought section is required", apperr.ErrValidation)
	}
	return notes, nil
}

// Delete removes the note at path together with its sidecar.
func (m *Manager) Delete(_ context.Context, path string) error {
	if err := m.store.Delete(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return err
	}
	if err := m.ix.Forget(path); err != nil {
		m.logger.Warn("journal: remove sidecar failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	m.logger.Info("journal: deleted", slog.String("path", path))
	if m.notify != nil {
		m.notify(EventRemoved, path)
	}
	return nil
}

func (m *Manager) write(ctx context.Context, typ models.EntryType, title, body string) (models.Note, error) {
	root := m.store.Root(typ)
	ts, path := m.allocate(root)

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title+" - "+ts.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "date: %s\n", ts.UTC().Format(dateLayout))
	fmt.Fprintf(&b, "timestamp: %d\n", ts.UnixMilli())
	b.WriteString("---\n\n")
	b.WriteString(body)
	b.WriteString("\n")

	if err := m.store.Write(path, []byte(b.String())); err != nil {
		return models.Note{}, fmt.Errorf("journal: write %s: %w", path, err)
	}
	note, err := m.store.Get(path)
	if err != nil {
		return models.Note{}, fmt.Errorf("journal: reread %s: %w", path, err)
	}
	m.logger.Info("journal: entry written", slog.String("path", path), slog.String("type", string(typ)))

	if _, err := m.ix.Index(ctx, note); err != nil {
		// The next search or sync fills the gap.
		m.logger.Warn("journal: embedding failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	if m.notify != nil {
		m.notify(EventWritten, path)
	}
	return note, nil
}

// allocate picks a millisecond timestamp strictly after the previous one
// handed out and a file name under root that does not exist yet.
func (m *Manager) allocate(root string) (time.Time, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now().Truncate(time.Millisecond)
	if !ts.After(m.last) {
		ts = m.last.Add(time.Millisecond)
	}
	for {
		p := entryPath(root, ts)
		if _, err := os.Stat(p); err != nil {
			m.last = ts
			return ts, p
		}
		ts = ts.Add(time.Millisecond)
	}
}

func entryPath(root string, ts time.Time) string {
	local := ts.Local()
	name := fmt.Sprintf("%s-%03d%s", local.Format(fileLayout), local.Nanosecond()/int(time.Millisecond), storage.NoteExt)
	return filepath.Join(root, local.Format(dayLayout), name)
}
