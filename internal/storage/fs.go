package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/parser"
	"github.com/starford/journal/internal/pathguard"
)

// FS implements Provider backed by the local file system.
type FS struct {
	roots  map[models.EntryType]string // absolute
	logger *slog.Logger
}

// NewFS creates a provider over the project and user roots. Roots do not need
// to exist yet; they are created on first write. Identical or nested roots are
// rejected so every note belongs to exactly one type.
func NewFS(projectRoot, userRoot string, logger *slog.Logger) (*FS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	roots := make(map[models.EntryType]string, 2)
	for t, dir := range map[models.EntryType]string{
		models.EntryTypeProject: projectRoot,
		models.EntryTypeUser:    userRoot,
	} {
		if dir == "" {
			return nil, fmt.Errorf("storage: %s root is empty", t)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve %s root: %w", t, err)
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return nil, fmt.Errorf("storage: %s root is not a directory: %s", t, abs)
		}
		roots[t] = abs
	}
	project, user := roots[models.EntryTypeProject], roots[models.EntryTypeUser]
	if pathguard.Within(project, user) || pathguard.Within(user, project) {
		return nil, fmt.Errorf("%w: project root %s and user root %s overlap", apperr.ErrValidation, project, user)
	}
	return &FS{roots: roots, logger: logger}, nil
}

// Root returns the directory backing t.
func (f *FS) Root(t models.EntryType) string {
	return f.roots[t]
}

// Roots returns the project and user roots.
func (f *FS) Roots() []string {
	out := make([]string, 0, len(models.EntryTypes))
	for _, t := range models.EntryTypes {
		out = append(out, f.roots[t])
	}
	return out
}

// TypeOf reports which root path lives under.
func (f *FS) TypeOf(path string) (models.EntryType, bool) {
	for _, t := range models.EntryTypes {
		if pathguard.Within(f.roots[t], path) {
			return t, true
		}
	}
	return "", false
}

// List walks the root for t and returns every note with its content and
// timestamp. The timestamp comes from the "timestamp" frontmatter field and
// falls back to the file modification time. Unreadable files are skipped.
func (f *FS) List(ctx context.Context, t models.EntryType, since time.Time) ([]models.Note, error) {
	root, ok := f.roots[t]
	if !ok {
		return nil, fmt.Errorf("storage: unknown entry type %q", t)
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out []models.Note
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			f.logger.Warn("storage: walk failed", slog.String("path", p), slog.String("error", walkErr.Error()))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), NoteExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			f.logger.Warn("storage: stat failed", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		if !since.IsZero() && info.ModTime().Before(since) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			f.logger.Warn("storage: read failed", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		out = append(out, newNote(p, t, data, info.ModTime()))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", t, err)
	}
	return out, nil
}

// Get reads the note at path.
func (f *FS) Get(path string) (models.Note, error) {
	abs, info, err := f.entry(path)
	if err != nil {
		return models.Note{}, err
	}
	t, ok := f.TypeOf(abs)
	if !ok {
		return models.Note{}, fmt.Errorf("storage: no root for %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return newNote(abs, t, data, info.ModTime()), nil
}

// Read returns the raw bytes of a note.
func (f *FS) Read(path string) ([]byte, error) {
	abs, _, err := f.entry(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the note at path.
func (f *FS) Write(path string, content []byte) error {
	abs, err := pathguard.Authorize(path, f.Roots())
	if err != nil {
		return err
	}
	if filepath.Ext(abs) != NoteExt {
		return fmt.Errorf("%w: not a journal entry: %s", apperr.ErrValidation, path)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return WriteFileAtomic(abs, content)
}

// Delete removes a note.
func (f *FS) Delete(path string) error {
	abs, _, err := f.entry(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// entry authorizes path and checks that it names an existing note file. Other
// extensions fail with apperr.ErrValidation and anything that is not a regular
// file with apperr.ErrNotFound.
func (f *FS) entry(path string) (string, fs.FileInfo, error) {
	abs, err := pathguard.Authorize(path, f.Roots())
	if err != nil {
		return "", nil, err
	}
	if filepath.Ext(abs) != NoteExt {
		return "", nil, fmt.Errorf("%w: not a journal entry: %s", apperr.ErrValidation, path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	return abs, info, nil
}

func newNote(path string, t models.EntryType, data []byte, modTime time.Time) models.Note {
	ts, ok := parser.Timestamp(string(data))
	if !ok {
		ts = modTime.UnixMilli()
	}
	return models.Note{
		Path:      path,
		Content:   data,
		Timestamp: ts,
		Type:      t,
	}
}

// WriteFileAtomic writes data to path via tmp file → fsync → rename so readers
// never observe a partially written file. The parent directory must exist.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".journal-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

var _ Provider = (*FS)(nil)
