// Package storage defines the journal file-system abstraction over the
// project and user roots.
package storage

import (
	"context"
	"time"

	"github.com/starford/journal/internal/models"
)

// NoteExt is the file extension of journal notes.
const NoteExt = ".md"

// Provider is the interface for journal file operations. All paths are
// absolute and must resolve inside one of the roots.
type Provider interface {
	// Root returns the directory backing the given entry type.
	Root(t models.EntryType) string
	// Roots returns every configured root.
	Roots() []string
	// TypeOf reports which root path belongs to.
	TypeOf(path string) (models.EntryType, bool)
	// List returns every note under the root of type t modified at or after since.
	// A zero since lists everything.
	List(ctx context.Context, t models.EntryType, since time.Time) ([]models.Note, error)
	// Get returns the note at path with its timestamp and type resolved.
	Get(path string) (models.Note, error)
	// Read returns the raw bytes of the note at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the note at path.
	Delete(path string) error
}
