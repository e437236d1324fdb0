// Package sidecar persists a note's embedding next to the note itself.
//
// The sidecar for <dir>/<name>.md lives at <dir>/<name>.embedding and holds a
// JSON Record. Writes replace the whole file atomically; a missing or
// unreadable sidecar is reported as absent, never as an error.
package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/journal/internal/storage"
)

// Ext is the sidecar file extension.
const Ext = ".embedding"

// Record is the cached embedding of one note.
type Record struct {
	Embedding []float64 `json:"embedding"`
	Text      string    `json:"text"`
	Sections  []string  `json:"sections"`
	Timestamp int64     `json:"timestamp"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum,omitempty"`
}

// Codec reads and writes sidecar files.
type Codec struct {
	logger *slog.Logger
}

// NewCodec creates a codec. Corrupt sidecars are reported to logger.
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{logger: logger}
}

// PathFor returns the sidecar location for notePath.
func PathFor(notePath string) string {
	return strings.TrimSuffix(notePath, filepath.Ext(notePath)) + Ext
}

// Save atomically writes rec as the sidecar of notePath.
func (c *Codec) Save(notePath string, rec Record) error {
	if rec.Sections == nil {
		rec.Sections = []string{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sidecar: encode %s: %w", notePath, err)
	}
	if err := storage.WriteFileAtomic(PathFor(notePath), data); err != nil {
		return fmt.Errorf("sidecar: save %s: %w", notePath, err)
	}
	return nil
}

// Load returns the cached record for notePath. ok is false when the sidecar
// is missing, unreadable, or does not hold an embedding.
func (c *Codec) Load(notePath string) (rec Record, ok bool) {
	p := PathFor(notePath)
	data, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("sidecar: read failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return Record{}, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("sidecar: corrupt", slog.String("path", p), slog.String("error", err.Error()))
		return Record{}, false
	}
	if len(rec.Embedding) == 0 {
		c.logger.Warn("sidecar: empty embedding", slog.String("path", p))
		return Record{}, false
	}
	if rec.Sections == nil {
		rec.Sections = []string{}
	}
	return rec, true
}

// Remove deletes the sidecar of notePath. A missing sidecar is not an error.
func (c *Codec) Remove(notePath string) error {
	if err := os.Remove(PathFor(notePath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sidecar: remove %s: %w", notePath, err)
	}
	return nil
}
