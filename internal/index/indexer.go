// Package index keeps embedding sidecars in step with the notes on disk.
package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/journal/internal/checksum"
	"github.com/starford/journal/internal/embedding"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/parser"
	"github.com/starford/journal/internal/sidecar"
)

// Indexer computes and caches the embedding of individual notes.
type Indexer struct {
	provider embedding.Provider
	codec    *sidecar.Codec
	logger   *slog.Logger
}

// NewIndexer creates an indexer that embeds with provider and caches through codec.
func NewIndexer(provider embedding.Provider, codec *sidecar.Codec, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{provider: provider, codec: codec, logger: logger}
}

// Provider returns the embedding provider used for notes.
func (ix *Indexer) Provider() embedding.Provider {
	return ix.provider
}

// Codec returns the sidecar codec.
func (ix *Indexer) Codec() *sidecar.Codec {
	return ix.codec
}

// Index extracts, embeds and persists note, replacing any existing sidecar.
func (ix *Indexer) Index(ctx context.Context, note models.Note) (sidecar.Record, error) {
	ex := parser.Extract(string(note.Content))
	vec, err := ix.provider.Embed(ctx, ex.Text)
	if err != nil {
		return sidecar.Record{}, fmt.Errorf("index: embed %s: %w", note.Path, err)
	}
	rec := sidecar.Record{
		Embedding: vec,
		Text:      ex.Text,
		Sections:  ex.Sections,
		Timestamp: note.Timestamp,
		Path:      note.Path,
		Checksum:  checksum.Sum(note.Content),
	}
	if err := ix.codec.Save(note.Path, rec); err != nil {
		return sidecar.Record{}, err
	}
	ix.logger.Debug("index: embedded", slog.String("path", note.Path), slog.Int("dims", len(vec)))
	return rec, nil
}

// Ensure returns the cached record for note, computing it when the sidecar is
// absent, was written for different content, or its vector length differs
// from dims. dims <= 0 accepts any cached length. Sidecars without a checksum
// are trusted.
func (ix *Indexer) Ensure(ctx context.Context, note models.Note, dims int) (sidecar.Record, error) {
	if rec, ok := ix.codec.Load(note.Path); ok {
		switch {
		case rec.Checksum != "" && !checksum.Matches(note.Content, rec.Checksum):
			ix.logger.Info("index: content changed, re-embedding", slog.String("path", note.Path))
		case dims > 0 && len(rec.Embedding) != dims:
			ix.logger.Info("index: dimension changed, re-embedding",
				slog.String("path", note.Path),
				slog.Int("cached", len(rec.Embedding)),
				slog.Int("want", dims))
		default:
			// Store-side values win over whatever the sidecar recorded.
			rec.Path = note.Path
			rec.Timestamp = note.Timestamp
			return rec, nil
		}
	}
	return ix.Index(ctx, note)
}

// Fresh reports whether the sidecar of note exists and matches its content.
func (ix *Indexer) Fresh(note models.Note) bool {
	rec, ok := ix.codec.Load(note.Path)
	return ok && checksum.Matches(note.Content, rec.Checksum)
}

// Forget removes the sidecar of the note at path.
func (ix *Indexer) Forget(path string) error {
	return ix.codec.Remove(path)
}
