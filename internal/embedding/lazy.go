package embedding

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory builds a provider. It may be slow (model load, remote handshake).
type Factory func(ctx context.Context) (Provider, error)

// Lazy defers provider construction to first use. Concurrent first callers
// share a single Factory call; a successful result is cached for the life of
// the Lazy, a failed one is not, so the next call retries.
type Lazy struct {
	factory Factory
	group   singleflight.Group

	mu sync.RWMutex
	p  Provider
}

// NewLazy wraps factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Init forces initialisation and reports its error.
func (l *Lazy) Init(ctx context.Context) error {
	_, err := l.provider(ctx)
	return err
}

// Embed initialises the provider if needed and delegates to it.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float64, error) {
	p, err := l.provider(ctx)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, text)
}

func (l *Lazy) loaded() Provider {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p
}

func (l *Lazy) provider(ctx context.Context) (Provider, error) {
	if p := l.loaded(); p != nil {
		return p, nil
	}

	// The factory runs detached from the caller so that one caller giving up
	// does not fail initialisation for everyone else waiting on it.
	initCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan("init", func() (any, error) {
		if p := l.loaded(); p != nil {
			return p, nil
		}
		p, err := l.factory(initCtx)
		if err != nil {
			return nil, fmt.Errorf("embedding: init provider: %w", err)
		}
		l.mu.Lock()
		l.p = p
		l.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Provider), nil
	}
}
