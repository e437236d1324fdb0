// Package embedding maps text to fixed-length vectors.
//
// Providers are constructed explicitly and handed to the components that need
// them. Lazy wraps an expensive provider so that it is initialised at most once
// per process, even under concurrent first use.
package embedding

import "context"

// Provider maps a text to a fixed-dimension vector. Implementations must be
// deterministic for identical input within a process and safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, text string) ([]float64, error)

// Embed calls f.
func (f ProviderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}
