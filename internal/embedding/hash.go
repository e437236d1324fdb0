package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is the vector size of the hash provider when none is configured.
const DefaultDimensions = 384

// Hash is an offline provider based on feature hashing. Each token lands in
// one bucket and bleeds into the next two, and the result is L2-normalised.
// It captures lexical overlap only, which is enough for small journals and
// for tests.
type Hash struct {
	dims int
}

// NewHash creates a hash provider producing vectors of length dims.
func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Hash{dims: dims}
}

// Dimensions returns the vector size.
func (h *Hash) Dimensions() int { return h.dims }

// Embed returns the hashed bag-of-words vector of text.
func (h *Hash) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, h.dims)
	for _, tok := range Tokenize(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		idx := int(f.Sum32() % uint32(h.dims))
		vec[idx] += 1
		vec[(idx+1)%h.dims] += 0.5
		vec[(idx+2)%h.dims] += 0.25
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Tokenize lowercases text, drops everything but letters, digits and
// whitespace, and splits on whitespace.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, text)
	return strings.Fields(cleaned)
}
