// Package pathguard decides whether a requested note path lies inside the
// permitted journal roots.
package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/journal/internal/apperr"
)

// Authorize canonicalises requested and returns it when it resolves inside one
// of roots. Containment is checked on resolved paths with filepath.Rel, so
// sibling directories sharing a name prefix and symlinks pointing out of a
// root are both rejected.
func Authorize(requested string, roots []string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return "", fmt.Errorf("%w: empty path", apperr.ErrAccessDenied)
	}
	canon, err := Canonical(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrAccessDenied, requested)
	}
	for _, root := range roots {
		if root == "" {
			continue
		}
		croot, err := Canonical(root)
		if err != nil {
			continue
		}
		if contains(croot, canon) {
			return canon, nil
		}
	}
	return "", fmt.Errorf("%w: %s", apperr.ErrAccessDenied, requested)
}

// Within reports whether path resolves inside root.
func Within(root, path string) bool {
	croot, err := Canonical(root)
	if err != nil {
		return false
	}
	cpath, err := Canonical(path)
	if err != nil {
		return false
	}
	return contains(croot, cpath)
}

// Canonical returns the absolute, cleaned form of p with symlinks resolved.
// Paths that do not exist yet are resolved through their longest existing
// ancestor.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("pathguard: resolve %s: %w", p, err)
	}

	var rest []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("pathguard: eval %s: %w", cur, err)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

func contains(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
