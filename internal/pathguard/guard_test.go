package pathguard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/journal/internal/apperr"
)

func roots(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	project := filepath.Join(base, "project")
	user := filepath.Join(base, "user")
	for _, d := range []string{project, user} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return project, user
}

func TestAuthorize_AcceptsPathsUnderRoots(t *testing.T) {
	project, user := roots(t)
	note := filepath.Join(project, "2026-01-01", "a.md")
	if err := os.MkdirAll(filepath.Dir(note), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(note, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Authorize(note, []string{project, user})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	want, _ := filepath.EvalSymlinks(note)
	if got != want {
		t.Errorf("canonical = %q, want %q", got, want)
	}

	// Not-yet-existing files under a root are still accepted.
	if _, err := Authorize(filepath.Join(user, "2026-02-02", "new.md"), []string{project, user}); err != nil {
		t.Errorf("nonexistent path under root rejected: %v", err)
	}
}

func TestAuthorize_RejectsOutside(t *testing.T) {
	project, user := roots(t)
	cases := []string{
		"/etc/passwd",
		filepath.Join(project, "..", "..", "etc", "passwd"),
		filepath.Join(project, "2026-01-01", "..", "..", "user-evil", "x.md"),
		project + "-evil/x.md",
		"",
	}
	for _, p := range cases {
		_, err := Authorize(p, []string{project, user})
		if err == nil {
			t.Errorf("expected rejection for %q", p)
			continue
		}
		if !errors.Is(err, apperr.ErrAccessDenied) {
			t.Errorf("error for %q = %v, want ErrAccessDenied", p, err)
		}
	}
}

func TestAuthorize_RejectsSymlinkEscape(t *testing.T) {
	project, _ := roots(t)
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.md")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(project, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, err := Authorize(filepath.Join(link, "secret.md"), []string{project}); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Errorf("symlink escape error = %v, want ErrAccessDenied", err)
	}
}

func TestAuthorize_NoRoots(t *testing.T) {
	if _, err := Authorize("/tmp/whatever.md", nil); !errors.Is(err, apperr.ErrAccessDenied) {
		t.Errorf("error = %v, want ErrAccessDenied", err)
	}
}

func TestWithin(t *testing.T) {
	project, user := roots(t)
	p := filepath.Join(user, "d", "n.md")
	if !Within(user, p) {
		t.Error("expected path within user root")
	}
	if Within(project, p) {
		t.Error("user path reported within project root")
	}
}
