package repository

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

func TestDiscover_FindsRootFromSubdirectory(t *testing.T) {
	root := initGitRepo(t)
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	h, err := Discover(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Root != root {
		t.Errorf("Root = %q, want %q", h.Root, root)
	}
}

func TestDiscover_NotARepository(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir)
	if !errors.Is(err, gitalkyerrors.ErrNotARepository) {
		t.Errorf("error = %v, want ErrNotARepository", err)
	}
}

func TestParseGitVersion(t *testing.T) {
	cases := []struct {
		output    string
		wantMajor int
		wantMinor int
	}{
		{"git version 2.39.2", 2, 39},
		{"git version 2.39.2 (Apple Git-143)", 2, 39},
		{"git version 2.20.0", 2, 20},
	}
	for _, c := range cases {
		major, minor, err := parseGitVersion(c.output)
		if err != nil {
			t.Errorf("parseGitVersion(%q) unexpected error: %v", c.output, err)
			continue
		}
		if major != c.wantMajor || minor != c.wantMinor {
			t.Errorf("parseGitVersion(%q) = %d.%d, want %d.%d", c.output, major, minor, c.wantMajor, c.wantMinor)
		}
	}
}

func TestParseGitVersion_RejectsGarbage(t *testing.T) {
	if _, _, err := parseGitVersion("not a version string"); err == nil {
		t.Error("expected error for unparseable version string")
	}
}

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	return dir
}

func runGit(t *testing.T, cwd string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, string(out))
	}
}
