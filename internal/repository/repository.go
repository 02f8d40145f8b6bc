// Package repository discovers the Repository Handle: the absolute path to
// the nearest ancestor directory containing a .git entry, plus the minimum
// supported git version check run once at startup.
package repository

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

// minGitMajor and minGitMinor give the lowest git release gitalky supports.
const (
	minGitMajor = 2
	minGitMinor = 20
)

// Handle is the discovered git working directory. It is immutable after
// construction and is never re-validated during the process lifetime.
type Handle struct {
	Root string
}

// Discover walks up from dir (the empty string means the current working
// directory) looking for a .git entry, and verifies the git binary on PATH
// meets the minimum supported version.
func Discover(dir string) (*Handle, error) {
	if err := checkGitVersion(); err != nil {
		return nil, err
	}

	start := dir
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, gitalkyerrors.Wrap(gitalkyerrors.KindGit, "repository.Discover", err)
		}
		start = cwd
	}

	root, err := findRoot(start)
	if err != nil {
		return nil, err
	}
	return &Handle{Root: root}, nil
}

// findRoot walks up from dir looking for a .git entry.
func findRoot(dir string) (string, error) {
	current := dir
	for {
		gitEntry := filepath.Join(current, ".git")
		if info, err := os.Stat(gitEntry); err == nil && (info.IsDir() || info.Mode().IsRegular()) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", gitalkyerrors.Wrap(gitalkyerrors.KindGit, "repository.Discover", gitalkyerrors.ErrNotARepository)
		}
		current = parent
	}
}

// checkGitVersion runs "git --version" and rejects anything older than
// minGitMajor.minGitMinor.
func checkGitVersion() error {
	cmd := exec.Command("git", "--version")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return gitalkyerrors.Wrap(gitalkyerrors.KindGit, "repository.checkGitVersion", gitalkyerrors.ErrGitTooOld)
	}

	major, minor, err := parseGitVersion(stdout.String())
	if err != nil {
		return gitalkyerrors.Wrap(gitalkyerrors.KindGit, "repository.checkGitVersion", gitalkyerrors.ErrGitTooOld)
	}

	if major < minGitMajor || (major == minGitMajor && minor < minGitMinor) {
		return gitalkyerrors.Wrap(gitalkyerrors.KindGit, "repository.checkGitVersion", gitalkyerrors.ErrGitTooOld)
	}
	return nil
}

// parseGitVersion extracts the major/minor numbers from "git version X.Y.Z"
// (optionally followed by a vendor suffix like "(Apple Git-NNN)").
func parseGitVersion(output string) (major, minor int, err error) {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("unexpected git --version output: %q", output)
	}

	parts := strings.Split(fields[2], ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unable to parse git version: %q", fields[2])
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse git major version: %q", parts[0])
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse git minor version: %q", parts[1])
	}
	return major, minor, nil
}
