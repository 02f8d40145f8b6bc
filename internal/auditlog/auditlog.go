// Package auditlog appends durable, line-oriented records for every
// executed command and every rejected model output.
package auditlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/d4ncer/gitalky/internal/logging"
)

// MaxSizeBytes triggers rotation: once the log file exceeds this size, the
// next write rotates it aside before appending.
const MaxSizeBytes = 10 * 1024 * 1024

// Logger appends audit records to a single file, rotating it by size.
// All writes go through LogExec and LogValidationFailure; the underlying file handle is owned
// exclusively by the Logger.
type Logger struct {
	mu   sync.Mutex
	path string
	file *os.File

	// nowFunc and user are overridable for tests.
	nowFunc func() time.Time
	user    string
}

// Open creates or appends to the audit log at path, creating parent
// directories as needed with mode 0700 and the file itself with mode 0600.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(dirOf(path), 0700); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Logger{
		path:    path,
		file:    f,
		nowFunc: time.Now,
		user:    currentUser(),
	}, nil
}

// Close closes the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// LogExec appends an EXEC record. runID may be empty for callers outside a
// translate→execute cycle; it is then written as "-".
func (l *Logger) LogExec(repoPath, command string, exitCode int, runID string) error {
	line := fmt.Sprintf("[%s] [%s] [%s] run_id=%s command=%s exit=%d\n",
		l.timestamp(), l.user, repoPath, runIDOrDash(runID), escapeQuotes(command), exitCode)
	return l.write(line)
}

// LogValidationFailure appends a VALIDATION-REJECTED record, tagged with the
// same runID the triggering SubmitQuery call minted, so it can be correlated
// with any later EXEC record from the same cycle.
func (l *Logger) LogValidationFailure(repoPath, query, llmOutput, reason, runID string) error {
	line := fmt.Sprintf("[%s] [%s] [%s] run_id=%s [VALIDATION-REJECTED] query=%q llm_output=%q reason=%q\n",
		l.timestamp(), l.user, repoPath, runIDOrDash(runID), query, llmOutput, reason)
	return l.write(line)
}

// runIDOrDash substitutes "-" for an empty run id so the fixed-field log
// format stays parseable.
func runIDOrDash(runID string) string {
	if runID == "" {
		return "-"
	}
	return runID
}

func (l *Logger) timestamp() string {
	return l.nowFunc().UTC().Format(time.RFC3339)
}

// write rotates the file if needed, appends line, and flushes before
// returning. Rotation failures are logged and do not block the write.
func (l *Logger) write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		logging.Log.Warn().Err(err).Str("path", l.path).Msg("audit log rotation failed")
	}

	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return l.file.Sync()
}

// rotateIfNeeded renames the current file aside with a timestamp suffix and
// opens a fresh one, if the current file exceeds MaxSizeBytes.
func (l *Logger) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() <= MaxSizeBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}

	rotated := fmt.Sprintf("%s.%s", l.path, l.nowFunc().UTC().Format("20060102T150405"))
	if err := os.Rename(l.path, rotated); err != nil {
		// Reopen the original path regardless, so writes keep flowing.
		f, openErr := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if openErr == nil {
			l.file = f
		}
		return fmt.Errorf("rename for rotation: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open rotated audit log: %w", err)
	}
	l.file = f
	return nil
}

// escapeQuotes backslash-escapes embedded double quotes and strips
// newlines, so a record never spans more than one line.
func escapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("LOGNAME"); u != "" {
		return u
	}
	return "unknown"
}
