package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout bounds a single backend command.
const DefaultTimeout = 30 * time.Second

// ExecContext runs a VCS command in workDir and returns stdout. Failures
// carry the trimmed stderr, and a deadline hit maps to ErrTimeout.
//
// Example:
//
//	output, err := ExecContext(ctx, 30*time.Second, repoRoot, "git", "diff", "--cached")
func ExecContext(ctx context.Context, timeout time.Duration, workDir string, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ErrTimeout)
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}

	return stdout.Bytes(), nil
}

// ParseLines splits command output into non-empty, trimmed lines.
func ParseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}

	lines := strings.Split(string(output), "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

// ParseNameStatus parses "git diff --name-status" output (tab separated,
// renames carry old and new path) and "jj diff --summary" output (space
// separated). Renames and copies report the destination path. The result is
// sorted by path.
func ParseNameStatus(output []byte) []FileChange {
	var changes []FileChange
	for _, line := range ParseLines(output) {
		var fields []string
		if strings.Contains(line, "\t") {
			fields = strings.Split(line, "\t")
		} else {
			fields = strings.SplitN(line, " ", 2)
		}
		if len(fields) < 2 {
			continue
		}
		status, ok := ParseStatus(fields[0])
		if !ok {
			continue
		}
		path := strings.TrimSpace(fields[len(fields)-1])
		if (status == StatusRenamed || status == StatusCopied) && len(fields) == 2 {
			path = renameTarget(path)
		}
		changes = append(changes, FileChange{Path: path, Status: status})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// renameTarget extracts the new path from jj's rename notation,
// "{old => new}" possibly embedded in a path ("docs/{a.adoc => b.adoc}").
func renameTarget(path string) string {
	open := strings.Index(path, "{")
	closing := strings.LastIndex(path, "}")
	if open < 0 || closing < open {
		return path
	}
	_, to, ok := strings.Cut(path[open+1:closing], " => ")
	if !ok {
		return path
	}
	return path[:open] + to + path[closing+1:]
}

// GetExitCode returns the exit code from an error, or -1 if not an exit error.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
