// Package jj provides the Jujutsu backend of the vcs.VCS interface.
//
// jj has no index. The working-copy change (@) is the staged snapshot and its
// parent (@-) stands in for HEAD, so every edit on disk counts as staged once
// jj snapshots it. The package registers itself with the vcs factory on
// import:
//
//	import _ "github.com/docsync/docsync/internal/vcs/jj"
package jj

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docsync/docsync/internal/vcs"
)

func init() {
	vcs.Register(vcs.TypeJJ, func(path string) (vcs.VCS, error) {
		return New(path)
	})
}

// JJ implements vcs.VCS for Jujutsu.
type JJ struct {
	// repoRoot is the repository root directory
	repoRoot string

	// isColocated indicates if this is a colocated repo (.jj + .git)
	isColocated bool
}

// New opens the jj repository rooted at repoRoot.
func New(repoRoot string) (*JJ, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository root: %w", err)
	}

	if info, err := os.Stat(filepath.Join(absRoot, ".jj")); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", vcs.ErrNotInVCS, absRoot)
	}

	_, gitErr := os.Stat(filepath.Join(absRoot, ".git"))
	return &JJ{repoRoot: absRoot, isColocated: gitErr == nil}, nil
}

// Init runs "jj git init" in path and opens the result.
func Init(ctx context.Context, path string, colocate bool) (*JJ, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	args := []string{"git", "init"}
	if colocate {
		args = append(args, "--colocate")
	}
	if _, err := vcs.ExecContext(ctx, vcs.DefaultTimeout, absPath, "jj", args...); err != nil {
		return nil, fmt.Errorf("failed to initialize jj repository: %w", err)
	}
	return New(absPath)
}

// Name returns vcs.TypeJJ, or vcs.TypeColocate for colocated repos.
func (j *JJ) Name() vcs.Type {
	if j.isColocated {
		return vcs.TypeColocate
	}
	return vcs.TypeJJ
}

// RepoRoot returns the repository root directory path.
func (j *JJ) RepoRoot() (string, error) {
	return j.repoRoot, nil
}

// Exec executes a raw jj command in the repository root.
func (j *JJ) Exec(ctx context.Context, args ...string) ([]byte, error) {
	out, err := vcs.ExecContext(ctx, vcs.DefaultTimeout, j.repoRoot, "jj", args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(err.Error(), "There is no jj repo") {
			return nil, fmt.Errorf("%w: %w", vcs.ErrNotInVCS, err)
		}
		return nil, err
	}
	return out, nil
}

// ChangedFiles lists paths changed in the working-copy change.
func (j *JJ) ChangedFiles(ctx context.Context) ([]vcs.FileChange, error) {
	out, err := j.Exec(ctx, "diff", "--summary", "-r", "@")
	if err != nil {
		return nil, err
	}
	return vcs.ParseNameStatus(out), nil
}

// StagedDiff returns the git-format diff of path in @ against @-.
func (j *JJ) StagedDiff(ctx context.Context, path string) (string, error) {
	out, err := j.Exec(ctx, "diff", "--git", "--context=0", "-r", "@", fileset(path))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// WorkingDiff is StagedDiff: the working copy is the snapshot.
func (j *JJ) WorkingDiff(ctx context.Context, path string) (string, error) {
	return j.StagedDiff(ctx, path)
}

// StagedContent reads path from the working copy.
func (j *JJ) StagedContent(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(j.repoRoot, filepath.FromSlash(path)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, vcs.ErrNotFound)
	}
	return data, err
}

// CommittedContent returns path as of the parent change (@-).
func (j *JJ) CommittedContent(ctx context.Context, path string) ([]byte, error) {
	out, err := j.Exec(ctx, "file", "show", "-r", "@-", fileset(path))
	if err != nil {
		if strings.Contains(err.Error(), "No such path") {
			return nil, fmt.Errorf("%s: %w", path, vcs.ErrNotFound)
		}
		return nil, err
	}
	return out, nil
}

// Add is a no-op: jj snapshots the working copy on every command.
func (j *JJ) Add(context.Context, ...string) error {
	return nil
}

// fileset names exactly one repository-relative file in jj's fileset
// language.
func fileset(path string) string {
	return "root-file:" + strconv.Quote(filepath.ToSlash(path))
}
