// Package git provides the git backend of the vcs.VCS interface.
//
// The staged snapshot is the index: diffs compare the index against HEAD and
// content is read with "git show :path". The package registers itself with
// the vcs factory on import:
//
//	import _ "github.com/docsync/docsync/internal/vcs/git"
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docsync/docsync/internal/vcs"
)

func init() {
	vcs.Register(vcs.TypeGit, func(path string) (vcs.VCS, error) {
		return New(path)
	})
}

// missingExitCode is what git exits with when a revision path does not exist.
const missingExitCode = 128

// Git implements vcs.VCS for git repositories.
type Git struct {
	// repoRoot is the repository (or worktree) root
	repoRoot string
}

// New opens the git repository containing path.
func New(path string) (*Git, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	out, err := vcs.ExecContext(context.Background(), vcs.DefaultTimeout, absPath, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vcs.ErrNotInVCS, absPath)
	}

	return &Git{repoRoot: normalizeRepoRoot(strings.TrimSpace(string(out)))}, nil
}

// normalizeRepoRoot resolves symlinks so paths compare equal to the ones
// produced by filepath.Abs on the caller's side.
func normalizeRepoRoot(path string) string {
	path = filepath.FromSlash(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return path
}

// Name returns the VCS type (git)
func (g *Git) Name() vcs.Type {
	return vcs.TypeGit
}

// RepoRoot returns the repository root directory path
func (g *Git) RepoRoot() (string, error) {
	if g.repoRoot == "" {
		return "", vcs.ErrNotInVCS
	}
	return g.repoRoot, nil
}

// Exec executes a raw git command in the repository root.
func (g *Git) Exec(ctx context.Context, args ...string) ([]byte, error) {
	return vcs.ExecContext(ctx, vcs.DefaultTimeout, g.repoRoot, "git", args...)
}

// ChangedFiles lists staged additions, modifications, renames, copies and
// deletions.
func (g *Git) ChangedFiles(ctx context.Context) ([]vcs.FileChange, error) {
	out, err := g.Exec(ctx, "-c", "core.quotePath=false",
		"diff", "--cached", "--name-status", "-M", "--diff-filter=ACMRD")
	if err != nil {
		return nil, err
	}
	return vcs.ParseNameStatus(out), nil
}

// StagedDiff returns "git diff --cached -U0" for path.
func (g *Git) StagedDiff(ctx context.Context, path string) (string, error) {
	out, err := g.Exec(ctx, "diff", "--cached", "-U0", "--no-color", "--no-ext-diff", "--", filepath.ToSlash(path))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// WorkingDiff returns "git diff HEAD -U0" for path: staged and unstaged
// edits together, as the page would be committed after "git add".
func (g *Git) WorkingDiff(ctx context.Context, path string) (string, error) {
	out, err := g.Exec(ctx, "diff", "HEAD", "-U0", "--no-color", "--no-ext-diff", "--", filepath.ToSlash(path))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// StagedContent returns the index copy of path.
func (g *Git) StagedContent(ctx context.Context, path string) ([]byte, error) {
	return g.show(ctx, ":"+filepath.ToSlash(path))
}

// CommittedContent returns the HEAD copy of path.
func (g *Git) CommittedContent(ctx context.Context, path string) ([]byte, error) {
	return g.show(ctx, "HEAD:"+filepath.ToSlash(path))
}

func (g *Git) show(ctx context.Context, object string) ([]byte, error) {
	out, err := g.Exec(ctx, "show", object)
	if err != nil {
		if strings.Contains(err.Error(), "not at stage 0") {
			return nil, fmt.Errorf("%s: %w", object, vcs.ErrConflicts)
		}
		if vcs.GetExitCode(err) == missingExitCode && !errors.Is(err, vcs.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w", object, vcs.ErrNotFound)
		}
		return nil, err
	}
	return out, nil
}

// Add stages paths with "git add".
func (g *Git) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"add", "--"}
	for _, p := range paths {
		args = append(args, filepath.ToSlash(p))
	}
	_, err := g.Exec(ctx, args...)
	return err
}
