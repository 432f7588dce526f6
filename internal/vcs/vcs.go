// Package vcs provides the change-detection layer docsync reads staged
// edits from.
//
// A page edit reaches docsync as three things: the list of staged paths, the
// staged content of one path, and its unified diff against the last commit.
// Both git and Jujutsu (jj) can answer those questions; each backend lives in
// its own subpackage and registers itself on import:
//
//	import (
//	    "github.com/docsync/docsync/internal/vcs"
//	    _ "github.com/docsync/docsync/internal/vcs/git"
//	    _ "github.com/docsync/docsync/internal/vcs/jj"
//	)
//
//	v, err := vcs.GetForPath(root)
//
// In jj there is no index; the working-copy change (@) plays the role of the
// staged snapshot and its parent (@-) the role of HEAD.
package vcs

import "context"

// Type identifies a version control backend.
type Type string

const (
	// TypeGit is a plain git repository.
	TypeGit Type = "git"

	// TypeJJ is a Jujutsu repository.
	TypeJJ Type = "jj"

	// TypeColocate is a repository with both .jj and .git present.
	TypeColocate Type = "colocate"
)

// VCS is the change source consumed by the sync pipeline.
type VCS interface {
	// Name returns the backend type.
	Name() Type

	// RepoRoot returns the absolute repository root.
	RepoRoot() (string, error)

	// ChangedFiles lists paths changed in the staged snapshot, relative to
	// the repository root and sorted.
	ChangedFiles(ctx context.Context) ([]FileChange, error)

	// StagedDiff returns the zero-context unified diff of path between the
	// last commit and the staged snapshot. An unchanged path yields "".
	StagedDiff(ctx context.Context, path string) (string, error)

	// StagedContent returns the staged content of path.
	// Returns ErrNotFound when the path is absent from the snapshot and
	// ErrConflicts when it is unmerged.
	StagedContent(ctx context.Context, path string) ([]byte, error)

	// CommittedContent returns the content of path in the last commit.
	// Returns ErrNotFound when the path did not exist there.
	CommittedContent(ctx context.Context, path string) ([]byte, error)

	// WorkingDiff returns the zero-context unified diff of path between the
	// last commit and the working tree, staged or not.
	WorkingDiff(ctx context.Context, path string) (string, error)

	// Add stages paths. Backends without an index treat this as a no-op.
	Add(ctx context.Context, paths ...string) error

	// Exec runs a raw backend command in the repository root.
	Exec(ctx context.Context, args ...string) ([]byte, error)
}

// FileChange is one entry of ChangedFiles.
type FileChange struct {
	// Path is relative to the repository root, slash separated.
	Path string

	// Status is the staged change kind.
	Status StatusCode
}

// StatusCode represents a file change kind.
type StatusCode string

const (
	StatusModified StatusCode = "M"
	StatusAdded    StatusCode = "A"
	StatusDeleted  StatusCode = "D"
	StatusRenamed  StatusCode = "R"
	StatusCopied   StatusCode = "C"
)

// ParseStatus maps a single-letter status (as printed by
// "git diff --name-status" or "jj diff --summary") to a StatusCode.
// Git appends a similarity score to R and C ("R087"); it is ignored.
func ParseStatus(s string) (StatusCode, bool) {
	if s == "" {
		return "", false
	}
	switch StatusCode(s[:1]) {
	case StatusModified:
		return StatusModified, true
	case StatusAdded:
		return StatusAdded, true
	case StatusDeleted:
		return StatusDeleted, true
	case StatusRenamed:
		return StatusRenamed, true
	case StatusCopied:
		return StatusCopied, true
	default:
		return "", false
	}
}
