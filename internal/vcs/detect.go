package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PreferenceEnv overrides the backend chosen for colocated repositories.
const PreferenceEnv = "DOCSYNC_VCS"

// DetectionResult describes the repository found by Detect.
type DetectionResult struct {
	// Type is the detected VCS type
	Type Type

	// RepoRoot is the repository (or worktree) root directory
	RepoRoot string

	// HasGit indicates a .git directory or file was found
	HasGit bool

	// HasJJ indicates a .jj directory was found
	HasJJ bool

	// IsWorktree indicates a linked git worktree
	IsWorktree bool

	// MainRepoRoot is the main repo root (different from RepoRoot for worktrees)
	MainRepoRoot string
}

// Detect walks up from path looking for .jj and .git markers. The first
// directory carrying either marker is the repository root; both markers in
// the same directory mean TypeColocate.
//
// Returns ErrNotInVCS if no VCS is found.
func Detect(path string) (*DetectionResult, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	for {
		result := &DetectionResult{RepoRoot: current, MainRepoRoot: current}

		if info, err := os.Stat(filepath.Join(current, ".jj")); err == nil && info.IsDir() {
			result.HasJJ = true
		}

		gitPath := filepath.Join(current, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			result.HasGit = true
			if info.Mode().IsRegular() {
				result.IsWorktree = true
				result.MainRepoRoot = resolveWorktreeRoot(current, gitPath)
			}
		}

		switch {
		case result.HasJJ && result.HasGit:
			result.Type = TypeColocate
		case result.HasJJ:
			result.Type = TypeJJ
		case result.HasGit:
			result.Type = TypeGit
		}
		if result.Type != "" {
			return result, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, ErrNotInVCS
		}
		current = parent
	}
}

// resolveWorktreeRoot finds the main repository of a linked worktree from
// its .git file, which reads "gitdir: /main/.git/worktrees/<name>".
func resolveWorktreeRoot(worktree, gitFile string) string {
	content, err := os.ReadFile(gitFile)
	if err != nil {
		return worktree
	}
	line := strings.TrimSpace(string(content))
	gitDir, ok := strings.CutPrefix(line, "gitdir: ")
	if !ok {
		return worktree
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(worktree, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	sep := string(filepath.Separator)
	if idx := strings.Index(gitDir, sep+"worktrees"+sep); idx > 0 {
		return filepath.Dir(gitDir[:idx])
	}
	return worktree
}

// PreferredVCS returns the backend to use in colocated repositories:
// DOCSYNC_VCS when set to "git" or "jj", otherwise git. Staging through the
// git index is what a pre-commit hook observes.
func PreferredVCS() Type {
	switch strings.ToLower(os.Getenv(PreferenceEnv)) {
	case "jj", "jujutsu":
		return TypeJJ
	default:
		return TypeGit
	}
}

// IsGitAvailable reports whether git is on PATH.
func IsGitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsJJAvailable reports whether jj is on PATH.
func IsJJAvailable() bool {
	_, err := exec.LookPath("jj")
	return err == nil
}

// DetectWithAvailability performs detection and checks binary availability.
// A colocated repo with only one binary installed is narrowed to that one.
func DetectWithAvailability(path string) (*DetectionResult, error) {
	result, err := Detect(path)
	if err != nil {
		return nil, err
	}

	switch result.Type {
	case TypeGit:
		if !IsGitAvailable() {
			return nil, ErrVCSNotAvailable
		}
	case TypeJJ:
		if !IsJJAvailable() {
			return nil, ErrVCSNotAvailable
		}
	case TypeColocate:
		hasGit := IsGitAvailable()
		hasJJ := IsJJAvailable()
		switch {
		case !hasGit && !hasJJ:
			return nil, ErrVCSNotAvailable
		case !hasGit:
			result.HasGit = false
			result.Type = TypeJJ
		case !hasJJ:
			result.HasJJ = false
			result.Type = TypeGit
		}
	}

	return result, nil
}
