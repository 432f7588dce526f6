package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docsync/docsync/internal/vcs"
)

// setupTestRepo creates a temporary git repository for testing
func setupTestRepo(t *testing.T) string {
	t.Helper()

	if !vcs.IsGitAvailable() {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	run(t, dir, "init", "-q")
	run(t, dir, "config", "user.name", "Test User")
	run(t, dir, "config", "user.email", "test@example.com")
	run(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// commitPage writes, stages and commits one page.
func commitPage(t *testing.T, dir, rel, content string) {
	t.Helper()
	writeFile(t, dir, rel, content)
	run(t, dir, "add", rel)
	run(t, dir, "commit", "-q", "-m", "add "+rel)
}

func TestNew(t *testing.T) {
	dir := setupTestRepo(t)
	if err := os.Mkdir(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}

	g, err := New(filepath.Join(dir, "docs"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if g.Name() != vcs.TypeGit {
		t.Errorf("Name() = %v, want %v", g.Name(), vcs.TypeGit)
	}

	root, err := g.RepoRoot()
	if err != nil {
		t.Fatalf("RepoRoot() failed: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if root != want {
		t.Errorf("RepoRoot() = %q, want %q", root, want)
	}
}

func TestNewOutsideRepo(t *testing.T) {
	if !vcs.IsGitAvailable() {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	if _, err := vcs.Detect(dir); err == nil {
		t.Skip("temp dir is inside a repository")
	}

	_, err := New(dir)
	if !errors.Is(err, vcs.ErrNotInVCS) {
		t.Errorf("New() error = %v, want ErrNotInVCS", err)
	}
}

func TestStagedDiffAndContent(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "docs/en/install.adoc", "= Install\n\nInstall the package.\n")

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	writeFile(t, dir, "docs/en/install.adoc", "= Install\n\nInstall the library.\n")
	run(t, dir, "add", "docs/en/install.adoc")

	diff, err := g.StagedDiff(ctx, "docs/en/install.adoc")
	if err != nil {
		t.Fatalf("StagedDiff() failed: %v", err)
	}
	if !strings.Contains(diff, "@@ -3 +3 @@") {
		t.Errorf("StagedDiff() missing zero-context hunk header:\n%s", diff)
	}
	if !strings.Contains(diff, "-Install the package.") || !strings.Contains(diff, "+Install the library.") {
		t.Errorf("StagedDiff() missing changed lines:\n%s", diff)
	}

	staged, err := g.StagedContent(ctx, "docs/en/install.adoc")
	if err != nil {
		t.Fatalf("StagedContent() failed: %v", err)
	}
	if string(staged) != "= Install\n\nInstall the library.\n" {
		t.Errorf("StagedContent() = %q", staged)
	}

	committed, err := g.CommittedContent(ctx, "docs/en/install.adoc")
	if err != nil {
		t.Fatalf("CommittedContent() failed: %v", err)
	}
	if string(committed) != "= Install\n\nInstall the package.\n" {
		t.Errorf("CommittedContent() = %q", committed)
	}
}

func TestStagedDiffIgnoresUnstagedEdits(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "page.adoc", "one\n")

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	writeFile(t, dir, "page.adoc", "two\n")

	staged, err := g.StagedDiff(ctx, "page.adoc")
	if err != nil {
		t.Fatalf("StagedDiff() failed: %v", err)
	}
	if staged != "" {
		t.Errorf("StagedDiff() = %q, want empty for unstaged edit", staged)
	}

	working, err := g.WorkingDiff(ctx, "page.adoc")
	if err != nil {
		t.Fatalf("WorkingDiff() failed: %v", err)
	}
	if !strings.Contains(working, "+two") {
		t.Errorf("WorkingDiff() missing edit:\n%s", working)
	}
}

func TestWorkingDiffIncludesStagedEdits(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "page.adoc", "one\ntwo\n")

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	writeFile(t, dir, "page.adoc", "uno\ntwo\n")
	run(t, dir, "add", "page.adoc")
	writeFile(t, dir, "page.adoc", "uno\ndos\n")

	working, err := g.WorkingDiff(ctx, "page.adoc")
	if err != nil {
		t.Fatalf("WorkingDiff() failed: %v", err)
	}
	for _, want := range []string{"-one", "+uno", "-two", "+dos"} {
		if !strings.Contains(working, want) {
			t.Errorf("WorkingDiff() missing %q:\n%s", want, working)
		}
	}
}

func TestStagedContentConflicts(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "page.adoc", "base\n")
	run(t, dir, "branch", "side")
	commitPage(t, dir, "page.adoc", "ours\n")
	run(t, dir, "checkout", "-q", "side")
	commitPage(t, dir, "page.adoc", "theirs\n")
	run(t, dir, "checkout", "-q", "-")

	cmd := exec.Command("git", "merge", "-q", "side")
	cmd.Dir = dir
	if err := cmd.Run(); err == nil {
		t.Fatal("merge succeeded, want a conflict")
	}

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	_, err = g.StagedContent(ctx, "page.adoc")
	if !errors.Is(err, vcs.ErrConflicts) {
		t.Fatalf("StagedContent() error = %v, want ErrConflicts", err)
	}
	if !vcs.IsUserActionRequired(err) {
		t.Error("IsUserActionRequired() = false for an unmerged page")
	}
}

func TestContentNotFound(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "page.adoc", "one\n")

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := g.StagedContent(ctx, "missing.adoc"); !errors.Is(err, vcs.ErrNotFound) {
		t.Errorf("StagedContent() error = %v, want ErrNotFound", err)
	}

	writeFile(t, dir, "new.adoc", "new\n")
	run(t, dir, "add", "new.adoc")
	if _, err := g.CommittedContent(ctx, "new.adoc"); !errors.Is(err, vcs.ErrNotFound) {
		t.Errorf("CommittedContent() error = %v, want ErrNotFound", err)
	}
}

func TestChangedFiles(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "docs/en/keep.adoc", "keep\n")
	commitPage(t, dir, "docs/en/gone.adoc", "gone\n")

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	writeFile(t, dir, "docs/en/keep.adoc", "kept\n")
	writeFile(t, dir, "docs/en/new.adoc", "new\n")
	writeFile(t, dir, "docs/en/unstaged.adoc", "unstaged\n")
	run(t, dir, "add", "docs/en/keep.adoc", "docs/en/new.adoc")
	run(t, dir, "rm", "-q", "docs/en/gone.adoc")

	changes, err := g.ChangedFiles(ctx)
	if err != nil {
		t.Fatalf("ChangedFiles() failed: %v", err)
	}

	want := map[string]vcs.StatusCode{
		"docs/en/gone.adoc": vcs.StatusDeleted,
		"docs/en/keep.adoc": vcs.StatusModified,
		"docs/en/new.adoc":  vcs.StatusAdded,
	}
	if len(changes) != len(want) {
		t.Fatalf("ChangedFiles() = %+v, want %d entries", changes, len(want))
	}
	for _, c := range changes {
		if want[c.Path] != c.Status {
			t.Errorf("%s: status %q, want %q", c.Path, c.Status, want[c.Path])
		}
	}
}

func TestAdd(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()
	commitPage(t, dir, "docs/en/page.adoc", "hello\n")

	g, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	writeFile(t, dir, "docs/ja/page.adoc", "こんにちは\n")
	if err := g.Add(ctx, "docs/ja/page.adoc"); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := g.Add(ctx); err != nil {
		t.Fatalf("Add() with no paths failed: %v", err)
	}

	staged, err := g.StagedContent(ctx, "docs/ja/page.adoc")
	if err != nil {
		t.Fatalf("StagedContent() after Add failed: %v", err)
	}
	if string(staged) != "こんにちは\n" {
		t.Errorf("StagedContent() = %q", staged)
	}
}

func TestRegistered(t *testing.T) {
	if !vcs.IsRegistered(vcs.TypeGit) {
		t.Fatal("git backend not registered on import")
	}

	dir := setupTestRepo(t)
	v, err := vcs.GetForPath(dir)
	if err != nil {
		t.Fatalf("GetForPath() failed: %v", err)
	}
	if v.Name() != vcs.TypeGit {
		t.Errorf("GetForPath().Name() = %v, want git", v.Name())
	}
}
