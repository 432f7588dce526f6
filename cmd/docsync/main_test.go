package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/config"
	"github.com/docsync/docsync/internal/vcs"
)

// resetGlobals restores flag variables between executions of rootCmd.
func resetGlobals() {
	verbose, configFile, workDir = false, "", ""
	cfg, logger, closeLog = nil, zap.NewNop(), func() {}
	syncDryRun, syncFormat, syncReverse, syncNoStage = false, formatText, false, false
	classifyFormat, classifyReverse = formatText, false
	checkOutput = formatText
	historySince, historyPage, historyRun, historyLimit, historyFormat = "", "", "", 50, formatText
	initForce = false
	watchServe = ""
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetGlobals()
	t.Cleanup(resetGlobals)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newRepo creates a git repository holding one committed page pair.
func newRepo(t *testing.T) string {
	t.Helper()
	if !vcs.IsGitAvailable() {
		t.Skip("git not available")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv(vcs.PreferenceEnv, "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "config", "user.name", "Test User")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "commit.gpgsign", "false")

	writePage(t, dir, "docs/en/start.adoc", "=== Getting Started\n\nWelcome.\n")
	writePage(t, dir, "docs/ja/start.adoc", "=== はじめに\n\nようこそ。\n")
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "pages")
	return dir
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return string(out)
}

func writePage(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func readPage(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// stageHeadingChange raises the heading of the primary page and stages it.
func stageHeadingChange(t *testing.T, dir string) {
	t.Helper()
	writePage(t, dir, "docs/en/start.adoc", "== Getting Started\n\nWelcome.\n")
	git(t, dir, "add", "docs/en/start.adoc")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "docsync dev\n", out)
}

func TestInitWritesStarter(t *testing.T) {
	dir := newRepo(t)

	_, err := execute(t, "-C", dir, "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.FileName))

	_, err = execute(t, "-C", dir, "init")
	require.ErrorIs(t, err, config.ErrExists)

	_, err = execute(t, "-C", dir, "init", "--force")
	require.NoError(t, err)
}

func TestCheck(t *testing.T) {
	dir := newRepo(t)

	out, err := execute(t, "-C", dir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "start.adoc")

	writePage(t, dir, "docs/en/start.adoc", "== Getting Started\n\nWelcome.\n")
	out, err = execute(t, "-C", dir, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 pages")
	assert.Contains(t, out, "1 differences")
}

func TestCheckMissingSecondary(t *testing.T) {
	dir := newRepo(t)
	writePage(t, dir, "docs/en/extra.adoc", "= Extra\n")

	out, err := execute(t, "-C", dir, "check", "--format", "json")
	require.Error(t, err)

	var results []pageCheck
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "extra.adoc", results[0].Page)
	assert.True(t, results[0].Missing)
	assert.True(t, results[1].ok())
}

func TestClassifyDoesNotWrite(t *testing.T) {
	dir := newRepo(t)
	stageHeadingChange(t, dir)

	out, err := execute(t, "-C", dir, "classify", "--format", "json")
	require.NoError(t, err)

	var plans []struct {
		Page     string `json:"page"`
		Verdict  string `json:"verdict"`
		Strategy string `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "start.adoc", plans[0].Page)
	assert.Equal(t, "StructuralOnly", plans[0].Verdict)
	assert.Equal(t, "structure", plans[0].Strategy)
	assert.Equal(t, "=== はじめに\n\nようこそ。\n", readPage(t, dir, "docs/ja/start.adoc"))
}

func TestSyncStructuralOnly(t *testing.T) {
	dir := newRepo(t)
	stageHeadingChange(t, dir)

	out, err := execute(t, "-C", dir, "sync", "--format", "json")
	require.NoError(t, err)

	var summary struct {
		RunID     string `json:"run_id"`
		Passed    bool   `json:"passed"`
		Decisions []struct {
			Page    string `json:"page"`
			State   string `json:"state"`
			Written bool   `json:"written"`
		} `json:"decisions"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Passed)
	require.Len(t, summary.Decisions, 1)
	assert.Equal(t, "accepted", summary.Decisions[0].State)
	assert.True(t, summary.Decisions[0].Written)
	assert.Equal(t, 1, summary.Counts["StructuralOnly"])

	assert.Equal(t, "== はじめに\n\nようこそ。\n", readPage(t, dir, "docs/ja/start.adoc"))
	assert.Contains(t, git(t, dir, "diff", "--cached", "--name-only"), "docs/ja/start.adoc")

	out, err = execute(t, "-C", dir, "history", "--format", "json")
	require.NoError(t, err)
	var entries []struct {
		RunID string `json:"run_id"`
		Page  string `json:"page"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, summary.RunID, entries[0].RunID)
	assert.Equal(t, "start.adoc", entries[0].Page)
	assert.Equal(t, "accepted", entries[0].State)
}

func TestSyncDryRun(t *testing.T) {
	dir := newRepo(t)
	stageHeadingChange(t, dir)

	out, err := execute(t, "-C", dir, "sync", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "passed")
	assert.Equal(t, "=== はじめに\n\nようこそ。\n", readPage(t, dir, "docs/ja/start.adoc"))
	assert.NoFileExists(t, filepath.Join(dir, ".docsync", "audit.db"))
}

func TestSyncNothingStaged(t *testing.T) {
	dir := newRepo(t)

	out, err := execute(t, "-C", dir, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "no staged pages")
}

func TestHistoryWithoutDatabase(t *testing.T) {
	dir := newRepo(t)

	out, err := execute(t, "-C", dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no history")
}

func TestUnknownFormat(t *testing.T) {
	dir := newRepo(t)

	_, err := execute(t, "-C", dir, "classify", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestSyncOutsideRepository(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	_, err := execute(t, "-C", dir, "sync")
	require.ErrorIs(t, err, vcs.ErrNotInVCS)
	assert.Contains(t, hint(err), "git or jj repository")
}

func TestHint(t *testing.T) {
	assert.NotEmpty(t, hint(vcs.ErrVCSNotAvailable))
	assert.Contains(t, hint(fmt.Errorf("read staged docs/en/a.adoc: %w", vcs.ErrConflicts)), "resolve the conflicts")
	assert.Empty(t, hint(errors.New("other")))
}

func TestWatchVerdict(t *testing.T) {
	dir := newRepo(t)
	ctx := context.Background()
	repo, err := vcs.GetForPath(dir)
	require.NoError(t, err)
	c := classify.New(classify.Options{CodeOnly: true})

	verdict := func(rel string) classify.Verdict {
		t.Helper()
		v, err := watchVerdict(ctx, repo, c, filepath.Join(dir, filepath.FromSlash(rel)), rel)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, classify.NoChange, verdict("docs/en/start.adoc"))

	// A fully staged edit is still previewed.
	stageHeadingChange(t, dir)
	assert.Equal(t, classify.StructuralOnly, verdict("docs/en/start.adoc"))

	writePage(t, dir, "docs/en/new.adoc", "= New\n\nFresh page.\n")
	assert.Equal(t, classify.TextAndStructure, verdict("docs/en/new.adoc"))

	assert.Equal(t, classify.NoChange, verdict("docs/en/gone.adoc"))
}
