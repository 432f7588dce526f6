package vcs

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestParseLines(t *testing.T) {
	got := ParseLines([]byte("a\n\n  b  \n"))
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseLines() = %v, want %v", got, want)
	}
	if ParseLines(nil) != nil {
		t.Error("ParseLines(nil) should be nil")
	}
}

func TestParseNameStatus(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []FileChange
	}{
		{
			name:   "git",
			output: "M\tdocs/en/b.adoc\nA\tdocs/en/a.adoc\nD\tdocs/en/c.adoc\n",
			want: []FileChange{
				{Path: "docs/en/a.adoc", Status: StatusAdded},
				{Path: "docs/en/b.adoc", Status: StatusModified},
				{Path: "docs/en/c.adoc", Status: StatusDeleted},
			},
		},
		{
			name:   "git rename",
			output: "R087\tdocs/en/old.adoc\tdocs/en/new.adoc\n",
			want:   []FileChange{{Path: "docs/en/new.adoc", Status: StatusRenamed}},
		},
		{
			name:   "jj summary",
			output: "M docs/en/with space.adoc\nA docs/en/new.adoc\n",
			want: []FileChange{
				{Path: "docs/en/new.adoc", Status: StatusAdded},
				{Path: "docs/en/with space.adoc", Status: StatusModified},
			},
		},
		{
			name:   "jj rename",
			output: "R docs/en/{old.adoc => new.adoc}\n",
			want:   []FileChange{{Path: "docs/en/new.adoc", Status: StatusRenamed}},
		},
		{
			name:   "unknown status skipped",
			output: "X\tweird\nM\tok.adoc\n",
			want:   []FileChange{{Path: "ok.adoc", Status: StatusModified}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNameStatus([]byte(tt.output))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNameStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExecContext(t *testing.T) {
	if !IsGitAvailable() {
		t.Skip("git not available")
	}

	out, err := ExecContext(context.Background(), 10*time.Second, t.TempDir(), "git", "--version")
	if err != nil {
		t.Fatalf("ExecContext() failed: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected output from git --version")
	}

	_, err = ExecContext(context.Background(), 10*time.Second, t.TempDir(), "git", "no-such-subcommand")
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if GetExitCode(err) <= 0 {
		t.Errorf("GetExitCode() = %d, want a positive exit code", GetExitCode(err))
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("git diff: %w", ErrTimeout)
	if !IsRetryable(wrapped) {
		t.Error("timeout should be retryable")
	}
	if IsRetryable(nil) || IsFatal(nil) || IsUserActionRequired(nil) {
		t.Error("nil error classified")
	}
	if !IsUserActionRequired(fmt.Errorf("x: %w", ErrConflicts)) {
		t.Error("conflicts should require user action")
	}
	if !IsFatal(ErrVCSNotAvailable) {
		t.Error("missing binary should be fatal")
	}
	if IsFatal(errors.New("other")) {
		t.Error("unrelated error classified as fatal")
	}
	if GetExitCode(nil) != 0 || GetExitCode(errors.New("x")) != -1 {
		t.Error("GetExitCode mismatch for non-exit errors")
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus("R100"); !ok || s != StatusRenamed {
		t.Errorf("ParseStatus(R100) = %v, %v", s, ok)
	}
	if _, ok := ParseStatus(""); ok {
		t.Error("ParseStatus(\"\") should fail")
	}
}
