package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T) *PageWatcher {
	t.Helper()
	pw, err := New(Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = pw.Stop() })
	return pw
}

// TestPageWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestPageWatcher_StartStop(t *testing.T) {
	pw := newTestWatcher(t)

	if pw.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}
	if err := pw.Start(t.TempDir()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !pw.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}
	if err := pw.Start(t.TempDir()); err == nil {
		t.Error("Second Start() should fail when watcher is already running")
	}
	if err := pw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if pw.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}
}

// TestPageWatcher_PageCreated verifies that creating a page triggers an event.
func TestPageWatcher_PageCreated(t *testing.T) {
	root := t.TempDir()
	pw := newTestWatcher(t)
	if err := pw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "intro.adoc"), []byte("= Intro\n"), 0o644); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	select {
	case event := <-pw.Events():
		if event.Op != OpCreate {
			t.Errorf("Expected OpCreate, got %v", event.Op)
		}
		if event.Rel != "intro.adoc" {
			t.Errorf("Expected intro.adoc, got %s", event.Rel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for page create event")
	}
}

// TestPageWatcher_NewSubdirectory verifies that directories created after
// Start are watched.
func TestPageWatcher_NewSubdirectory(t *testing.T) {
	root := t.TempDir()
	pw := newTestWatcher(t)
	if err := pw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	sub := filepath.Join(root, "guide")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "install.adoc"), []byte("= Install\n"), 0o644); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	select {
	case event := <-pw.Events():
		if event.Rel != "guide/install.adoc" {
			t.Errorf("Expected guide/install.adoc, got %s", event.Rel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for event in new subdirectory")
	}
}

// TestPageWatcher_IgnoresOtherFiles verifies that non-page files are not reported.
func TestPageWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	pw := newTestWatcher(t)
	if err := pw.Start(root); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "image.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case event := <-pw.Events():
		t.Errorf("Unexpected event for non-page file: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

// TestConvertEvent_Dedupe verifies that unchanged content is reported once.
func TestConvertEvent_Dedupe(t *testing.T) {
	root := t.TempDir()
	page := filepath.Join(root, "a.adoc")
	if err := os.WriteFile(page, []byte("one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pw := newTestWatcher(t)
	pw.root = root
	if err := pw.addTree(root); err != nil {
		t.Fatalf("addTree() failed: %v", err)
	}

	write := fsnotify.Event{Name: page, Op: fsnotify.Write}

	if _, ok := pw.convertEvent(write); ok {
		t.Error("Write with content seen at start should be suppressed")
	}

	if err := os.WriteFile(page, []byte("two\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	event, ok := pw.convertEvent(write)
	if !ok {
		t.Fatal("Write with new content should be reported")
	}
	if event.Op != OpModify || event.Rel != "a.adoc" {
		t.Errorf("Unexpected event %+v", event)
	}

	if _, ok := pw.convertEvent(write); ok {
		t.Error("Repeated write with same content should be suppressed")
	}

	event, ok = pw.convertEvent(fsnotify.Event{Name: page, Op: fsnotify.Remove})
	if !ok || event.Op != OpDelete {
		t.Errorf("Remove should be reported as delete, got %+v ok=%v", event, ok)
	}

	if _, ok := pw.convertEvent(write); !ok {
		t.Error("Write after delete should be reported again")
	}
}

// TestConvertEvent_Chmod verifies that attribute changes are ignored.
func TestConvertEvent_Chmod(t *testing.T) {
	root := t.TempDir()
	pw := newTestWatcher(t)
	pw.root = root

	if _, ok := pw.convertEvent(fsnotify.Event{Name: filepath.Join(root, "a.adoc"), Op: fsnotify.Chmod}); ok {
		t.Error("Chmod should be ignored")
	}
}

// TestEventOp_String verifies operation names.
func TestEventOp_String(t *testing.T) {
	cases := map[EventOp]string{OpCreate: "create", OpModify: "modify", OpDelete: "delete", EventOp(9): "unknown"}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", op, got, want)
		}
	}
}
