// Package watch reports edits to primary pages as they happen.
package watch

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new page was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing page was modified.
	OpModify
	// OpDelete indicates a page was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// PageEvent is a change to one page file.
type PageEvent struct {
	// Path is the absolute path of the page.
	Path string
	// Rel is the path relative to the watched root, slash separated.
	Rel string
	Op  EventOp
}

// Options configures a PageWatcher.
type Options struct {
	// Extensions selects page files. Defaults to ".adoc".
	Extensions []string
	// CacheSize bounds the number of content hashes remembered for
	// duplicate suppression.
	CacheSize int
}

// PageWatcher watches a page tree, including directories created after
// Start. Saves that leave a file's content unchanged, and the bursts of
// events editors produce for one save, are reported once.
type PageWatcher struct {
	watcher *fsnotify.Watcher
	seen    *lru.Cache[string, [sha256.Size]byte]
	exts    []string
	events  chan PageEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	root    string
}

// New creates a PageWatcher. It must be started with Start before it emits
// events.
func New(opts Options) (*PageWatcher, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 1024
	}
	seen, err := lru.New[string, [sha256.Size]byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedupe cache: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".adoc"}
	}

	return &PageWatcher{
		watcher: watcher,
		seen:    seen,
		exts:    exts,
		events:  make(chan PageEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching root and every directory below it. Existing page
// contents are recorded so that the first save of an unchanged file is not
// reported.
func (pw *PageWatcher) Start(root string) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("watcher already running")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	pw.root = abs

	if err := pw.addTree(abs); err != nil {
		return err
	}

	pw.running = true
	pw.wg.Add(1)
	go pw.processEvents()

	return nil
}

func (pw *PageWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := pw.watcher.Add(p); err != nil {
				return fmt.Errorf("failed to watch directory %s: %w", p, err)
			}
			return nil
		}
		if pw.isPage(p) {
			if sum, err := hashFile(p); err == nil {
				pw.seen.Add(p, sum)
			}
		}
		return nil
	})
}

// Stop stops watching and closes the event and error channels. It blocks
// until the event loop has exited.
func (pw *PageWatcher) Stop() error {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return pw.watcher.Close()
	}
	pw.running = false
	pw.mu.Unlock()

	close(pw.done)

	if err := pw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	pw.wg.Wait()

	close(pw.events)
	close(pw.errors)

	return nil
}

// Events returns the channel of page events. It is closed by Stop.
func (pw *PageWatcher) Events() <-chan PageEvent {
	return pw.events
}

// Errors returns the channel of watch errors. It is closed by Stop.
func (pw *PageWatcher) Errors() <-chan error {
	return pw.errors
}

// IsRunning returns true if the watcher is currently running.
func (pw *PageWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

func (pw *PageWatcher) processEvents() {
	defer pw.wg.Done()

	for {
		select {
		case <-pw.done:
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if pageEvent, ok := pw.convertEvent(event); ok {
				select {
				case pw.events <- pageEvent:
				case <-pw.done:
					return
				}
			}

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case pw.errors <- err:
			case <-pw.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event to a PageEvent, returning false for
// events that should not be reported.
func (pw *PageWatcher) convertEvent(event fsnotify.Event) (PageEvent, bool) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := pw.addTree(event.Name); err != nil {
				pw.reportError(err)
			}
			return PageEvent{}, false
		}
	}

	if !pw.isPage(event.Name) {
		return PageEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		pw.seen.Remove(event.Name)
		return pw.pageEvent(event.Name, OpDelete), true
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	default:
		return PageEvent{}, false
	}

	sum, err := hashFile(event.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PageEvent{}, false
		}
		pw.reportError(err)
		return PageEvent{}, false
	}
	if prev, ok := pw.seen.Get(event.Name); ok && prev == sum {
		return PageEvent{}, false
	}
	pw.seen.Add(event.Name, sum)

	return pw.pageEvent(event.Name, op), true
}

func (pw *PageWatcher) pageEvent(path string, op EventOp) PageEvent {
	rel, err := filepath.Rel(pw.root, path)
	if err != nil {
		rel = path
	}
	return PageEvent{Path: path, Rel: filepath.ToSlash(rel), Op: op}
}

func (pw *PageWatcher) reportError(err error) {
	select {
	case pw.errors <- err:
	default:
	}
}

func (pw *PageWatcher) isPage(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range pw.exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func hashFile(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}
