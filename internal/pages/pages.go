// Package pages maps page keys to files in the primary and secondary trees
// and reads and writes whole documents.
package pages

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideTree is returned when a path does not belong to the primary tree.
var ErrOutsideTree = errors.New("path is not a page of the primary tree")

// Side selects one of the two trees.
type Side int

const (
	Primary Side = iota
	Secondary
)

func (s Side) String() string {
	if s == Secondary {
		return "secondary"
	}
	return "primary"
}

// Document is a page loaded into memory.
type Document struct {
	// Key is the page path relative to its tree root, slash separated.
	Key string
	// Lang is the tree's language tag.
	Lang string
	// Lines is the content without line terminators.
	Lines []string
	// TrailingNewline records whether the file ended with a newline.
	TrailingNewline bool
}

// Parse builds a document from raw file content.
func Parse(key, lang, content string) *Document {
	lines, trailing := SplitLines(content)
	return &Document{Key: key, Lang: lang, Lines: lines, TrailingNewline: trailing}
}

// Content renders the document back to file content.
func (d *Document) Content() string {
	return JoinLines(d.Lines, d.TrailingNewline)
}

// WithLines returns a copy of the document holding new content.
func (d *Document) WithLines(lines []string) *Document {
	c := *d
	c.Lines = lines
	return &c
}

// SplitLines splits content on "\n", dropping a single trailing newline and
// any "\r" before each newline.
func SplitLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, trailing
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string, trailing bool) string {
	s := strings.Join(lines, "\n")
	if trailing && len(lines) > 0 {
		s += "\n"
	}
	return s
}

// Store resolves page keys inside a repository.
type Store struct {
	root       string
	trees      [2]string
	langs      [2]string
	extensions []string
}

// Options configures a Store. Tree paths are relative to the repository root.
type Options struct {
	PrimaryTree   string
	SecondaryTree string
	PrimaryLang   string
	SecondaryLang string
	Extensions    []string
}

// NewStore returns a store rooted at the repository root.
func NewStore(root string, opts Options) *Store {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".adoc"}
	}
	return &Store{
		root:       root,
		trees:      [2]string{cleanTree(opts.PrimaryTree), cleanTree(opts.SecondaryTree)},
		langs:      [2]string{opts.PrimaryLang, opts.SecondaryLang},
		extensions: exts,
	}
}

func cleanTree(p string) string {
	p = path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// Reverse returns a store with the primary and secondary roles swapped.
func (s *Store) Reverse() *Store {
	c := *s
	c.trees = [2]string{s.trees[1], s.trees[0]}
	c.langs = [2]string{s.langs[1], s.langs[0]}
	return &c
}

// Root returns the repository root.
func (s *Store) Root() string { return s.root }

// Tree returns the repository-relative directory of a side.
func (s *Store) Tree(side Side) string { return s.trees[side] }

// Lang returns the language tag of a side.
func (s *Store) Lang(side Side) string { return s.langs[side] }

// Key maps a repository-relative path to a page key when the path is a page
// of the primary tree.
func (s *Store) Key(repoPath string) (string, error) {
	p := path.Clean(filepath.ToSlash(repoPath))
	if p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p) || !s.hasExtension(p) {
		return "", fmt.Errorf("%s: %w", repoPath, ErrOutsideTree)
	}
	tree := s.trees[Primary]
	if tree == "" {
		return p, nil
	}
	key, ok := strings.CutPrefix(p, tree+"/")
	if !ok || key == "" {
		return "", fmt.Errorf("%s: %w", repoPath, ErrOutsideTree)
	}
	return key, nil
}

func (s *Store) hasExtension(p string) bool {
	ext := path.Ext(p)
	for _, e := range s.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// RepoPath returns the repository-relative slash path of a page.
func (s *Store) RepoPath(side Side, key string) string {
	return path.Join(s.trees[side], key)
}

// Path returns the absolute filesystem path of a page.
func (s *Store) Path(side Side, key string) string {
	return filepath.Join(s.root, filepath.FromSlash(s.RepoPath(side, key)))
}

// Read loads a page. A missing file yields an error matching os.ErrNotExist.
func (s *Store) Read(side Side, key string) (*Document, error) {
	data, err := os.ReadFile(s.Path(side, key))
	if err != nil {
		return nil, fmt.Errorf("read %s page %s: %w", side, key, err)
	}
	return Parse(key, s.langs[side], string(data)), nil
}

// Write replaces the whole page file, creating parent directories.
func (s *Store) Write(side Side, doc *Document) error {
	p := s.Path(side, doc.Key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", doc.Key, err)
	}
	if err := os.WriteFile(p, []byte(doc.Content()), 0o644); err != nil {
		return fmt.Errorf("write %s page %s: %w", side, doc.Key, err)
	}
	return nil
}

// List returns the keys of all pages in a tree, sorted.
func (s *Store) List(side Side) ([]string, error) {
	base := filepath.Join(s.root, filepath.FromSlash(s.trees[side]))
	var keys []string
	err := filepath.WalkDir(base, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if s.hasExtension(rel) {
			keys = append(keys, rel)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s pages: %w", side, err)
	}
	sort.Strings(keys)
	return keys, nil
}
