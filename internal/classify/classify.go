// Package classify decides what kind of change an edit to a primary page is.
//
// The classifier is a pure function of the staged page and its line diff.
// It never reports NoChange for a non-empty diff: when the changed lines
// cannot be recognized it falls back to TextAndStructure so a real edit is
// never skipped silently.
package classify

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/docsync/docsync/internal/asciidoc"
	"github.com/docsync/docsync/internal/diff"
)

// Options configures a Classifier.
type Options struct {
	// CodeOnly enables the delimited-block pre-check.
	CodeOnly bool

	// Locale selects the collation used to order normalized lines.
	// The zero value uses the root collation.
	Locale language.Tag
}

// Classifier turns a diff into a Verdict.
type Classifier struct {
	codeOnly bool
	locale   language.Tag
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	return &Classifier{codeOnly: opts.CodeOnly, locale: opts.Locale}
}

// Classify returns the verdict for a staged page given its diff against the
// last committed version.
func (c *Classifier) Classify(staged []string, records diff.Records) Verdict {
	if c.codeOnly && allInsideBlocks(asciidoc.Tokenize(staged), records) {
		return CodeOnly
	}

	added := c.normalizeSet(records.Added())
	removed := c.normalizeSet(records.Removed())

	if len(added) == 0 && len(removed) == 0 {
		if len(records) > 0 {
			return TextAndStructure
		}
		return NoChange
	}

	if strings.Join(added, "\n") == strings.Join(removed, "\n") {
		return StructuralOnly
	}
	return TextAndStructure
}

// ClassifyDiff parses a unified diff and classifies it.
func (c *Classifier) ClassifyDiff(staged []string, unified string) (Verdict, diff.Records, error) {
	records, err := diff.Parse(unified)
	if err != nil {
		return TextAndStructure, nil, err
	}
	return c.Classify(staged, records), records, nil
}

// allInsideBlocks reports whether every changed line sits inside a delimited
// block of the staged page. A changed delimiter, added or removed, is a
// structural change. Added lines must be interior lines; removed lines are
// checked at the point in the staged page where they used to be.
func allInsideBlocks(toks *asciidoc.Tokens, records diff.Records) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		switch r.Kind {
		case diff.Added:
			if !toks.Interior(r.Line - 1) {
				return false
			}
		case diff.Removed:
			if asciidoc.DelimiterKind(r.Text) != asciidoc.RegionNone {
				return false
			}
			if !toks.InsideBefore(r.Anchor - 1) {
				return false
			}
		}
	}
	return true
}

// normalizeSet strips, filters, dedupes and sorts one side of the diff.
func (c *Classifier) normalizeSet(records diff.Records) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		text := Normalize(r.Text)
		if !hasLetter(text) {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}
	collate.New(c.locale).SortStrings(out)
	return out
}

var (
	blockAttrPrefix = regexp.MustCompile(`^\[[^\]]*\][ \t]*`)
	attrPrefix      = regexp.MustCompile(`^:!?[A-Za-z0-9_][A-Za-z0-9_-]*!?:[ \t]*`)
	headingPrefix   = regexp.MustCompile(`^=+[ \t]+`)
	listPrefix      = regexp.MustCompile(`^[ \t]*[*.\-]+[ \t]+`)
)

// Normalize strips the structural prefix of a line and returns the prose
// that remains.
func Normalize(line string) string {
	s := strings.TrimSpace(line)
	s = blockAttrPrefix.ReplaceAllString(s, "")
	s = attrPrefix.ReplaceAllString(s, "")
	s = headingPrefix.ReplaceAllString(s, "")
	s = listPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
