// Package asciidoc recognizes the line-level structure of AsciiDoc pages.
//
// It does not build a document model. Each line is classified as a heading,
// list item, attribute entry, block delimiter, blank or plain text, and the
// open/closed state of delimited blocks is tracked across the whole page.
// That is enough to classify edits and to re-align two language variants of
// the same page without parsing the markup.
//
// Two delimited block kinds are recognized:
//
//	----   source block
//	....   literal block
//
// Their states are tracked independently; a line is "inside" when either is open.
package asciidoc

import (
	"regexp"
	"strings"
)

// Kind is the structural role of a single line.
type Kind int

const (
	// KindText is a line of prose (or any line that matches nothing else).
	KindText Kind = iota
	// KindBlank is an empty or whitespace-only line.
	KindBlank
	// KindHeading is a section title such as "== Install".
	KindHeading
	// KindListItem is a list entry such as "** item" or ". step".
	KindListItem
	// KindAttribute is an attribute entry such as ":toc: left".
	KindAttribute
	// KindDelimiter opens or closes a source or literal block.
	KindDelimiter
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBlank:
		return "blank"
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list"
	case KindAttribute:
		return "attribute"
	case KindDelimiter:
		return "delimiter"
	default:
		return "unknown"
	}
}

// RegionKind identifies a delimited block type.
type RegionKind int

const (
	// RegionNone means no block.
	RegionNone RegionKind = iota
	// RegionSource is a "----" block.
	RegionSource
	// RegionLiteral is a "...." block.
	RegionLiteral
)

// String returns a human-readable representation of the region kind.
func (r RegionKind) String() string {
	switch r {
	case RegionSource:
		return "source"
	case RegionLiteral:
		return "literal"
	default:
		return "none"
	}
}

// Delimiter lines. A line is a delimiter only when it consists solely of one
// of these (trailing whitespace is ignored).
const (
	SourceDelimiter  = "----"
	LiteralDelimiter = "...."
)

// Token is the classification of one line.
type Token struct {
	Kind Kind

	// Depth is the sigil count for headings and the marker length for list items.
	Depth int

	// Marker is the sigil run ("==") or list marker run ("**").
	Marker string

	// Name is the attribute name for attribute entries.
	Name string

	// Region is the block kind a delimiter line toggles.
	Region RegionKind
}

var (
	headingPattern   = regexp.MustCompile(`^(=+)([ \t]+\S.*)$`)
	listPattern      = regexp.MustCompile(`^([ \t]*)([*.\-]+)([ \t]+\S.*)$`)
	attributePattern = regexp.MustCompile(`^:!?([A-Za-z0-9_][A-Za-z0-9_-]*)!?:`)
)

// Heading splits a heading line into its sigil run and the remainder
// (including the separating whitespace). It ignores block state; use
// Tokens for region-aware classification.
func Heading(line string) (sigils, rest string, ok bool) {
	m := headingPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ListItem splits a list line into leading whitespace, marker run and the
// remainder (including the separating whitespace).
func ListItem(line string) (indent, marker, rest string, ok bool) {
	m := listPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// AttributeName returns the name declared by an attribute entry line.
// Unset forms (":name!:" and ":!name:") yield the bare name.
func AttributeName(line string) (string, bool) {
	m := attributePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DelimiterKind reports which block kind a line delimits, if any.
func DelimiterKind(line string) RegionKind {
	switch strings.TrimRight(line, " \t\r") {
	case SourceDelimiter:
		return RegionSource
	case LiteralDelimiter:
		return RegionLiteral
	default:
		return RegionNone
	}
}

// classify assigns a token to a line given whether it sits inside a block.
func classify(line string, inside bool) Token {
	if r := DelimiterKind(line); r != RegionNone {
		return Token{Kind: KindDelimiter, Region: r}
	}
	if name, ok := AttributeName(line); ok {
		return Token{Kind: KindAttribute, Name: name}
	}
	if strings.TrimSpace(line) == "" {
		return Token{Kind: KindBlank}
	}
	if inside {
		return Token{Kind: KindText}
	}
	if sigils, _, ok := Heading(line); ok {
		return Token{Kind: KindHeading, Depth: len(sigils), Marker: sigils}
	}
	if _, marker, _, ok := ListItem(line); ok {
		return Token{Kind: KindListItem, Depth: len(marker), Marker: marker}
	}
	return Token{Kind: KindText}
}
