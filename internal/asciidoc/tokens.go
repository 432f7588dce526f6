package asciidoc

import "sort"

// state is the open/closed status of both block kinds at a point in a page.
type state struct {
	source  bool
	literal bool
}

func (s state) inside() bool {
	return s.source || s.literal
}

// toggle returns the state after a line of the given delimiter kind.
func (s state) toggle(r RegionKind) state {
	switch r {
	case RegionSource:
		s.source = !s.source
	case RegionLiteral:
		s.literal = !s.literal
	}
	return s
}

// Region is a delimited block span. Start and End are line indexes of the
// opening and closing delimiters. An unclosed block ends at the last line
// of the page and has Closed == false.
type Region struct {
	Kind   RegionKind
	Start  int
	End    int
	Closed bool
}

// Len returns the number of lines in the region, delimiters included.
func (r Region) Len() int {
	return r.End - r.Start + 1
}

// Tokens is the structural view of a whole page.
type Tokens struct {
	lines   []string
	tokens  []Token
	before  []state
	after   []state
	regions []Region
}

// Tokenize classifies every line of a page.
func Tokenize(lines []string) *Tokens {
	t := &Tokens{
		lines:  lines,
		tokens: make([]Token, len(lines)),
		before: make([]state, len(lines)),
		after:  make([]state, len(lines)),
	}

	var cur state
	open := map[RegionKind]int{}
	for i, line := range lines {
		t.before[i] = cur
		r := DelimiterKind(line)
		if r != RegionNone {
			next := cur.toggle(r)
			if start, ok := open[r]; ok {
				t.regions = append(t.regions, Region{Kind: r, Start: start, End: i, Closed: true})
				delete(open, r)
			} else {
				open[r] = i
			}
			cur = next
		}
		t.after[i] = cur
		t.tokens[i] = classify(line, t.before[i].inside() && t.after[i].inside())
	}

	for _, r := range []RegionKind{RegionSource, RegionLiteral} {
		if start, ok := open[r]; ok {
			t.regions = append(t.regions, Region{Kind: r, Start: start, End: len(lines) - 1})
		}
	}
	sortRegions(t.regions)
	return t
}

func sortRegions(rs []Region) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
}

// Len returns the number of lines.
func (t *Tokens) Len() int {
	return len(t.lines)
}

// Line returns line i.
func (t *Tokens) Line(i int) string {
	return t.lines[i]
}

// Token returns the classification of line i. Out-of-range indexes yield a
// blank token.
func (t *Tokens) Token(i int) Token {
	if i < 0 || i >= len(t.tokens) {
		return Token{Kind: KindBlank}
	}
	return t.tokens[i]
}

// Inside reports whether line i belongs to a delimited block, counting the
// opening and closing delimiter lines as part of the block.
func (t *Tokens) Inside(i int) bool {
	if i < 0 || i >= len(t.tokens) {
		return false
	}
	return t.before[i].inside() || t.after[i].inside()
}

// Interior reports whether line i is strictly inside a block: a block is open
// both before and after the line. Delimiter lines are never interior unless
// another block kind is open around them.
func (t *Tokens) Interior(i int) bool {
	if i < 0 || i >= len(t.tokens) {
		return false
	}
	return t.before[i].inside() && t.after[i].inside()
}

// InsideBefore reports whether a block is open immediately before line i.
// Index Len() is valid and describes the end of the page.
func (t *Tokens) InsideBefore(i int) bool {
	switch {
	case i <= 0 || len(t.tokens) == 0:
		return false
	case i >= len(t.tokens):
		return t.after[len(t.after)-1].inside()
	default:
		return t.before[i].inside()
	}
}

// Regions returns the delimited blocks ordered by starting line.
func (t *Tokens) Regions() []Region {
	return t.regions
}

// AttributeNames returns the set of declared attribute names.
func (t *Tokens) AttributeNames() map[string]struct{} {
	names := make(map[string]struct{})
	for _, tok := range t.tokens {
		if tok.Kind == KindAttribute {
			names[tok.Name] = struct{}{}
		}
	}
	return names
}
