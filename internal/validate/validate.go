// Package validate checks that a secondary page is a structurally faithful
// variant of its primary.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/docsync/docsync/internal/asciidoc"
)

// Macro families counted by Compare.
const (
	FamilyXref    = "xref"
	FamilyInclude = "include"
	FamilyEmbed   = "embed"
)

var macroFamilies = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{FamilyXref, regexp.MustCompile(`xref:[^\s\[]+\[|<<[^<>\n]+>>`)},
	{FamilyInclude, regexp.MustCompile(`include::[^\s\[]+\[`)},
	{FamilyEmbed, regexp.MustCompile(`(?:image|video|audio)::?[^\s\[]+\[`)},
}

// Side names one of the two compared pages.
type Side string

const (
	SidePrimary   Side = "primary"
	SideSecondary Side = "secondary"
)

// HeadingMismatch is a line index where heading presence or depth differs.
// A depth of zero means the line is not a heading.
type HeadingMismatch struct {
	Line      int `json:"line" yaml:"line"`
	Primary   int `json:"primary" yaml:"primary"`
	Secondary int `json:"secondary" yaml:"secondary"`
}

// CountMismatch records differing counts of something present in both pages.
type CountMismatch struct {
	Primary   int `json:"primary" yaml:"primary"`
	Secondary int `json:"secondary" yaml:"secondary"`
}

// BlockProblem describes how a matched pair of delimited blocks differs.
type BlockProblem string

const (
	BlockKind   BlockProblem = "kind"
	BlockLength BlockProblem = "length"
	BlockLine   BlockProblem = "line"
)

// BlockMismatch is one difference between the n-th delimited block of each
// page. Line is the 1-based offset inside the block for BlockLine problems.
type BlockMismatch struct {
	Block     int          `json:"block" yaml:"block"`
	Problem   BlockProblem `json:"problem" yaml:"problem"`
	Line      int          `json:"line,omitempty" yaml:"line,omitempty"`
	Primary   string       `json:"primary" yaml:"primary"`
	Secondary string       `json:"secondary" yaml:"secondary"`
}

// MacroMismatch is a macro family whose occurrence counts differ.
type MacroMismatch struct {
	Family    string `json:"family" yaml:"family"`
	Primary   int    `json:"primary" yaml:"primary"`
	Secondary int    `json:"secondary" yaml:"secondary"`
}

// AttributeMismatch is an attribute name declared on one side only.
type AttributeMismatch struct {
	Name    string `json:"name" yaml:"name"`
	Missing Side   `json:"missing" yaml:"missing"`
}

// Report collects every violation found by Compare. An empty report is a pass.
type Report struct {
	Headings   []HeadingMismatch   `json:"headings,omitempty" yaml:"headings,omitempty"`
	BlockCount *CountMismatch      `json:"block_count,omitempty" yaml:"block_count,omitempty"`
	Blocks     []BlockMismatch     `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Macros     []MacroMismatch     `json:"macros,omitempty" yaml:"macros,omitempty"`
	Attributes []AttributeMismatch `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Empty reports whether no violation was found.
func (r Report) Empty() bool {
	return len(r.Headings) == 0 &&
		r.BlockCount == nil &&
		len(r.Blocks) == 0 &&
		len(r.Macros) == 0 &&
		len(r.Attributes) == 0
}

// Problems returns the number of violations in the report.
func (r Report) Problems() int {
	n := len(r.Headings) + len(r.Blocks) + len(r.Macros) + len(r.Attributes)
	if r.BlockCount != nil {
		n++
	}
	return n
}

// String renders one violation per line, suitable for a human resolving the
// drift by hand.
func (r Report) String() string {
	if r.Empty() {
		return "no structural differences"
	}

	var b strings.Builder
	for _, h := range r.Headings {
		fmt.Fprintf(&b, "line %d: heading depth %s in primary, %s in secondary\n",
			h.Line, depthString(h.Primary), depthString(h.Secondary))
	}
	if r.BlockCount != nil {
		fmt.Fprintf(&b, "delimited blocks: %d in primary, %d in secondary\n",
			r.BlockCount.Primary, r.BlockCount.Secondary)
	}
	for _, m := range r.Blocks {
		switch m.Problem {
		case BlockLine:
			fmt.Fprintf(&b, "block %d line %d: %q in primary, %q in secondary\n",
				m.Block, m.Line, m.Primary, m.Secondary)
		default:
			fmt.Fprintf(&b, "block %d %s: %s in primary, %s in secondary\n",
				m.Block, m.Problem, m.Primary, m.Secondary)
		}
	}
	for _, m := range r.Macros {
		fmt.Fprintf(&b, "%s macros: %d in primary, %d in secondary\n",
			m.Family, m.Primary, m.Secondary)
	}
	for _, a := range r.Attributes {
		fmt.Fprintf(&b, "attribute :%s: missing from %s\n", a.Name, a.Missing)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func depthString(d int) string {
	if d == 0 {
		return "none"
	}
	return fmt.Sprint(d)
}

// Compare runs every structural check between primary and secondary and
// returns all violations. Block indexes are 1-based, as are line numbers.
func Compare(primary, secondary []string) Report {
	p := asciidoc.Tokenize(primary)
	s := asciidoc.Tokenize(secondary)

	var r Report
	r.Headings = compareHeadings(p, s)
	r.BlockCount, r.Blocks = compareBlocks(p, s)
	r.Macros = compareMacros(primary, secondary)
	r.Attributes = compareAttributes(p, s)
	return r
}

func compareHeadings(p, s *asciidoc.Tokens) []HeadingMismatch {
	var out []HeadingMismatch
	for i := 0; i < min(p.Len(), s.Len()); i++ {
		pd, sd := headingDepth(p.Token(i)), headingDepth(s.Token(i))
		if pd != sd {
			out = append(out, HeadingMismatch{Line: i + 1, Primary: pd, Secondary: sd})
		}
	}
	return out
}

func headingDepth(t asciidoc.Token) int {
	if t.Kind != asciidoc.KindHeading {
		return 0
	}
	return t.Depth
}

func compareBlocks(p, s *asciidoc.Tokens) (*CountMismatch, []BlockMismatch) {
	pr, sr := p.Regions(), s.Regions()

	var count *CountMismatch
	if len(pr) != len(sr) {
		count = &CountMismatch{Primary: len(pr), Secondary: len(sr)}
	}

	var out []BlockMismatch
	for i := 0; i < min(len(pr), len(sr)); i++ {
		a, b := pr[i], sr[i]
		block := i + 1

		if a.Kind != b.Kind {
			out = append(out, BlockMismatch{
				Block: block, Problem: BlockKind,
				Primary: a.Kind.String(), Secondary: b.Kind.String(),
			})
		}
		if a.Len() != b.Len() {
			out = append(out, BlockMismatch{
				Block: block, Problem: BlockLength,
				Primary: fmt.Sprint(a.Len()), Secondary: fmt.Sprint(b.Len()),
			})
		}
		for j := 0; j < min(a.Len(), b.Len()); j++ {
			pl, sl := p.Line(a.Start+j), s.Line(b.Start+j)
			if pl != sl {
				out = append(out, BlockMismatch{
					Block: block, Problem: BlockLine, Line: j + 1,
					Primary: pl, Secondary: sl,
				})
			}
		}
	}
	return count, out
}

// MacroCounts returns the number of occurrences of each macro family in the
// given lines.
func MacroCounts(lines []string) map[string]int {
	text := strings.Join(lines, "\n")
	counts := make(map[string]int, len(macroFamilies))
	for _, f := range macroFamilies {
		counts[f.name] = len(f.pattern.FindAllStringIndex(text, -1))
	}
	return counts
}

func compareMacros(primary, secondary []string) []MacroMismatch {
	pc, sc := MacroCounts(primary), MacroCounts(secondary)

	var out []MacroMismatch
	for _, f := range macroFamilies {
		if pc[f.name] != sc[f.name] {
			out = append(out, MacroMismatch{Family: f.name, Primary: pc[f.name], Secondary: sc[f.name]})
		}
	}
	return out
}

func compareAttributes(p, s *asciidoc.Tokens) []AttributeMismatch {
	pn, sn := p.AttributeNames(), s.AttributeNames()

	var out []AttributeMismatch
	for name := range pn {
		if _, ok := sn[name]; !ok {
			out = append(out, AttributeMismatch{Name: name, Missing: SideSecondary})
		}
	}
	for name := range sn {
		if _, ok := pn[name]; !ok {
			out = append(out, AttributeMismatch{Name: name, Missing: SidePrimary})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Missing < out[j].Missing
	})
	return out
}
