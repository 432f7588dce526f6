// Package align propagates structure from a primary page to its secondary
// variant without translating anything.
//
// Both operations walk the two pages line by line up to the shorter length.
// They are positional: where the pages have drifted apart, lines that do not
// correspond are left alone and the validator is expected to flag the result.
package align

import (
	"github.com/docsync/docsync/internal/asciidoc"
)

// Result is a rewritten secondary page.
type Result struct {
	// Lines is the complete new secondary content.
	Lines []string

	// Changed counts rewritten lines.
	Changed int

	// PrimaryLen and SecondaryLen are the input lengths.
	PrimaryLen   int
	SecondaryLen int
}

// Diverged reports whether the pages had different lengths, in which case
// the walk stopped at the shorter one.
func (r Result) Diverged() bool {
	return r.PrimaryLen != r.SecondaryLen
}

// Structure copies heading sigil runs and list marker runs from primary to
// secondary wherever both pages carry the same kind of structural line at
// the same index. The secondary keeps its own indentation and text.
func Structure(primary, secondary []string) Result {
	p := asciidoc.Tokenize(primary)
	s := asciidoc.Tokenize(secondary)
	out := cloneLines(secondary)
	res := Result{PrimaryLen: len(primary), SecondaryLen: len(secondary)}

	for i := 0; i < min(len(primary), len(secondary)); i++ {
		pt, st := p.Token(i), s.Token(i)
		if pt.Kind != st.Kind {
			continue
		}

		var line string
		switch pt.Kind {
		case asciidoc.KindHeading:
			_, rest, _ := asciidoc.Heading(secondary[i])
			line = pt.Marker + rest
		case asciidoc.KindListItem:
			indent, _, rest, _ := asciidoc.ListItem(secondary[i])
			line = indent + pt.Marker + rest
		default:
			continue
		}

		if line != out[i] {
			out[i] = line
			res.Changed++
		}
	}

	res.Lines = out
	return res
}

// Literal copies delimited block content verbatim. Wherever both pages are
// inside a source or literal block at the same index (delimiter lines
// included), the secondary line is replaced by the primary line. Indexes
// where only one side is inside a block are left untouched.
func Literal(primary, secondary []string) Result {
	p := asciidoc.Tokenize(primary)
	s := asciidoc.Tokenize(secondary)
	out := cloneLines(secondary)
	res := Result{PrimaryLen: len(primary), SecondaryLen: len(secondary)}

	for i := 0; i < min(len(primary), len(secondary)); i++ {
		if !p.Inside(i) || !s.Inside(i) {
			continue
		}
		if out[i] != primary[i] {
			out[i] = primary[i]
			res.Changed++
		}
	}

	res.Lines = out
	return res
}

func cloneLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
