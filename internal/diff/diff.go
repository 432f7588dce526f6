// Package diff parses unified diffs into per-line change records.
//
// Only the hunk bodies matter. File headers ("diff --git", "index",
// "--- a/x", "+++ b/x") are skipped, and inside a hunk the header counts
// decide where the hunk ends, so a removed line whose text starts with
// "--" is never mistaken for a file header.
package diff

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the direction of a changed line.
type Kind int

const (
	// Added lines exist only in the new file.
	Added Kind = iota
	// Removed lines exist only in the old file.
	Removed
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if k == Added {
		return "added"
	}
	return "removed"
}

// Record is one changed line.
type Record struct {
	Kind Kind

	// Line is the 1-based line number in the old file for removed lines and
	// in the new file for added lines.
	Line int

	// Anchor is the 1-based line number in the new file where the change
	// sits. For added lines it equals Line. For removed lines it is the new
	// line that now occupies the removal point (len(new)+1 at end of file).
	Anchor int

	// Hunk is the 0-based index of the hunk the record belongs to.
	Hunk int

	// Text is the line content without the leading '+' or '-'.
	Text string
}

// Records is the parsed change set of one file.
type Records []Record

// Added returns the added records.
func (rs Records) Added() Records {
	return rs.filter(Added)
}

// Removed returns the removed records.
func (rs Records) Removed() Records {
	return rs.filter(Removed)
}

func (rs Records) filter(k Kind) Records {
	var out Records
	for _, r := range rs {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse reads a unified diff for a single file.
func Parse(text string) (Records, error) {
	var (
		records Records
		hunk    = -1
		oldLine int
		newLine int
		oldLeft int
		newLeft int
		inHunk  bool
		lineNum int
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if inHunk && oldLeft == 0 && newLeft == 0 {
			inHunk = false
		}

		if !inHunk {
			m := hunkHeader.FindStringSubmatch(line)
			if m == nil {
				// File header or trailing noise between hunks.
				continue
			}
			hunk++
			oldLine = atoi(m[1])
			oldLeft = countOrOne(m[2])
			newLine = atoi(m[3])
			newLeft = countOrOne(m[4])
			// A zero count means the range is empty and the start number
			// names the line *before* it.
			if oldLeft == 0 {
				oldLine++
			}
			if newLeft == 0 {
				newLine++
			}
			inHunk = oldLeft > 0 || newLeft > 0
			continue
		}

		if strings.HasPrefix(line, `\`) {
			// "\ No newline at end of file"
			continue
		}
		if line == "" {
			// Some tools strip the single space of empty context lines.
			line = " "
		}

		switch line[0] {
		case '+':
			if newLeft == 0 {
				return nil, fmt.Errorf("diff line %d: added line exceeds hunk size", lineNum)
			}
			records = append(records, Record{Kind: Added, Line: newLine, Anchor: newLine, Hunk: hunk, Text: line[1:]})
			newLine++
			newLeft--
		case '-':
			if oldLeft == 0 {
				return nil, fmt.Errorf("diff line %d: removed line exceeds hunk size", lineNum)
			}
			records = append(records, Record{Kind: Removed, Line: oldLine, Anchor: newLine, Hunk: hunk, Text: line[1:]})
			oldLine++
			oldLeft--
		case ' ':
			if oldLeft == 0 || newLeft == 0 {
				return nil, fmt.Errorf("diff line %d: context line exceeds hunk size", lineNum)
			}
			oldLine++
			newLine++
			oldLeft--
			newLeft--
		default:
			return nil, fmt.Errorf("diff line %d: unexpected line in hunk: %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan diff: %w", err)
	}
	if inHunk && (oldLeft > 0 || newLeft > 0) {
		return nil, fmt.Errorf("diff truncated in hunk %d", hunk)
	}

	return records, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func countOrOne(s string) int {
	if s == "" {
		return 1
	}
	return atoi(s)
}
