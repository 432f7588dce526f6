// Package ui renders docsync results for a terminal. Colors are dropped
// when the output is not a terminal or NO_COLOR is set.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/validate"
)

// Palette
var (
	colorOK    = lipgloss.Color("#8BC34A")
	colorWarn  = lipgloss.Color("#FFC107")
	colorFail  = lipgloss.Color("#E53935")
	colorInfo  = lipgloss.Color("#2196F3")
	colorMuted = lipgloss.Color("#8A8F98")
)

// Status is the outcome shown in front of a line.
type Status int

const (
	StatusInfo Status = iota
	StatusOK
	StatusSkip
	StatusWarn
	StatusFail
)

var statusMarks = map[Status]string{
	StatusInfo: "•",
	StatusOK:   "✓",
	StatusSkip: "-",
	StatusWarn: "!",
	StatusFail: "✗",
}

// Printer writes styled output to one writer.
type Printer struct {
	w       io.Writer
	color   bool
	title   lipgloss.Style
	muted   lipgloss.Style
	status  map[Status]lipgloss.Style
	verdict map[classify.Verdict]lipgloss.Style
}

// NewPrinter returns a printer for w. Color is enabled only when w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	color := IsTerminal(w) && os.Getenv("NO_COLOR") == ""
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return r.NewStyle().Foreground(c) }
	return &Printer{
		w:     w,
		color: color,
		title: r.NewStyle().Bold(true),
		muted: fg(colorMuted),
		status: map[Status]lipgloss.Style{
			StatusInfo: fg(colorInfo),
			StatusOK:   fg(colorOK),
			StatusSkip: fg(colorMuted),
			StatusWarn: fg(colorWarn),
			StatusFail: fg(colorFail).Bold(true),
		},
		verdict: map[classify.Verdict]lipgloss.Style{
			classify.NoChange:         fg(colorMuted),
			classify.StructuralOnly:   fg(colorInfo),
			classify.CodeOnly:         fg(colorInfo),
			classify.TextAndStructure: fg(colorWarn),
		},
	}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Color reports whether styled output is enabled.
func (p *Printer) Color() bool { return p.color }

// Title prints a bold heading line.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.w, p.title.Render(fmt.Sprintf(format, args...)))
}

// Line prints a message prefixed with a status mark.
func (p *Printer) Line(s Status, format string, args ...any) {
	mark := p.status[s].Render(statusMarks[s])
	fmt.Fprintf(p.w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

// Muted prints a dimmed line.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.muted.Render(fmt.Sprintf(format, args...)))
}

// Verdict returns the verdict name styled by cost.
func (p *Printer) Verdict(v classify.Verdict) string {
	return p.verdict[v].Render(v.String())
}

// Report prints every violation of a validation report, indented.
func (p *Printer) Report(r validate.Report) {
	for _, line := range strings.Split(r.String(), "\n") {
		if r.Empty() {
			fmt.Fprintf(p.w, "    %s\n", p.muted.Render(line))
			continue
		}
		fmt.Fprintf(p.w, "    %s\n", p.status[StatusFail].Render(line))
	}
}

// Table prints aligned label/value rows.
func (p *Printer) Table(rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	label := p.muted.Width(width + 2)
	for _, r := range rows {
		fmt.Fprintf(p.w, "  %s%s\n", label.Render(r[0]), r[1])
	}
}
