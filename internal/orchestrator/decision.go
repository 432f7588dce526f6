package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/validate"
)

// Attempt is one sync strategy run followed by validation.
type Attempt struct {
	// Mode is "structure" or "literal" for deterministic copies and
	// "normal" or "strict" for translations.
	Mode   string          `json:"mode" yaml:"mode"`
	Report validate.Report `json:"report" yaml:"report"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the attempt was rejected.
func (a Attempt) Failed() bool {
	return a.Error != "" || !a.Report.Empty()
}

// Decision is the outcome for one page.
type Decision struct {
	Page     string           `json:"page" yaml:"page"`
	Verdict  classify.Verdict `json:"verdict" yaml:"verdict"`
	Strategy Strategy         `json:"strategy" yaml:"strategy"`
	State    State            `json:"state" yaml:"state"`

	// Trace lists every state the page passed through, ending in State.
	Trace []State `json:"trace" yaml:"trace"`

	// NewPage is set when the secondary did not exist and was translated
	// from scratch.
	NewPage bool `json:"new_page,omitempty" yaml:"new_page,omitempty"`

	Attempts []Attempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Retried  bool      `json:"retried" yaml:"retried"`

	// Written is set when the secondary file was rewritten.
	Written bool `json:"written" yaml:"written"`

	// Diverged is set when a deterministic copy walked pages of different
	// lengths.
	Diverged bool `json:"diverged,omitempty" yaml:"diverged,omitempty"`

	// LanguageWarning describes a failed post-acceptance language check.
	LanguageWarning string `json:"language_warning,omitempty" yaml:"language_warning,omitempty"`

	Err   error  `json:"-" yaml:"-"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (d *Decision) enter(s State) {
	d.State = s
	d.Trace = append(d.Trace, s)
}

func (d *Decision) abort(err error) {
	d.Err = err
	d.Error = err.Error()
	d.enter(Aborted)
}

// ReportText renders every failed attempt for humans and the audit log.
func (d Decision) ReportText() string {
	var b strings.Builder
	for _, a := range d.Attempts {
		if !a.Failed() {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n", a.Mode)
		if a.Error != "" {
			b.WriteString(a.Error)
			b.WriteString("\n")
		}
		if !a.Report.Empty() {
			b.WriteString(a.Report.String())
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Counts is the verdict tally of a run. RetryStricter counts pages that
// needed the strict translation attempt.
type Counts struct {
	NoChange         int `json:"NoChange" yaml:"NoChange"`
	StructuralOnly   int `json:"StructuralOnly" yaml:"StructuralOnly"`
	CodeOnly         int `json:"CodeOnly" yaml:"CodeOnly"`
	TextAndStructure int `json:"TextAndStructure" yaml:"TextAndStructure"`
	RetryStricter    int `json:"RetryStricter" yaml:"RetryStricter"`
}

func (c *Counts) add(d Decision) {
	switch d.Verdict {
	case classify.NoChange:
		c.NoChange++
	case classify.StructuralOnly:
		c.StructuralOnly++
	case classify.CodeOnly:
		c.CodeOnly++
	case classify.TextAndStructure:
		c.TextAndStructure++
	}
	if d.Retried {
		c.RetryStricter++
	}
}

// Summary is the result of one run.
type Summary struct {
	RunID     string     `json:"run_id" yaml:"run_id"`
	Direction string     `json:"direction" yaml:"direction"`
	DryRun    bool       `json:"dry_run" yaml:"dry_run"`
	Counts    Counts     `json:"counts" yaml:"counts"`
	Decisions []Decision `json:"decisions" yaml:"decisions"`

	// Deleted lists primary pages removed in this change. Their secondaries
	// are left for the author to delete.
	Deleted []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`

	Passed bool `json:"passed" yaml:"passed"`
}

func (s *Summary) record(d Decision) {
	s.Decisions = append(s.Decisions, d)
	s.Counts.add(d)
}

// Aborted returns the decisions that ended in Aborted.
func (s *Summary) Aborted() []Decision {
	var out []Decision
	for _, d := range s.Decisions {
		if d.State == Aborted {
			out = append(out, d)
		}
	}
	return out
}

// Err joins the errors of every aborted page, or returns nil.
func (s *Summary) Err() error {
	aborted := s.Aborted()
	if len(aborted) == 0 {
		return nil
	}
	errs := make([]error, 0, len(aborted))
	for _, d := range aborted {
		errs = append(errs, fmt.Errorf("%s: %w", d.Page, d.Err))
	}
	return fmt.Errorf("%d of %d pages aborted: %w", len(aborted), len(s.Decisions), errors.Join(errs...))
}
