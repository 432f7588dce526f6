package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/audit"
	"github.com/docsync/docsync/internal/orchestrator"
	"github.com/docsync/docsync/internal/ui"
	"github.com/docsync/docsync/internal/usage"
)

var (
	syncDryRun  bool
	syncFormat  string
	syncReverse bool
	syncNoStage bool
)

var syncCmd = &cobra.Command{
	Use:     "sync [page...]",
	GroupID: "sync",
	Short:   "Bring secondary pages in line with staged primary edits",
	Long: `Classify every staged primary page (or the pages named) and update the
secondary pages:

  NoChange          nothing to do
  StructuralOnly    heading and list markers copied
  CodeOnly          source and literal blocks copied
  TextAndStructure  page translated, retried once in strict mode

Every page is classified before anything is written. If a page needs
translation and no translator is configured, nothing is touched. Rewritten
secondary pages are staged unless --no-stage is given. The command exits
non-zero when any page is aborted.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Decide every page without writing, staging or recording")
	syncCmd.Flags().StringVar(&syncFormat, "format", formatText, "Output format: text, json or yaml")
	syncCmd.Flags().BoolVar(&syncReverse, "reverse", false, "Swap primary and secondary trees for this run")
	syncCmd.Flags().BoolVar(&syncNoStage, "no-stage", false, "Do not stage rewritten secondary pages")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := checkFormat(syncFormat); err != nil {
		return err
	}
	ctx := cmd.Context()

	repo, err := openRepo()
	if err != nil {
		return err
	}
	store := newStore(syncReverse)
	ledger := usage.NewLedger(cfg.Resolve(cfg.Usage.Ledger), cfg.Usage.Script)

	opts := orchestrator.Options{
		Store:      store,
		Source:     repo,
		Classifier: newClassifier(store),
		Logger:     logger,
		Stage:      cfg.Sync.StageSecondary && !syncNoStage,
		DryRun:     syncDryRun,
	}

	client, err := newTranslator(ctx, ledger)
	if err != nil {
		opts.TranslatorErr = err
		logger.Debug("translator unavailable", zap.Error(err))
	} else {
		opts.Translator = client
		if cfg.Sync.VerifyLanguage {
			opts.Detector = client
		}
	}

	if !syncDryRun {
		db, err := audit.OpenContext(ctx, cfg.Resolve(cfg.Audit.Path))
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing audit log", zap.Error(err))
			}
		}()
		opts.Audit = db
	}

	pipeline, err := orchestrator.New(opts)
	if err != nil {
		return err
	}

	paths, err := repoPaths(args)
	if err != nil {
		return err
	}
	sel, err := pipeline.Select(ctx, paths)
	if err != nil {
		return err
	}

	summary, runErr := pipeline.Run(ctx, sel)
	if summary != nil {
		if err := renderSummary(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	}
	if t := ledger.Totals(); t.Calls > 0 {
		logger.Info("translation usage",
			zap.Int("calls", t.Calls),
			zap.Int("prompt_tokens", t.PromptTokens),
			zap.Int("completion_tokens", t.CompletionTokens))
	}
	return runErr
}

func renderSummary(w io.Writer, s *orchestrator.Summary) error {
	if syncFormat != formatText {
		return encode(w, syncFormat, s)
	}

	p := ui.NewPrinter(w)
	title := "docsync " + s.Direction
	if s.DryRun {
		title += " (dry run)"
	}
	p.Title("%s", title)

	if len(s.Decisions) == 0 && len(s.Deleted) == 0 {
		p.Muted("no staged pages")
	}
	for _, d := range s.Decisions {
		renderDecision(p, d)
	}
	for _, key := range s.Deleted {
		p.Line(ui.StatusSkip, "%s deleted in primary, remove the secondary by hand", key)
	}

	c := s.Counts
	p.Table([][2]string{
		{"NoChange", fmt.Sprint(c.NoChange)},
		{"StructuralOnly", fmt.Sprint(c.StructuralOnly)},
		{"CodeOnly", fmt.Sprint(c.CodeOnly)},
		{"TextAndStructure", fmt.Sprint(c.TextAndStructure)},
		{"RetryStricter", fmt.Sprint(c.RetryStricter)},
	})
	if s.Passed {
		p.Line(ui.StatusOK, "passed")
	} else {
		p.Line(ui.StatusFail, "failed: %d of %d pages aborted", len(s.Aborted()), len(s.Decisions))
	}
	return nil
}

func renderDecision(p *ui.Printer, d orchestrator.Decision) {
	switch d.State {
	case orchestrator.NoOp:
		p.Line(ui.StatusSkip, "%s  %s  unchanged", d.Page, p.Verdict(d.Verdict))
	case orchestrator.Accepted:
		detail := d.Strategy.String()
		if d.NewPage {
			detail += ", new page"
		}
		if d.Retried {
			detail += ", strict retry"
		}
		if !d.Written {
			detail += ", not written"
		}
		p.Line(ui.StatusOK, "%s  %s  %s", d.Page, p.Verdict(d.Verdict), detail)
	case orchestrator.Aborted:
		p.Line(ui.StatusFail, "%s  %s  aborted: %v", d.Page, p.Verdict(d.Verdict), d.Err)
		for _, a := range d.Attempts {
			if !a.Failed() {
				continue
			}
			p.Muted("  %s attempt", a.Mode)
			if a.Error != "" {
				p.Muted("    %s", a.Error)
			}
			if !a.Report.Empty() {
				p.Report(a.Report)
			}
		}
	}
	if d.Diverged {
		p.Line(ui.StatusWarn, "%s  pages differ in length, aligned up to the shorter one", d.Page)
	}
	if d.LanguageWarning != "" {
		p.Line(ui.StatusWarn, "%s  language check: %s", d.Page, d.LanguageWarning)
	}
}
