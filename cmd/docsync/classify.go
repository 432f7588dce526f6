package main

import (
	"github.com/spf13/cobra"

	"github.com/docsync/docsync/internal/orchestrator"
	"github.com/docsync/docsync/internal/ui"
)

var (
	classifyFormat  string
	classifyReverse bool
)

var classifyCmd = &cobra.Command{
	Use:     "classify [page...]",
	GroupID: "sync",
	Short:   "Show the verdict for staged primary pages without writing",
	Long: `Classify staged primary pages (or the pages named) and print the verdict
and strategy sync would use. Nothing is written and no translator is called.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFormat, "format", formatText, "Output format: text, json or yaml")
	classifyCmd.Flags().BoolVar(&classifyReverse, "reverse", false, "Swap primary and secondary trees")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	if err := checkFormat(classifyFormat); err != nil {
		return err
	}
	ctx := cmd.Context()

	repo, err := openRepo()
	if err != nil {
		return err
	}
	store := newStore(classifyReverse)
	pipeline, err := orchestrator.New(orchestrator.Options{
		Store:      store,
		Source:     repo,
		Classifier: newClassifier(store),
		Logger:     logger,
		DryRun:     true,
	})
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
	plans, err := pipeline.Plan(ctx, sel.Keys)
	if err != nil {
		return err
	}

	if classifyFormat != formatText {
		return encode(cmd.OutOrStdout(), classifyFormat, plans)
	}
	p := ui.NewPrinter(cmd.OutOrStdout())
	if len(plans) == 0 {
		p.Muted("no staged pages")
	}
	for _, plan := range plans {
		detail := plan.Strategy.String()
		if plan.NewPage {
			detail += ", new page"
		}
		p.Line(ui.StatusInfo, "%s  %s  %s", plan.Key, p.Verdict(plan.Verdict), detail)
	}
	return nil
}
