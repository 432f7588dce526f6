package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsync/docsync/internal/audit"
	"github.com/docsync/docsync/internal/ui"
)

var (
	historySince  string
	historyPage   string
	historyRun    string
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "maint",
	Short:   "Show recorded sync decisions",
	Long: `Show the decisions recorded by earlier sync runs, newest first.

--since accepts RFC 3339 timestamps, dates (2026-01-02), durations (36h)
and natural expressions such as "yesterday" or "last monday".`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only show decisions recorded after this time")
	historyCmd.Flags().StringVar(&historyPage, "page", "", "Only show decisions for this page key")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Only show decisions of this run")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of decisions (0 for all)")
	historyCmd.Flags().StringVar(&historyFormat, "format", formatText, "Output format: text, json or yaml")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(historyFormat); err != nil {
		return err
	}
	opts := audit.QueryOptions{Page: historyPage, RunID: historyRun, Limit: historyLimit}
	if historySince != "" {
		since, err := audit.ParseSince(historySince, time.Now())
		if err != nil {
			return err
		}
		opts.Since = since
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	path := cfg.Resolve(cfg.Audit.Path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if historyFormat != formatText {
			return encode(cmd.OutOrStdout(), historyFormat, []audit.Entry{})
		}
		p.Muted("no history")
		return nil
	}

	db, err := audit.OpenContext(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.History(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if historyFormat != formatText {
		if entries == nil {
			entries = []audit.Entry{}
		}
		return encode(cmd.OutOrStdout(), historyFormat, entries)
	}

	if len(entries) == 0 {
		p.Muted("no history")
		return nil
	}
	for _, e := range entries {
		status := ui.StatusOK
		switch e.State {
		case "aborted":
			status = ui.StatusFail
		case "noop":
			status = ui.StatusSkip
		}
		line := fmt.Sprintf("%s  %s  %s  %s/%s", e.Time.Local().Format("2006-01-02 15:04:05"), e.Page, e.Direction, e.Verdict, e.Strategy)
		if e.Retried {
			line += "  retried"
		}
		p.Line(status, "%s", line)
		if e.Error != "" {
			p.Muted("  %s", e.Error)
		}
		if e.Report != "" && verbose {
			for _, l := range strings.Split(e.Report, "\n") {
				p.Muted("  %s", l)
			}
		}
	}
	return nil
}
