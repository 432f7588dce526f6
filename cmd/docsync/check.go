package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsync/docsync/internal/pages"
	"github.com/docsync/docsync/internal/ui"
	"github.com/docsync/docsync/internal/validate"
)

var checkOutput string

var checkCmd = &cobra.Command{
	Use:     "check [page...]",
	GroupID: "sync",
	Short:   "Compare the structure of primary and secondary pages",
	Long: `Run the structural validator over the current primary and secondary files
(all pages when none are named) and print every difference: heading depths,
delimited blocks, macro counts and attribute names. Exits non-zero when any
page differs or has no secondary.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkOutput, "format", formatText, "Output format: text, json or yaml")
	rootCmd.AddCommand(checkCmd)
}

// pageCheck is the result for one page pair.
type pageCheck struct {
	Page    string           `json:"page" yaml:"page"`
	Missing bool             `json:"missing,omitempty" yaml:"missing,omitempty"`
	Report  *validate.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

func (c pageCheck) ok() bool {
	return !c.Missing && c.Report.Empty()
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkFormat(checkOutput); err != nil {
		return err
	}
	store := newStore(false)

	var keys []string
	if len(args) == 0 {
		var err error
		if keys, err = store.List(pages.Primary); err != nil {
			return err
		}
	} else {
		paths, err := repoPaths(args)
		if err != nil {
			return err
		}
		for _, p := range paths {
			key, err := store.Key(p)
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
	}

	results := make([]pageCheck, 0, len(keys))
	failed := 0
	for _, key := range keys {
		c, err := checkPage(store, key)
		if err != nil {
			return err
		}
		if !c.ok() {
			failed++
		}
		results = append(results, c)
	}

	if checkOutput != formatText {
		if err := encode(cmd.OutOrStdout(), checkOutput, results); err != nil {
			return err
		}
	} else {
		p := ui.NewPrinter(cmd.OutOrStdout())
		for _, c := range results {
			switch {
			case c.Missing:
				p.Line(ui.StatusWarn, "%s  no secondary page", c.Page)
			case c.Report.Empty():
				p.Line(ui.StatusOK, "%s", c.Page)
			default:
				p.Line(ui.StatusFail, "%s  %d differences", c.Page, c.Report.Problems())
				p.Report(*c.Report)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pages out of line", failed, len(results))
	}
	return nil
}

func checkPage(store *pages.Store, key string) (pageCheck, error) {
	primary, err := store.Read(pages.Primary, key)
	if err != nil {
		return pageCheck{}, err
	}
	secondary, err := store.Read(pages.Secondary, key)
	if errors.Is(err, os.ErrNotExist) {
		return pageCheck{Page: key, Missing: true}, nil
	}
	if err != nil {
		return pageCheck{}, err
	}
	report := validate.Compare(primary.Lines, secondary.Lines)
	return pageCheck{Page: key, Report: &report}, nil
}
