package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docsync/docsync/internal/config"
	"github.com/docsync/docsync/internal/ui"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "maint",
	Short:   "Write a starter .docsync.toml in the repository root",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target := filepath.Join(cfg.Root, config.FileName)
		if err := config.WriteStarter(target, config.Default(), initForce); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).Line(ui.StatusOK, "wrote %s", target)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
