// Command docsync keeps a secondary-language AsciiDoc tree aligned with its
// primary-language tree at commit time.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/config"
	"github.com/docsync/docsync/internal/logging"
	"github.com/docsync/docsync/internal/ui"
	"github.com/docsync/docsync/internal/vcs"
)

var (
	// Global flags
	verbose    bool
	configFile string
	workDir    string

	// Set up by PersistentPreRunE
	cfg      *config.Config
	logger   = zap.NewNop()
	closeLog = func() {}
)

// skipSetup marks commands that run without configuration.
const skipSetup = "docsync/skip-setup"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Keep a translated AsciiDoc tree in step with its source",
	Long: `docsync propagates edits of primary-language AsciiDoc pages to their
secondary-language counterparts. Run it from a pre-commit hook:

  Structure-only edits (heading depth, list markers) are copied directly.
  Edits confined to source and literal blocks are copied verbatim.
  Prose edits are translated, then checked for structural drift.

A page whose secondary cannot be brought in line fails the run so the
commit can be blocked.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (default: .docsync.toml in the repository root, then $HOME)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Run as if started in this directory")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "maint", Title: "Maintenance Commands:"},
	)
}

// setup loads configuration for the repository containing the working
// directory and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	dir := workDir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	root := dir
	if res, err := vcs.Detect(dir); err == nil {
		root = res.RepoRoot
	}

	cfg, err = config.Load(config.Options{Root: root, File: configFile})
	if err != nil {
		return err
	}

	l, closeFn, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Verbose:    verbose,
		File:       cfg.Resolve(cfg.Log.File),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logger, closeLog = l, closeFn
	logger.Debug("configuration loaded",
		zap.String("root", cfg.Root),
		zap.String("file", cfg.File),
		zap.String("primary", cfg.Trees.Primary),
		zap.String("secondary", cfg.Trees.Secondary))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		p := ui.NewPrinter(os.Stderr)
		p.Line(ui.StatusFail, "%v", err)
		if h := hint(err); h != "" {
			p.Muted("hint: %s", h)
		}
		stop()
		os.Exit(1)
	}
}
