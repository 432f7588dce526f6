package main

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/pages"
	"github.com/docsync/docsync/internal/preview"
	"github.com/docsync/docsync/internal/ui"
	"github.com/docsync/docsync/internal/vcs"
	"github.com/docsync/docsync/internal/watch"
)

var watchServe string

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Print the verdict of primary pages as they are edited",
	Long: `Watch the primary tree and print, for every saved page, the verdict its
uncommitted edits, staged or not, would get once staged and committed.
Pages with no committed copy are reported as new. Nothing is written.

With --serve, verdicts are also streamed as JSON over a WebSocket at
ws://ADDR/ws for editor integrations.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchServe, "serve", "", "Also stream verdicts over WebSocket on this address (e.g. 127.0.0.1:7465)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	repo, err := openRepo()
	if err != nil {
		return err
	}
	store := newStore(false)
	classifier := newClassifier(store)

	w, err := watch.New(watch.Options{Extensions: cfg.Extensions})
	if err != nil {
		return err
	}
	root := filepath.Join(cfg.Root, filepath.FromSlash(cfg.Trees.Primary))
	if err := w.Start(root); err != nil {
		return err
	}
	defer w.Stop()

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Title("watching %s", cfg.Trees.Primary)

	var srv *preview.Server
	if watchServe != "" {
		srv = preview.NewServer(preview.Options{
			Addr:   watchServe,
			Hello:  preview.HelloData{Tree: cfg.Trees.Primary, Language: cfg.Languages.Primary},
			Logger: logger,
		})
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				logger.Warn("stopping preview server", zap.Error(err))
			}
		}()
		p.Muted("streaming verdicts on ws://%s/ws", srv.Addr())
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			logger.Warn("watch error", zap.Error(err))
		case ev := <-w.Events():
			if ev.Op == watch.OpDelete {
				continue
			}
			repoPath := path.Join(cfg.Trees.Primary, ev.Rel)
			verdict, err := watchVerdict(ctx, repo, classifier, ev.Path, repoPath)
			if err != nil {
				logger.Warn("classify failed", zap.String("page", ev.Rel), zap.Error(err))
				p.Line(ui.StatusWarn, "%s  %v", ev.Rel, err)
				if srv != nil {
					srv.PublishError(ev.Rel, err)
				}
				continue
			}
			p.Line(ui.StatusInfo, "%s  %s", ev.Rel, p.Verdict(verdict))
			if srv != nil {
				srv.PublishVerdict(ev.Rel, verdict)
			}
		}
	}
}

// watchVerdict classifies the uncommitted edits of one page. A page with no
// committed copy is new and will be translated in full.
func watchVerdict(ctx context.Context, repo vcs.VCS, c *classify.Classifier, file, repoPath string) (classify.Verdict, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return classify.NoChange, nil
	}
	if err != nil {
		return classify.NoChange, err
	}
	if _, err := repo.CommittedContent(ctx, repoPath); errors.Is(err, vcs.ErrNotFound) {
		return classify.TextAndStructure, nil
	} else if err != nil {
		return classify.NoChange, err
	}
	unified, err := repo.WorkingDiff(ctx, repoPath)
	if err != nil {
		return classify.NoChange, err
	}
	lines, _ := pages.SplitLines(string(data))
	verdict, _, err := c.ClassifyDiff(lines, unified)
	return verdict, err
}
