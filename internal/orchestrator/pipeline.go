// Package orchestrator runs the per-page sync state machine over the primary
// pages changed in a commit.
//
// Pages are processed one at a time. Every page is classified before any
// secondary is written, so a missing translator fails the run before
// anything is touched. After that each page runs to a terminal state
// (NoOp, Accepted or Aborted) before the next one starts. An aborted page
// fails the run but does not undo pages accepted before it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/align"
	"github.com/docsync/docsync/internal/audit"
	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/logging"
	"github.com/docsync/docsync/internal/pages"
	"github.com/docsync/docsync/internal/translate"
	"github.com/docsync/docsync/internal/validate"
	"github.com/docsync/docsync/internal/vcs"
)

// ChangeSource supplies staged primary pages. vcs.VCS implements it.
type ChangeSource interface {
	ChangedFiles(ctx context.Context) ([]vcs.FileChange, error)
	StagedDiff(ctx context.Context, path string) (string, error)
	StagedContent(ctx context.Context, path string) ([]byte, error)
	Add(ctx context.Context, paths ...string) error
}

// LanguageDetector identifies the language of an accepted translation.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (translate.Detection, error)
}

// Recorder persists decisions. *audit.DB implements it.
type Recorder interface {
	Record(ctx context.Context, entries ...audit.Entry) error
}

// attempts is the translation sequence: one normal try, one strict retry.
var attempts = [2]translate.Mode{translate.Normal, translate.Strict}

// Options wires a Pipeline.
type Options struct {
	Store      *pages.Store
	Source     ChangeSource
	Classifier *classify.Classifier

	// Translator may be nil when none is configured; TranslatorErr then
	// says why and is returned if a page needs translation.
	Translator    translate.Translator
	TranslatorErr error

	// Detector enables the post-acceptance language check. May be nil.
	Detector LanguageDetector

	// Audit receives one entry per decided page. May be nil.
	Audit Recorder

	Logger *zap.Logger

	// Stage adds rewritten secondaries to the staged snapshot.
	Stage bool

	// DryRun decides every page without writing, staging or auditing.
	DryRun bool
}

// Pipeline syncs secondary pages with their primaries.
type Pipeline struct {
	opts   Options
	dir    translate.Direction
	logger *zap.Logger
	now    func() time.Time
}

// New returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("orchestrator: nil page store")
	case opts.Source == nil:
		return nil, errors.New("orchestrator: nil change source")
	case opts.Classifier == nil:
		return nil, errors.New("orchestrator: nil classifier")
	}
	logger := logging.OrNop(opts.Logger)
	return &Pipeline{
		opts: opts,
		dir: translate.Direction{
			From: opts.Store.Lang(pages.Primary),
			To:   opts.Store.Lang(pages.Secondary),
		},
		logger: logger.Named("sync"),
		now:    time.Now,
	}, nil
}

// Direction is the translation direction of the pipeline.
func (p *Pipeline) Direction() translate.Direction { return p.dir }

// Plan is the classification of one page before any write.
type Plan struct {
	Key      string           `json:"page" yaml:"page"`
	Verdict  classify.Verdict `json:"verdict" yaml:"verdict"`
	Strategy Strategy         `json:"strategy" yaml:"strategy"`
	NewPage  bool             `json:"new_page,omitempty" yaml:"new_page,omitempty"`

	repoPath  string
	primary   *pages.Document
	secondary *pages.Document
}

// Selection is the set of pages a run covers.
type Selection struct {
	// Keys are the pages to sync.
	Keys []string
	// Deleted are staged deletions of primary pages.
	Deleted []string
}

// Select resolves repository paths to page keys. With no paths it uses the
// staged changes of the primary tree; paths outside it are ignored.
func (p *Pipeline) Select(ctx context.Context, paths []string) (Selection, error) {
	var sel Selection
	seen := make(map[string]bool)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			sel.Keys = append(sel.Keys, key)
		}
	}

	if len(paths) > 0 {
		for _, path := range paths {
			key, err := p.opts.Store.Key(path)
			if err != nil {
				return Selection{}, err
			}
			add(key)
		}
		return sel, nil
	}

	var changes []vcs.FileChange
	err := p.retry(ctx, "list staged changes", func() (err error) {
		changes, err = p.opts.Source.ChangedFiles(ctx)
		return err
	})
	if err != nil {
		return Selection{}, fmt.Errorf("list staged changes: %w", err)
	}
	for _, c := range changes {
		key, err := p.opts.Store.Key(c.Path)
		if err != nil {
			continue
		}
		if c.Status == vcs.StatusDeleted {
			sel.Deleted = append(sel.Deleted, key)
			continue
		}
		add(key)
	}
	sort.Strings(sel.Keys)
	return sel, nil
}

// Plan classifies every selected page without writing anything.
func (p *Pipeline) Plan(ctx context.Context, keys []string) ([]Plan, error) {
	plans := make([]Plan, 0, len(keys))
	for _, key := range keys {
		plan, err := p.plan(ctx, key)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (p *Pipeline) plan(ctx context.Context, key string) (Plan, error) {
	store := p.opts.Store
	plan := Plan{Key: key, repoPath: store.RepoPath(pages.Primary, key)}

	primary, err := p.readPrimary(ctx, key, plan.repoPath)
	if err != nil {
		return Plan{}, err
	}
	plan.primary = primary

	var unified string
	err = p.retry(ctx, "diff "+plan.repoPath, func() (err error) {
		unified, err = p.opts.Source.StagedDiff(ctx, plan.repoPath)
		return err
	})
	if err != nil {
		return Plan{}, fmt.Errorf("diff %s: %w", plan.repoPath, err)
	}
	verdict, _, err := p.opts.Classifier.ClassifyDiff(primary.Lines, unified)
	if err != nil {
		p.logger.Warn("unreadable diff, treating page as changed text",
			zap.String("page", key), zap.Error(err))
	}
	plan.Verdict = verdict

	secondary, err := store.Read(pages.Secondary, key)
	switch {
	case errors.Is(err, os.ErrNotExist):
		plan.NewPage = true
		plan.Verdict = classify.TextAndStructure
	case err != nil:
		return Plan{}, err
	default:
		plan.secondary = secondary
	}

	plan.Strategy = strategyFor(plan.Verdict)
	return plan, nil
}

// readPrimary prefers the staged snapshot and falls back to the file on
// disk for pages that are not tracked yet.
func (p *Pipeline) readPrimary(ctx context.Context, key, repoPath string) (*pages.Document, error) {
	var data []byte
	err := p.retry(ctx, "read staged "+repoPath, func() (err error) {
		data, err = p.opts.Source.StagedContent(ctx, repoPath)
		return err
	})
	if errors.Is(err, vcs.ErrNotFound) {
		return p.opts.Store.Read(pages.Primary, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read staged %s: %w", repoPath, err)
	}
	return pages.Parse(key, p.opts.Store.Lang(pages.Primary), string(data)), nil
}

// retry runs a change-source call, repeating it once when it timed out.
func (p *Pipeline) retry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if vcs.IsRetryable(err) && ctx.Err() == nil {
		p.logger.Warn("vcs call timed out, retrying", zap.String("op", op), zap.Error(err))
		err = fn()
	}
	return err
}

func strategyFor(v classify.Verdict) Strategy {
	switch v {
	case classify.StructuralOnly:
		return StrategyStructure
	case classify.CodeOnly:
		return StrategyLiteral
	case classify.TextAndStructure:
		return StrategyTranslate
	default:
		return StrategyNone
	}
}

// Run syncs the selected pages. The returned error is non-nil when the run
// failed: configuration was missing, a page could not be read, or at least
// one page was aborted. The summary is returned whenever pages were
// processed.
func (p *Pipeline) Run(ctx context.Context, sel Selection) (*Summary, error) {
	summary := &Summary{
		RunID:     audit.NewRunID(),
		Direction: p.dir.String(),
		DryRun:    p.opts.DryRun,
		Deleted:   sel.Deleted,
		Decisions: []Decision{},
	}
	for _, key := range sel.Deleted {
		p.logger.Info("primary page deleted, secondary left in place", zap.String("page", key))
	}

	plans, err := p.Plan(ctx, sel.Keys)
	if err != nil {
		return nil, err
	}
	if err := p.checkTranslator(plans); err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		d := p.process(ctx, plan)
		p.logDecision(d)
		p.audit(ctx, summary.RunID, d)
		summary.record(d)
	}

	summary.Passed = len(summary.Aborted()) == 0
	return summary, summary.Err()
}

// checkTranslator fails when a plan needs translation and none is available.
func (p *Pipeline) checkTranslator(plans []Plan) error {
	if p.opts.Translator != nil {
		return nil
	}
	for _, plan := range plans {
		if plan.Strategy != StrategyTranslate {
			continue
		}
		if p.opts.TranslatorErr != nil {
			return fmt.Errorf("%s needs translation: %w", plan.Key, p.opts.TranslatorErr)
		}
		return fmt.Errorf("%s needs translation: %w: translator", plan.Key, ErrConfigurationMissing)
	}
	return nil
}

func (p *Pipeline) process(ctx context.Context, plan Plan) Decision {
	d := Decision{
		Page:     plan.Key,
		Verdict:  plan.Verdict,
		Strategy: plan.Strategy,
		NewPage:  plan.NewPage,
	}
	d.enter(Classifying)

	switch plan.Strategy {
	case StrategyNone:
		d.enter(NoOp)
	case StrategyStructure, StrategyLiteral:
		p.syncDeterministic(ctx, plan, &d)
	case StrategyTranslate:
		p.syncTranslated(ctx, plan, &d)
	}
	return d
}

func (p *Pipeline) syncDeterministic(ctx context.Context, plan Plan, d *Decision) {
	d.enter(DeterministicSync)

	var result align.Result
	if plan.Strategy == StrategyStructure {
		result = align.Structure(plan.primary.Lines, plan.secondary.Lines)
	} else {
		result = align.Literal(plan.primary.Lines, plan.secondary.Lines)
	}
	if result.Diverged() {
		d.Diverged = true
		p.logger.Warn("pages differ in length, aligned up to the shorter one",
			zap.String("page", plan.Key),
			zap.Int("primary_lines", result.PrimaryLen),
			zap.Int("secondary_lines", result.SecondaryLen))
	}

	d.enter(Validating)
	report := validate.Compare(plan.primary.Lines, result.Lines)
	d.Attempts = append(d.Attempts, Attempt{Mode: plan.Strategy.String(), Report: report})
	if !report.Empty() {
		d.abort(fmt.Errorf("%w: %s copy left %d structural differences", ErrDeterministicSyncDefect, plan.Strategy, report.Problems()))
		return
	}

	if result.Changed > 0 {
		if err := p.write(ctx, plan.secondary.WithLines(result.Lines), d); err != nil {
			d.abort(err)
			return
		}
	}
	d.enter(Accepted)
}

func (p *Pipeline) syncTranslated(ctx context.Context, plan Plan, d *Decision) {
	var serviceErr error
	for i, mode := range attempts {
		if i > 0 {
			d.Retried = true
			d.enter(RetryStricter)
		}
		d.enter(ExternalTranslate)

		res, err := p.opts.Translator.Translate(ctx, translate.Request{
			Page:      plan.Key,
			Text:      plan.primary.Content(),
			Mode:      mode,
			Direction: p.dir,
		})
		if err != nil {
			serviceErr = err
			d.Attempts = append(d.Attempts, Attempt{Mode: mode.String(), Error: err.Error()})
			p.logger.Warn("translation attempt failed",
				zap.String("page", plan.Key), zap.Stringer("mode", mode), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		serviceErr = nil

		doc := pages.Parse(plan.Key, p.opts.Store.Lang(pages.Secondary), res.Text)
		d.enter(Validating)
		report := validate.Compare(plan.primary.Lines, doc.Lines)
		d.Attempts = append(d.Attempts, Attempt{Mode: mode.String(), Report: report})
		if !report.Empty() {
			p.logger.Warn("translation drifted structurally",
				zap.String("page", plan.Key), zap.Stringer("mode", mode),
				zap.Int("problems", report.Problems()))
			continue
		}

		if err := p.write(ctx, doc, d); err != nil {
			d.abort(err)
			return
		}
		p.verifyLanguage(ctx, doc, d)
		d.enter(Accepted)
		return
	}

	if serviceErr != nil {
		d.abort(fmt.Errorf("%s attempt: %w", d.Attempts[len(d.Attempts)-1].Mode, serviceErr))
		return
	}
	d.abort(fmt.Errorf("%w after %d attempts", ErrValidationFailed, len(d.Attempts)))
}

// write stores the secondary and stages it.
func (p *Pipeline) write(ctx context.Context, doc *pages.Document, d *Decision) error {
	if p.opts.DryRun {
		return nil
	}
	store := p.opts.Store
	if err := store.Write(pages.Secondary, doc); err != nil {
		return err
	}
	d.Written = true
	if p.opts.Stage {
		path := store.RepoPath(pages.Secondary, doc.Key)
		if err := p.opts.Source.Add(ctx, path); err != nil {
			return fmt.Errorf("stage %s: %w", path, err)
		}
	}
	return nil
}

// verifyLanguage asks the detector which language the accepted page is in.
// Problems only produce a warning.
func (p *Pipeline) verifyLanguage(ctx context.Context, doc *pages.Document, d *Decision) {
	if p.opts.Detector == nil {
		return
	}
	det, err := p.opts.Detector.DetectLanguage(ctx, doc.Content())
	if err != nil {
		d.LanguageWarning = err.Error()
	} else {
		switch det := det.(type) {
		case translate.DetectionOk:
			if !det.Matches(p.dir.To) {
				d.LanguageWarning = fmt.Sprintf("expected %s, detected %s (%s, confidence %.2f)", p.dir.To, det.Code, det.Name, det.Confidence)
			}
		case translate.DetectionParseError:
			d.LanguageWarning = det.Error()
		}
	}
	if d.LanguageWarning != "" {
		p.logger.Warn("language check failed", zap.String("page", doc.Key), zap.String("detail", d.LanguageWarning))
	}
}

func (p *Pipeline) logDecision(d Decision) {
	fields := []zap.Field{
		zap.String("page", d.Page),
		zap.Stringer("verdict", d.Verdict),
		zap.Stringer("strategy", d.Strategy),
		zap.Bool("retried", d.Retried),
		zap.Bool("written", d.Written),
	}
	switch d.State {
	case NoOp:
		p.logger.Info("page unchanged", fields...)
	case Accepted:
		p.logger.Info("page synced", fields...)
	case Aborted:
		p.logger.Error("page aborted", append(fields, zap.Error(d.Err), zap.String("report", d.ReportText()))...)
	}
}

func (p *Pipeline) audit(ctx context.Context, runID string, d Decision) {
	if p.opts.Audit == nil || p.opts.DryRun {
		return
	}
	err := p.opts.Audit.Record(ctx, audit.Entry{
		RunID:     runID,
		Time:      p.now(),
		Page:      d.Page,
		Direction: p.dir.String(),
		Verdict:   d.Verdict.String(),
		Strategy:  d.Strategy.String(),
		State:     d.State.String(),
		Retried:   d.Retried,
		Error:     d.Error,
		Report:    d.ReportText(),
	})
	if err != nil {
		p.logger.Warn("audit record failed", zap.String("page", d.Page), zap.Error(err))
	}
}
