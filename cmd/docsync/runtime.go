package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/pages"
	"github.com/docsync/docsync/internal/translate"
	"github.com/docsync/docsync/internal/usage"
	"github.com/docsync/docsync/internal/vcs"
	_ "github.com/docsync/docsync/internal/vcs/git"
	_ "github.com/docsync/docsync/internal/vcs/jj"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", f)
	}
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("encode: unsupported format %q", format)
	}
}

// openRepo opens the change source of the configured repository.
func openRepo() (vcs.VCS, error) {
	repo, err := vcs.GetForPath(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", cfg.Root, err)
	}
	return repo, nil
}

// hint suggests what the user can do about err, or returns "".
func hint(err error) string {
	switch {
	case vcs.IsFatal(err):
		return "docsync runs inside a git or jj repository with the git or jj binary on PATH"
	case vcs.IsUserActionRequired(err):
		return "resolve the conflicts and stage the result, then commit again"
	default:
		return ""
	}
}

// newStore returns the page store, with roles swapped when reverse is set.
func newStore(reverse bool) *pages.Store {
	s := pages.NewStore(cfg.Root, pages.Options{
		PrimaryTree:   cfg.Trees.Primary,
		SecondaryTree: cfg.Trees.Secondary,
		PrimaryLang:   cfg.Languages.Primary,
		SecondaryLang: cfg.Languages.Secondary,
		Extensions:    cfg.Extensions,
	})
	if reverse {
		return s.Reverse()
	}
	return s
}

// newClassifier collates normalized lines in the primary language.
func newClassifier(store *pages.Store) *classify.Classifier {
	tag, err := language.Parse(store.Lang(pages.Primary))
	if err != nil {
		tag = language.Und
	}
	return classify.New(classify.Options{CodeOnly: cfg.Classify.CodeOnly, Locale: tag})
}

// newTranslator builds the configured translator client. It returns the
// configuration error instead when no translator can be built.
func newTranslator(ctx context.Context, ledger *usage.Ledger) (*translate.Client, error) {
	if err := cfg.TranslatorReady(); err != nil {
		return nil, err
	}
	backend, err := translate.NewBackend(ctx, translate.BackendConfig{
		Provider:  cfg.Translator.Provider,
		Model:     cfg.Translator.Model,
		APIKey:    cfg.Translator.APIKey,
		MaxTokens: cfg.Translator.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return translate.New(backend, translate.Options{
		Timeout: cfg.Translator.Timeout,
		Ledger:  ledger,
		Logger:  logger,
	})
}

// repoPaths turns command arguments into repository-relative paths. An
// argument naming an existing file is taken relative to the working
// directory; anything else is taken as repository-relative already.
func repoPaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		p := arg
		if !filepath.IsAbs(p) && workDir != "" {
			p = filepath.Join(workDir, p)
		}
		if _, err := os.Stat(p); err == nil {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			root, err := filepath.EvalSymlinks(cfg.Root)
			if err != nil {
				root = cfg.Root
			}
			if resolved, err := filepath.EvalSymlinks(abs); err == nil {
				abs = resolved
			}
			rel, err := filepath.Rel(root, abs)
			if err != nil || strings.HasPrefix(rel, "..") {
				return nil, fmt.Errorf("%s is outside the repository", arg)
			}
			out = append(out, filepath.ToSlash(rel))
			continue
		}
		out = append(out, filepath.ToSlash(arg))
	}
	return out, nil
}
