// Package config loads docsync settings from .docsync.toml, the environment,
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the repository root and
// the home directory.
const FileName = ".docsync.toml"

// EnvPrefix prefixes every environment override, e.g. DOCSYNC_LOG_LEVEL.
const EnvPrefix = "DOCSYNC"

// ErrConfigurationMissing is returned when a setting required for the
// requested operation is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config is the complete docsync configuration.
type Config struct {
	Trees      Trees      `mapstructure:"trees"`
	Languages  Languages  `mapstructure:"languages"`
	Extensions []string   `mapstructure:"extensions"`
	Classify   Classify   `mapstructure:"classify"`
	Translator Translator `mapstructure:"translator"`
	Usage      Usage      `mapstructure:"usage"`
	Audit      Audit      `mapstructure:"audit"`
	Log        Log        `mapstructure:"log"`
	Sync       Sync       `mapstructure:"sync"`

	// Root is the repository root relative paths are resolved against.
	Root string `mapstructure:"-"`
	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// Trees are the repository-relative page directories.
type Trees struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
}

// Languages are the tags of the two trees.
type Languages struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
}

type Classify struct {
	CodeOnly bool `mapstructure:"code_only"`
}

type Translator struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

type Usage struct {
	Ledger string `mapstructure:"ledger"`
	Script string `mapstructure:"script"`
}

type Audit struct {
	Path string `mapstructure:"path"`
}

type Log struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type Sync struct {
	StageSecondary bool `mapstructure:"stage_secondary"`
	VerifyLanguage bool `mapstructure:"verify_language"`
}

var defaults = map[string]any{
	"trees.primary":         "docs/en",
	"trees.secondary":       "docs/ja",
	"languages.primary":     "en",
	"languages.secondary":   "ja",
	"extensions":            []string{".adoc"},
	"classify.code_only":    true,
	"translator.provider":   "anthropic",
	"translator.model":      "",
	"translator.api_key":    "",
	"translator.timeout":    5 * time.Minute,
	"translator.max_tokens": 16000,
	"usage.ledger":          ".docsync/usage.jsonl",
	"usage.script":          "docsync",
	"audit.path":            ".docsync/audit.db",
	"log.file":              "",
	"log.level":             "info",
	"log.max_size_mb":       10,
	"log.max_backups":       3,
	"sync.stage_secondary":  true,
	"sync.verify_language":  false,
}

// providerKeyEnv lists the conventional API key variables per provider,
// consulted when translator.api_key is empty.
var providerKeyEnv = map[string][]string{
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Options controls where Load looks.
type Options struct {
	// Root is the repository root. Defaults to the working directory.
	Root string
	// File is an explicit configuration file. When set, no search happens
	// and the file must exist.
	File string
}

// Load reads the configuration. Precedence, highest first: environment,
// configuration file, defaults. A .env file in the root is loaded into the
// environment first without overriding variables that are already set.
func Load(opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}

	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
		v.SetConfigType("toml")
		v.AddConfigPath(root)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Root = root
	cfg.File = v.ConfigFileUsed()

	if cfg.Translator.APIKey == "" {
		for _, name := range providerKeyEnv[cfg.Translator.Provider] {
			if key := os.Getenv(name); key != "" {
				cfg.Translator.APIKey = key
				break
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	switch {
	case c.Trees.Primary == "" || c.Trees.Secondary == "":
		return fmt.Errorf("%w: trees.primary and trees.secondary", ErrConfigurationMissing)
	case filepath.Clean(c.Trees.Primary) == filepath.Clean(c.Trees.Secondary):
		return fmt.Errorf("invalid config: trees.primary and trees.secondary are both %q", c.Trees.Primary)
	case c.Languages.Primary == "" || c.Languages.Secondary == "":
		return fmt.Errorf("%w: languages.primary and languages.secondary", ErrConfigurationMissing)
	case len(c.Extensions) == 0:
		return fmt.Errorf("%w: extensions", ErrConfigurationMissing)
	}
	return nil
}

// TranslatorReady reports whether a translator can be built, naming the
// first missing key otherwise.
func (c *Config) TranslatorReady() error {
	t := c.Translator
	switch {
	case t.Provider == "":
		return fmt.Errorf("%w: translator.provider", ErrConfigurationMissing)
	case !slices.Contains(Providers(), t.Provider):
		return fmt.Errorf("%w: translator.provider %q is not one of %v", ErrConfigurationMissing, t.Provider, Providers())
	case t.APIKey == "":
		return fmt.Errorf("%w: translator.api_key (or %s)", ErrConfigurationMissing, strings.Join(providerKeyEnv[t.Provider], ", "))
	}
	return nil
}

// Providers returns the translator providers the configuration accepts.
func Providers() []string {
	out := make([]string, 0, len(providerKeyEnv))
	for p := range providerKeyEnv {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Resolve makes a configured path absolute against the repository root.
// Empty paths stay empty.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
