package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrExists is returned by WriteStarter when the file is already present.
var ErrExists = errors.New("config file already exists")

type starterFile struct {
	Trees      starterPair       `toml:"trees"`
	Languages  starterPair       `toml:"languages"`
	Extensions []string          `toml:"extensions"`
	Classify   starterClassify   `toml:"classify"`
	Translator starterTranslator `toml:"translator"`
	Usage      starterUsage      `toml:"usage"`
	Audit      starterAudit      `toml:"audit"`
	Log        starterLog        `toml:"log"`
	Sync       starterSync       `toml:"sync"`
}

type starterPair struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
}

type starterClassify struct {
	CodeOnly bool `toml:"code_only"`
}

type starterTranslator struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	Timeout   string `toml:"timeout"`
	MaxTokens int    `toml:"max_tokens"`
}

type starterUsage struct {
	Ledger string `toml:"ledger"`
	Script string `toml:"script"`
}

type starterAudit struct {
	Path string `toml:"path"`
}

type starterLog struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type starterSync struct {
	StageSecondary bool `toml:"stage_secondary"`
	VerifyLanguage bool `toml:"verify_language"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Trees:      Trees{Primary: defaults["trees.primary"].(string), Secondary: defaults["trees.secondary"].(string)},
		Languages:  Languages{Primary: defaults["languages.primary"].(string), Secondary: defaults["languages.secondary"].(string)},
		Extensions: defaults["extensions"].([]string),
		Classify:   Classify{CodeOnly: defaults["classify.code_only"].(bool)},
		Translator: Translator{
			Provider:  defaults["translator.provider"].(string),
			Timeout:   defaults["translator.timeout"].(time.Duration),
			MaxTokens: defaults["translator.max_tokens"].(int),
		},
		Usage: Usage{Ledger: defaults["usage.ledger"].(string), Script: defaults["usage.script"].(string)},
		Audit: Audit{Path: defaults["audit.path"].(string)},
		Log: Log{
			Level:      defaults["log.level"].(string),
			MaxSizeMB:  defaults["log.max_size_mb"].(int),
			MaxBackups: defaults["log.max_backups"].(int),
		},
		Sync: Sync{StageSecondary: defaults["sync.stage_secondary"].(bool)},
	}
}

// WriteStarter writes cfg as a TOML file at path. API keys are never
// written. Without force an existing file is left alone and ErrExists is
// returned.
func WriteStarter(path string, cfg *Config, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	file := starterFile{
		Trees:      starterPair(cfg.Trees),
		Languages:  starterPair(cfg.Languages),
		Extensions: cfg.Extensions,
		Classify:   starterClassify(cfg.Classify),
		Translator: starterTranslator{
			Provider:  cfg.Translator.Provider,
			Model:     cfg.Translator.Model,
			Timeout:   cfg.Translator.Timeout.String(),
			MaxTokens: cfg.Translator.MaxTokens,
		},
		Usage: starterUsage(cfg.Usage),
		Audit: starterAudit(cfg.Audit),
		Log:   starterLog(cfg.Log),
		Sync:  starterSync(cfg.Sync),
	}

	if _, err := fmt.Fprintf(f, "# docsync configuration\n# API keys belong in .env or the environment (%s_TRANSLATOR_API_KEY).\n\n", EnvPrefix); err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(file); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
