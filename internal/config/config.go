// Package config loads the optional .sherpa.yaml file from a repository root.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/sherpa/internal/modname"
)

// FileName is the config file looked up in the repository root.
const FileName = ".sherpa.yaml"

// Config holds per-repository settings. Every field is optional in the file.
type Config struct {
	Layout      Layout   `yaml:"layout"`
	Exclude     []string `yaml:"exclude,omitempty" validate:"dive,required"`
	MaxFileSize int64    `yaml:"max_file_size" validate:"gte=0"`
	Workers     int      `yaml:"workers" validate:"gte=0,lte=256"`
	MaxHops     int      `yaml:"max_hops" validate:"gte=1,lte=64"`
	Enrich      Enrich   `yaml:"enrich"`
}

// Layout names the conventional directories used for ranking.
type Layout struct {
	SourceRoot string   `yaml:"source_root"`
	TestRoots  []string `yaml:"test_roots" validate:"dive,required"`
	DocsRoots  []string `yaml:"docs_roots" validate:"dive,required"`
	ScriptDirs []string `yaml:"script_dirs" validate:"dive,required"`
}

// Enrich configures the optional explanation layer.
type Enrich struct {
	Enabled   bool          `yaml:"enabled"`
	Model     string        `yaml:"model" validate:"required_if=Enabled true"`
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv string        `yaml:"api_key_env" validate:"required_if=Enabled true"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	l := modname.DefaultLayout()
	return &Config{
		Layout: Layout{
			SourceRoot: l.SourceRoot,
			TestRoots:  l.TestRoots,
			DocsRoots:  l.DocsRoots,
			ScriptDirs: l.ScriptDirs,
		},
		MaxFileSize: 1 << 20,
		MaxHops:     8,
		Enrich: Enrich{
			Model:     "llama-3.1-8b-instant",
			BaseURL:   "https://api.groq.com/openai/v1",
			APIKeyEnv: "GROQ_API_KEY",
			Timeout:   30 * time.Second,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads FileName from root. A missing file yields Default; a file that
// exists but cannot be decoded or fails validation is an error. Keys absent
// from the file keep their default values.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return nil
}

// ModuleLayout converts the configured layout for the analyzer.
func (c *Config) ModuleLayout() modname.Layout {
	return modname.Layout{
		SourceRoot: c.Layout.SourceRoot,
		TestRoots:  c.Layout.TestRoots,
		DocsRoots:  c.Layout.DocsRoots,
		ScriptDirs: c.Layout.ScriptDirs,
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}
