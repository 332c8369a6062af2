package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FileName = ".twsort.yaml"

	EnvStylesheet = "TWSORT_STYLESHEET"
	EnvRankTable  = "TWSORT_RANK_TABLE"
)

// DefaultStylesheet is where the framework's base stylesheet is installed,
// relative to the project root.
var DefaultStylesheet = filepath.Join("node_modules", "tailwindcss", "theme.css")

type Config struct {
	// Root is the project directory. Relative paths are resolved against it.
	Root string `yaml:"-"`

	// Stylesheet overrides DefaultStylesheet.
	Stylesheet string `yaml:"stylesheet"`

	// RankTable, if set, is a YAML list of classes used instead of the
	// stylesheet.
	RankTable string `yaml:"rankTable"`

	// Languages are the document language IDs the editor command handles.
	Languages []string `yaml:"languages"`
}

func Default(root string) *Config {
	return &Config{
		Root:      root,
		Languages: []string{"clojure"},
	}
}

// Load reads .env and .twsort.yaml from root, if present, and then applies
// environment overrides.
func Load(root string) (*Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	// Existing environment variables take precedence over .env
	_ = godotenv.Load(filepath.Join(root, ".env"))

	cfg := Default(root)

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if len(cfg.Languages) == 0 {
			cfg.Languages = Default(root).Languages
		}
	}

	if v := os.Getenv(EnvStylesheet); v != "" {
		cfg.Stylesheet = v
	}
	if v := os.Getenv(EnvRankTable); v != "" {
		cfg.RankTable = v
	}

	return cfg, nil
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// StylesheetPath returns the absolute path of the stylesheet to rank against.
func (c *Config) StylesheetPath() string {
	if c.Stylesheet == "" {
		return c.abs(DefaultStylesheet)
	}
	return c.abs(c.Stylesheet)
}

// RankTablePath returns the absolute path of the rank table, or "" if none is
// configured.
func (c *Config) RankTablePath() string {
	if c.RankTable == "" {
		return ""
	}
	return c.abs(c.RankTable)
}

// HandlesLanguage reports whether documents with the given language ID should
// be sorted.
func (c *Config) HandlesLanguage(id string) bool {
	for _, l := range c.Languages {
		if l == id {
			return true
		}
	}
	return false
}
