package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, dir, name, contents string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, EnvStylesheet, EnvRankTable)
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "node_modules", "tailwindcss", "theme.css"), cfg.StylesheetPath())
	assert.Empty(t, cfg.RankTablePath())
	assert.True(t, cfg.HandlesLanguage("clojure"))
	assert.False(t, cfg.HandlesLanguage("go"))
}

func TestLoadFile(t *testing.T) {
	type testCase struct {
		name string
		yaml string

		stylesheet string
		rankTable  string
		languages  []string
	}

	root := t.TempDir()
	abs := filepath.Join(root, "abs", "app.css")

	cases := []testCase{
		{
			name:       "relative paths",
			yaml:       "stylesheet: src/app.css\nrankTable: ranks.yaml\n",
			stylesheet: filepath.Join(root, "src", "app.css"),
			rankTable:  filepath.Join(root, "ranks.yaml"),
			languages:  []string{"clojure"},
		},
		{
			name:       "absolute stylesheet",
			yaml:       "stylesheet: " + abs + "\n",
			stylesheet: abs,
			languages:  []string{"clojure"},
		},
		{
			name:       "languages",
			yaml:       "languages:\n  - clojure\n  - clojurescript\n",
			stylesheet: filepath.Join(root, DefaultStylesheet),
			languages:  []string{"clojure", "clojurescript"},
		},
		{
			name:       "empty languages",
			yaml:       "languages: []\n",
			stylesheet: filepath.Join(root, DefaultStylesheet),
			languages:  []string{"clojure"},
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			unsetEnv(t, EnvStylesheet, EnvRankTable)
			writeFile(t, root, FileName, c.yaml)

			cfg, err := Load(root)
			require.NoError(t, err)

			assert.Equal(t, c.stylesheet, cfg.StylesheetPath())
			assert.Equal(t, c.rankTable, cfg.RankTablePath())
			assert.Equal(t, c.languages, cfg.Languages)
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, "stylesheet: [")

	_, err := Load(root)
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FileName, "stylesheet: file.css\n")

	t.Setenv(EnvStylesheet, "env.css")
	t.Setenv(EnvRankTable, "env.yaml")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "env.css"), cfg.StylesheetPath())
	assert.Equal(t, filepath.Join(root, "env.yaml"), cfg.RankTablePath())
}

func TestLoadDotEnv(t *testing.T) {
	unsetEnv(t, EnvStylesheet, EnvRankTable)
	t.Setenv(EnvStylesheet, "shell.css")

	root := t.TempDir()
	writeFile(t, root, ".env", EnvStylesheet+"=dotenv.css\n"+EnvRankTable+"=dotenv.yaml\n")

	cfg, err := Load(root)
	require.NoError(t, err)

	// The shell environment wins over .env
	assert.Equal(t, filepath.Join(root, "shell.css"), cfg.StylesheetPath())
	assert.Equal(t, filepath.Join(root, "dotenv.yaml"), cfg.RankTablePath())
}
