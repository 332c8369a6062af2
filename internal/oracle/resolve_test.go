package oracle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPackage(t *testing.T) {
	cases := []struct {
		specifier, name, subpath string
	}{
		{"tailwindcss", "tailwindcss", "."},
		{"tailwindcss/theme.css", "tailwindcss", "./theme.css"},
		{"@scope/pkg", "@scope/pkg", "."},
		{"@scope/pkg/a/b", "@scope/pkg", "./a/b"},
	}

	for _, c := range cases {
		name, subpath := splitPackage(c.specifier)
		assert.Equal(t, c.name, name, c.specifier)
		assert.Equal(t, c.subpath, subpath, c.specifier)
	}
}

func TestResolve(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/app.css":             "",
		"src/parts/a.css":         "",
		"src/lib/index.css":       "",
		"src/plugin.mjs":          "",
		"src/styled/package.json": `{"style": "main.css"}`,
		"src/styled/main.css":     "",

		"node_modules/tailwindcss/package.json": `{
			"name": "tailwindcss",
			"exports": {
				"./*": "./other/*.css",
				".": {"style": "./index.css", "types": "./dist/lib.d.ts", "require": "./dist/lib.js", "import": "./dist/lib.mjs"},
				"./theme.css": "./theme.css",
				"./plugin": {"import": "./dist/plugin.mjs", "require": "./dist/plugin.js"},
				"./utilities/*": "./src/utilities/*.css"
			}
		}`,
		"node_modules/tailwindcss/index.css":           "",
		"node_modules/tailwindcss/theme.css":           "",
		"node_modules/tailwindcss/dist/lib.js":         "",
		"node_modules/tailwindcss/dist/lib.mjs":        "",
		"node_modules/tailwindcss/dist/plugin.js":      "",
		"node_modules/tailwindcss/dist/plugin.mjs":     "",
		"node_modules/tailwindcss/src/utilities/x.css": "",
		"node_modules/tailwindcss/other/extra.css":     "",

		"node_modules/legacy/package.json":   `{"main": "lib/main", "style": "css/legacy.css"}`,
		"node_modules/legacy/lib/main.js":    "",
		"node_modules/legacy/css/legacy.css": "",
		"node_modules/legacy/extra.css":      "",

		"node_modules/@acme/ui/package.json": `{"exports": "./ui.js"}`,
		"node_modules/@acme/ui/ui.js":        "",
	})

	src := filepath.Join(root, "src")
	css := CSSResolver(osFS{})
	mod := ModuleResolver(osFS{})

	type testCase struct {
		name      string
		resolver  *Resolver
		specifier string
		base      string
		want      string
	}

	cases := []testCase{
		{"relative with extension", css, "./parts/a.css", src, "src/parts/a.css"},
		{"relative without extension", css, "./parts/a", src, "src/parts/a.css"},
		{"parent directory", css, "../app.css", filepath.Join(src, "parts"), "src/app.css"},
		{"directory index", css, "./lib", src, "src/lib/index.css"},
		{"directory main field", css, "./styled", src, "src/styled/main.css"},
		{"absolute", css, filepath.Join(src, "app.css"), "/", "src/app.css"},
		{"module extension", mod, "./plugin", src, "src/plugin.mjs"},
		{"exports style condition", css, "tailwindcss", src, "node_modules/tailwindcss/index.css"},
		{"exports subpath", css, "tailwindcss/theme.css", src, "node_modules/tailwindcss/theme.css"},
		{"exports longest wildcard prefix", css, "tailwindcss/utilities/x", src, "node_modules/tailwindcss/src/utilities/x.css"},
		{"exports catch-all wildcard", css, "tailwindcss/extra", src, "node_modules/tailwindcss/other/extra.css"},
		{"exports condition order", mod, "tailwindcss", src, "node_modules/tailwindcss/dist/lib.js"},
		{"exports nested conditions", mod, "tailwindcss/plugin", src, "node_modules/tailwindcss/dist/plugin.mjs"},
		{"exports string sugar", mod, "@acme/ui", src, "node_modules/@acme/ui/ui.js"},
		{"style main field", css, "legacy", src, "node_modules/legacy/css/legacy.css"},
		{"main field without extension", mod, "legacy", src, "node_modules/legacy/lib/main.js"},
		{"package subpath without exports", css, "legacy/extra", src, "node_modules/legacy/extra.css"},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			got, err := c.resolver.Resolve(c.specifier, c.base)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, filepath.FromSlash(c.want)), got)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	root := writeTree(t, map[string]string{
		"node_modules/closed/package.json": `{"exports": {".": "./index.css"}}`,
		"node_modules/closed/index.css":    "",
		"node_modules/closed/private.css":  "",
		"node_modules/broken/package.json": `{not json`,
	})

	css := CSSResolver(osFS{})

	type testCase struct {
		name      string
		specifier string
		expectErr error
	}

	cases := []testCase{
		{"missing relative", "./nope.css", ErrNotFound},
		{"missing package", "nope", ErrNotFound},
		{"empty specifier", "", ErrNotFound},
		{"not exported", "closed/private.css", ErrNotExported},
		{"invalid package.json", "broken", ErrInvalidPackage},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			_, err := css.Resolve(c.specifier, root)
			require.Error(t, err)

			var resErr *ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, c.specifier, resErr.Specifier)
			assert.Equal(t, root, resErr.Base)
			assert.ErrorIs(t, err, c.expectErr)
		})
	}
}
