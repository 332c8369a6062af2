package oracle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	ErrNotFound       = errors.New("no such file or package")
	ErrNotExported    = errors.New("path not exported by package")
	ErrInvalidPackage = errors.New("invalid package.json")
)

// Resolver resolves import specifiers to files the way Node does: relative
// paths are tried as files, with each extension and as directories, bare
// specifiers are looked up in node_modules and honour package.json exports.
type Resolver struct {
	Extensions []string
	MainFields []string
	Conditions []string

	FS FileSystem
}

// CSSResolver resolves stylesheet imports.
func CSSResolver(fsys FileSystem) *Resolver {
	return &Resolver{
		Extensions: []string{".css"},
		MainFields: []string{"style"},
		Conditions: []string{"style"},
		FS:         fsys,
	}
}

// ModuleResolver resolves script modules referenced by @plugin and @config.
func ModuleResolver(fsys FileSystem) *Resolver {
	return &Resolver{
		Extensions: []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts"},
		MainFields: []string{"main", "module"},
		Conditions: []string{"node", "import", "require"},
		FS:         fsys,
	}
}

// Resolve returns the absolute path of the file specifier refers to when
// imported from the directory base.
func (r *Resolver) Resolve(specifier, base string) (string, error) {
	resolved, err := r.resolve(specifier, base)
	if err != nil {
		return "", &ResolutionError{
			Specifier: specifier,
			Base:      base,
			Inner:     err,
		}
	}

	return resolved, nil
}

func (r *Resolver) resolve(specifier, base string) (string, error) {
	if specifier == "" {
		return "", ErrNotFound
	}

	if isPathSpecifier(specifier) {
		p := specifier
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, filepath.FromSlash(p))
		}

		if found, ok := r.resolvePath(p); ok {
			return found, nil
		}
		return "", ErrNotFound
	}

	return r.resolvePackage(specifier, base)
}

func isPathSpecifier(s string) bool {
	return filepath.IsAbs(s) ||
		s == "." || s == ".." ||
		strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

func (r *Resolver) isFile(p string) bool {
	info, err := r.FS.Stat(p)
	return err == nil && !info.IsDir()
}

func (r *Resolver) isDir(p string) bool {
	info, err := r.FS.Stat(p)
	return err == nil && info.IsDir()
}

// resolvePath tries p as a file, then with every extension, then as a
// directory.
func (r *Resolver) resolvePath(p string) (string, bool) {
	if found, ok := r.resolveFile(p); ok {
		return found, true
	}

	if !r.isDir(p) {
		return "", false
	}

	if pkg, err := r.readPackage(p); err == nil && pkg != nil {
		for _, field := range r.MainFields {
			var main string
			if raw, ok := pkg[field]; !ok || json.Unmarshal(raw, &main) != nil || main == "" {
				continue
			}

			mainPath := filepath.Join(p, filepath.FromSlash(main))
			if found, ok := r.resolveFile(mainPath); ok {
				return found, true
			}
			if found, ok := r.resolveIndex(mainPath); ok {
				return found, true
			}
		}
	}

	return r.resolveIndex(p)
}

func (r *Resolver) resolveFile(p string) (string, bool) {
	if r.isFile(p) {
		return p, true
	}

	for _, ext := range r.Extensions {
		if r.isFile(p + ext) {
			return p + ext, true
		}
	}

	return "", false
}

func (r *Resolver) resolveIndex(dir string) (string, bool) {
	for _, ext := range r.Extensions {
		p := filepath.Join(dir, "index"+ext)
		if r.isFile(p) {
			return p, true
		}
	}

	return "", false
}

// resolvePackage looks for the package in every node_modules directory from
// base up to the filesystem root.
func (r *Resolver) resolvePackage(specifier, base string) (string, error) {
	name, subpath := splitPackage(specifier)

	dir, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	for {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(name))

		if r.isDir(pkgDir) {
			found, err := r.resolveInPackage(pkgDir, subpath)
			if err != nil || found != "" {
				return found, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrNotFound
}

// resolveInPackage returns "" with a nil error if the package has no exports
// map and nothing matched, so the lookup continues in outer node_modules.
func (r *Resolver) resolveInPackage(pkgDir, subpath string) (string, error) {
	pkg, err := r.readPackage(pkgDir)
	if err != nil {
		return "", err
	}

	if exports, ok := pkg["exports"]; ok {
		target, ok := r.exportsTarget(exports, subpath)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNotExported, subpath)
		}

		p := filepath.Join(pkgDir, filepath.FromSlash(target))
		if !r.isFile(p) {
			return "", fmt.Errorf("%w: export %q points to %q", ErrNotFound, subpath, target)
		}
		return p, nil
	}

	if subpath == "." {
		found, _ := r.resolvePath(pkgDir)
		return found, nil
	}

	found, _ := r.resolvePath(filepath.Join(pkgDir, filepath.FromSlash(subpath)))
	return found, nil
}

// splitPackage splits "@scope/name/sub/path" into "@scope/name" and
// "./sub/path".
func splitPackage(specifier string) (name, subpath string) {
	parts := strings.Split(specifier, "/")

	n := 1
	if strings.HasPrefix(specifier, "@") && len(parts) > 1 {
		n = 2
	}

	name = strings.Join(parts[:n], "/")
	if len(parts) == n {
		return name, "."
	}

	return name, "./" + strings.Join(parts[n:], "/")
}

type packageJSON map[string]json.RawMessage

// readPackage returns nil if dir has no package.json.
func (r *Resolver) readPackage(dir string) (packageJSON, error) {
	p := filepath.Join(dir, "package.json")
	if !r.isFile(p) {
		return nil, nil
	}

	data, err := r.FS.ReadFile(p)
	if err != nil {
		return nil, err
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidPackage, p, err)
	}

	return pkg, nil
}

// exportsTarget picks the file exports maps subpath to.
func (r *Resolver) exportsTarget(exports json.RawMessage, subpath string) (string, bool) {
	members, isObject := objectMembers(exports)
	if !isObject || len(members) == 0 || !strings.HasPrefix(members[0].key, ".") {
		// Sugar for {".": exports}
		if subpath != "." {
			return "", false
		}
		return r.conditionalTarget(exports, "")
	}

	for _, m := range members {
		if m.key == subpath {
			return r.conditionalTarget(m.value, "")
		}
	}

	for _, m := range patternMembers(members) {
		prefix, suffix, _ := strings.Cut(m.key, "*")

		if strings.HasPrefix(subpath, prefix) && strings.HasSuffix(subpath, suffix) && len(subpath) >= len(prefix)+len(suffix) {
			return r.conditionalTarget(m.value, subpath[len(prefix):len(subpath)-len(suffix)])
		}
	}

	return "", false
}

// patternMembers returns the wildcard subpaths of an exports map, most
// specific first: longer prefixes before shorter ones, then longer keys.
func patternMembers(members []member) []member {
	patterns := []member{}
	for _, m := range members {
		if strings.Contains(m.key, "*") {
			patterns = append(patterns, m)
		}
	}

	slices.SortStableFunc(patterns, func(a, b member) int {
		pa := strings.Index(a.key, "*")
		pb := strings.Index(b.key, "*")
		if pa != pb {
			return pb - pa
		}
		return len(b.key) - len(a.key)
	})

	return patterns
}

// conditionalTarget resolves a target that may be a string, an array of
// fallbacks or an object of conditions. Conditions are checked in the order
// the package lists them.
func (r *Resolver) conditionalTarget(target json.RawMessage, star string) (string, bool) {
	var s string
	if json.Unmarshal(target, &s) == nil {
		return strings.ReplaceAll(s, "*", star), true
	}

	var list []json.RawMessage
	if json.Unmarshal(target, &list) == nil {
		for _, t := range list {
			if found, ok := r.conditionalTarget(t, star); ok {
				return found, true
			}
		}
		return "", false
	}

	members, ok := objectMembers(target)
	if !ok {
		return "", false
	}

	for _, m := range members {
		if m.key != "default" && !r.hasCondition(m.key) {
			continue
		}

		if found, ok := r.conditionalTarget(m.value, star); ok {
			return found, true
		}
	}

	return "", false
}

func (r *Resolver) hasCondition(name string) bool {
	for _, c := range r.Conditions {
		if c == name {
			return true
		}
	}
	return false
}

type member struct {
	key   string
	value json.RawMessage
}

// objectMembers decodes a JSON object keeping its key order, which
// encoding/json maps lose.
func objectMembers(raw json.RawMessage) ([]member, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}

	members := []member{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}

		key, ok := tok.(string)
		if !ok {
			return nil, false
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}

		members = append(members, member{key, value})
	}

	return members, true
}
