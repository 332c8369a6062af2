package oracle

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Stylesheet ranks classes by where the framework's stylesheet first declares
// them. Every rule belongs to a cascade layer; a class's key is its layer's
// position in the layer order followed by the order rules were seen in.
type Stylesheet struct {
	Path string

	ranks  map[string]*big.Int
	files  []string
	layers []string
}

func (s *Stylesheet) Rank(classes []string) map[string]*big.Int {
	ranks := make(map[string]*big.Int, len(classes))
	for _, c := range classes {
		ranks[c] = s.ranks[c]
	}
	return ranks
}

// Len returns the number of ranked classes.
func (s *Stylesheet) Len() int {
	return len(s.ranks)
}

// Files returns every stylesheet and module read while loading, in load order.
func (s *Stylesheet) Files() []string {
	return s.files
}

// Layers returns the cascade layers in precedence order.
func (s *Stylesheet) Layers() []string {
	return s.layers
}

// Custom utilities declared at the top level belong to this layer.
const utilitiesLayer = "utilities"

type LoadConfig struct {
	// Path is the absolute path of the root stylesheet.
	Path string

	FS FileSystem

	// CSS and Modules default to CSSResolver and ModuleResolver over FS.
	CSS, Modules *Resolver
}

type classPos struct {
	layer string
	seq   int64
}

type loader struct {
	ctx context.Context
	cfg LoadConfig

	sheet *Stylesheet

	loading map[string]struct{}
	loaded  map[string]struct{}

	classes    map[string]classPos
	layerIndex map[string]int
	seq        int64
}

// Load reads the stylesheet at cfg.Path and everything it imports.
func Load(ctx context.Context, cfg LoadConfig) (*Stylesheet, error) {
	if cfg.CSS == nil {
		cfg.CSS = CSSResolver(cfg.FS)
	}
	if cfg.Modules == nil {
		cfg.Modules = ModuleResolver(cfg.FS)
	}

	l := &loader{
		ctx:        ctx,
		cfg:        cfg,
		sheet:      &Stylesheet{Path: cfg.Path},
		loading:    make(map[string]struct{}),
		loaded:     make(map[string]struct{}),
		classes:    make(map[string]classPos),
		layerIndex: make(map[string]int),
	}

	log.Infof("loading stylesheet %q", cfg.Path)

	if err := l.loadFile(cfg.Path, ""); err != nil {
		return nil, err
	}

	l.sheet.ranks = l.ranks()

	log.Infof("ranked %d classes from %d files", len(l.sheet.ranks), len(l.sheet.files))
	return l.sheet, nil
}

// ranks turns positions into keys. Unlayered rules take precedence over all
// layers, so they go after the last declared one. The sequence takes the low
// bits, at least 32 and always enough to hold the largest sequence.
func (l *loader) ranks() map[string]*big.Int {
	ranks := make(map[string]*big.Int, len(l.classes))

	shift := uint(32)
	if n := uint(big.NewInt(l.seq).BitLen()); n > shift {
		shift = n
	}

	for class, pos := range l.classes {
		layer := len(l.sheet.layers)
		if pos.layer != "" {
			layer = l.layerIndex[pos.layer]
		}

		key := big.NewInt(int64(layer))
		key.Lsh(key, shift)
		key.Or(key, big.NewInt(pos.seq))

		ranks[class] = key
	}

	return ranks
}

func (l *loader) declareLayer(name string) {
	if _, ok := l.layerIndex[name]; ok {
		return
	}

	l.layerIndex[name] = len(l.sheet.layers)
	l.sheet.layers = append(l.sheet.layers, name)
}

func (l *loader) rankClass(name, layer string) {
	if name == "" {
		return
	}
	if _, ok := l.classes[name]; ok {
		return
	}

	l.classes[name] = classPos{layer: layer, seq: l.seq}
	l.seq++
}

func (l *loader) loadFile(path, layer string) error {
	if err := l.ctx.Err(); err != nil {
		return err
	}

	if _, ok := l.loading[path]; ok {
		return fmt.Errorf("detected import cycle on %q", path)
	}
	if _, ok := l.loaded[path]; ok {
		return nil
	}

	l.loading[path] = struct{}{}
	defer delete(l.loading, path)

	data, err := l.cfg.FS.ReadFile(path)
	if err != nil {
		log.Errorf("error reading stylesheet %q: %s", path, err)
		return &LoadError{Path: path, Inner: err}
	}

	l.loaded[path] = struct{}{}
	l.sheet.files = append(l.sheet.files, path)

	if layer != "" {
		l.declareLayer(layer)
	}

	return l.scan(data, path, layer)
}

func (l *loader) loadModule(specifier, base string) error {
	log.Infof("loading module %q from %q", specifier, base)

	resolved, err := l.cfg.Modules.Resolve(specifier, base)
	if err != nil {
		log.Errorf("error resolving module %q from %q: %s", specifier, base, err)
		return err
	}

	if _, ok := l.loaded[resolved]; ok {
		return nil
	}

	if _, err := l.cfg.FS.ReadFile(resolved); err != nil {
		log.Errorf("error importing module %q from %q: %s", specifier, resolved, err)
		return &LoadError{Path: resolved, Inner: err}
	}

	l.loaded[resolved] = struct{}{}
	l.sheet.files = append(l.sheet.files, resolved)

	log.Debugf("resolved module %q to %q", specifier, resolved)
	return nil
}

type token struct {
	tt   css.TokenType
	text string
}

type layerFrame struct {
	depth int
	name  string
}

// scan walks the stylesheet token by token. Tokens are buffered until the
// next "{", "}" or ";" and then handled as a block prelude or a statement.
func (l *loader) scan(data []byte, path, layer string) error {
	base := filepath.Dir(path)
	lex := css.NewLexer(parse.NewInputBytes(data))

	var (
		prelude []token
		depth   int
		layers  = []layerFrame{{depth: 0, name: layer}}
	)
	current := func() string {
		return layers[len(layers)-1].name
	}

	for {
		tt, text := lex.Next()

		switch tt {
		case css.ErrorToken:
			if err := lex.Err(); err != nil && err != io.EOF {
				return &LoadError{Path: path, Inner: fmt.Errorf("lex stylesheet: %w", err)}
			}
			return nil

		case css.CommentToken:
			continue

		case css.SemicolonToken:
			if err := l.statement(trim(prelude), base, current()); err != nil {
				return err
			}
			prelude = prelude[:0]

		case css.LeftBraceToken:
			depth++
			if name, ok := l.blockStart(trim(prelude), current()); ok {
				layers = append(layers, layerFrame{depth: depth, name: name})
			}
			prelude = prelude[:0]

		case css.RightBraceToken:
			if top := layers[len(layers)-1]; top.depth == depth && len(layers) > 1 {
				layers = layers[:len(layers)-1]
			}
			if depth > 0 {
				depth--
			}
			prelude = prelude[:0]

		default:
			prelude = append(prelude, token{tt, string(text)})
		}
	}
}

func trim(tokens []token) []token {
	for len(tokens) > 0 && tokens[0].tt == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].tt == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func atKeyword(tokens []token) string {
	if len(tokens) == 0 || tokens[0].tt != css.AtKeywordToken {
		return ""
	}
	return strings.ToLower(tokens[0].text)
}

// blockStart handles the prelude of a "{" block. It returns the layer the
// block's contents belong to if the block opens a new one.
func (l *loader) blockStart(prelude []token, layer string) (string, bool) {
	switch atKeyword(prelude) {
	case "":
		for _, class := range selectorClasses(prelude) {
			l.rankClass(class, layer)
		}

	case "@layer":
		names := layerNames(prelude[1:])
		if len(names) == 0 {
			// Anonymous layer, keep the enclosing one
			return layer, true
		}

		name := names[0]
		if layer != "" {
			name = layer + "." + name
		}
		l.declareLayer(name)
		return name, true

	case "@utility":
		if name, ok := utilityName(prelude[1:]); ok {
			if layer == "" {
				layer = utilitiesLayer
				l.declareLayer(layer)
			}
			l.rankClass(name, layer)
		}
	}

	return "", false
}

// statement handles an at-rule terminated by ";".
func (l *loader) statement(prelude []token, base, layer string) error {
	switch atKeyword(prelude) {
	case "@layer":
		for _, name := range layerNames(prelude[1:]) {
			if layer != "" {
				name = layer + "." + name
			}
			l.declareLayer(name)
		}

	case "@import":
		specifier, importLayer, ok := importArgs(prelude[1:])
		if !ok {
			return nil
		}
		if importLayer != "" && layer != "" {
			importLayer = layer + "." + importLayer
		}
		if importLayer == "" {
			importLayer = layer
		}

		log.Infof("loading stylesheet %q from %q", specifier, base)

		resolved, err := l.cfg.CSS.Resolve(specifier, base)
		if err != nil {
			log.Errorf("error resolving stylesheet %q from %q: %s", specifier, base, err)
			return err
		}

		return l.loadFile(resolved, importLayer)

	case "@plugin", "@config":
		if specifier, ok := firstString(prelude[1:]); ok {
			return l.loadModule(specifier, base)
		}
	}

	return nil
}

// selectorClasses returns the class names in a selector list, in order.
func selectorClasses(tokens []token) []string {
	classes := []string{}

	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].tt == css.DelimToken && tokens[i].text == "." && tokens[i+1].tt == css.IdentToken {
			classes = append(classes, unescape(tokens[i+1].text))
			i++
		}
	}

	return classes
}

func layerNames(tokens []token) []string {
	names := []string{}

	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			names = append(names, sb.String())
			sb.Reset()
		}
	}

	for _, t := range tokens {
		switch t.tt {
		case css.IdentToken:
			sb.WriteString(t.text)
		case css.DelimToken:
			if t.text == "." {
				sb.WriteString(".")
			}
		case css.CommaToken:
			flush()
		}
	}
	flush()

	return names
}

// utilityName returns the name of a static @utility. Functional utilities
// ending in "-*" have no fixed name and are skipped.
func utilityName(tokens []token) (string, bool) {
	tokens = trim(tokens)
	if len(tokens) != 1 || tokens[0].tt != css.IdentToken {
		return "", false
	}
	return unescape(tokens[0].text), true
}

// importArgs parses `"spec" layer(name)` and `url(spec)` forms.
func importArgs(tokens []token) (specifier, layer string, ok bool) {
	for i, t := range tokens {
		switch t.tt {
		case css.StringToken:
			if specifier == "" {
				specifier, ok = unquote(t.text), true
			}

		case css.URLToken:
			if specifier == "" {
				specifier, ok = urlValue(t.text), true
			}

		case css.FunctionToken:
			if strings.EqualFold(t.text, "layer(") && i+1 < len(tokens) && tokens[i+1].tt == css.IdentToken {
				layer = tokens[i+1].text
			}

		case css.IdentToken:
			if strings.EqualFold(t.text, "layer") && layer == "" {
				layer = "anonymous"
			}
		}
	}

	return specifier, layer, ok && specifier != ""
}

func firstString(tokens []token) (string, bool) {
	for _, t := range tokens {
		if t.tt == css.StringToken {
			return unquote(t.text), true
		}
	}
	return "", false
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return unescape(s)
}

func urlValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[:4], "url(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[4 : len(s)-1])
	}
	return unquote(s)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// unescape decodes CSS escapes: "\:" becomes ":" and "\31 0" becomes "10".
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(s) && j-i-1 < 6 && isHex(s[j]) {
			j++
		}

		if j == i+1 {
			sb.WriteByte(s[j])
			i = j
			continue
		}

		n, _ := strconv.ParseUint(s[i+1:j], 16, 32)
		if n == 0 || n > 0x10FFFF {
			n = 0xFFFD
		}
		sb.WriteRune(rune(n))

		// A single whitespace ends a hex escape
		if j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
			j++
		}
		i = j - 1
	}

	return sb.String()
}
