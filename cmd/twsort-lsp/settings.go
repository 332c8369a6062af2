package main

import (
	"fmt"
	"net/url"
	"os"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// rootFromParams picks the first workspace folder, falling back to the root
// uri, the root path and finally the working directory.
func rootFromParams(params *protocol.InitializeParams) string {
	uris := []string{}
	for _, f := range params.WorkspaceFolders {
		uris = append(uris, f.URI)
	}
	if params.RootURI != nil {
		uris = append(uris, *params.RootURI)
	}

	for _, u := range uris {
		p, err := uriPath(u)
		if err == nil {
			return p
		}
		log.Warningf("ignoring workspace %q: %s", u, err)
	}

	if params.RootPath != nil && *params.RootPath != "" {
		return *params.RootPath
	}

	wd, _ := os.Getwd()
	return wd
}

func uriPath(docURI string) (string, error) {
	u, err := url.Parse(docURI)
	if err != nil {
		return "", fmt.Errorf("parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("invalid uri scheme %q", u.Scheme)
	}

	return u.Path, nil
}

// applySettings reads client settings, either the whole settings object or
// just the extension's section:
//
//	{"tailwindCssClojureClassSorter": {"tailwindCssPath": "src/main.css"}}
//
// Must be called with mu held.
func applySettings(v any) {
	m, ok := v.(map[string]any)
	if !ok {
		return
	}
	if section, ok := m[settingsSection].(map[string]any); ok {
		m = section
	}

	if p, ok := m["tailwindCssPath"].(string); ok {
		current.stylesheet = p
	}
	if p, ok := m["rankTable"].(string); ok {
		current.rankTable = p
	}
	if langs, ok := m["languages"].([]any); ok {
		languages := []string{}
		for _, l := range langs {
			if s, ok := l.(string); ok {
				languages = append(languages, s)
			}
		}
		current.languages = languages
	}

	log.Debugf("settings: stylesheet=%q rankTable=%q languages=%v", current.stylesheet, current.rankTable, current.languages)
}
