package main

import (
	gocontext "context"
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pipe01/twsort/internal/config"
	"github.com/pipe01/twsort/internal/document"
	"github.com/pipe01/twsort/internal/oracle"
	"github.com/pipe01/twsort/internal/sorter"
	"github.com/pipe01/twsort/internal/workspace"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const (
	lsName = "twsort"

	sortClassesKind    protocol.CodeActionKind = protocol.CodeActionKindSource + ".sortTailwindClasses"
	sortClassesTitle                           = "Sort Tailwind Classes"
	sortClassesCommand                         = "twsort.sortClasses"

	settingsSection = "tailwindCssClojureClassSorter"
)

var (
	verbose = kingpin.Flag("verbose", "Log more, can be repeated").Short('v').Counter()
	logFile = kingpin.Flag("log-file", "Write logs to this file instead of stderr").String()
)

var version string = "0.1.0"
var handler protocol.Handler

var log = commonlog.GetLogger("twsort.lsp")

type openDocument struct {
	languageID string
	version    protocol.Integer
	text       string
}

type settings struct {
	root       string
	stylesheet string
	rankTable  string
	languages  []string
}

var (
	mu        sync.Mutex
	documents = map[string]*openDocument{}
	current   settings
	warned    = map[string]struct{}{}

	cache   = workspace.NewCache()
	watcher *workspace.Watcher
)

func main() {
	kingpin.Version(version)
	kingpin.Parse()

	var path *string
	if *logFile != "" {
		path = logFile
	}
	commonlog.Configure(1+*verbose, path)

	protocol.SetTraceValue(protocol.TraceValueMessage)

	var err error
	watcher, err = workspace.NewWatcher(cache.Invalidate)
	if err != nil {
		log.Warningf("file watching disabled: %s", err)
	}

	handler = newHandler()

	server := server.NewServer(&handler, lsName, false)

	server.RunStdio()
}

func newHandler() protocol.Handler {
	return protocol.Handler{
		Initialize:  initialize,
		Initialized: initialized,
		Shutdown:    shutdown,
		SetTrace:    setTrace,
		TextDocumentDidOpen: func(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
			mu.Lock()
			defer mu.Unlock()

			documents[params.TextDocument.URI] = &openDocument{
				languageID: params.TextDocument.LanguageID,
				version:    params.TextDocument.Version,
				text:       params.TextDocument.Text,
			}
			return nil
		},
		TextDocumentDidChange: func(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
			mu.Lock()
			defer mu.Unlock()

			doc, ok := documents[params.TextDocument.URI]
			if !ok {
				return nil
			}

			for _, change := range params.ContentChanges {
				switch change := change.(type) {
				case protocol.TextDocumentContentChangeEventWhole:
					doc.text = change.Text

				case protocol.TextDocumentContentChangeEvent:
					startIndex, endIndex := change.Range.IndexesIn(doc.text)
					doc.text = doc.text[:startIndex] + change.Text + doc.text[endIndex:]
				}
			}
			doc.version = params.TextDocument.Version

			return nil
		},
		TextDocumentDidClose: func(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
			mu.Lock()
			defer mu.Unlock()

			delete(documents, params.TextDocument.URI)
			return nil
		},
		TextDocumentCodeAction:          codeAction,
		WorkspaceExecuteCommand:         executeCommand,
		WorkspaceDidChangeConfiguration: didChangeConfiguration,
	}
}

func initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	mu.Lock()
	current.root = rootFromParams(params)
	applySettings(params.InitializationOptions)
	log.Infof("workspace root %q", current.root)
	mu.Unlock()

	capabilities := handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindIncremental
	capabilities.CodeActionProvider = protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{sortClassesKind},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{sortClassesCommand},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	if watcher != nil {
		watcher.Close()
	}
	return nil
}

func setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func didChangeConfiguration(context *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	mu.Lock()
	applySettings(params.Settings)
	warned = map[string]struct{}{}
	mu.Unlock()

	cache.Purge()
	return nil
}

func codeAction(context *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	if !wantsKind(params.Context.Only) {
		return nil, nil
	}

	edit, ok := sortDocument(context, params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	kind := sortClassesKind
	return []protocol.CodeAction{
		{
			Title: sortClassesTitle,
			Kind:  &kind,
			Edit:  edit,
		},
	}, nil
}

func executeCommand(context *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if params.Command != sortClassesCommand {
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
	if len(params.Arguments) != 1 {
		return nil, fmt.Errorf("%s takes a document uri", sortClassesCommand)
	}

	uri, ok := params.Arguments[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid document uri %v", params.Arguments[0])
	}

	edit, ok := sortDocument(context, uri)
	if !ok || len(edit.Changes[uri]) == 0 {
		return nil, nil
	}

	// The reply to applyEdit is read by the loop that is running this
	// handler, so wait for it elsewhere.
	go applyEdit(context, uri, edit)

	return nil, nil
}

func applyEdit(context *glsp.Context, uri string, edit *protocol.WorkspaceEdit) {
	label := sortClassesTitle
	var resp protocol.ApplyWorkspaceEditResponse

	context.Call(protocol.ServerWorkspaceApplyEdit, &protocol.ApplyWorkspaceEditParams{
		Label: &label,
		Edit:  *edit,
	}, &resp)

	if !resp.Applied {
		reason := "unknown reason"
		if resp.FailureReason != nil {
			reason = *resp.FailureReason
		}
		log.Warningf("client did not apply edit to %q: %s", uri, reason)
	}
}

// wantsKind reports whether a code action request filtered by only accepts
// the sort action.
func wantsKind(only []protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}

	for _, k := range only {
		if k == sortClassesKind || k == protocol.CodeActionKindSource {
			return true
		}
	}
	return false
}

// sortDocument loads the ranking, then computes the edits for a snapshot of
// the document. The result is dropped if the document changed meanwhile.
func sortDocument(context *glsp.Context, docURI string) (*protocol.WorkspaceEdit, bool) {
	mu.Lock()
	doc, ok := documents[docURI]
	var snapshot openDocument
	if ok {
		snapshot = *doc
	}
	s := current
	mu.Unlock()

	if !ok {
		return nil, false
	}

	ws, err := newWorkspace(s)
	if err != nil {
		if !handlesLanguage(s, snapshot.languageID) {
			log.Debugf("ignoring %q: %s", docURI, err)
			return nil, false
		}
		showError(context, fmt.Sprintf("Failed to load configuration: %s", err))
		return nil, false
	}

	if !ws.Config.HandlesLanguage(snapshot.languageID) {
		return nil, false
	}

	orc, err := ws.LoadOracle(gocontext.Background())
	if err != nil {
		reportLoadError(context, ws, err)
		return nil, false
	}
	watchDependencies(ws)

	if err := ws.CheckOracle(orc); err != nil {
		warnOnce(context, err)
	}

	edits, err := sorter.ComputeEdits(snapshot.text, orc)
	if err != nil {
		log.Errorf("failed to sort %q: %s", docURI, err)
		return nil, false
	}

	mu.Lock()
	doc, ok = documents[docURI]
	stale := !ok || doc.version != snapshot.version
	mu.Unlock()

	if stale {
		log.Debugf("%q changed while sorting, discarding %d edits", docURI, len(edits))
		return nil, false
	}

	d := document.New(docURI, snapshot.text)

	textEdits := make([]protocol.TextEdit, len(edits))
	for i, e := range edits {
		textEdits[i] = protocol.TextEdit{
			Range: protocol.Range{
				Start: pos(d.PositionAt(e.Start)),
				End:   pos(d.PositionAt(e.End)),
			},
			NewText: e.NewText,
		}
	}

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			docURI: textEdits,
		},
	}, true
}

// handlesLanguage checks a language against the client settings or the
// defaults, for when the project configuration can't be read.
func handlesLanguage(s settings, languageID string) bool {
	cfg := config.Default(s.root)
	if len(s.languages) > 0 {
		cfg.Languages = s.languages
	}
	return cfg.HandlesLanguage(languageID)
}

func newWorkspace(s settings) (*workspace.Workspace, error) {
	cfg, err := config.Load(s.root)
	if err != nil {
		return nil, err
	}

	if s.stylesheet != "" {
		cfg.Stylesheet = s.stylesheet
	}
	if s.rankTable != "" {
		cfg.RankTable = s.rankTable
	}
	if len(s.languages) > 0 {
		cfg.Languages = s.languages
	}

	return workspace.New(cfg, cache), nil
}

func watchDependencies(ws *workspace.Workspace) {
	if watcher == nil {
		return
	}

	for _, f := range ws.RequestedFiles() {
		if err := watcher.WatchFile(f); err != nil {
			log.Warningf("failed to watch %q: %s", f, err)
		}
	}
}

func reportLoadError(context *glsp.Context, ws *workspace.Workspace, err error) {
	var loadErr *oracle.LoadError
	var resErr *oracle.ResolutionError

	switch {
	case goerrors.As(err, &resErr):
		log.Errorf("failed to resolve %q from %q: %s", resErr.Specifier, resErr.Base, resErr.Inner)
		showError(context, fmt.Sprintf("Failed to load Tailwind CSS from %s: could not resolve %q. Error: %s", ws.Config.StylesheetPath(), resErr.Specifier, resErr.Inner))

	case goerrors.As(err, &loadErr):
		log.Errorf("failed to read %q: %s", loadErr.Path, loadErr.Inner)
		showError(context, fmt.Sprintf("Failed to read Tailwind CSS file at %s. Please check the path and permissions. Error: %s", loadErr.Path, loadErr.Inner))

	default:
		log.Errorf("failed to load Tailwind CSS: %s", err)
		showError(context, fmt.Sprintf("Failed to load Tailwind CSS: %s", err))
	}
}

// warnOnce shows a warning the first time it is seen until the settings
// change.
func warnOnce(context *glsp.Context, err error) {
	msg := err.Error()

	mu.Lock()
	_, seen := warned[msg]
	warned[msg] = struct{}{}
	mu.Unlock()

	if seen {
		return
	}

	context.Notify(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeWarning,
		Message: msg,
	})
}

func showError(context *glsp.Context, msg string) {
	context.Notify(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: msg,
	})
}

func pos(l document.Location) protocol.Position {
	return protocol.Position{
		Line:      uint32(l.Line),
		Character: uint32(l.Column),
	}
}
