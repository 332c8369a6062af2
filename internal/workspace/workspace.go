package workspace

import (
	"context"
	"io/fs"
	"sync"

	"github.com/pipe01/twsort/internal/config"
	"github.com/pipe01/twsort/internal/oracle"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var log = commonlog.GetLogger("twsort.workspace")

// Workspace is a project root together with its configuration. Files read
// through it go through the shared cache and are remembered so they can be
// watched.
type Workspace struct {
	Config *config.Config
	Cache  *Cache

	mu             sync.Mutex
	requestedFiles map[string]struct{}

	// Failed stats, kept for a single load so resolution doesn't probe the
	// same missing paths twice.
	misses map[string]error
}

func New(cfg *config.Config, cache *Cache) *Workspace {
	if cache == nil {
		cache = NewCache()
	}

	return &Workspace{
		Config:         cfg,
		Cache:          cache,
		requestedFiles: make(map[string]struct{}),
		misses:         make(map[string]error),
	}
}

func (w *Workspace) Root() string {
	return w.Config.Root
}

func (w *Workspace) ReadFile(path string) ([]byte, error) {
	data, err := w.Cache.ReadFile(path)
	if err == nil {
		w.mu.Lock()
		w.requestedFiles[key(path)] = struct{}{}
		w.mu.Unlock()
	}
	return data, err
}

func (w *Workspace) Stat(path string) (fs.FileInfo, error) {
	k := key(path)

	w.mu.Lock()
	err, missed := w.misses[k]
	w.mu.Unlock()
	if missed {
		return nil, err
	}

	info, err := w.Cache.Stat(path)
	if err != nil {
		w.mu.Lock()
		w.misses[k] = err
		w.mu.Unlock()
	}
	return info, err
}

// RequestedFiles returns every file read through the workspace so far.
func (w *Workspace) RequestedFiles() []string {
	w.mu.Lock()
	files := maps.Keys(w.requestedFiles)
	w.mu.Unlock()

	slices.Sort(files)
	return files
}

// LoadOracle loads the rank table if one is configured, or the stylesheet
// otherwise.
func (w *Workspace) LoadOracle(ctx context.Context) (oracle.Oracle, error) {
	w.mu.Lock()
	w.misses = make(map[string]error)
	w.mu.Unlock()

	if p := w.Config.RankTablePath(); p != "" {
		return oracle.LoadTable(w, p)
	}

	sheet, err := oracle.Load(ctx, oracle.LoadConfig{
		Path: w.Config.StylesheetPath(),
		FS:   w,
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("stylesheet %q declares layers %v", sheet.Path, sheet.Layers())
	return sheet, nil
}

// CheckOracle returns an *oracle.EmptyError if orc, loaded by LoadOracle,
// ranks no classes.
func (w *Workspace) CheckOracle(orc oracle.Oracle) error {
	path := w.Config.RankTablePath()
	if path == "" {
		path = w.Config.StylesheetPath()
	}

	err := oracle.CheckEmpty(orc, path)
	if err != nil {
		log.Warningf("%s", err)
	}
	return err
}
