package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pipe01/twsort/internal/config"
	"github.com/pipe01/twsort/internal/document"
	"github.com/pipe01/twsort/internal/report"
	"github.com/pipe01/twsort/internal/sorter"
	"github.com/pipe01/twsort/internal/workspace"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var version = "0.1.0"

var (
	rootDir   = kingpin.Flag("root", "Project root containing node_modules and "+config.FileName).Default(".").String()
	cssPath   = kingpin.Flag("css", "Stylesheet to rank classes with, relative to the root").String()
	rankTable = kingpin.Flag("rank-table", "YAML list of classes to rank with instead of a stylesheet").String()
	write     = kingpin.Flag("write", "Rewrite files in place").Short('i').Bool()
	check     = kingpin.Flag("check", "Exit with status 1 if any file has unsorted classes").Bool()
	list      = kingpin.Flag("list", "Print every edit").Short('l').Bool()
	watch     = kingpin.Flag("watch", "Watch files and the stylesheet and sort again on changes").Short('w').Bool()
	verbose   = kingpin.Flag("verbose", "Log more, can be repeated").Short('v').Counter()
	files     = kingpin.Arg("files", "Clojure files to sort").Required().ExistingFiles()
)

var log = commonlog.GetLogger("twsort")

func main() {
	kingpin.Version(version)
	kingpin.Parse()

	commonlog.Configure(*verbose, nil)

	cfg, err := config.Load(*rootDir)
	if err != nil {
		kingpin.Fatalf("load config: %s", err)
	}
	if *cssPath != "" {
		cfg.Stylesheet = *cssPath
	}
	if *rankTable != "" {
		cfg.RankTable = *rankTable
	}

	ws := workspace.New(cfg, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watch {
		err := watchFiles(ctx, ws)
		if err != nil {
			kingpin.Fatalf("failed to watch files: %s", err)
		}
		return
	}

	out := report.NewWriter(os.Stdout)
	out.ListEdits = *list

	err = sortAll(ctx, ws, out)
	if err != nil {
		kingpin.Fatalf("failed to sort classes: %s", err)
	}

	out.WriteSummary(*write)

	if *check && out.ChangedFiles() > 0 {
		os.Exit(1)
	}
}

func sortAll(ctx context.Context, ws *workspace.Workspace, out *report.Writer) error {
	orc, err := ws.LoadOracle(ctx)
	if err != nil {
		return fmt.Errorf("load ranking: %w", err)
	}
	warnEmpty(ws, orc)

	for _, fname := range *files {
		_, err := sortFile(orc, fname, out)
		if err != nil {
			return fmt.Errorf("sort file %q: %w", fname, err)
		}
	}

	return nil
}

// warnEmpty reports a ranking that knows no classes.
func warnEmpty(ws *workspace.Workspace, orc sorter.Oracle) {
	if err := ws.CheckOracle(orc); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
}

// sortFile computes the edits for one file, reports them and writes the
// result if requested. Sources are read directly, bypassing the cache.
func sortFile(orc sorter.Oracle, fname string, out *report.Writer) (int, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	doc := document.New(fname, string(data))

	edits, err := sorter.ComputeEdits(doc.Text, orc)
	if err != nil {
		return 0, err
	}

	out.WriteEdits(doc, edits)
	if *check && !*list && len(edits) > 0 {
		out.WriteFileStatus(fname, len(edits))
	}

	if !*write || len(edits) == 0 {
		return len(edits), nil
	}

	sorted, err := sorter.Apply(doc.Text, edits)
	if err != nil {
		return 0, fmt.Errorf("apply edits: %w", err)
	}

	if err := writeFile(fname, []byte(sorted)); err != nil {
		return 0, fmt.Errorf("write file: %w", err)
	}

	log.Infof("sorted %d class lists in %q", len(edits), fname)
	return len(edits), nil
}

// writeFile replaces fname through a temporary file so readers never see a
// partially written file.
func writeFile(fname string, data []byte) error {
	info, err := os.Stat(fname)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fname), "."+filepath.Base(fname)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode()); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), fname)
}

func watchFiles(ctx context.Context, ws *workspace.Workspace) error {
	out := report.NewWriter(os.Stdout)
	out.ListEdits = true

	orc, err := ws.LoadOracle(ctx)
	if err != nil {
		return fmt.Errorf("load ranking: %w", err)
	}
	warnEmpty(ws, orc)

	var (
		mu      sync.Mutex
		watcher *workspace.Watcher
	)

	sources := make(map[string]struct{})
	for _, f := range *files {
		abs, _ := filepath.Abs(f)
		sources[abs] = struct{}{}
	}

	resortAll := func() {
		for _, f := range *files {
			if _, err := sortFile(orc, f, out); err != nil {
				log.Errorf("failed to sort %q: %s", f, err)
			}
		}
	}

	watchDependencies := func() {
		for _, dep := range ws.RequestedFiles() {
			if err := watcher.WatchFile(dep); err != nil {
				log.Warningf("failed to watch %q: %s", dep, err)
			}
		}
	}

	watcher, err = workspace.NewWatcher(func(path string) {
		mu.Lock()
		defer mu.Unlock()

		if _, ok := sources[path]; ok {
			log.Infof("file %q modified, sorting...", filepath.Base(path))

			if _, err := sortFile(orc, path, out); err != nil {
				log.Errorf("failed to sort %q: %s", path, err)
			}
			return
		}

		log.Infof("%q modified, reloading ranking...", path)

		ws.Cache.Invalidate(path)

		newOrc, err := ws.LoadOracle(ctx)
		if err != nil {
			log.Errorf("failed to reload ranking, keeping the previous one: %s", err)
			return
		}
		orc = newOrc
		warnEmpty(ws, orc)

		watchDependencies()
		resortAll()
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, f := range *files {
		err = watcher.WatchFile(f)
		if err != nil {
			return fmt.Errorf("watch file %q: %w", f, err)
		}
	}

	mu.Lock()
	watchDependencies()
	resortAll()
	mu.Unlock()

	log.Notice("watching files for changes...")

	<-ctx.Done()
	return nil
}
