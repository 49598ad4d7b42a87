package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/config"
	"github.com/Aman-CERP/amanfind/internal/output"
	"github.com/Aman-CERP/amanfind/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index in sync with the catalog",
		Long: `Watch the catalog database and rebuild the search index whenever
another amanfind process changes it. With --source, the given record file
is imported on start and re-imported every time it is saved.

Press Ctrl+C to stop.`,
		Example: `  amanfind watch
  amanfind watch --source records.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, source)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Record file (JSON or YAML) to import whenever it changes")
	return cmd
}

// change is a watcher event with its absolute path.
type change struct {
	path string
	op   watcher.Operation
}

// watchTargets groups the files to watch by directory.
func watchTargets(catalogPath, source, cwd string) map[string][]string {
	targets := make(map[string][]string)
	add := func(path string) {
		dir, name := filepath.Dir(path), filepath.Base(path)
		if !slices.Contains(targets[dir], name) {
			targets[dir] = append(targets[dir], name)
		}
	}
	add(catalogPath)
	add(catalogPath + "-wal")
	if source != "" {
		add(source)
	}
	add(filepath.Join(cwd, config.ProjectConfigName))
	return targets
}

func runWatch(ctx context.Context, cmd *cobra.Command, source string) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	catalogPath, err := filepath.Abs(a.store.Path())
	if err != nil {
		return err
	}
	if source != "" {
		if source, err = filepath.Abs(source); err != nil {
			return err
		}
		if err := importSource(ctx, a, out, source); err != nil {
			return err
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	changes := make(chan []change, 16)
	var watchers []*watcher.HybridWatcher
	defer func() {
		for _, w := range watchers {
			_ = w.Stop()
		}
	}()

	for dir, names := range watchTargets(catalogPath, source, cwd) {
		if _, err := os.Stat(dir); err != nil {
			a.logger.Warn("skipping missing watch directory", slog.String("dir", dir))
			continue
		}
		w, err := watcher.NewHybridWatcher(watcher.Options{
			DebounceWindow: a.cfg.Watch.DebounceDuration(),
			PollInterval:   a.cfg.Watch.PollDuration(),
			Names:          names,
		})
		if err != nil {
			return err
		}
		watchers = append(watchers, w)
		go func() {
			if err := w.Start(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("watcher stopped", slog.String("dir", dir), slog.String("error", err.Error()))
			}
		}()
		go forwardChanges(ctx, w, dir, changes, a.logger)
		a.logger.Info("watching", slog.String("dir", dir), slog.Any("files", names), slog.String("type", w.WatcherType()))
	}

	out.Successf("Watching %s (%d records indexed)", catalogPath, a.engine.Stats().TotalIndexed)
	if source != "" {
		out.Statusf("📄", "Source: %s", source)
	}

	for {
		select {
		case <-ctx.Done():
			out.Status("·", "Stopped watching")
			return nil
		case batch := <-changes:
			if err := handleChanges(ctx, a, out, batch, catalogPath, source); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Keep watching: the next save may fix the problem.
				out.Error(err.Error())
				a.logger.Error("watch update failed", slog.String("error", err.Error()))
			}
		}
	}
}

func forwardChanges(ctx context.Context, w *watcher.HybridWatcher, dir string, changes chan<- []change, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			cs := make([]change, len(batch))
			for i, ev := range batch {
				cs[i] = change{path: filepath.Join(dir, ev.Path), op: ev.Operation}
			}
			select {
			case changes <- cs:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Warn("watcher error", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}
}

// handleChanges re-imports the source file or rebuilds the index as the
// batch requires.
func handleChanges(ctx context.Context, a *app, out *output.Writer, batch []change, catalogPath, source string) error {
	var sourceChanged, catalogChanged, configChanged bool
	for _, c := range batch {
		switch {
		case c.op == watcher.OpConfigChange:
			configChanged = true
		case source != "" && c.path == source:
			if c.op != watcher.OpDelete && c.op != watcher.OpRename {
				sourceChanged = true
			}
		case c.path == catalogPath || c.path == catalogPath+"-wal":
			catalogChanged = true
		}
	}

	if configChanged {
		out.Warning("Configuration changed; restart watch to apply it")
	}
	if sourceChanged {
		return importSource(ctx, a, out, source)
	}
	if catalogChanged {
		return refresh(ctx, a, out)
	}
	return nil
}

// importSource writes the source records into the catalog and re-indexes.
func importSource(ctx context.Context, a *app, out *output.Writer, source string) error {
	records, err := catalog.LoadRecords(source)
	if err != nil {
		return err
	}
	n, err := a.store.PutAll(ctx, records)
	if err != nil {
		return err
	}
	a.logger.Info("source imported", slog.String("source", source), slog.Int("records", n))
	out.Statusf("📥", "Imported %d records from %s", n, filepath.Base(source))
	return refresh(ctx, a, out)
}

// refresh reloads records and interactions written by other processes and
// rebuilds the index.
func refresh(ctx context.Context, a *app, out *output.Writer) error {
	snaps, err := a.store.LoadInteractions(ctx)
	if err != nil {
		return err
	}
	a.interactions.Clear()
	a.interactions.Restore(snaps)

	start := time.Now()
	if err := a.reload(ctx); err != nil {
		return err
	}
	out.Successf("%s Re-indexed %d records in %dms",
		time.Now().Format("15:04:05"), a.engine.Stats().TotalIndexed, time.Since(start).Milliseconds())
	return nil
}
