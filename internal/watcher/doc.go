// Package watcher reports changes to the handful of files amanfind cares
// about: the catalog database, its write-ahead log, record import files and
// the project config.
//
// Watching is hybrid. fsnotify is used when available, with polling as a
// fallback for filesystems where it fails (network mounts, some container
// volumes). Only the directory that holds the files is watched, never a
// tree, because SQLite and most editors replace files by rename.
//
// Events are debounced into batches so that a burst of catalog writes
// triggers one index rebuild:
//
//	w, err := watcher.NewHybridWatcher(watcher.Options{
//	    Names: []string{"catalog.db", "catalog.db-wal"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, dir)
//	for batch := range w.Events() {
//	    // rebuild
//	}
package watcher
