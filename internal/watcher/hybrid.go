package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher watches one directory with fsnotify, falling back to
// polling when fsnotify cannot be created or cannot watch the directory.
// Raw events are filtered by Options.Names and debounced into batches.
type HybridWatcher struct {
	opts      Options
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	logger    *slog.Logger

	mu          sync.RWMutex
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	dir         string
	stopped     bool

	droppedBatches atomic.Uint64
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher creates a watcher. fsnotify is tried first unless
// opts.ForcePolling is set.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		logger:    slog.Default(),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
		} else {
			h.logger.Warn("fsnotify unavailable, using polling", slog.String("error", err.Error()))
		}
	}
	if h.fsWatcher == nil {
		h.pollWatcher = NewPollingWatcher(opts.PollInterval)
	}
	return h, nil
}

// Start watches dir and blocks until ctx is cancelled or Stop is called.
func (h *HybridWatcher) Start(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target %s is not a directory", absDir)
	}

	h.mu.Lock()
	h.dir = absDir
	if h.fsWatcher != nil {
		if err := h.fsWatcher.Add(absDir); err != nil {
			h.logger.Warn("fsnotify add failed, using polling",
				slog.String("dir", absDir),
				slog.String("error", err.Error()))
			_ = h.fsWatcher.Close()
			h.fsWatcher = nil
			h.pollWatcher = NewPollingWatcher(h.opts.PollInterval)
		}
	}
	fsw, poll := h.fsWatcher, h.pollWatcher
	h.mu.Unlock()

	go h.forward(ctx)

	if fsw != nil {
		return h.runFsnotify(ctx, fsw)
	}
	return h.runPolling(ctx, poll, absDir)
}

func (h *HybridWatcher) runFsnotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			h.handleFsnotify(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) runPolling(ctx context.Context, poll *PollingWatcher, dir string) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-poll.Events():
				if !ok {
					return
				}
				h.add(event.Path, event.Operation)
			case err, ok := <-poll.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()
	err := poll.Start(ctx, dir)
	if ctx.Err() != nil {
		_ = h.Stop()
	}
	return err
}

// handleFsnotify maps an fsnotify event onto an Operation. Chmod is
// ignored; directories are skipped.
func (h *HybridWatcher) handleFsnotify(event fsnotify.Event) {
	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	if op == OpCreate || op == OpModify {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return
		}
	}
	h.add(filepath.Base(event.Name), op)
}

// add filters and queues one raw event.
func (h *HybridWatcher) add(name string, op Operation) {
	if !h.opts.accepts(name) {
		return
	}
	h.debouncer.Add(FileEvent{
		Path:      name,
		Operation: h.opts.classify(name, op),
		Timestamp: time.Now(),
	})
}

func (h *HybridWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				h.emitEvents(batch)
			}
		}
	}
}

func (h *HybridWatcher) emitEvents(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	select {
	case h.events <- batch:
	default:
		count := h.droppedBatches.Add(1)
		h.logger.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// DroppedBatches returns the number of batches dropped on a full buffer.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

// Stop stops the watcher and closes Events and Errors.
// Safe to call multiple times.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)
	h.debouncer.Stop()

	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// Dir returns the watched directory, empty before Start.
func (h *HybridWatcher) Dir() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dir
}
