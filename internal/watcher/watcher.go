package watcher

import (
	"context"
	"path/filepath"
	"slices"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a watched file appeared.
	OpCreate Operation = iota
	// OpModify indicates a watched file was written.
	OpModify
	// OpDelete indicates a watched file was removed.
	OpDelete
	// OpRename indicates a watched file was renamed away.
	OpRename
	// OpConfigChange indicates the project config file changed.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change to a watched file.
type FileEvent struct {
	// Path is the file name relative to the watched directory.
	Path string

	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher is the contract shared by the fsnotify and polling
// implementations.
type Watcher interface {
	// Start watches dir until ctx is cancelled or Stop is called.
	Start(ctx context.Context, dir string) error

	// Stop releases resources. Safe to call multiple times.
	Stop() error

	// Events delivers debounced batches. Closed on Stop.
	Events() <-chan []FileEvent

	// Errors delivers non-fatal errors. Closed on Stop.
	Errors() <-chan error
}

// DefaultConfigNames are the project config file names that produce
// OpConfigChange instead of a plain file event.
var DefaultConfigNames = []string{".amanfind.yaml", ".amanfind.yml"}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval in polling mode.
	// Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the size of the batch channel buffer.
	// Default: 64
	EventBufferSize int

	// Names restricts events to these base names. Empty means every
	// regular file in the directory.
	Names []string

	// ConfigNames are reported as OpConfigChange. Nil means
	// DefaultConfigNames.
	ConfigNames []string

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 64,
		ConfigNames:     DefaultConfigNames,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.ConfigNames == nil {
		o.ConfigNames = defaults.ConfigNames
	}
	return o
}

// isConfig reports whether name is one of the config file names.
func (o Options) isConfig(name string) bool {
	return slices.Contains(o.ConfigNames, filepath.Base(name))
}

// accepts reports whether an event for name should be emitted at all.
// Config files always pass so that a config edit can be acted on.
func (o Options) accepts(name string) bool {
	base := filepath.Base(name)
	if base == "." || base == "" {
		return false
	}
	if o.isConfig(base) {
		return true
	}
	if len(o.Names) == 0 {
		return true
	}
	return slices.Contains(o.Names, base)
}

// classify turns a raw operation into the emitted one.
func (o Options) classify(name string, op Operation) Operation {
	if o.isConfig(name) {
		return OpConfigChange
	}
	return op
}
