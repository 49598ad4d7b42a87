package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
)

// FileLock serializes catalog writers across processes. The lock file sits
// next to the database as <catalog>.lock.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the catalog at dbPath.
func NewFileLock(dbPath string) *FileLock {
	lockPath := dbPath + ".lock"
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking. A lock held by
// another process is reported as a retryable ErrCodeCatalogLocked error.
func (l *FileLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return apperrors.New(apperrors.ErrCodeFilePermission, "failed to create lock directory", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return apperrors.New(apperrors.ErrCodeCatalogOpen, "failed to acquire catalog lock", err)
	}
	if !acquired {
		return apperrors.New(apperrors.ErrCodeCatalogLocked, "catalog is locked by another process", nil).
			WithDetail("lock", l.path)
	}

	l.locked = true
	return nil
}

// Lock acquires the lock, retrying with backoff while another process holds
// it, until ctx is done or the retries run out.
func (l *FileLock) Lock(ctx context.Context, cfg apperrors.RetryConfig) error {
	return apperrors.Retry(ctx, cfg, l.TryLock)
}

// Unlock releases the lock. Calling it on an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// IsLocked reports whether this FileLock holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}
