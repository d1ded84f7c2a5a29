package locks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultRetryDelay is how long Lock waits between attempts.
const DefaultRetryDelay = 50 * time.Millisecond

// FileMutex provides file-based mutual exclusion between templatesync
// processes sharing a config or cache directory, e.g. parallel CI jobs.
// The lock is automatically released if the holding process dies.
//
// See:
//   - Linux: https://linux.die.net/man/2/flock
//   - Windows: https://docs.microsoft.com/en-us/windows/win32/api/fileapi/nf-fileapi-lockfileex
type FileMutex struct {
	path string
	mu   *flock.Flock
}

// New returns a mutex backed by the lock file at path. The file is created on
// first use.
func New(path string) *FileMutex {
	return &FileMutex{path: path, mu: flock.New(path)}
}

// For returns the mutex guarding target, backed by target + ".lock".
func For(target string) *FileMutex {
	return New(target + ".lock")
}

type TryLockResult struct {
	Attempt int
	Error   error
	Success bool
}

// TryLock attempts to take the lock every retryDelay and reports each
// attempt. The channel is closed after a success or an error.
func (m *FileMutex) TryLock(ctx context.Context, retryDelay time.Duration) <-chan TryLockResult {
	ch := make(chan TryLockResult)
	go func() {
		defer close(ch)

		if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
			ch <- TryLockResult{Error: fmt.Errorf("failed to create lock directory: %w", err)}
			return
		}

		for attempt := 0; ; attempt++ {
			ok, err := m.mu.TryLock()
			if err != nil {
				ch <- TryLockResult{Attempt: attempt, Error: fmt.Errorf("failed to acquire lock %s (pid %d): %w", m.path, os.Getpid(), err)}
				return
			}
			if ok {
				ch <- TryLockResult{Attempt: attempt, Success: true}
				return
			}

			select {
			case <-ctx.Done():
				ch <- TryLockResult{Attempt: attempt, Error: ctx.Err()}
				return
			case <-time.After(retryDelay):
				ch <- TryLockResult{Attempt: attempt, Success: false}
			}
		}
	}()
	return ch
}

// Lock blocks until the lock is held or ctx is done.
func (m *FileMutex) Lock(ctx context.Context) error {
	for result := range m.TryLock(ctx, DefaultRetryDelay) {
		if result.Error != nil {
			return result.Error
		}
		if result.Success {
			return nil
		}
	}
	return fmt.Errorf("failed to acquire lock %s", m.path)
}

func (m *FileMutex) Unlock() error {
	return m.mu.Unlock()
}

// WithLock runs fn while holding the lock for target.
func WithLock(ctx context.Context, target string, fn func() error) error {
	m := For(target)
	if err := m.Lock(ctx); err != nil {
		return err
	}
	defer m.Unlock()

	return fn()
}
