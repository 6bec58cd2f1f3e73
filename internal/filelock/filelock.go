// Package filelock serializes emuconf processes that modify the settings
// tree, using an advisory lock on a file in the data directory.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when another process holds the lock past the wait.
var ErrLocked = errors.New("settings are locked by another emuconf process")

// retryInterval is how often a contended lock is retried.
const retryInterval = 50 * time.Millisecond

// Lock is a held lock. Release it exactly once.
type Lock struct {
	f *os.File
}

// Acquire takes the lock at path, retrying for up to wait. A zero wait
// tries once.
func Acquire(path string, wait time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		err := lockFile(f)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, ErrLocked) || !time.Now().Before(deadline) {
			f.Close()
			return nil, err
		}
		time.Sleep(retryInterval)
	}
}

// Release unlocks and closes the lock file. The file itself is left in
// place so concurrent acquirers always agree on the inode.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := errors.Join(unlockFile(l.f), l.f.Close())
	l.f = nil
	return err
}
