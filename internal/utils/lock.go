package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 100 * time.Millisecond
)

// JournalLock is a file lock guarding the change journal so two processes
// never diff against the same snapshot at once.
type JournalLock struct {
	lock *flock.Flock
	path string
}

func NewJournalLock(journalPath string) (*JournalLock, error) {
	absPath, err := GetAbsJournalPath(journalPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute journal path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &JournalLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock, waiting for the holder to release it until ctx
// is done.
func (l *JournalLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if locked {
		return nil
	}

	Log.Warnf("Another smartplaces process is writing the journal, waiting for it to finish...")
	locked, err = l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s after waiting", l.path)
	}
	return nil
}

func (l *JournalLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsJournalPath resolves the journal path, defaulting to
// ~/.config/smartplaces/journal.sqlite. The parent directory is created.
func GetAbsJournalPath(journalPath string) (string, error) {
	var (
		p   string
		err error
	)
	if journalPath == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", herr
		}
		p = filepath.Join(home, ".config", "smartplaces", "journal.sqlite")
	} else if p, err = filepath.Abs(journalPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, nil
}
