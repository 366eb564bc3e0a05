package utils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	defer Log.SetLevel(logrus.InfoLevel)

	require.NoError(t, SetLogLevel("DEBUG"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	require.NoError(t, SetLogLevel("warn"))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
	assert.Error(t, SetLogLevel("verbose"))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
}

func TestJournalLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.sqlite")

	abs, err := GetAbsJournalPath(path)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(abs))

	first, err := NewJournalLock(path)
	require.NoError(t, err)
	require.NoError(t, first.Lock(context.Background()))

	second, err := NewJournalLock(path)
	require.NoError(t, err)
	locked, err := second.lock.TryLock()
	require.NoError(t, err)
	assert.False(t, locked, "lock must be exclusive")

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock(context.Background()))
	require.NoError(t, second.Unlock())
}

func TestJournalLockGivesUpWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.sqlite")
	l, err := NewJournalLock(path)
	require.NoError(t, err)

	holder := flock.New(l.path)
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = l.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
