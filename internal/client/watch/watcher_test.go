package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string, onChange func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewStoreWatcher(path, 50*time.Millisecond, onChange, logging.Discard())
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
}

func TestStoreWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moneyxfer.db")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0o600))

	var calls atomic.Int32
	startWatcher(t, path, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o600))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStoreWatcher_FiltersByName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moneyxfer.db")

	var calls atomic.Int32
	startWatcher(t, path, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	require.Zero(t, calls.Load())

	require.NoError(t, os.WriteFile(path+"-journal", []byte("x"), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStoreWatcher_MissingDirectory(t *testing.T) {
	w := NewStoreWatcher(filepath.Join(t.TempDir(), "nope", "x.db"), 0, func(context.Context) error { return nil }, nil)
	require.Error(t, w.Run(context.Background()))
}

func TestRelevant(t *testing.T) {
	w := NewStoreWatcher("/tmp/data/moneyxfer.db", 0, nil, nil)
	assert.True(t, w.relevant("/tmp/data/moneyxfer.db"))
	assert.True(t, w.relevant("/tmp/data/moneyxfer.db-wal"))
	assert.True(t, w.relevant("/tmp/data/moneyxfer.db-journal"))
	assert.False(t, w.relevant("/tmp/data/moneyxfer.dbx"))
	assert.False(t, w.relevant("/tmp/data/other.db"))
}
