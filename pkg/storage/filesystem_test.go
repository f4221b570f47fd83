package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("scratch/note.txt", []byte("hello"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))
}

func TestSaveAtomicReplacesContent(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveAtomic("state.json", []byte(`{"v":1}`))
	require.NoError(t, err)
	path, err := store.SaveAtomic("state.json", []byte(`{"v":2}`))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(raw))

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "agenda.db")
	require.NoError(t, os.WriteFile(src, []byte("database bytes"), 0o600))

	store, err := NewLocalStorage(filepath.Join(dir, "data"))
	require.NoError(t, err)

	path, err := store.CopyFile(src, "snapshot.db")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "database bytes", string(raw))
}

func TestDeleteMissingFileIsNoop(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Delete("never-existed.txt"))
}

func TestCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	oldPath, err := store.Save("scratch/old.db", []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))
	_, err = store.Save("scratch/fresh.db", []byte("fresh"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan("scratch", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.db"}, deleted)
	_, err = os.Stat(store.Path("scratch/fresh.db"))
	require.NoError(t, err)
}
