package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/codemine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "directory created")
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestRunIDFromKey(t *testing.T) {
	tests := []struct {
		runID string
	}{
		{"run-1"},
		{""},
		{"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"},
	}

	for _, tt := range tests {
		t.Run(tt.runID, func(t *testing.T) {
			got, ok := runIDFromKey(makeAuditRunKey(tt.runID, 42))
			require.True(t, ok)
			assert.Equal(t, tt.runID, got)
		})
	}

	_, ok := runIDFromKey([]byte("audrun:"))
	assert.False(t, ok)
}
