package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	t.Run("round-trips a token", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "token")
		store, err := NewFileTokenStore(path)
		require.NoError(t, err)

		require.NoError(t, store.Save("header.payload.signature"))

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "header.payload.signature", loaded)
	})

	t.Run("returns empty for a missing file", func(t *testing.T) {
		store, err := NewFileTokenStore(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})

	t.Run("trims surrounding whitespace on load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  tok\n"), 0o600))
		store, err := NewFileTokenStore(path)
		require.NoError(t, err)

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "tok", loaded)
	})

	t.Run("writes with owner-only permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		store, err := NewFileTokenStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Save("tok"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("clear removes the token and tolerates a missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		store, err := NewFileTokenStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Save("tok"))

		require.NoError(t, store.Clear())
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))

		require.NoError(t, store.Clear(), "second clear is a no-op")
	})
}
