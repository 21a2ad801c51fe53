package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)

	_, err = s.Load(ctx, StudentsKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx,
		Entry{Key: StudentsKey, Data: []byte(`[]`)},
		Entry{Key: "snapshots/20240601T030000/" + BookingsKey, Data: []byte(`[1]`)},
	))

	got, err := s.Load(ctx, StudentsKey)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	info, err := os.Stat(filepath.Join(dir, StudentsKey+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	keys, err := s.List(ctx, "snapshots/")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/20240601T030000/" + BookingsKey}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, keys...))
	require.NoError(t, s.Delete(ctx, "missing"))
	_, err = s.Load(ctx, keys[0])
	assert.ErrorIs(t, err, ErrNotFound)

	// No temp files survive a save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../x", "/etc/passwd", `a\b`} {
		assert.Error(t, s.Save(context.Background(), Entry{Key: key, Data: []byte("x")}), key)
	}
}

func TestMemoryStoreFailSaveLeavesDataUntouched(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, Entry{Key: StudentsKey, Data: []byte("a")}))

	m.FailSave = assert.AnError
	assert.ErrorIs(t, m.Save(ctx, Entry{Key: StudentsKey, Data: []byte("b")}), assert.AnError)

	got, err := m.Load(ctx, StudentsKey)
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}
