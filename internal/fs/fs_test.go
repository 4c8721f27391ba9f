package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOS_CreateRenameRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "left", "ptr-000000.bin")

	f, err := Default.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte("SPTR"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	entries, err := Default.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ptr-000000.bin", entries[0].Name())

	moved := filepath.Join(dir, "moved.bin")
	require.NoError(t, Default.Rename(path, moved))
	data, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, []byte("SPTR"), data)

	// Create truncates.
	f, err = Default.Create(moved)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	data, err = os.ReadFile(moved)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, Default.Remove(moved))
	assert.ErrorIs(t, Default.Remove(moved), os.ErrNotExist)
}

func TestFaultyFS_FailAfterBytes(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("data-", Fault{FailAfterBytes: 5})

	f, err := ffs.Create(filepath.Join(dir, "data-000000.bin"))
	require.NoError(t, err)

	_, err = f.Write([]byte("ACG"))
	require.NoError(t, err)
	_, err = f.Write([]byte("TAC"))
	assert.ErrorIs(t, err, ErrInjected)
	require.NoError(t, f.Close())
	assert.Equal(t, int64(3), ffs.Written())

	// Files not matching any rule are unaffected.
	g, err := ffs.Create(filepath.Join(dir, "ptr-000000.bin"))
	require.NoError(t, err)
	_, err = g.Write(make([]byte, 64))
	require.NoError(t, err)
	require.NoError(t, g.Close())
}

func TestFaultyFS_LongestPatternWins(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(OS{})
	ffs.AddRule("data-", Fault{FailAfterBytes: 0})
	ffs.AddRule("right/data-", Fault{FailAfterBytes: -1})

	f, err := ffs.Create(filepath.Join(dir, "right", "data-000000.bin"))
	require.NoError(t, err)
	_, err = f.Write([]byte("ACGT"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = ffs.Create(filepath.Join(dir, "left", "data-000000.bin"))
	require.NoError(t, err)
	_, err = f.Write([]byte("ACGT"))
	assert.ErrorIs(t, err, ErrInjected)
	require.NoError(t, f.Close())
}

func TestFaultyFS_SyncCloseRename(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("disk full")
	ffs := NewFaultyFS(OS{})
	ffs.AddRule("INDEX", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnRename: true, Err: boom})
	ffs.AddRule("LOOKUP", Fault{FailAfterBytes: -1, FailOnClose: true})

	f, err := ffs.Create(filepath.Join(dir, "INDEX.tmp"))
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())
	assert.ErrorIs(t, ffs.Rename(filepath.Join(dir, "INDEX.tmp"), filepath.Join(dir, "INDEX")), boom)

	l, err := ffs.Create(filepath.Join(dir, "LOOKUP"))
	require.NoError(t, err)
	assert.ErrorIs(t, l.Close(), ErrInjected)
}
