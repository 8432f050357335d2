package worktree_test

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing/filemode"
	"github.com/ash-vcs/ash/worktree"
)

func TestWriteFileThenReadFileRoundTrip(t *testing.T) {
	ws := worktree.New(memfs.New())

	require.NoError(t, ws.WriteFile("a/b/c.txt", []byte("hello"), filemode.Regular))

	got, err := ws.ReadFile("a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestReadFileOnDirectoryErrors(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("dir/file.txt", []byte("x"), filemode.Regular))

	_, err := ws.ReadFile("dir")
	assert.ErrorIs(t, err, worktree.ErrIsDirectory)
}

func TestListFilesExcludesMetaDirAndSortsLexicographically(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("b.txt", []byte("1"), filemode.Regular))
	require.NoError(t, ws.WriteFile("a.txt", []byte("1"), filemode.Regular))
	require.NoError(t, ws.WriteFile(".ash/config", []byte("1"), filemode.Regular))
	require.NoError(t, ws.WriteFile("dir/nested.txt", []byte("1"), filemode.Regular))

	files, err := ws.ListFiles(pathspec.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.txt", "dir/nested.txt"}, files)
}

func TestExistsDistinguishesFileDirAndAbsent(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("dir/file.txt", []byte("1"), filemode.Regular))

	isDir, exists, err := ws.Exists("dir")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, isDir)

	isDir, exists, err = ws.Exists("dir/file.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.False(t, isDir)

	_, exists, err = ws.Exists("missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStatFileReportsSizeAndMode(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("f.txt", []byte("hello"), filemode.Regular))

	st, err := ws.StatFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)
	assert.Equal(t, filemode.Regular, st.Mode)
}

func TestRemoveDeletesEmptyParents(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("dir/sub/f.txt", []byte("1"), filemode.Regular))

	require.NoError(t, ws.Remove("dir/sub/f.txt"))

	_, exists, err := ws.Exists("dir")
	require.NoError(t, err)
	assert.False(t, exists, "emptied parent directories should be pruned")
}

func TestRemoveKeepsNonEmptyParent(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("dir/a.txt", []byte("1"), filemode.Regular))
	require.NoError(t, ws.WriteFile("dir/b.txt", []byte("1"), filemode.Regular))

	require.NoError(t, ws.Remove("dir/a.txt"))

	_, exists, err := ws.Exists("dir")
	require.NoError(t, err)
	assert.True(t, exists)
	_, exists, err = ws.Exists("dir/b.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}
