package index_test

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash/index"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/worktree"
)

func hashOf(b byte) plumbing.Hash {
	var h plumbing.Hash
	h[0] = b
	return h
}

func TestLoadOnMissingIndexIsEmpty(t *testing.T) {
	fs := memfs.New()
	m, err := index.Load(fs)
	require.NoError(t, err)
	assert.Empty(t, m.EntriesIter())
}

func TestAddThenWriteUpdatesThenLoadRoundTrips(t *testing.T) {
	fs := memfs.New()

	m, granted, err := index.LoadForUpdate(fs)
	require.NoError(t, err)
	require.True(t, granted)

	blob := object.NewBlob([]byte("hi"))
	require.NoError(t, m.Add("a.txt", blob, worktree.Stat{Size: 2}))
	require.NoError(t, m.WriteUpdates())

	reloaded, err := index.Load(fs)
	require.NoError(t, err)
	entries := reloaded.EntriesIter()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.True(t, reloaded.TrackedFile("a.txt"))
}

func TestLoadForUpdateRefusesWhenAlreadyLocked(t *testing.T) {
	fs := memfs.New()

	_, granted, err := index.LoadForUpdate(fs)
	require.NoError(t, err)
	require.True(t, granted)

	_, granted, err = index.LoadForUpdate(fs)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestAddReplacesFileWithDirectoryAndViceVersa(t *testing.T) {
	m, _, err := index.LoadForUpdate(memfs.New())
	require.NoError(t, err)

	blob := object.NewBlob([]byte("x"))
	require.NoError(t, m.Add("a", blob, worktree.Stat{}))
	require.NoError(t, m.Add("a/b", blob, worktree.Stat{}))

	assert.False(t, m.TrackedFile("a"), "adding a/b should evict the file entry it replaces")
	assert.True(t, m.TrackedFile("a/b"))

	require.NoError(t, m.Add("a", blob, worktree.Stat{}))

	assert.True(t, m.TrackedFile("a"))
	assert.False(t, m.TrackedFile("a/b"), "adding a should evict the entry beneath it")
}

func TestRemoveDropsDescendants(t *testing.T) {
	m, _, err := index.LoadForUpdate(memfs.New())
	require.NoError(t, err)

	blob := object.NewBlob([]byte("x"))
	require.NoError(t, m.Add("dir/a.txt", blob, worktree.Stat{}))
	require.NoError(t, m.Add("dir/b.txt", blob, worktree.Stat{}))

	m.Remove("dir/a.txt")

	assert.False(t, m.TrackedFile("dir/a.txt"))
	assert.True(t, m.TrackedFile("dir/b.txt"))

	m.Remove("dir")

	assert.False(t, m.TrackedFile("dir/b.txt"), "removing dir should drop the entries beneath it")
}

func TestStatMatchesDetectsDivergence(t *testing.T) {
	m, _, err := index.LoadForUpdate(memfs.New())
	require.NoError(t, err)

	blob := object.NewBlob([]byte("x"))
	stat := worktree.Stat{
		Size:  1,
		UID:   501,
		GID:   20,
		Dev:   1,
		Inode: 42,
	}
	require.NoError(t, m.Add("a.txt", blob, stat))

	assert.True(t, m.StatMatches("a.txt", stat))
	assert.False(t, m.StatMatches("a.txt", worktree.Stat{Size: 2, UID: stat.UID, GID: stat.GID, Dev: stat.Dev, Inode: stat.Inode}), "size mismatch must be detected")

	diverged := stat
	diverged.UID = 999
	assert.False(t, m.StatMatches("a.txt", diverged), "uid mismatch must be detected")

	diverged = stat
	diverged.GID = 999
	assert.False(t, m.StatMatches("a.txt", diverged), "gid mismatch must be detected")

	diverged = stat
	diverged.Dev = 999
	assert.False(t, m.StatMatches("a.txt", diverged), "dev mismatch must be detected")

	diverged = stat
	diverged.Inode = 999
	assert.False(t, m.StatMatches("a.txt", diverged), "inode mismatch must be detected")

	diverged = stat
	diverged.CreatedAt = worktree.Timespec{Sec: 1}
	assert.False(t, m.StatMatches("a.txt", diverged), "ctime mismatch must be detected")

	diverged = stat
	diverged.ModifiedAt = worktree.Timespec{Sec: 1}
	assert.False(t, m.StatMatches("a.txt", diverged), "mtime mismatch must be detected")
}

func TestConflictAddThenHasConflicts(t *testing.T) {
	m, _, err := index.LoadForUpdate(memfs.New())
	require.NoError(t, err)

	m.ConflictAdd("a.txt", nil,
		&index.StageEntry{Hash: hashOf(1)},
		&index.StageEntry{Hash: hashOf(2)})

	assert.True(t, m.HasConflicts())
	assert.False(t, m.TrackedFile("a.txt"))
}

func TestChildPaths(t *testing.T) {
	m, _, err := index.LoadForUpdate(memfs.New())
	require.NoError(t, err)

	blob := object.NewBlob([]byte("x"))
	require.NoError(t, m.Add("dir/a.txt", blob, worktree.Stat{}))
	require.NoError(t, m.Add("dir/sub/b.txt", blob, worktree.Stat{}))

	assert.Equal(t, []string{"a.txt", "sub"}, m.ChildPaths("dir"))
}

func TestAddAllHashesConcurrentlyPreservingOrder(t *testing.T) {
	ws := worktree.New(memfs.New())
	require.NoError(t, ws.WriteFile("a.txt", []byte("aa"), filemode.Regular))
	require.NoError(t, ws.WriteFile("b.txt", []byte("bbb"), filemode.Regular))

	m, _, err := index.LoadForUpdate(memfs.New())
	require.NoError(t, err)

	err = m.AddAll(ws, []string{"a.txt", "b.txt"}, func(data []byte) (object.Object, error) {
		return object.NewBlob(data), nil
	})
	require.NoError(t, err)

	assert.True(t, m.TrackedFile("a.txt"))
	assert.True(t, m.TrackedFile("b.txt"))
}
