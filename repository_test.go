package ash_test

import (
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash"
	"github.com/ash-vcs/ash/config"
	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
	"github.com/ash-vcs/ash/plumbing/object"
)

func TestInitUnbornHeadResolvesToMasterBranch(t *testing.T) {
	worktreeFS := memfs.New()
	repo, err := ash.Init(worktreeFS)
	require.NoError(t, err)

	ref, err := repo.CurrentRef()
	require.NoError(t, err)
	assert.False(t, ash.IsDetached(ref))
	assert.Equal(t, plumbing.NewBranchReferenceName("master"), ref.Target())

	f, err := worktreeFS.Open(".ash/HEAD")
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/master\n", string(content))
}

func TestCommitAndResolveRoundTrip(t *testing.T) {
	repo, err := ash.Init(memfs.New())
	require.NoError(t, err)

	blob := object.NewBlob([]byte("hello"))
	blobHash, err := repo.Store(blob)
	require.NoError(t, err)

	tree := object.NewTree([]object.TreeEntry{{Name: "a.txt", Mode: filemode.Regular, Hash: blobHash}})
	treeHash, err := repo.Store(tree)
	require.NoError(t, err)

	identity := &config.Identity{Name: "Ash", Email: "ash@example.com"}
	commit, err := repo.NewCommit(treeHash, nil, "initial commit", identity)
	require.NoError(t, err)
	commitHash, err := repo.Store(commit)
	require.NoError(t, err)

	require.NoError(t, repo.CreateBranch("master", commitHash))
	require.NoError(t, repo.SetHead("master", commitHash))

	resolved, err := repo.ResolveCommit("master")
	require.NoError(t, err)
	assert.Equal(t, commitHash, resolved)

	loaded, err := repo.Load(commitHash)
	require.NoError(t, err)
	loadedCommit, ok := loaded.(*object.Commit)
	require.True(t, ok)
	assert.Equal(t, "initial commit", loadedCommit.Message)
}

func TestTreeDiffAndMigrationBetweenCommits(t *testing.T) {
	repo, err := ash.Init(memfs.New())
	require.NoError(t, err)

	v1, err := repo.Store(object.NewBlob([]byte("one")))
	require.NoError(t, err)
	tree1, err := repo.Store(object.NewTree([]object.TreeEntry{{Name: "f.txt", Mode: filemode.Regular, Hash: v1}}))
	require.NoError(t, err)

	v2, err := repo.Store(object.NewBlob([]byte("two")))
	require.NoError(t, err)
	tree2, err := repo.Store(object.NewTree([]object.TreeEntry{
		{Name: "f.txt", Mode: filemode.Regular, Hash: v2},
		{Name: "g.txt", Mode: filemode.Regular, Hash: v1},
	}))
	require.NoError(t, err)

	changes, err := repo.TreeDiff(tree1, tree2, pathspec.New())
	require.NoError(t, err)
	require.Len(t, changes, 2)

	idx, granted, err := repo.LoadIndexForUpdate()
	require.NoError(t, err)
	require.True(t, granted)

	migration := repo.Migration(idx, changes)
	require.NoError(t, migration.Apply())
	assert.Empty(t, migration.Errors)
	require.NoError(t, idx.WriteUpdates())

	data, err := repo.Worktree.ReadFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	data, err = repo.Worktree.ReadFile("g.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestPendingMergeMarkerRoundTrip(t *testing.T) {
	repo, err := ash.Init(memfs.New())
	require.NoError(t, err)

	_, err = repo.ReadPending(ash.PendingMerge)
	assert.ErrorIs(t, err, ash.ErrNoPendingOperation)

	oid, err := repo.Store(object.NewBlob([]byte("merge source")))
	require.NoError(t, err)

	require.NoError(t, repo.WritePending(ash.PendingMerge, oid))
	got, err := repo.ReadPending(ash.PendingMerge)
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	require.NoError(t, repo.WriteMergeMessage("Merge branch 'feature'"))
	msg, err := repo.ReadMergeMessage()
	require.NoError(t, err)
	assert.Equal(t, "Merge branch 'feature'", msg)

	require.NoError(t, repo.ClearPending(ash.PendingMerge))
	require.NoError(t, repo.ClearMergeMessage())

	_, err = repo.ReadPending(ash.PendingMerge)
	assert.ErrorIs(t, err, ash.ErrNoPendingOperation)
	_, err = repo.ReadMergeMessage()
	assert.ErrorIs(t, err, ash.ErrNoPendingOperation)
}
