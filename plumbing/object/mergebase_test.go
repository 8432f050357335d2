package object_test

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash/cache"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage/filesystem"
)

type fixture struct {
	store *filesystem.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{store: filesystem.NewStorage(memfs.New(), cache.DefaultMaxSize)}
}

func (f *fixture) commit(t *testing.T, when int64, message string, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	blob := object.NewBlob([]byte(message))
	blobHash, err := f.store.Store(blob)
	require.NoError(t, err)

	tree := object.NewTree([]object.TreeEntry{{Name: "f.txt", Mode: filemode.Regular, Hash: blobHash}})
	treeHash, err := f.store.Store(tree)
	require.NoError(t, err)

	sig := object.Signature{Name: "Ash", Email: "ash@example.com", When: time.Unix(when, 0)}
	commit := object.NewCommit(treeHash, parents, sig, sig, message)
	hash, err := f.store.Store(commit)
	require.NoError(t, err)
	return hash
}

// TestBasesOfAncestorAndDescendantIsTheAncestor covers boundary scenario 4's
// fast-forward/already-merged case: when one side is already an ancestor of
// the other, the merge base is exactly that ancestor.
func TestBasesOfAncestorAndDescendantIsTheAncestor(t *testing.T) {
	f := newFixture(t)
	root := f.commit(t, 1, "root")
	descendant := f.commit(t, 2, "descendant", root)

	bases, err := object.Bases(f.store, root, []plumbing.Hash{descendant})
	require.NoError(t, err)
	assert.Equal(t, []plumbing.Hash{root}, bases)

	bases, err = object.Bases(f.store, descendant, []plumbing.Hash{root})
	require.NoError(t, err)
	assert.Equal(t, []plumbing.Hash{root}, bases)
}

// TestBasesPrunesNonMaximalCommonAncestor builds a diamond below a shared
// base and checks that the only merge base reported is that base, never the
// more distant root commit (property P6).
func TestBasesPrunesNonMaximalCommonAncestor(t *testing.T) {
	f := newFixture(t)
	root := f.commit(t, 1, "root")
	base := f.commit(t, 2, "base", root)
	left := f.commit(t, 3, "left", base)
	right := f.commit(t, 4, "right", base)

	all, err := object.CommonAncestors(f.store, left, []plumbing.Hash{right})
	require.NoError(t, err)
	assert.Contains(t, all, base)

	bases, err := object.Bases(f.store, left, []plumbing.Hash{right})
	require.NoError(t, err)
	assert.Equal(t, []plumbing.Hash{base}, bases)
}

// TestBasesPrunesRedundantCommonAncestorAcrossMerge exercises a case with
// two common ancestors, one an ancestor of the other: a merge commit that
// pulls the root back in alongside the closer base. The root receives the
// Stale flag propagated from base, so only base is reported.
func TestBasesPrunesRedundantCommonAncestorAcrossMerge(t *testing.T) {
	f := newFixture(t)
	root := f.commit(t, 1, "root")
	base := f.commit(t, 2, "base", root)
	left := f.commit(t, 3, "left", base)
	// right merges base and root directly, so both are common ancestors of
	// left and right, but root is itself an ancestor of base.
	right := f.commit(t, 4, "right", base, root)

	all, err := object.CommonAncestors(f.store, left, []plumbing.Hash{right})
	require.NoError(t, err)
	assert.Contains(t, all, base)

	bases, err := object.Bases(f.store, left, []plumbing.Hash{right})
	require.NoError(t, err)
	assert.Equal(t, []plumbing.Hash{base}, bases, "root is an ancestor of base and must be pruned from the merge base result")
	assert.NotContains(t, bases, root, "root is an ancestor of base and must not survive as a merge base")
}

func TestIsAncestorTrueAndFalseCases(t *testing.T) {
	f := newFixture(t)
	root := f.commit(t, 1, "root")
	child := f.commit(t, 2, "child", root)
	unrelated := f.commit(t, 1, "unrelated")

	ok, err := object.IsAncestor(f.store, root, child)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = object.IsAncestor(f.store, child, root)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = object.IsAncestor(f.store, root, unrelated)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = object.IsAncestor(f.store, root, root)
	require.NoError(t, err)
	assert.True(t, ok)
}
