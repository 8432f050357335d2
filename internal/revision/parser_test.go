package revision_test

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash/cache"
	"github.com/ash-vcs/ash/internal/revision"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage/filesystem"
)

type fixture struct {
	store  *filesystem.Storage
	parser *revision.Parser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := filesystem.NewStorage(memfs.New(), cache.DefaultMaxSize)
	return &fixture{store: store, parser: revision.New(store, store)}
}

func (f *fixture) commit(t *testing.T, message string, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	blob := object.NewBlob([]byte(message))
	blobHash, err := f.store.Store(blob)
	require.NoError(t, err)

	tree := object.NewTree([]object.TreeEntry{{Name: "f.txt", Mode: filemode.Regular, Hash: blobHash}})
	treeHash, err := f.store.Store(tree)
	require.NoError(t, err)

	sig := object.Signature{Name: "Ash", Email: "ash@example.com", When: time.Unix(0, 0)}
	commit := object.NewCommit(treeHash, parents, sig, sig, message)
	hash, err := f.store.Store(commit)
	require.NoError(t, err)
	return hash
}

func TestResolveHeadAfterUpdateRef(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "first")
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, c1))

	got, err := f.parser.Resolve("HEAD")
	require.NoError(t, err)
	assert.Equal(t, c1, got)

	got, err = f.parser.Resolve("@")
	require.NoError(t, err)
	assert.Equal(t, c1, got)
}

func TestResolveBranchName(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "first")
	require.NoError(t, f.store.CreateBranch("main", c1))

	got, err := f.parser.Resolve("main")
	require.NoError(t, err)
	assert.Equal(t, c1, got)
}

func TestResolveOIDPrefix(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "first")

	got, err := f.parser.Resolve(c1.String()[:10])
	require.NoError(t, err)
	assert.Equal(t, c1, got)
}

func TestResolveCaretWalksFirstParent(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "first")
	c2 := f.commit(t, "second", c1)
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, c2))

	got, err := f.parser.Resolve("HEAD^")
	require.NoError(t, err)
	assert.Equal(t, c1, got)

	got, err = f.parser.Resolve("HEAD^0")
	require.NoError(t, err)
	assert.Equal(t, c2, got)
}

func TestResolveTildeWalksNGenerations(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "first")
	c2 := f.commit(t, "second", c1)
	c3 := f.commit(t, "third", c2)
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, c3))

	got, err := f.parser.Resolve("HEAD~2")
	require.NoError(t, err)
	assert.Equal(t, c1, got)
}

func TestResolveSecondParentViaCaretN(t *testing.T) {
	f := newFixture(t)
	parent1 := f.commit(t, "p1")
	parent2 := f.commit(t, "p2")
	merge := f.commit(t, "merge", parent1, parent2)
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, merge))

	got, err := f.parser.Resolve("HEAD^2")
	require.NoError(t, err)
	assert.Equal(t, parent2, got)
}

func TestResolveTildeRequiresGenerationCount(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "first")
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, c1))

	_, err := f.parser.Resolve("HEAD~")
	assert.ErrorIs(t, err, revision.ErrSyntax)
}

func TestResolveUnknownNameRecordsNotFoundHint(t *testing.T) {
	f := newFixture(t)

	_, err := f.parser.Resolve("nonexistent")
	assert.ErrorIs(t, err, revision.ErrNotFound)
	require.NotEmpty(t, f.parser.Hints)
	assert.Equal(t, revision.HintNotFound, f.parser.Hints[len(f.parser.Hints)-1].Kind)
}

func TestResolveCommitRejectsNonCommit(t *testing.T) {
	f := newFixture(t)
	blobHash, err := f.store.Store(object.NewBlob([]byte("just a blob")))
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, blobHash))

	_, err = f.parser.ResolveCommit("HEAD")
	assert.ErrorIs(t, err, revision.ErrNotCommit)
}

func TestResolveWalkingPastRootCommitFails(t *testing.T) {
	f := newFixture(t)
	c1 := f.commit(t, "root")
	require.NoError(t, f.store.UpdateRef(plumbing.HEAD, c1))

	_, err := f.parser.Resolve("HEAD^")
	assert.ErrorIs(t, err, revision.ErrNoParent)
}
