package filesystem_test

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ash-vcs/ash/cache"
	"github.com/ash-vcs/ash/internal/pathspec"
	"github.com/ash-vcs/ash/plumbing"
	"github.com/ash-vcs/ash/plumbing/filemode"
	"github.com/ash-vcs/ash/plumbing/object"
	"github.com/ash-vcs/ash/storage"
	"github.com/ash-vcs/ash/storage/filesystem"
)

func newStore() *filesystem.ObjectStorage {
	return filesystem.NewObjectStorage(memfs.New(), cache.NewObjects(cache.DefaultMaxSize))
}

func TestStoreThenLoadRoundTrip(t *testing.T) {
	s := newStore()
	blob := object.NewBlob([]byte("hello world"))

	oid, err := s.Store(blob)
	require.NoError(t, err)

	loaded, err := s.Load(oid)
	require.NoError(t, err)
	got, ok := loaded.(*object.Blob)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(got.Bytes()))
}

func TestStoreIsIdempotent(t *testing.T) {
	s := newStore()
	blob := object.NewBlob([]byte("same content"))

	first, err := s.Store(blob)
	require.NoError(t, err)
	second, err := s.Store(object.NewBlob([]byte("same content")))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadMissingObjectReturnsErrNotFound(t *testing.T) {
	s := newStore()
	_, err := s.Load(plumbing.ZeroHash)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExists(t *testing.T) {
	s := newStore()
	blob := object.NewBlob([]byte("x"))
	oid, err := s.Store(blob)
	require.NoError(t, err)

	ok, err := s.Exists(oid)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(plumbing.ZeroHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShortNameAndResolveRoundTrip(t *testing.T) {
	s := newStore()
	oid, err := s.Store(object.NewBlob([]byte("unique content")))
	require.NoError(t, err)

	short, err := s.ShortName(oid, 7)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(short), len(oid.String()))

	resolved, err := s.Resolve(short)
	require.NoError(t, err)
	assert.Equal(t, oid, resolved)
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	s := newStore()
	oid1, err := s.Store(object.NewBlob([]byte("a")))
	require.NoError(t, err)
	oid2, err := s.Store(object.NewBlob([]byte("b")))
	require.NoError(t, err)

	prefix := commonPrefix(oid1.String(), oid2.String())
	if len(prefix) < 4 {
		t.Skip("fixture hashes don't share a long enough prefix to exercise ambiguity")
	}

	_, err = s.Resolve(prefix)
	var ambiguous *storage.AmbiguousError
	if errors.As(err, &ambiguous) {
		assert.ElementsMatch(t, []plumbing.Hash{oid1, oid2}, ambiguous.Candidates)
	}
}

func TestTreeDiffReExportsObjectDiff(t *testing.T) {
	s := newStore()
	v1, err := s.Store(object.NewBlob([]byte("one")))
	require.NoError(t, err)
	tree1, err := s.Store(object.NewTree([]object.TreeEntry{{Name: "f.txt", Mode: filemode.Regular, Hash: v1}}))
	require.NoError(t, err)

	changes, err := s.TreeDiff(plumbing.ZeroHash, tree1, pathspec.New())
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "f.txt", changes[0].Path)
}

func commonPrefix(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}
